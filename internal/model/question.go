package model

import (
	"math/big"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// QuestionState is the derived lifecycle state of a question. It is a pure
// function of the live contract state and the observation time, recomputed on
// every reconstruction and never stored on chain.
type QuestionState string

const (
	StateNotOpen            QuestionState = "NOT_OPEN"
	StateOpen               QuestionState = "OPEN"
	StatePendingArbitration QuestionState = "PENDING_ARBITRATION"
	StateFinalized          QuestionState = "FINALIZED"
)

// QuestionType is the parsed answer format of a question, decoded from the
// template-populated question JSON.
type QuestionType string

const (
	TypeBinary         QuestionType = "BINARY"
	TypeNumber         QuestionType = "NUMBER"
	TypeSingleChoice   QuestionType = "SINGLE_CHOICE"
	TypeMultipleChoice QuestionType = "MULTIPLE_CHOICE"
	TypeDateTime       QuestionType = "DATE_TIME"
)

// QuestionIdentity holds the immutable fields of a question, taken from its
// LogNewQuestion event. There is exactly one such event per question id.
type QuestionIdentity struct {
	ID             common.Hash    `json:"question_id"`
	Arbitrator     common.Address `json:"arbitrator"`
	Nonce          *big.Int       `json:"nonce"`
	CreatedAt      time.Time      `json:"created_at"`
	CreatedAtBlock uint64         `json:"created_at_block"`
	CreatedBy      common.Address `json:"created_by"`
	ContentHash    common.Hash    `json:"content_hash"`
	RawQuestion    string         `json:"raw_question"`
	TemplateID     int64          `json:"template_id"`
	OpeningAt      time.Time      `json:"opening_at"`
}

// QuestionLiveState holds the mutable fields of a question as returned by the
// questions(bytes32) contract read at a point in time.
type QuestionLiveState struct {
	Timeout            time.Duration `json:"timeout"`
	FinalizedAt        *time.Time    `json:"finalized_at,omitempty"` // nil until the first answer arrives
	PendingArbitration bool          `json:"pending_arbitration"`
	Bounty             *big.Int      `json:"bounty"`
	BestAnswer         common.Hash   `json:"best_answer"`
	HistoryHash        common.Hash   `json:"history_hash"`
	Bond               *big.Int      `json:"bond"`
}

// Answered reports whether the question has received at least one answer. The
// contract keeps finalize_ts at a sentinel value (<= 1) until then.
func (s QuestionLiveState) Answered() bool {
	return s.FinalizedAt != nil
}

// Answer is one entry of a question's append-only answer history, taken from a
// LogNewAnswer event.
type Answer struct {
	Value        common.Hash    `json:"answer"`
	Bond         *big.Int       `json:"bond"`
	HistoryHash  common.Hash    `json:"history_hash"`
	IsCommitment bool           `json:"is_commitment"`
	Answerer     common.Address `json:"answerer"`
	AnsweredAt   time.Time      `json:"answered_at"`
	BlockNumber  uint64         `json:"block_number"`
	LogIndex     uint64         `json:"log_index"`
}

// SortAnswers orders answers ascending by ledger sequence: timestamp first,
// then block number, then log index. Claim replay depends on this order.
func SortAnswers(answers []Answer) {
	sort.SliceStable(answers, func(i, j int) bool {
		a, b := answers[i], answers[j]
		if !a.AnsweredAt.Equal(b.AnsweredAt) {
			return a.AnsweredAt.Before(b.AnsweredAt)
		}
		if a.BlockNumber != b.BlockNumber {
			return a.BlockNumber < b.BlockNumber
		}
		return a.LogIndex < b.LogIndex
	})
}

// Question is the reconstructed read-model aggregate: identity from the event
// log, live state from the contract, the ordered answer history, and fields
// derived from all three.
type Question struct {
	QuestionIdentity
	QuestionLiveState

	Answers []Answer `json:"answers"`

	State      QuestionState `json:"state"`
	Type       QuestionType  `json:"type"`
	Title      string        `json:"title"`
	Category   string        `json:"category"`
	Language   string        `json:"language"`
	DisputeFee *big.Int      `json:"dispute_fee"`
}

// IsOpen reports whether the question accepts answers at the given time.
func (q *Question) IsOpen(now time.Time) bool {
	if q.PendingArbitration {
		return false
	}
	if now.Before(q.OpeningAt) {
		return false
	}
	return !q.Answered() || now.Before(*q.FinalizedAt)
}

// IsFinalized reports whether the question's best answer is authoritative at
// the given time.
func (q *Question) IsFinalized(now time.Time) bool {
	if q.PendingArbitration || !q.Answered() {
		return false
	}
	return !now.Before(*q.FinalizedAt)
}

// StateAt computes the lifecycle state at the given observation time. The
// arbitration flag wins over every timestamp window while it is set.
func (q *Question) StateAt(now time.Time) QuestionState {
	if q.PendingArbitration {
		return StatePendingArbitration
	}
	if q.IsFinalized(now) {
		return StateFinalized
	}
	if q.IsOpen(now) {
		return StateOpen
	}
	return StateNotOpen
}
