package model

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// EventKind identifies one of the oracle contract's event types.
type EventKind string

const (
	KindNewQuestion        EventKind = "LogNewQuestion"
	KindNewAnswer          EventKind = "LogNewAnswer"
	KindAnswerReveal       EventKind = "LogAnswerReveal"
	KindFundAnswerBounty   EventKind = "LogFundAnswerBounty"
	KindArbitrationRequest EventKind = "LogNotifyOfArbitrationRequest"
	KindFinalize           EventKind = "LogFinalize"
	KindClaim              EventKind = "LogClaim"
	KindSetQuestionFee     EventKind = "LogSetQuestionFee"
	KindNewTemplate        EventKind = "LogNewTemplate"
)

// EventMeta carries the ledger position shared by every decoded event.
// (BlockNumber, LogIndex) is the total order of the event log.
type EventMeta struct {
	BlockNumber uint64    `json:"block_number"`
	TxHash      string    `json:"tx_hash"`
	LogIndex    uint64    `json:"log_index"`
	BlockTime   time.Time `json:"block_time,omitempty"`
}

// NewQuestionEvent is the decoded LogNewQuestion payload.
type NewQuestionEvent struct {
	EventMeta
	QuestionID  common.Hash    `json:"question_id"`
	User        common.Address `json:"user"`
	TemplateID  int64          `json:"template_id"`
	Question    string         `json:"question"`
	ContentHash common.Hash    `json:"content_hash"`
	Arbitrator  common.Address `json:"arbitrator"`
	Timeout     time.Duration  `json:"timeout"`
	OpeningAt   time.Time      `json:"opening_at"`
	Nonce       *big.Int       `json:"nonce"`
	CreatedAt   time.Time      `json:"created_at"`
}

// NewAnswerEvent is the decoded LogNewAnswer payload.
type NewAnswerEvent struct {
	EventMeta
	QuestionID   common.Hash    `json:"question_id"`
	Answer       common.Hash    `json:"answer"`
	HistoryHash  common.Hash    `json:"history_hash"`
	User         common.Address `json:"user"`
	Bond         *big.Int       `json:"bond"`
	AnsweredAt   time.Time      `json:"answered_at"`
	IsCommitment bool           `json:"is_commitment"`
}

// AnswerRevealEvent is the decoded LogAnswerReveal payload.
type AnswerRevealEvent struct {
	EventMeta
	QuestionID common.Hash    `json:"question_id"`
	User       common.Address `json:"user"`
	AnswerHash common.Hash    `json:"answer_hash"`
	Answer     common.Hash    `json:"answer"`
	Nonce      *big.Int       `json:"nonce"`
	Bond       *big.Int       `json:"bond"`
}

// FundAnswerBountyEvent is the decoded LogFundAnswerBounty payload. Bounty is
// the running total after the addition.
type FundAnswerBountyEvent struct {
	EventMeta
	QuestionID  common.Hash    `json:"question_id"`
	BountyAdded *big.Int       `json:"bounty_added"`
	Bounty      *big.Int       `json:"bounty"`
	User        common.Address `json:"user"`
}

// ArbitrationRequestEvent is the decoded LogNotifyOfArbitrationRequest payload.
type ArbitrationRequestEvent struct {
	EventMeta
	QuestionID common.Hash    `json:"question_id"`
	User       common.Address `json:"user"`
}

// FinalizeEvent is the decoded LogFinalize payload.
type FinalizeEvent struct {
	EventMeta
	QuestionID common.Hash `json:"question_id"`
	Answer     common.Hash `json:"answer"`
}

// ClaimEvent is the decoded LogClaim payload.
type ClaimEvent struct {
	EventMeta
	QuestionID common.Hash    `json:"question_id"`
	User       common.Address `json:"user"`
	Amount     *big.Int       `json:"amount"`
}

// SetQuestionFeeEvent is the decoded LogSetQuestionFee payload.
type SetQuestionFeeEvent struct {
	EventMeta
	Arbitrator common.Address `json:"arbitrator"`
	Amount     *big.Int       `json:"amount"`
}

// NewTemplateEvent is the decoded LogNewTemplate payload.
type NewTemplateEvent struct {
	EventMeta
	TemplateID   int64          `json:"template_id"`
	User         common.Address `json:"user"`
	QuestionText string         `json:"question_text"`
}

// OracleEvent is one decoded event of any kind, as produced by a full-range
// scan. Payload holds the kind-specific record above.
type OracleEvent struct {
	Kind EventKind `json:"kind"`
	EventMeta
	Payload interface{} `json:"payload"`
}
