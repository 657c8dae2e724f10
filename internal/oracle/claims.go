package oracle

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"oraclescope/internal/model"
)

// Claim transaction gas: a base cost plus a per-answer replay cost.
const (
	claimGasBase      = 140000
	claimGasPerAnswer = 30000
)

// ClaimArguments are the parallel arrays the settlement contract's
// claimMultipleAndWithdrawBalance call expects. AnswerLengths holds one entry
// per question: the number of answers being replayed for it.
type ClaimArguments struct {
	QuestionIDs   []common.Hash    `json:"question_ids"`
	AnswerLengths []*big.Int       `json:"answer_lengths"`
	HistoryHashes []common.Hash    `json:"history_hashes"`
	Answerers     []common.Address `json:"answerers"`
	Bonds         []*big.Int       `json:"bonds"`
	Answers       []common.Hash    `json:"answers"`
}

// Claim is a computed claimable total together with the transaction arguments
// that realize it.
type Claim struct {
	Total     *big.Int
	Arguments ClaimArguments
}

// GasLimit estimates the gas the claim transaction needs.
func (c *Claim) GasLimit() uint64 {
	return claimGasBase + claimGasPerAnswer*uint64(len(c.Arguments.HistoryHashes))
}

// ComputeClaim replays the question's answer chain backward and returns what
// the viewer can claim, or nil when nothing is claimable. Only finalized
// questions with a non-zero history hash yield claims.
//
// The replay mirrors the on-chain settlement rule: each bond is won by
// whichever later answer superseded it, unless that later answer does not
// match the eventual best answer.
func ComputeClaim(q *model.Question, viewer common.Address, now time.Time) *Claim {
	if q.HistoryHash == (common.Hash{}) {
		return nil
	}
	if q.StateAt(now) != model.StateFinalized {
		return nil
	}

	answers := make([]model.Answer, len(q.Answers))
	copy(answers, q.Answers)
	model.SortAnswers(answers)
	if len(answers) == 0 {
		return nil
	}

	var (
		isYours bool
		total   = new(big.Int)
		args    = ClaimArguments{
			QuestionIDs:   []common.Hash{q.ID},
			AnswerLengths: []*big.Int{big.NewInt(int64(len(answers)))},
		}
	)

	for i := len(answers) - 1; i >= 0; i-- {
		answer := answers[i]

		if isYours {
			if answer.Answerer != viewer && answer.Value == q.BestAnswer {
				// A non-viewer answer matching the best answer took the chain
				// over; its bond is owed to them.
				isYours = false
				total.Sub(total, answer.Bond)
			} else {
				total.Add(total, answer.Bond)
			}
		} else {
			if answer.Answerer == viewer && answer.Value == q.BestAnswer {
				isYours = true
				total.Add(total, answer.Bond)
			}
		}

		if i == len(answers)-1 && isYours && q.Bounty != nil {
			total.Add(total, q.Bounty)
		}

		args.HistoryHashes = append(args.HistoryHashes, answer.HistoryHash)
		args.Answerers = append(args.Answerers, answer.Answerer)
		args.Bonds = append(args.Bonds, answer.Bond)
		args.Answers = append(args.Answers, answer.Value)
	}

	if total.Sign() <= 0 {
		return nil
	}

	// The verifier wants, for each claimed answer, the chain state before it:
	// shift the history hashes down one and close with the zero sentinel.
	args.HistoryHashes = append(args.HistoryHashes[1:], common.Hash{})

	return &Claim{Total: total, Arguments: args}
}

// ComputeClaims runs the claim replay over many questions and merges the
// results into one batched claim. Returns nil when nothing is claimable.
func ComputeClaims(questions []*model.Question, viewer common.Address, now time.Time) *Claim {
	merged := &Claim{Total: new(big.Int)}
	for _, q := range questions {
		claim := ComputeClaim(q, viewer, now)
		if claim == nil {
			continue
		}
		merged.Total.Add(merged.Total, claim.Total)
		merged.Arguments.QuestionIDs = append(merged.Arguments.QuestionIDs, claim.Arguments.QuestionIDs...)
		merged.Arguments.AnswerLengths = append(merged.Arguments.AnswerLengths, claim.Arguments.AnswerLengths...)
		merged.Arguments.HistoryHashes = append(merged.Arguments.HistoryHashes, claim.Arguments.HistoryHashes...)
		merged.Arguments.Answerers = append(merged.Arguments.Answerers, claim.Arguments.Answerers...)
		merged.Arguments.Bonds = append(merged.Arguments.Bonds, claim.Arguments.Bonds...)
		merged.Arguments.Answers = append(merged.Arguments.Answers, claim.Arguments.Answers...)
	}
	if merged.Total.Sign() <= 0 {
		return nil
	}
	return merged
}
