package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"oraclescope/internal/model"
)

// AccountSource yields the user-filtered event queries the account view
// needs. *realitio.Contract satisfies it.
type AccountSource interface {
	QuestionEventsByUser(ctx context.Context, fromBlock uint64, user common.Address) ([]model.NewQuestionEvent, error)
	AnswerEventsByUser(ctx context.Context, fromBlock uint64, user common.Address) ([]model.NewAnswerEvent, error)
}

// AccountView aggregates one address's questions, answers and claimable
// balance.
type AccountView struct {
	source    AccountSource
	cache     *Cache
	fromBlock uint64
}

// NewAccountView builds an AccountView over the shared cache.
func NewAccountView(source AccountSource, cache *Cache, fromBlock uint64) *AccountView {
	return &AccountView{
		source:    source,
		cache:     cache,
		fromBlock: fromBlock,
	}
}

// Questions returns every question the user created.
func (v *AccountView) Questions(ctx context.Context, user common.Address) ([]*model.Question, error) {
	events, err := v.source.QuestionEventsByUser(ctx, v.fromBlock, user)
	if err != nil {
		return nil, fmt.Errorf("fetch questions by user: %w", err)
	}

	ids := make([]common.Hash, 0, len(events))
	for _, event := range events {
		ids = append(ids, event.QuestionID)
	}
	return v.cache.GetManyByIDs(ctx, ids)
}

// Answered returns every question the user has answered, one entry per
// question regardless of how many answers they placed.
func (v *AccountView) Answered(ctx context.Context, user common.Address) ([]*model.Question, error) {
	events, err := v.source.AnswerEventsByUser(ctx, v.fromBlock, user)
	if err != nil {
		return nil, fmt.Errorf("fetch answers by user: %w", err)
	}

	ids := make([]common.Hash, 0, len(events))
	for _, event := range events {
		ids = append(ids, event.QuestionID)
	}
	return v.cache.GetManyByIDs(ctx, ids)
}

// Claimable replays the claim computation over every question the user
// answered and returns the merged claim, or nil when nothing is owed.
func (v *AccountView) Claimable(ctx context.Context, user common.Address, now time.Time) (*Claim, error) {
	questions, err := v.Answered(ctx, user)
	if err != nil {
		return nil, err
	}
	return ComputeClaims(questions, user, now), nil
}
