package oracle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"oraclescope/internal/model"
)

// Notification is one personally-relevant activity record.
type Notification struct {
	QuestionID    common.Hash `json:"question_id"`
	QuestionTitle string      `json:"question_title"`
	Message       string      `json:"message"`
	OccurredAt    time.Time   `json:"occurred_at"`
}

// EventSource yields the full decoded event history, newest first.
type EventSource interface {
	AllEvents(ctx context.Context, fromBlock uint64) ([]model.OracleEvent, error)
}

// FeedBuilder turns the raw event history into a viewer's notification feed.
type FeedBuilder struct {
	source    EventSource
	cache     *Cache
	fromBlock uint64
	currency  string
	logger    *zap.Logger
}

// NewFeedBuilder builds a FeedBuilder. currency names the token unit shown in
// reward and claim messages.
func NewFeedBuilder(source EventSource, cache *Cache, fromBlock uint64, currency string, logger *zap.Logger) *FeedBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedBuilder{
		source:    source,
		cache:     cache,
		fromBlock: fromBlock,
		currency:  currency,
		logger:    logger,
	}
}

// Build scans the full event history and returns the viewer's notifications,
// newest first. Events referencing questions with no creation record are
// skipped with a warning rather than failing the whole feed.
func (f *FeedBuilder) Build(ctx context.Context, viewer common.Address) ([]Notification, error) {
	events, err := f.source.AllEvents(ctx, f.fromBlock)
	if err != nil {
		return nil, fmt.Errorf("fetch events: %w", err)
	}

	notifications := make([]Notification, 0, len(events))
	for _, event := range events {
		notification, err := f.evaluate(ctx, viewer, event)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				f.logger.Warn("event references unknown question, skipping",
					zap.String("kind", string(event.Kind)),
					zap.Uint64("block_number", event.BlockNumber))
				continue
			}
			return nil, err
		}
		if notification != nil {
			notifications = append(notifications, *notification)
		}
	}
	return notifications, nil
}

// evaluate applies the per-kind relevance predicate, producing zero or one
// notification for the event.
func (f *FeedBuilder) evaluate(ctx context.Context, viewer common.Address, event model.OracleEvent) (*Notification, error) {
	switch payload := event.Payload.(type) {
	case model.NewQuestionEvent:
		if payload.User != viewer {
			return nil, nil
		}
		q, err := f.cache.GetByID(ctx, payload.QuestionID)
		if err != nil {
			return nil, err
		}
		return &Notification{
			QuestionID:    q.ID,
			QuestionTitle: q.Title,
			Message:       "You asked a question",
			OccurredAt:    q.CreatedAt,
		}, nil

	case model.NewAnswerEvent:
		q, err := f.cache.GetByID(ctx, payload.QuestionID)
		if err != nil {
			return nil, err
		}
		note := func(message string) *Notification {
			return &Notification{
				QuestionID:    q.ID,
				QuestionTitle: q.Title,
				Message:       message,
				OccurredAt:    payload.AnsweredAt,
			}
		}
		if payload.User == viewer {
			if payload.IsCommitment {
				return note("You committed to answering a question"), nil
			}
			return note("You answered a question"), nil
		}
		if q.CreatedBy == viewer {
			return note("Someone answered your question"), nil
		}
		if answerOverwritten(q, viewer) {
			return note("Your answer was overwritten"), nil
		}
		return nil, nil

	case model.AnswerRevealEvent:
		q, err := f.cache.GetByID(ctx, payload.QuestionID)
		if err != nil {
			return nil, err
		}
		note := func(message string) *Notification {
			return &Notification{
				QuestionID:    q.ID,
				QuestionTitle: q.Title,
				Message:       message,
				OccurredAt:    event.BlockTime,
			}
		}
		if payload.User == viewer {
			return note("You revealed an answer to a question"), nil
		}
		if q.CreatedBy == viewer {
			return note("Someone revealed their answer to your question"), nil
		}
		if answerOverwritten(q, viewer) {
			return note("Your answer was overwritten"), nil
		}
		return nil, nil

	case model.FundAnswerBountyEvent:
		q, err := f.cache.GetByID(ctx, payload.QuestionID)
		if err != nil {
			return nil, err
		}
		reward := fmt.Sprintf("%s %s", payload.Bounty.String(), f.currency)
		note := func(message string) *Notification {
			return &Notification{
				QuestionID:    q.ID,
				QuestionTitle: q.Title,
				Message:       message,
				OccurredAt:    event.BlockTime,
			}
		}
		if payload.User == viewer {
			return note(fmt.Sprintf("You added %s reward", reward)), nil
		}
		if q.CreatedBy == viewer {
			return note(fmt.Sprintf("Someone added %s reward to your question", reward)), nil
		}
		if answeredBy(q, viewer) {
			return note(fmt.Sprintf("Someone added %s reward to the question you answered", reward)), nil
		}
		return nil, nil

	case model.ArbitrationRequestEvent:
		q, err := f.cache.GetByID(ctx, payload.QuestionID)
		if err != nil {
			return nil, err
		}
		note := func(message string) *Notification {
			return &Notification{
				QuestionID:    q.ID,
				QuestionTitle: q.Title,
				Message:       message,
				OccurredAt:    event.BlockTime,
			}
		}
		if payload.User == viewer {
			return note("You requested arbitration"), nil
		}
		if q.CreatedBy == viewer {
			return note("Someone requested arbitration to your question"), nil
		}
		if answeredBy(q, viewer) {
			return note("Someone requested arbitration to the question you answered"), nil
		}
		return nil, nil

	case model.FinalizeEvent:
		q, err := f.cache.GetByID(ctx, payload.QuestionID)
		if err != nil {
			return nil, err
		}
		note := func(message string) *Notification {
			return &Notification{
				QuestionID:    q.ID,
				QuestionTitle: q.Title,
				Message:       message,
				OccurredAt:    event.BlockTime,
			}
		}
		if q.CreatedBy == viewer {
			return note("Your question is finalized"), nil
		}
		if answeredBy(q, viewer) {
			return note("The question you answered is finalized"), nil
		}
		return nil, nil

	case model.ClaimEvent:
		if payload.User != viewer {
			return nil, nil
		}
		q, err := f.cache.GetByID(ctx, payload.QuestionID)
		if err != nil {
			return nil, err
		}
		return &Notification{
			QuestionID:    q.ID,
			QuestionTitle: q.Title,
			Message:       fmt.Sprintf("You claimed %s %s", payload.Amount.String(), f.currency),
			OccurredAt:    event.BlockTime,
		}, nil

	default:
		// Template and fee events carry no per-viewer relevance.
		return nil, nil
	}
}

// answeredBy reports whether the viewer appears anywhere in the answer
// history.
func answeredBy(q *model.Question, viewer common.Address) bool {
	for _, answer := range q.Answers {
		if answer.Answerer == viewer {
			return true
		}
	}
	return false
}

// answerOverwritten reports whether the viewer holds a superseded answer: any
// entry but the most recent one.
func answerOverwritten(q *model.Question, viewer common.Address) bool {
	if len(q.Answers) < 2 {
		return false
	}
	for _, answer := range q.Answers[:len(q.Answers)-1] {
		if answer.Answerer == viewer {
			return true
		}
	}
	return false
}
