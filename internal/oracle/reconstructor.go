package oracle

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"oraclescope/internal/model"
	"oraclescope/internal/realitio"
)

// ContractReader is the slice of the contract surface the reconstructor
// needs. *realitio.Contract satisfies it.
type ContractReader interface {
	NewQuestionEventsByID(ctx context.Context, fromBlock uint64, id common.Hash) ([]model.NewQuestionEvent, error)
	AnswerEventsByID(ctx context.Context, fromBlock uint64, id common.Hash) ([]model.NewAnswerEvent, error)
	QuestionRecord(ctx context.Context, id common.Hash) (model.QuestionLiveState, error)
	DisputeFee(ctx context.Context, arbitrator common.Address, id common.Hash) (*big.Int, error)
}

// ReconstructorConfig holds retry settings for chain reads.
type ReconstructorConfig struct {
	MaxRetries   int
	RetryBackoff time.Duration
}

// Reconstructor rebuilds full question aggregates from the event log and the
// live contract record.
type Reconstructor struct {
	contract  ContractReader
	fromBlock uint64
	cfg       ReconstructorConfig
	logger    *zap.Logger
	now       func() time.Time
}

// NewReconstructor builds a Reconstructor. fromBlock bounds every event
// lookup to the contract's deployment history.
func NewReconstructor(contract ContractReader, fromBlock uint64, cfg ReconstructorConfig, logger *zap.Logger) *Reconstructor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconstructor{
		contract:  contract,
		fromBlock: fromBlock,
		cfg:       cfg,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Reconstruct derives the current question aggregate for the id. It returns
// ErrNotFound when no creation event exists and a DuplicateQuestionError when
// more than one does.
func (r *Reconstructor) Reconstruct(ctx context.Context, id common.Hash) (*model.Question, error) {
	var creations []model.NewQuestionEvent
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		creations, err = r.contract.NewQuestionEventsByID(ctx, r.fromBlock, id)
		if err != nil {
			r.logger.Warn("question event fetch failed", zap.Error(err), zap.String("question_id", id.Hex()))
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetch creation event: %w", err)
	}

	switch len(creations) {
	case 1:
	case 0:
		return nil, ErrNotFound
	default:
		return nil, &DuplicateQuestionError{ID: id, Count: len(creations)}
	}
	creation := creations[0]

	var (
		liveState  model.QuestionLiveState
		answers    []model.NewAnswerEvent
		disputeFee *big.Int
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return withRetry(groupCtx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
			var err error
			liveState, err = r.contract.QuestionRecord(ctx, id)
			if err != nil {
				r.logger.Warn("question record fetch failed", zap.Error(err), zap.String("question_id", id.Hex()))
			}
			return err
		})
	})
	group.Go(func() error {
		return withRetry(groupCtx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
			var err error
			answers, err = r.contract.AnswerEventsByID(ctx, r.fromBlock, id)
			if err != nil {
				r.logger.Warn("answer events fetch failed", zap.Error(err), zap.String("question_id", id.Hex()))
			}
			return err
		})
	})
	group.Go(func() error {
		// Arbitrators without the fee interface fail this call; that is not
		// fatal to reconstruction.
		fee, err := r.contract.DisputeFee(groupCtx, creation.Arbitrator, id)
		if err != nil {
			r.logger.Warn("dispute fee fetch failed",
				zap.Error(err),
				zap.String("question_id", id.Hex()),
				zap.String("arbitrator", creation.Arbitrator.Hex()))
			return nil
		}
		disputeFee = fee
		return nil
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}

	question := &model.Question{
		QuestionIdentity: model.QuestionIdentity{
			ID:             creation.QuestionID,
			Arbitrator:     creation.Arbitrator,
			Nonce:          creation.Nonce,
			CreatedAt:      creation.CreatedAt,
			CreatedAtBlock: creation.BlockNumber,
			CreatedBy:      creation.User,
			ContentHash:    creation.ContentHash,
			RawQuestion:    creation.Question,
			TemplateID:     creation.TemplateID,
			OpeningAt:      creation.OpeningAt,
		},
		QuestionLiveState: liveState,
		Answers:           toAnswers(answers),
		DisputeFee:        disputeFee,
	}
	model.SortAnswers(question.Answers)

	content, err := realitio.ParseQuestionText(creation.TemplateID, creation.Question)
	if err != nil {
		return nil, fmt.Errorf("parse question %s: %w", id.Hex(), err)
	}
	questionType, err := content.QuestionType()
	if err != nil {
		return nil, err
	}
	question.Type = questionType
	question.Title = content.Title
	question.Category = content.Category
	question.Language = content.Lang

	question.State = question.StateAt(r.now())
	return question, nil
}

func toAnswers(events []model.NewAnswerEvent) []model.Answer {
	answers := make([]model.Answer, 0, len(events))
	for _, event := range events {
		answers = append(answers, model.Answer{
			Value:        event.Answer,
			Bond:         event.Bond,
			HistoryHash:  event.HistoryHash,
			IsCommitment: event.IsCommitment,
			Answerer:     event.User,
			AnsweredAt:   event.AnsweredAt,
			BlockNumber:  event.BlockNumber,
			LogIndex:     event.LogIndex,
		})
	}
	return answers
}
