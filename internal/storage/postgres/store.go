package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"oraclescope/internal/model"
)

// Store provides Postgres persistence for question snapshots and scan state.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// UpsertQuestions inserts or updates question snapshots. Money columns travel
// as decimal strings to keep arbitrary precision end to end.
func (s *Store) UpsertQuestions(ctx context.Context, questions []*model.Question) error {
	if len(questions) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, q := range questions {
		var finalizedAt interface{}
		if q.FinalizedAt != nil {
			finalizedAt = *q.FinalizedAt
		}
		bounty := "0"
		if q.Bounty != nil {
			bounty = q.Bounty.String()
		}
		bond := "0"
		if q.Bond != nil {
			bond = q.Bond.String()
		}

		batch.Queue(`
			INSERT INTO questions (
				question_id, arbitrator, created_by, content_hash, template_id, raw_question,
				created_at_chain, created_at_block, opening_at, timeout_seconds,
				finalized_at, pending_arbitration, bounty, best_answer, history_hash, bond,
				state, question_type, title, category, lang, answer_count, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,now(),now())
			ON CONFLICT (question_id)
			DO UPDATE SET
				finalized_at = EXCLUDED.finalized_at,
				pending_arbitration = EXCLUDED.pending_arbitration,
				bounty = EXCLUDED.bounty,
				best_answer = EXCLUDED.best_answer,
				history_hash = EXCLUDED.history_hash,
				bond = EXCLUDED.bond,
				state = EXCLUDED.state,
				answer_count = EXCLUDED.answer_count,
				updated_at = now()
		`,
			q.ID.Hex(),
			q.Arbitrator.Hex(),
			q.CreatedBy.Hex(),
			q.ContentHash.Hex(),
			q.TemplateID,
			q.RawQuestion,
			q.CreatedAt,
			int64(q.CreatedAtBlock),
			q.OpeningAt,
			int64(q.Timeout.Seconds()),
			finalizedAt,
			q.PendingArbitration,
			bounty,
			q.BestAnswer.Hex(),
			q.HistoryHash.Hex(),
			bond,
			string(q.State),
			string(q.Type),
			q.Title,
			q.Category,
			q.Language,
			len(q.Answers),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range questions {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadScanState returns the persisted scan cursor for a name.
func (s *Store) LoadScanState(ctx context.Context, name string) (toBlock uint64, windowIndex int, ok bool, err error) {
	if name == "" {
		return 0, 0, false, fmt.Errorf("state name required")
	}
	row := s.pool.QueryRow(ctx, `SELECT to_block, window_index FROM scan_state WHERE name=$1`, name)
	if err := row.Scan(&toBlock, &windowIndex); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, false, nil
		}
		return 0, 0, false, err
	}
	return toBlock, windowIndex, true, nil
}

// SaveScanState upserts the scan cursor for a name.
func (s *Store) SaveScanState(ctx context.Context, name string, toBlock uint64, windowIndex int) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO scan_state (name, to_block, window_index, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (name) DO UPDATE
		SET to_block = EXCLUDED.to_block, window_index = EXCLUDED.window_index, updated_at = now()
	`, name, int64(toBlock), windowIndex)
	return err
}
