package oracle

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"oraclescope/internal/model"
)

// Category names one of the list views.
type Category string

const (
	CategoryLatest      Category = "LATEST"
	CategoryClosingSoon Category = "CLOSING_SOON"
	CategoryHighReward  Category = "HIGH_REWARD"
	CategoryResolved    Category = "RESOLVED"
)

// blockWindows is the escalating scan window schedule: small first for quick
// recent results, wider as the cursor moves into older history.
var blockWindows = []uint64{100, 2500, 5000}

// QuestionSource yields question creation events for the scanner.
type QuestionSource interface {
	QuestionEventsInRange(ctx context.Context, fromBlock, toBlock uint64) ([]model.NewQuestionEvent, error)
}

// ScanCursor is the scanner's progress through history, moving backward from
// the latest block toward the network's initial block.
type ScanCursor struct {
	ToBlock     uint64 `json:"to_block"`
	WindowIndex int    `json:"window_index"`
}

// ListResult is one page of a category view.
type ListResult struct {
	Questions []*model.Question
	Total     int
	Loading   bool
}

// Scanner discovers questions by walking the event log backward in windows
// and resolving each discovered id through the cache.
type Scanner struct {
	source       QuestionSource
	cache        *Cache
	initialBlock uint64
	logger       *zap.Logger
	now          func() time.Time

	mu        sync.Mutex
	cursor    ScanCursor
	exhausted bool
}

// NewScanner builds a Scanner starting at latestBlock and stopping at
// initialBlock.
func NewScanner(source QuestionSource, cache *Cache, initialBlock, latestBlock uint64, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{
		source:       source,
		cache:        cache,
		initialBlock: initialBlock,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
		cursor:       ScanCursor{ToBlock: latestBlock},
		exhausted:    latestBlock <= initialBlock,
	}
}

// Resume restores a previously persisted cursor.
func (s *Scanner) Resume(cursor ScanCursor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor = cursor
	s.exhausted = cursor.ToBlock <= s.initialBlock
}

// Cursor returns the current scan position.
func (s *Scanner) Cursor() ScanCursor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Exhausted reports whether the scan has reached the initial block.
func (s *Scanner) Exhausted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exhausted
}

// Tick scans one window, resolves the discovered questions and advances the
// cursor. It is a no-op once the scan is exhausted.
func (s *Scanner) Tick(ctx context.Context) error {
	s.mu.Lock()
	if s.exhausted {
		s.mu.Unlock()
		return nil
	}
	cursor := s.cursor
	s.mu.Unlock()

	windowIndex := cursor.WindowIndex
	if windowIndex >= len(blockWindows) {
		windowIndex = len(blockWindows) - 1
	}
	window := blockWindows[windowIndex]

	from := s.initialBlock
	if cursor.ToBlock > window && cursor.ToBlock-window > s.initialBlock {
		from = cursor.ToBlock - window
	}

	s.logger.Debug("scan window",
		zap.Uint64("from", from),
		zap.Uint64("to", cursor.ToBlock),
		zap.Int("window_index", cursor.WindowIndex))

	events, err := s.source.QuestionEventsInRange(ctx, from, cursor.ToBlock)
	if err != nil {
		return fmt.Errorf("scan [%d, %d]: %w", from, cursor.ToBlock, err)
	}

	ids := make([]common.Hash, 0, len(events))
	for _, event := range events {
		ids = append(ids, event.QuestionID)
	}
	if _, err := s.cache.GetManyByIDs(ctx, ids); err != nil {
		return err
	}

	s.mu.Lock()
	s.cursor.WindowIndex++
	if from <= s.initialBlock {
		s.exhausted = true
	} else {
		s.cursor.ToBlock = from - 1
	}
	s.mu.Unlock()
	return nil
}

// ScanToEnd ticks until the full history has been covered.
func (s *Scanner) ScanToEnd(ctx context.Context) error {
	for !s.Exhausted() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := s.Tick(ctx); err != nil {
			return err
		}
	}
	return nil
}

// List returns one category view over everything discovered so far. first
// bounds the page size; zero or negative means no bound. Loading stays true
// until the backward scan has reached the initial block.
func (s *Scanner) List(category Category, first int) ListResult {
	questions := s.cache.Questions()
	now := s.now()
	views := Segregate(questions, now)

	items := views[category]
	total := len(items)
	if first > 0 && first < len(items) {
		items = items[:first]
	}
	return ListResult{
		Questions: items,
		Total:     total,
		Loading:   !s.Exhausted(),
	}
}

// Segregate partitions questions into the four category views, each filtered
// and sorted per its presentation rule. States are recomputed at the given
// observation time, not read from the cached aggregates.
func Segregate(questions []*model.Question, now time.Time) map[Category][]*model.Question {
	views := map[Category][]*model.Question{
		CategoryLatest:      {},
		CategoryClosingSoon: {},
		CategoryHighReward:  {},
		CategoryResolved:    {},
	}

	for _, q := range questions {
		state := q.StateAt(now)

		if state != model.StateFinalized {
			views[CategoryLatest] = append(views[CategoryLatest], q)
			if q.Bounty != nil && q.Bounty.Sign() > 0 {
				views[CategoryHighReward] = append(views[CategoryHighReward], q)
			}
		}
		if (state == model.StateOpen || state == model.StatePendingArbitration) && q.Answered() {
			views[CategoryClosingSoon] = append(views[CategoryClosingSoon], q)
		}
		if state == model.StateFinalized {
			views[CategoryResolved] = append(views[CategoryResolved], q)
		}
	}

	sort.SliceStable(views[CategoryLatest], func(i, j int) bool {
		return views[CategoryLatest][i].CreatedAt.After(views[CategoryLatest][j].CreatedAt)
	})
	sort.SliceStable(views[CategoryClosingSoon], func(i, j int) bool {
		a, b := views[CategoryClosingSoon][i], views[CategoryClosingSoon][j]
		// Unanswered entries keep their position ahead of any pairing, the
		// rest order by finalize time descending.
		if !a.Answered() {
			return b.Answered()
		}
		if !b.Answered() {
			return false
		}
		return a.FinalizedAt.After(*b.FinalizedAt)
	})
	sort.SliceStable(views[CategoryHighReward], func(i, j int) bool {
		return views[CategoryHighReward][i].Bounty.Cmp(views[CategoryHighReward][j].Bounty) > 0
	})
	sort.SliceStable(views[CategoryResolved], func(i, j int) bool {
		a, b := views[CategoryResolved][i], views[CategoryResolved][j]
		if a.FinalizedAt == nil || b.FinalizedAt == nil {
			return a.FinalizedAt != nil
		}
		return a.FinalizedAt.After(*b.FinalizedAt)
	})

	return views
}
