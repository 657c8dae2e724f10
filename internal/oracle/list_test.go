package oracle

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oraclescope/internal/model"
)

type fakeQuestionSource struct {
	mu     sync.Mutex
	ranges [][2]uint64
	events map[uint64][]model.NewQuestionEvent // keyed by fromBlock
}

func (f *fakeQuestionSource) QuestionEventsInRange(_ context.Context, fromBlock, toBlock uint64) ([]model.NewQuestionEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ranges = append(f.ranges, [2]uint64{fromBlock, toBlock})
	return f.events[fromBlock], nil
}

func scanTestCache(t *testing.T) *Cache {
	t.Helper()
	cache := NewCache(func(_ context.Context, id common.Hash) (*model.Question, error) {
		return stubQuestion(id), nil
	}, 2, nil)
	t.Cleanup(cache.Close)
	return cache
}

func TestScannerWindowSchedule(t *testing.T) {
	source := &fakeQuestionSource{}
	scanner := NewScanner(source, scanTestCache(t), 0, 20000, nil)

	ctx := context.Background()
	require.NoError(t, scanner.ScanToEnd(ctx))

	// 100 first, then 2500, then 5000 repeating until the initial block.
	require.GreaterOrEqual(t, len(source.ranges), 5)
	assert.Equal(t, [2]uint64{19900, 20000}, source.ranges[0])
	assert.Equal(t, [2]uint64{17399, 19899}, source.ranges[1])
	assert.Equal(t, [2]uint64{12398, 17398}, source.ranges[2])
	assert.Equal(t, [2]uint64{7397, 12397}, source.ranges[3])
	assert.Equal(t, [2]uint64{2396, 7396}, source.ranges[4])
	assert.Equal(t, [2]uint64{0, 2395}, source.ranges[5])
	assert.True(t, scanner.Exhausted())
}

func TestScannerClampsToInitialBlock(t *testing.T) {
	source := &fakeQuestionSource{}
	scanner := NewScanner(source, scanTestCache(t), 6531147, 6531200, nil)

	require.NoError(t, scanner.Tick(context.Background()))

	require.Len(t, source.ranges, 1)
	assert.Equal(t, [2]uint64{6531147, 6531200}, source.ranges[0])
	assert.True(t, scanner.Exhausted())

	// Further ticks are no-ops.
	require.NoError(t, scanner.Tick(context.Background()))
	assert.Len(t, source.ranges, 1)
}

func TestScannerAlreadyExhaustedAtInitialBlock(t *testing.T) {
	source := &fakeQuestionSource{}
	scanner := NewScanner(source, scanTestCache(t), 100, 100, nil)

	assert.True(t, scanner.Exhausted())
	require.NoError(t, scanner.Tick(context.Background()))
	assert.Empty(t, source.ranges)
}

func TestScannerResolvesDiscoveredQuestions(t *testing.T) {
	id := common.HexToHash("0xab")
	source := &fakeQuestionSource{
		events: map[uint64][]model.NewQuestionEvent{
			900: {{QuestionID: id}},
		},
	}
	cache := scanTestCache(t)
	scanner := NewScanner(source, cache, 0, 1000, nil)

	require.NoError(t, scanner.Tick(context.Background()))

	_, ok := cache.Peek(id)
	assert.True(t, ok)

	result := scanner.List(CategoryLatest, 10)
	require.Len(t, result.Questions, 1)
	assert.Equal(t, id, result.Questions[0].ID)
	assert.True(t, result.Loading)
}

func listQuestion(id byte, created time.Time, bounty int64, finalized *time.Time, pending bool) *model.Question {
	return &model.Question{
		QuestionIdentity: model.QuestionIdentity{
			ID:        common.BytesToHash([]byte{id}),
			CreatedAt: created,
			OpeningAt: created,
		},
		QuestionLiveState: model.QuestionLiveState{
			Timeout:            24 * time.Hour,
			FinalizedAt:        finalized,
			PendingArbitration: pending,
			Bounty:             big.NewInt(bounty),
			Bond:               big.NewInt(0),
		},
	}
}

func TestSegregateHighReward(t *testing.T) {
	now := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	created := now.Add(-time.Hour)

	questions := []*model.Question{
		listQuestion(1, created, 0, nil, false),
		listQuestion(2, created, 50, nil, false),
		listQuestion(3, created, 10, nil, false),
		listQuestion(4, created, 0, nil, false),
		listQuestion(5, created, 5, nil, false),
	}

	views := Segregate(questions, now)

	high := views[CategoryHighReward]
	require.Len(t, high, 3)
	assert.Equal(t, big.NewInt(50), high[0].Bounty)
	assert.Equal(t, big.NewInt(10), high[1].Bounty)
	assert.Equal(t, big.NewInt(5), high[2].Bounty)
}

func TestSegregateLatestExcludesFinalized(t *testing.T) {
	now := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	old := now.Add(-48 * time.Hour)

	fresh := listQuestion(1, now.Add(-time.Minute), 0, nil, false)
	stale := listQuestion(2, old, 0, nil, false)
	done := listQuestion(3, old, 0, &past, false)

	views := Segregate([]*model.Question{stale, done, fresh}, now)

	latest := views[CategoryLatest]
	require.Len(t, latest, 2)
	assert.Equal(t, fresh.ID, latest[0].ID)
	assert.Equal(t, stale.ID, latest[1].ID)

	resolved := views[CategoryResolved]
	require.Len(t, resolved, 1)
	assert.Equal(t, done.ID, resolved[0].ID)
}

func TestSegregateClosingSoonExcludesUnanswered(t *testing.T) {
	now := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	created := now.Add(-48 * time.Hour)
	soon := now.Add(time.Hour)
	later := now.Add(6 * time.Hour)

	unanswered := listQuestion(1, created, 0, nil, false)
	closingSoon := listQuestion(2, created, 0, &soon, false)
	closingLater := listQuestion(3, created, 0, &later, false)
	arbitrated := listQuestion(4, created, 0, &later, true)

	views := Segregate([]*model.Question{unanswered, closingSoon, closingLater, arbitrated}, now)

	closing := views[CategoryClosingSoon]
	require.Len(t, closing, 3)
	// Descending by finalize time; the soonest entry reads from the end.
	assert.Equal(t, closingSoon.ID, closing[len(closing)-1].ID)
}

func TestSegregateResolvedOrder(t *testing.T) {
	now := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	created := now.Add(-96 * time.Hour)
	earlier := now.Add(-10 * time.Hour)
	recent := now.Add(-time.Hour)

	first := listQuestion(1, created, 0, &earlier, false)
	second := listQuestion(2, created, 0, &recent, false)

	views := Segregate([]*model.Question{first, second}, now)

	resolved := views[CategoryResolved]
	require.Len(t, resolved, 2)
	assert.Equal(t, second.ID, resolved[0].ID)
	assert.Equal(t, first.ID, resolved[1].ID)
}

func TestListPagination(t *testing.T) {
	now := time.Now().UTC()
	cache := NewCache(func(_ context.Context, id common.Hash) (*model.Question, error) {
		return listQuestion(id[31], now.Add(-time.Duration(id[31])*time.Minute), 0, nil, false), nil
	}, 2, nil)
	t.Cleanup(cache.Close)

	ctx := context.Background()
	for i := byte(1); i <= 5; i++ {
		_, err := cache.GetByID(ctx, common.BytesToHash([]byte{i}))
		require.NoError(t, err)
	}

	scanner := NewScanner(&fakeQuestionSource{}, cache, 0, 0, nil)
	result := scanner.List(CategoryLatest, 3)

	assert.Len(t, result.Questions, 3)
	assert.Equal(t, 5, result.Total)
	assert.False(t, result.Loading)
}
