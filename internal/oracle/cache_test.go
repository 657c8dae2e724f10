package oracle

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oraclescope/internal/model"
)

func stubQuestion(id common.Hash) *model.Question {
	return &model.Question{
		QuestionIdentity: model.QuestionIdentity{
			ID:        id,
			CreatedAt: time.Now().UTC(),
		},
		QuestionLiveState: model.QuestionLiveState{
			Bounty: big.NewInt(0),
			Bond:   big.NewInt(0),
		},
	}
}

type countingReconstructor struct {
	calls    atomic.Int64
	missing  map[common.Hash]bool
	failWith error
}

func (r *countingReconstructor) reconstruct(_ context.Context, id common.Hash) (*model.Question, error) {
	r.calls.Add(1)
	if r.failWith != nil {
		return nil, r.failWith
	}
	if r.missing[id] {
		return nil, ErrNotFound
	}
	return stubQuestion(id), nil
}

func TestCacheGetByIDReconstructsOnce(t *testing.T) {
	rec := &countingReconstructor{}
	cache := NewCache(rec.reconstruct, 2, nil)
	defer cache.Close()

	id := common.HexToHash("0x01")
	ctx := context.Background()

	first, err := cache.GetByID(ctx, id)
	require.NoError(t, err)
	second, err := cache.GetByID(ctx, id)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int64(1), rec.calls.Load())
}

func TestCacheConcurrentGetSingleFlight(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int64
	cache := NewCache(func(_ context.Context, id common.Hash) (*model.Question, error) {
		calls.Add(1)
		<-release
		return stubQuestion(id), nil
	}, 4, nil)
	defer cache.Close()

	id := common.HexToHash("0x02")
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.GetByID(context.Background(), id)
			assert.NoError(t, err)
		}()
	}

	// Give the goroutines time to pile onto the same flight.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load())
	assert.Equal(t, 1, cache.Len())
}

func TestCacheGetManyDedupesAndSkipsNotFound(t *testing.T) {
	missing := common.HexToHash("0x0f")
	rec := &countingReconstructor{missing: map[common.Hash]bool{missing: true}}
	cache := NewCache(rec.reconstruct, 2, nil)
	defer cache.Close()

	ids := []common.Hash{
		common.HexToHash("0x01"),
		common.HexToHash("0x02"),
		common.HexToHash("0x01"),
		missing,
	}

	questions, err := cache.GetManyByIDs(context.Background(), ids)
	require.NoError(t, err)

	require.Len(t, questions, 2)
	assert.Equal(t, int64(3), rec.calls.Load())
	assert.Equal(t, 2, cache.Len())
}

func TestCacheGetManyPropagatesFailure(t *testing.T) {
	boom := errors.New("rpc down")
	rec := &countingReconstructor{failWith: boom}
	cache := NewCache(rec.reconstruct, 2, nil)
	defer cache.Close()

	_, err := cache.GetManyByIDs(context.Background(), []common.Hash{common.HexToHash("0x01")})
	require.ErrorIs(t, err, boom)
}

func TestCacheGetManyUsesCachedEntries(t *testing.T) {
	rec := &countingReconstructor{}
	cache := NewCache(rec.reconstruct, 2, nil)
	defer cache.Close()

	id := common.HexToHash("0x01")
	_, err := cache.GetByID(context.Background(), id)
	require.NoError(t, err)

	questions, err := cache.GetManyByIDs(context.Background(), []common.Hash{id, common.HexToHash("0x02")})
	require.NoError(t, err)

	assert.Len(t, questions, 2)
	assert.Equal(t, int64(2), rec.calls.Load())
}

func TestCacheRefetchReplacesEntry(t *testing.T) {
	rec := &countingReconstructor{}
	cache := NewCache(rec.reconstruct, 2, nil)
	defer cache.Close()

	id := common.HexToHash("0x03")
	first, err := cache.GetByID(context.Background(), id)
	require.NoError(t, err)

	refreshed, err := cache.Refetch(context.Background(), id)
	require.NoError(t, err)

	assert.NotSame(t, first, refreshed)
	assert.Equal(t, int64(2), rec.calls.Load())

	cached, ok := cache.Peek(id)
	require.True(t, ok)
	assert.Same(t, refreshed, cached)
}

func TestCacheStaleFetchDoesNotOverwriteRefetch(t *testing.T) {
	id := common.HexToHash("0x04")
	slow := stubQuestion(id)
	fresh := stubQuestion(id)

	started := make(chan struct{})
	release := make(chan struct{})
	var first atomic.Bool
	cache := NewCache(func(_ context.Context, _ common.Hash) (*model.Question, error) {
		if first.CompareAndSwap(false, true) {
			close(started)
			<-release
			return slow, nil
		}
		return fresh, nil
	}, 2, nil)
	defer cache.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := cache.GetByID(context.Background(), id)
		assert.NoError(t, err)
	}()

	<-started
	_, err := cache.Refetch(context.Background(), id)
	require.NoError(t, err)

	close(release)
	<-done

	cached, ok := cache.Peek(id)
	require.True(t, ok)
	assert.Same(t, fresh, cached)
}

func TestCacheNotifiesListeners(t *testing.T) {
	rec := &countingReconstructor{}
	cache := NewCache(rec.reconstruct, 2, nil)
	defer cache.Close()

	var mu sync.Mutex
	var seen []common.Hash
	cache.Subscribe(func(q *model.Question) {
		mu.Lock()
		seen = append(seen, q.ID)
		mu.Unlock()
	})

	id := common.HexToHash("0x05")
	_, err := cache.GetByID(context.Background(), id)
	require.NoError(t, err)
	_, err = cache.Refetch(context.Background(), id)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []common.Hash{id, id}, seen)
}
