package oracle

import (
	"context"
	"errors"
	"sync"

	"github.com/alitto/pond/v2"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"oraclescope/internal/model"
)

// ReconstructFunc rebuilds one question aggregate from chain state.
type ReconstructFunc func(ctx context.Context, id common.Hash) (*model.Question, error)

const defaultCacheConcurrency = 8

// Cache is the deduplicating question store. Concurrent demands for the same
// id share one reconstruction, and a stale fetch never overwrites the result
// of a later forced refresh.
type Cache struct {
	reconstruct ReconstructFunc
	logger      *zap.Logger
	pool        pond.Pool

	flight singleflight.Group

	mu        sync.RWMutex
	questions map[common.Hash]*model.Question
	versions  map[common.Hash]uint64
	listeners []func(*model.Question)
}

// NewCache builds a Cache around the given reconstruction function.
// concurrency bounds parallel fetches during batch operations; zero or
// negative picks a default.
func NewCache(reconstruct ReconstructFunc, concurrency int, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if concurrency <= 0 {
		concurrency = defaultCacheConcurrency
	}
	return &Cache{
		reconstruct: reconstruct,
		logger:      logger,
		pool:        pond.NewPool(concurrency),
		questions:   make(map[common.Hash]*model.Question),
		versions:    make(map[common.Hash]uint64),
	}
}

// Close releases the cache's worker pool.
func (c *Cache) Close() {
	c.pool.StopAndWait()
}

// Subscribe registers a listener invoked after every cache write. Listeners
// run synchronously under no lock; they must not call back into the cache
// write path.
func (c *Cache) Subscribe(fn func(*model.Question)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Peek returns the cached question without triggering a fetch.
func (c *Cache) Peek(id common.Hash) (*model.Question, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.questions[id]
	return q, ok
}

// GetByID returns the cached question, reconstructing it on a miss.
// Concurrent misses for the same id collapse into a single reconstruction.
func (c *Cache) GetByID(ctx context.Context, id common.Hash) (*model.Question, error) {
	if q, ok := c.Peek(id); ok {
		return q, nil
	}

	value, err, _ := c.flight.Do(id.Hex(), func() (interface{}, error) {
		if q, ok := c.Peek(id); ok {
			return q, nil
		}
		return c.fetchAndStore(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return value.(*model.Question), nil
}

// GetManyByIDs returns the questions for the given ids, fetching misses in
// parallel. Ids with no creation event are skipped with a warning; any other
// failure aborts the batch. Order follows the input, duplicates collapse.
func (c *Cache) GetManyByIDs(ctx context.Context, ids []common.Hash) ([]*model.Question, error) {
	seen := make(map[common.Hash]struct{}, len(ids))
	ordered := make([]common.Hash, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ordered = append(ordered, id)
	}

	group := c.pool.NewGroupContext(ctx)
	groupCtx := group.Context()
	errs := make([]error, len(ordered))
	for i, id := range ordered {
		i, id := i, id
		group.Submit(func() {
			if err := groupCtx.Err(); err != nil {
				return
			}
			if _, err := c.GetByID(groupCtx, id); err != nil {
				if errors.Is(err, ErrNotFound) {
					c.logger.Warn("skipping unknown question", zap.String("question_id", id.Hex()))
					return
				}
				errs[i] = err
			}
		})
	}
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		return nil, err
	}
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	questions := make([]*model.Question, 0, len(ordered))
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, id := range ordered {
		if q, ok := c.questions[id]; ok {
			questions = append(questions, q)
		}
	}
	return questions, nil
}

// Refetch forces a fresh reconstruction for the id and stores the result
// regardless of what is cached.
func (c *Cache) Refetch(ctx context.Context, id common.Hash) (*model.Question, error) {
	c.mu.Lock()
	c.versions[id]++
	version := c.versions[id]
	c.mu.Unlock()

	q, err := c.reconstruct(ctx, id)
	if err != nil {
		return nil, err
	}
	c.commit(id, q, version)
	return q, nil
}

// RefetchIDs refreshes the given ids in parallel.
func (c *Cache) RefetchIDs(ctx context.Context, ids []common.Hash) error {
	group := c.pool.NewGroupContext(ctx)
	groupCtx := group.Context()
	errs := make([]error, len(ids))
	for i, id := range ids {
		i, id := i, id
		group.Submit(func() {
			if err := groupCtx.Err(); err != nil {
				return
			}
			if _, err := c.Refetch(groupCtx, id); err != nil {
				errs[i] = err
			}
		})
	}
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		return err
	}
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Questions returns a snapshot of every cached question.
func (c *Cache) Questions() []*model.Question {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*model.Question, 0, len(c.questions))
	for _, q := range c.questions {
		out = append(out, q)
	}
	return out
}

// Len returns the number of cached questions.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.questions)
}

// fetchAndStore reconstructs the question and commits it unless a forced
// refresh landed in the meantime.
func (c *Cache) fetchAndStore(ctx context.Context, id common.Hash) (*model.Question, error) {
	c.mu.RLock()
	version := c.versions[id]
	c.mu.RUnlock()

	q, err := c.reconstruct(ctx, id)
	if err != nil {
		return nil, err
	}
	c.commit(id, q, version)
	return q, nil
}

// commit stores the question if no newer write superseded the fetch that
// produced it, then notifies listeners.
func (c *Cache) commit(id common.Hash, q *model.Question, version uint64) {
	c.mu.Lock()
	if c.versions[id] > version {
		c.mu.Unlock()
		return
	}
	c.questions[id] = q
	listeners := make([]func(*model.Question), len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(q)
	}
}
