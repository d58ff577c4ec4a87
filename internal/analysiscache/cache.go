package analysiscache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/yungbote/argo-backend/internal/logger"
)

// Cache memoizes expensive per-discussion analysis results. Concurrent
// lookups for the same missing key share a single computation. Invalidation
// is immediate for new lookups but never cancels an in-flight computation;
// instead each computation remembers the generation it started under and its
// result is discarded if that generation has been superseded. Last writer by
// token, not by time.
type Cache struct {
	log *logger.Logger

	mu      sync.Mutex
	entries map[string]entry
	gens    map[string]uint64
	epoch   uint64

	group singleflight.Group
}

type entry struct {
	value     any
	createdAt time.Time
	gen       uint64
	epoch     uint64
}

type ComputeFunc func(ctx context.Context) (any, error)

func New(log *logger.Logger) *Cache {
	return &Cache{
		log:     log.With("component", "AnalysisCache"),
		entries: make(map[string]entry),
		gens:    make(map[string]uint64),
	}
}

// GetOrCompute returns the cached value for key, computing it at most once
// across concurrent callers. A failed computation is propagated to every
// waiter and nothing is cached, so the next call retries.
func (c *Cache) GetOrCompute(ctx context.Context, key string, compute ComputeFunc) (any, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return e.value, nil
	}
	startGen := c.gens[key]
	startEpoch := c.epoch
	c.mu.Unlock()

	// The flight key carries the generation so a lookup arriving after an
	// invalidation starts a fresh computation instead of joining a stale one.
	flightKey := fmt.Sprintf("%s@%d.%d", key, startGen, startEpoch)

	// The computation is shared across sessions; one caller disconnecting
	// must not cancel it for the others.
	computeCtx := context.WithoutCancel(ctx)

	value, err, _ := c.group.Do(flightKey, func() (any, error) {
		v, computeErr := compute(computeCtx)
		if computeErr != nil {
			return nil, computeErr
		}
		c.mu.Lock()
		if c.gens[key] == startGen && c.epoch == startEpoch {
			c.entries[key] = entry{value: v, createdAt: time.Now(), gen: startGen, epoch: startEpoch}
		} else {
			c.log.Debug("Discarding computation result for superseded key", "key", key)
		}
		c.mu.Unlock()
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Invalidate logically removes the entry for key and advances its generation
// token so any in-flight computation under the old token is discarded.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.gens[key]++
	c.mu.Unlock()
	c.log.Debug("Cache key invalidated", "key", key)
}

// InvalidateAll drops every entry unconditionally and advances the epoch so
// all in-flight computations are discarded on completion.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	n := len(c.entries)
	c.entries = make(map[string]entry)
	c.epoch++
	c.mu.Unlock()
	c.log.Info("Cache cleared", "entries_dropped", n)
}

// Len reports the number of stored entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Key derives a deterministic cache key from a discussion or contact identity
// and the analysis parameters.
func Key(subjectID string, maxMessages int) string {
	return fmt.Sprintf("analysis:%s:%d", subjectID, maxMessages)
}
