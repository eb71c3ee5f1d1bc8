package app

import (
	"context"
	"sync"
	"time"

	"github.com/linkupcampus/linkup/internal/domain"
	"github.com/linkupcampus/linkup/pkg/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ListingLoader loads every listing from the store.
type ListingLoader func(ctx context.Context) ([]domain.Service, error)

const (
	listingLoadTimeout = 30 * time.Second
	// a snapshot read retries at most this many loads while writes keep landing
	maxSnapshotLoads = 3
)

// ListingCache keeps a snapshot of all listings. It is refreshed by cron and
// marked stale by every write, so the next read reloads it.
type ListingCache struct {
	load    ListingLoader
	group   singleflight.Group
	timeout time.Duration

	mu       sync.RWMutex
	services []domain.Service
	loadedAt time.Time
	stale    bool
	gen      uint64
}

type loadResult struct {
	services []domain.Service
	gen      uint64
}

func NewListingCache(load ListingLoader) *ListingCache {
	return &ListingCache{load: load, stale: true, timeout: listingLoadTimeout}
}

// Snapshot returns a copy of the cached listings, loading them first when the
// cache is empty or stale. Concurrent loads are collapsed into one. A load
// that started before the last write is not returned; the read loads again.
func (c *ListingCache) Snapshot(ctx context.Context) ([]domain.Service, error) {
	var res loadResult
	for i := 0; i < maxSnapshotLoads; i++ {
		c.mu.RLock()
		if !c.stale {
			out := make([]domain.Service, len(c.services))
			copy(out, c.services)
			c.mu.RUnlock()
			return out, nil
		}
		gen := c.gen
		c.mu.RUnlock()

		var err error
		res, err = c.shared(ctx)
		if err != nil {
			return nil, err
		}
		if res.gen >= gen {
			break
		}
	}
	out := make([]domain.Service, len(res.services))
	copy(out, res.services)
	return out, nil
}

// Refresh reloads the snapshot unconditionally.
func (c *ListingCache) Refresh(ctx context.Context) error {
	_, err := c.shared(ctx)
	return err
}

// shared joins the in-flight load or starts one. The load runs detached from
// ctx so one cancelled caller does not fail the others; ctx only bounds the
// wait.
func (c *ListingCache) shared(ctx context.Context) (loadResult, error) {
	ch := c.group.DoChan("listings", func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		return c.reload(loadCtx)
	})
	select {
	case <-ctx.Done():
		return loadResult{}, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return loadResult{}, r.Err
		}
		return r.Val.(loadResult), nil
	}
}

// Invalidate marks the snapshot stale.
func (c *ListingCache) Invalidate() {
	c.mu.Lock()
	c.stale = true
	c.gen++
	c.mu.Unlock()
}

// LoadedAt is the time of the last successful load.
func (c *ListingCache) LoadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt
}

func (c *ListingCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.services)
}

func (c *ListingCache) reload(ctx context.Context) (loadResult, error) {
	start := time.Now()
	c.mu.RLock()
	gen := c.gen
	c.mu.RUnlock()

	services, err := c.load(ctx)
	if err != nil {
		zap.L().Warn("listing cache reload failed", zap.Error(err))
		return loadResult{}, err
	}
	c.mu.Lock()
	c.services = services
	c.loadedAt = time.Now()
	// a write during the load leaves the snapshot stale
	c.stale = c.gen != gen
	c.mu.Unlock()

	metrics.SetGauge("listing_cache_size", int64(len(services)))
	zap.L().Debug("listing cache reloaded",
		zap.Int("count", len(services)),
		zap.Duration("took", time.Since(start)))
	return loadResult{services: services, gen: gen}, nil
}
