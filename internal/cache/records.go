package cache

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"metricsdash/internal/core"
)

// FetchFunc loads a record set from the underlying source.
type FetchFunc func(ctx context.Context) ([]core.Record, error)

// RecordCache keeps fetched record sets for a TTL and collapses concurrent
// misses for the same key into one fetch. Callers always get their own
// copy of the records.
type RecordCache struct {
	lru   *LRUCache[[]core.Record]
	group singleflight.Group
}

// NewRecordCache creates a record cache. A ttl of zero or less disables
// storage but keeps miss collapsing.
func NewRecordCache(ttl time.Duration) *RecordCache {
	c := &RecordCache{}
	if ttl > 0 {
		c.lru = NewLRUCache[[]core.Record](8, ttl)
	}
	return c
}

// Cleaner exposes the backing LRU for a Manager, or nil when storage is
// disabled.
func (c *RecordCache) Cleaner() Cleaner {
	if c.lru == nil {
		return nil
	}
	return c.lru
}

// Load returns the cached records for key, fetching them on a miss. The
// fetch runs detached from ctx so one cancelled waiter does not fail the
// others; fetch must bound itself. hit reports whether the records came
// from the cache.
func (c *RecordCache) Load(ctx context.Context, key string, fetch FetchFunc) (recs []core.Record, hit bool, err error) {
	if c.lru != nil {
		if cached, ok := c.lru.Get(key); ok {
			return core.CloneRecords(cached), true, nil
		}
	}

	ch := c.group.DoChan(key, func() (any, error) {
		fetched, err := fetch(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		fetched = core.CloneRecords(fetched)
		if c.lru != nil {
			c.lru.Set(key, fetched)
		}
		return fetched, nil
	})

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return core.CloneRecords(res.Val.([]core.Record)), false, nil
	}
}
