// Package dnscache provides a TTL cache in front of an MX resolver
// backend, with singleflight deduplication so concurrent lookups for
// the same hostname trigger a single backend query.
package dnscache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mailscope/mailscope/types"
)

// Backend is any MX resolver the cache can wrap. It matches
// check.Resolver structurally.
type Backend interface {
	LookupMX(ctx context.Context, hostname string) ([]types.MxRecord, error)
}

// Cache wraps a Backend with a TTL cache. Only successful lookups are
// cached; backend failures always hit the backend again, so a
// transient outage never sticks for a full TTL.
type Cache struct {
	backend Backend
	ttl     time.Duration
	sf      singleflight.Group

	mu      sync.Mutex
	entries map[string]entry
}

type entry struct {
	records []types.MxRecord
	expires time.Time
}

// New creates a cache over backend with the given TTL.
func New(backend Backend, ttl time.Duration) *Cache {
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{
		backend: backend,
		ttl:     ttl,
		entries: make(map[string]entry),
	}
}

// LookupMX returns the cached records for hostname or queries the
// backend. Callers receive a copy, so sorting or mutating the result
// cannot corrupt the cache.
func (c *Cache) LookupMX(ctx context.Context, hostname string) ([]types.MxRecord, error) {
	c.mu.Lock()
	if e, ok := c.entries[hostname]; ok && time.Now().Before(e.expires) {
		c.mu.Unlock()
		return copyRecords(e.records), nil
	}
	c.mu.Unlock()

	v, err, _ := c.sf.Do(hostname, func() (interface{}, error) {
		records, err := c.backend.LookupMX(ctx, hostname)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[hostname] = entry{records: records, expires: time.Now().Add(c.ttl)}
		c.mu.Unlock()
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	return copyRecords(v.([]types.MxRecord)), nil
}

// Len returns the number of cached hostnames (for diagnostics).
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func copyRecords(records []types.MxRecord) []types.MxRecord {
	out := make([]types.MxRecord, len(records))
	copy(out, records)
	return out
}
