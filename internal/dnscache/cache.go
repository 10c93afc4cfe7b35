// Package dnscache memoizes MX lookups per domain with a fixed time-to-live.
//
// Expired entries are indistinguishable from a miss. Eviction is lazy on read
// plus a sweep of every expired entry on each write; there is no background
// goroutine. Failed lookups are cached as negative entries with their own,
// shorter lifetime so a transient outage does not poison a domain for the
// full TTL.
package dnscache

import (
	"net"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultTTL is the lifetime of a positive entry.
	DefaultTTL = 5 * time.Minute
	// DefaultNegativeTTL is the lifetime of a negative entry.
	DefaultNegativeTTL = 30 * time.Second
)

// Entry is a cached lookup outcome. Found is false for negative entries,
// in which case Records is always empty.
type Entry struct {
	Records  []*net.MX
	Found    bool
	CachedAt time.Time
}

// Stats describes the cache for diagnostics.
type Stats struct {
	Size        int           `json:"size"`
	TTL         time.Duration `json:"-"`
	NegativeTTL time.Duration `json:"-"`
	MaxAgeMs    int64         `json:"max_age_ms"`
}

// Cache is a concurrency-safe TTL cache of MX lookups keyed by domain.
type Cache struct {
	mu          sync.RWMutex
	entries     map[string]Entry
	ttl         time.Duration
	negativeTTL time.Duration
	now         func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL sets the lifetime of positive entries.
func WithTTL(d time.Duration) Option {
	return func(c *Cache) { c.ttl = d }
}

// WithNegativeTTL sets the lifetime of negative entries.
func WithNegativeTTL(d time.Duration) Option {
	return func(c *Cache) { c.negativeTTL = d }
}

// WithClock replaces time.Now, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New returns an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries:     make(map[string]Entry),
		ttl:         DefaultTTL,
		negativeTTL: DefaultNegativeTTL,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.negativeTTL <= 0 || c.negativeTTL > c.ttl {
		c.negativeTTL = c.ttl
	}
	return c
}

// Get returns a copy of the live entry for domain.
func (c *Cache) Get(domain string) (Entry, bool) {
	key := normalize(domain)
	now := c.now()

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return Entry{}, false
	}

	if c.expired(e, now) {
		c.mu.Lock()
		// Re-check under the write lock: a concurrent Set may have refreshed it.
		if cur, ok := c.entries[key]; ok && c.expired(cur, now) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return Entry{}, false
	}

	e.Records = copyMX(e.Records)
	return e, true
}

// Set stores a positive lookup result for domain.
func (c *Cache) Set(domain string, records []*net.MX) {
	c.store(domain, Entry{Records: copyMX(records), Found: true})
}

// SetMissing stores a negative lookup result for domain.
func (c *Cache) SetMissing(domain string) {
	c.store(domain, Entry{Found: false})
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]Entry)
	c.mu.Unlock()
}

// Len returns the number of stored entries, including not yet swept expired ones.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns the current size and configured lifetimes.
func (c *Cache) Stats() Stats {
	return Stats{
		Size:        c.Len(),
		TTL:         c.ttl,
		NegativeTTL: c.negativeTTL,
		MaxAgeMs:    c.ttl.Milliseconds(),
	}
}

func (c *Cache) store(domain string, e Entry) {
	now := c.now()
	e.CachedAt = now

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[normalize(domain)] = e
	c.sweepLocked(now)
}

// sweepLocked drops every expired entry. c.mu must be held for writing.
func (c *Cache) sweepLocked(now time.Time) {
	for k, e := range c.entries {
		if c.expired(e, now) {
			delete(c.entries, k)
		}
	}
}

func (c *Cache) expired(e Entry, now time.Time) bool {
	ttl := c.ttl
	if !e.Found {
		ttl = c.negativeTTL
	}
	return now.Sub(e.CachedAt) >= ttl
}

func normalize(domain string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(domain)), ".")
}

// copyMX returns a deep copy so callers cannot mutate cached records.
func copyMX(records []*net.MX) []*net.MX {
	if records == nil {
		return nil
	}
	out := make([]*net.MX, len(records))
	for i, r := range records {
		cp := *r
		out[i] = &cp
	}
	return out
}
