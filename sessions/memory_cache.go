package sessions

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/jrsteele09/contacts-auth/users"
)

// DefaultMaxEntries bounds the number of identities a MemoryCache holds.
const DefaultMaxEntries = 10_000

type cacheEntry struct {
	user      *users.User
	expiresAt time.Time
}

// MemoryCache is a process-local Cache backed by an expiring LRU. The LRU evicts
// after its own TTL; entries written with a shorter ttl are also checked against
// their own deadline on read.
type MemoryCache struct {
	lru     *expirable.LRU[string, cacheEntry]
	ttl     time.Duration
	nowFunc func() time.Time
}

var _ Cache = (*MemoryCache)(nil)

type MemoryCacheOption func(*memoryCacheOptions)

type memoryCacheOptions struct {
	maxEntries int
	nowFunc    func() time.Time
}

// WithClock sets the time source used for per-entry deadlines (primarily for testing)
func WithClock(now func() time.Time) MemoryCacheOption {
	return func(o *memoryCacheOptions) {
		o.nowFunc = now
	}
}

// WithMaxEntries bounds the cache size; the least recently used entry is evicted first.
func WithMaxEntries(n int) MemoryCacheOption {
	return func(o *memoryCacheOptions) {
		o.maxEntries = n
	}
}

// NewMemoryCache creates a cache whose entries never outlive ttl. A ttl outside
// (0, DefaultTTL] uses DefaultTTL.
func NewMemoryCache(ttl time.Duration, options ...MemoryCacheOption) *MemoryCache {
	if ttl <= 0 || ttl > DefaultTTL {
		ttl = DefaultTTL
	}
	o := memoryCacheOptions{maxEntries: DefaultMaxEntries, nowFunc: time.Now}
	for _, opt := range options {
		opt(&o)
	}

	return &MemoryCache{
		lru:     expirable.NewLRU[string, cacheEntry](o.maxEntries, nil, ttl),
		ttl:     ttl,
		nowFunc: o.nowFunc,
	}
}

func (c *MemoryCache) Get(_ context.Context, subject string) (*users.User, bool, error) {
	entry, found := c.lru.Get(subject)
	if !found {
		return nil, false, nil
	}
	if !c.nowFunc().Before(entry.expiresAt) {
		c.lru.Remove(subject)
		return nil, false, nil
	}
	return entry.user.Clone(), true, nil
}

func (c *MemoryCache) Put(_ context.Context, subject string, user *users.User, ttl time.Duration) error {
	if user == nil || ttl <= 0 {
		return nil
	}

	c.lru.Add(subject, cacheEntry{
		user:      user.Clone(),
		expiresAt: c.nowFunc().Add(min(ttl, c.ttl)),
	})
	return nil
}

func (c *MemoryCache) Invalidate(_ context.Context, subject string) error {
	c.lru.Remove(subject)
	return nil
}

// Len reports the number of entries the LRU still holds.
func (c *MemoryCache) Len() int {
	return c.lru.Len()
}

// Close drops every entry.
func (c *MemoryCache) Close() error {
	c.lru.Purge()
	return nil
}
