package sessions

import (
	"context"
	"time"

	"github.com/jrsteele09/contacts-auth/users"
)

// DefaultTTL is how long a resolved identity stays cached.
const DefaultTTL = 900 * time.Second

// Cache is a short-lived, non-authoritative store of resolved identities keyed by
// token subject. Concurrent writers to one key are last-write-wins.
type Cache interface {
	// Get returns the cached identity; ok is false on a miss.
	Get(ctx context.Context, subject string) (user *users.User, ok bool, err error)
	// Put stores user under subject for ttl.
	Put(ctx context.Context, subject string, user *users.User, ttl time.Duration) error
	// Invalidate drops the entry for subject. Missing entries are not an error.
	Invalidate(ctx context.Context, subject string) error
}
