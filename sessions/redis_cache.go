package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jrsteele09/contacts-auth/users"
)

// DefaultKeyPrefix namespaces cached identities as user:{subject}.
const DefaultKeyPrefix = "user:"

// ErrRedisUnavailable wraps any failure talking to redis.
var ErrRedisUnavailable = errors.New("redis unavailable")

// cachedUser is the stored form. users.User hides secrets from JSON, but the cache
// must round-trip them.
type cachedUser struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	Confirmed    bool      `json:"confirmed"`
	RefreshToken *string   `json:"refresh_token,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func toCached(u *users.User) cachedUser {
	return cachedUser{
		ID:           u.ID,
		Email:        u.Email,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		Confirmed:    u.Confirmed,
		RefreshToken: u.RefreshToken,
		CreatedAt:    u.CreatedAt,
	}
}

func (c cachedUser) toUser() *users.User {
	return &users.User{
		ID:           c.ID,
		Email:        c.Email,
		Username:     c.Username,
		PasswordHash: c.PasswordHash,
		Confirmed:    c.Confirmed,
		RefreshToken: c.RefreshToken,
		CreatedAt:    c.CreatedAt,
	}
}

// RedisCache is a Cache shared between processes through redis.
type RedisCache struct {
	rdb    redis.UniversalClient
	prefix string
}

var _ Cache = (*RedisCache)(nil)

// NewRedisCache wraps an existing client. An empty prefix uses DefaultKeyPrefix.
func NewRedisCache(rdb redis.UniversalClient, prefix string) (*RedisCache, error) {
	if rdb == nil {
		return nil, errors.New("[NewRedisCache] redis client is required")
	}
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisCache{rdb: rdb, prefix: prefix}, nil
}

// NewRedisCacheFromURL dials redisURL (redis://:pass@host:6379/0) and pings it so a bad
// address fails at startup.
func NewRedisCacheFromURL(ctx context.Context, redisURL, prefix string) (*RedisCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("[NewRedisCacheFromURL] parse url: %w", err)
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return NewRedisCache(rdb, prefix)
}

func (c *RedisCache) key(subject string) string {
	return c.prefix + subject
}

func (c *RedisCache) Get(ctx context.Context, subject string) (*users.User, bool, error) {
	raw, err := c.rdb.Get(ctx, c.key(subject)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: get: %v", ErrRedisUnavailable, err)
	}

	var cached cachedUser
	if err := json.Unmarshal(raw, &cached); err != nil {
		// An unreadable entry is treated as a miss and dropped.
		_ = c.rdb.Del(ctx, c.key(subject)).Err()
		return nil, false, nil
	}
	return cached.toUser(), true, nil
}

func (c *RedisCache) Put(ctx context.Context, subject string, user *users.User, ttl time.Duration) error {
	if user == nil || ttl <= 0 {
		return nil
	}

	raw, err := json.Marshal(toCached(user))
	if err != nil {
		return fmt.Errorf("[RedisCache.Put] marshal: %w", err)
	}
	if err := c.rdb.Set(ctx, c.key(subject), raw, ttl).Err(); err != nil {
		return fmt.Errorf("%w: set: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, subject string) error {
	if err := c.rdb.Del(ctx, c.key(subject)).Err(); err != nil {
		return fmt.Errorf("%w: del: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Close releases the underlying client.
func (c *RedisCache) Close() error {
	return c.rdb.Close()
}
