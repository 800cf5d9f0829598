package sessions_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/contacts-auth/internal/utils"
	"github.com/jrsteele09/contacts-auth/sessions"
)

func newRedisCacheTest(t *testing.T) (*sessions.RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache, err := sessions.NewRedisCache(rdb, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	return cache, mr
}

func TestRedisCache_PutGetInvalidate(t *testing.T) {
	ctx := context.Background()
	cache, mr := newRedisCacheTest(t)

	_, ok, err := cache.Get(ctx, "a@x.com")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, cache.Put(ctx, "a@x.com", testUser(), sessions.DefaultTTL))
	require.True(t, mr.Exists("user:a@x.com"))
	assert.Equal(t, sessions.DefaultTTL, mr.TTL("user:a@x.com"))

	got, ok, err := cache.Get(ctx, "a@x.com")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "$2a$10$hash", got.PasswordHash)
	assert.Equal(t, "refresh-1", utils.Value(got.RefreshToken))
	assert.True(t, got.CreatedAt.Equal(testUser().CreatedAt))
	assert.Equal(t, testUser().Email, got.Email)

	require.NoError(t, cache.Invalidate(ctx, "a@x.com"))
	assert.False(t, mr.Exists("user:a@x.com"))
	require.NoError(t, cache.Invalidate(ctx, "a@x.com"))
}

func TestRedisCache_HonoursTTL(t *testing.T) {
	ctx := context.Background()
	cache, mr := newRedisCacheTest(t)

	require.NoError(t, cache.Put(ctx, "a@x.com", testUser(), sessions.DefaultTTL))

	mr.FastForward(sessions.DefaultTTL - time.Second)
	_, ok, err := cache.Get(ctx, "a@x.com")
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(time.Second)
	_, ok, err = cache.Get(ctx, "a@x.com")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisCache_CustomPrefix(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache, err := sessions.NewRedisCache(rdb, "contacts:user:")
	require.NoError(t, err)
	defer cache.Close()

	require.NoError(t, cache.Put(ctx, "a@x.com", testUser(), time.Minute))
	assert.True(t, mr.Exists("contacts:user:a@x.com"))
}

func TestRedisCache_CorruptEntryIsAMiss(t *testing.T) {
	ctx := context.Background()
	cache, mr := newRedisCacheTest(t)

	require.NoError(t, mr.Set("user:a@x.com", "{not json"))

	_, ok, err := cache.Get(ctx, "a@x.com")
	require.NoError(t, err)
	require.False(t, ok)
	assert.False(t, mr.Exists("user:a@x.com"))
}

func TestRedisCache_Unavailable(t *testing.T) {
	ctx := context.Background()
	cache, mr := newRedisCacheTest(t)

	mr.SetError("ERR simulated outage")
	defer mr.SetError("")

	_, _, err := cache.Get(ctx, "a@x.com")
	require.ErrorIs(t, err, sessions.ErrRedisUnavailable)
	require.ErrorIs(t, cache.Put(ctx, "a@x.com", testUser(), time.Minute), sessions.ErrRedisUnavailable)
	require.ErrorIs(t, cache.Invalidate(ctx, "a@x.com"), sessions.ErrRedisUnavailable)
}

func TestNewRedisCacheFromURL(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	cache, err := sessions.NewRedisCacheFromURL(ctx, "redis://"+mr.Addr()+"/0", "")
	require.NoError(t, err)
	defer cache.Close()
	require.NoError(t, cache.Put(ctx, "a@x.com", testUser(), time.Minute))

	_, err = sessions.NewRedisCacheFromURL(ctx, "not-a-url", "")
	require.Error(t, err)

	_, err = sessions.NewRedisCacheFromURL(ctx, "redis://127.0.0.1:1/0", "")
	require.ErrorIs(t, err, sessions.ErrRedisUnavailable)
}

func TestNewRedisCache_RequiresClient(t *testing.T) {
	_, err := sessions.NewRedisCache(nil, "")
	require.Error(t, err)
}
