package sessions_test

import (
	"context"
	"testing"
	"time"

	"github.com/jrsteele09/contacts-auth/internal/utils"
	"github.com/jrsteele09/contacts-auth/sessions"
	"github.com/jrsteele09/contacts-auth/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUser() *users.User {
	return &users.User{
		ID:           "id-1",
		Email:        "a@x.com",
		Username:     "alice",
		PasswordHash: "$2a$10$hash",
		Confirmed:    true,
		RefreshToken: utils.Ptr("refresh-1"),
		CreatedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestMemoryCache_PutGetInvalidate(t *testing.T) {
	ctx := context.Background()
	cache := sessions.NewMemoryCache(0)
	defer cache.Close()

	_, ok, err := cache.Get(ctx, "a@x.com")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, cache.Put(ctx, "a@x.com", testUser(), time.Minute))

	got, ok, err := cache.Get(ctx, "a@x.com")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, testUser(), got)

	require.NoError(t, cache.Invalidate(ctx, "a@x.com"))
	_, ok, err = cache.Get(ctx, "a@x.com")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Invalidate(ctx, "missing@x.com"))
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	cache := sessions.NewMemoryCache(0, sessions.WithClock(func() time.Time { return now }))
	defer cache.Close()

	require.NoError(t, cache.Put(ctx, "a@x.com", testUser(), sessions.DefaultTTL))

	now = now.Add(sessions.DefaultTTL - time.Second)
	_, ok, _ := cache.Get(ctx, "a@x.com")
	require.True(t, ok)

	now = now.Add(time.Second)
	_, ok, _ = cache.Get(ctx, "a@x.com")
	require.False(t, ok)

	assert.Equal(t, 0, cache.Len())
}

func TestMemoryCache_ShortTTLExpiresFirst(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	cache := sessions.NewMemoryCache(0, sessions.WithClock(func() time.Time { return now }))
	defer cache.Close()

	require.NoError(t, cache.Put(ctx, "a@x.com", testUser(), time.Minute))
	require.NoError(t, cache.Put(ctx, "b@x.com", testUser(), time.Hour))

	now = now.Add(time.Minute)
	_, ok, _ := cache.Get(ctx, "a@x.com")
	assert.False(t, ok)
	_, ok, _ = cache.Get(ctx, "b@x.com")
	assert.True(t, ok)

	// An hour is clamped to the cache's own ttl.
	now = now.Add(sessions.DefaultTTL)
	_, ok, _ = cache.Get(ctx, "b@x.com")
	assert.False(t, ok)
}

func TestMemoryCache_StoresCopies(t *testing.T) {
	ctx := context.Background()
	cache := sessions.NewMemoryCache(0)
	defer cache.Close()

	user := testUser()
	require.NoError(t, cache.Put(ctx, user.Email, user, time.Minute))
	user.Confirmed = false
	*user.RefreshToken = "changed"

	got, ok, err := cache.Get(ctx, user.Email)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Confirmed)
	assert.Equal(t, "refresh-1", utils.Value(got.RefreshToken))

	got.Username = "mutated"
	again, _, _ := cache.Get(ctx, user.Email)
	assert.Equal(t, "alice", again.Username)
}

func TestMemoryCache_LastWriteWins(t *testing.T) {
	ctx := context.Background()
	cache := sessions.NewMemoryCache(0)
	defer cache.Close()

	first := testUser()
	second := testUser()
	second.Username = "bob"

	require.NoError(t, cache.Put(ctx, first.Email, first, time.Minute))
	require.NoError(t, cache.Put(ctx, second.Email, second, time.Minute))

	got, ok, err := cache.Get(ctx, first.Email)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "bob", got.Username)
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	cache := sessions.NewMemoryCache(0, sessions.WithMaxEntries(2))
	defer cache.Close()

	require.NoError(t, cache.Put(ctx, "a@x.com", testUser(), time.Minute))
	require.NoError(t, cache.Put(ctx, "b@x.com", testUser(), time.Minute))
	_, ok, _ := cache.Get(ctx, "a@x.com")
	require.True(t, ok)
	require.NoError(t, cache.Put(ctx, "c@x.com", testUser(), time.Minute))

	assert.Equal(t, 2, cache.Len())
	_, ok, _ = cache.Get(ctx, "b@x.com")
	assert.False(t, ok)
	_, ok, _ = cache.Get(ctx, "a@x.com")
	assert.True(t, ok)
}

func TestMemoryCache_EvictsInBackground(t *testing.T) {
	ctx := context.Background()
	cache := sessions.NewMemoryCache(50 * time.Millisecond)
	defer cache.Close()

	require.NoError(t, cache.Put(ctx, "a@x.com", testUser(), time.Minute))
	require.Equal(t, 1, cache.Len())
	require.Eventually(t, func() bool { return cache.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestMemoryCache_Close(t *testing.T) {
	ctx := context.Background()
	cache := sessions.NewMemoryCache(0)

	require.NoError(t, cache.Put(ctx, "a@x.com", testUser(), time.Minute))
	require.NoError(t, cache.Close())
	require.NoError(t, cache.Close())
	assert.Equal(t, 0, cache.Len())
}
