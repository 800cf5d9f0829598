package users_test

import (
	"strings"
	"testing"

	"github.com/jrsteele09/contacts-auth/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_RoundTrip(t *testing.T) {
	h := users.NewBcryptHasher(bcrypt.MinCost)

	for _, p := range []string{"secret", "", "pässwörd", strings.Repeat("x", 72)} {
		hash, err := h.Hash(p)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(hash, "$2a$"), "algorithm identifier embedded")
		assert.True(t, h.Verify(p, hash), "password %q must verify", p)
	}
}

func TestBcryptHasher_SaltsEveryHash(t *testing.T) {
	h := users.NewBcryptHasher(bcrypt.MinCost)

	first, err := h.Hash("secret")
	require.NoError(t, err)
	second, err := h.Hash("secret")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, h.Verify("secret", first))
	assert.True(t, h.Verify("secret", second))
}

func TestBcryptHasher_RejectsOtherPasswords(t *testing.T) {
	h := users.NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("secret")
	require.NoError(t, err)

	assert.False(t, h.Verify("Secret", hash))
	assert.False(t, h.Verify("secret ", hash))
	assert.False(t, h.Verify("", hash))
}

func TestBcryptHasher_MalformedHashIsFalse(t *testing.T) {
	h := users.NewBcryptHasher(bcrypt.MinCost)

	for _, hash := range []string{"", "not-a-hash", "$2a$04$short", "$2a$99$" + strings.Repeat("a", 53)} {
		assert.NotPanics(t, func() {
			assert.False(t, h.Verify("secret", hash))
		})
	}
}

func TestNewBcryptHasher_InvalidCostUsesDefault(t *testing.T) {
	h := users.NewBcryptHasher(1)

	hash, err := h.Hash("secret")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}

func TestPackageHelpers(t *testing.T) {
	hash, err := users.HashPassword("secret")
	require.NoError(t, err)
	assert.True(t, users.CheckPasswordHash("secret", hash))
	assert.False(t, users.CheckPasswordHash("other", hash))
}
