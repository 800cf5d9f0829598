package fakeuserrepo_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jrsteele09/contacts-auth/internal/utils"
	"github.com/jrsteele09/contacts-auth/users"
	fakeuserrepo "github.com/jrsteele09/contacts-auth/users/repofake"
	"github.com/stretchr/testify/require"
)

func TestFakeUserRepo_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := fakeuserrepo.NewFakeUserRepo()

	u := &users.User{Email: "a@x.com", Username: "a"}
	require.NoError(t, repo.Create(ctx, u))
	require.NotEmpty(t, u.ID)

	byEmail, err := repo.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, byEmail.ID)

	byID, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "a@x.com", byID.Email)

	require.ErrorIs(t, repo.Create(ctx, &users.User{Email: "a@x.com"}), users.ErrAlreadyExists)

	_, err = repo.GetByEmail(ctx, "missing@x.com")
	require.ErrorIs(t, err, users.ErrNotFound)
	require.Equal(t, 3, repo.Lookups())
}

func TestFakeUserRepo_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := fakeuserrepo.NewFakeUserRepo()
	repo.Upsert(&users.User{ID: "u1", Email: "a@x.com"})

	u, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	u.Confirmed = true

	again, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	require.False(t, again.Confirmed)
}

func TestFakeUserRepo_CompareAndSetRefreshToken(t *testing.T) {
	ctx := context.Background()
	repo := fakeuserrepo.NewFakeUserRepo()
	repo.Upsert(&users.User{ID: "u1", Email: "a@x.com"})

	require.ErrorIs(t, repo.CompareAndSetRefreshToken(ctx, "u1", "", "rt1"), users.ErrRefreshTokenMismatch)

	require.NoError(t, repo.SetRefreshToken(ctx, "u1", utils.Ptr("rt1")))
	require.NoError(t, repo.CompareAndSetRefreshToken(ctx, "u1", "rt1", "rt2"))
	require.ErrorIs(t, repo.CompareAndSetRefreshToken(ctx, "u1", "rt1", "rt3"), users.ErrRefreshTokenMismatch)

	u, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	require.True(t, u.HasRefreshToken("rt2"))

	require.NoError(t, repo.SetRefreshToken(ctx, "u1", nil))
	u, err = repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	require.Nil(t, u.RefreshToken)
}

func TestFakeUserRepo_Err(t *testing.T) {
	ctx := context.Background()
	repo := fakeuserrepo.NewFakeUserRepo()
	boom := errors.New("connection refused")
	repo.SetErr(boom)

	_, err := repo.GetByEmail(ctx, "a@x.com")
	require.ErrorIs(t, err, boom)
	require.ErrorIs(t, repo.MarkConfirmed(ctx, "u1"), boom)
}
