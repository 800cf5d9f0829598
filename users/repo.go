package users

import (
	"context"

	apperrors "github.com/jrsteele09/contacts-auth/internal/errors"
)

var (
	// ErrNotFound is returned when no identity matches the lookup.
	ErrNotFound = apperrors.ErrNotFound
	// ErrAlreadyExists is returned by Create for a duplicate email.
	ErrAlreadyExists = apperrors.ErrAlreadyExists
	// ErrRefreshTokenMismatch is returned by CompareAndSetRefreshToken when the stored
	// token is no longer the expected one.
	ErrRefreshTokenMismatch = apperrors.ErrConflict
	// ErrUnavailable marks failures of the store itself.
	ErrUnavailable = apperrors.ErrUnavailable
)

// Repo is the system of record for identities. Any error other than ErrNotFound,
// ErrAlreadyExists and ErrRefreshTokenMismatch means the store could not answer.
type Repo interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)

	// SetRefreshToken replaces the stored refresh token; nil clears it.
	SetRefreshToken(ctx context.Context, id string, token *string) error

	// CompareAndSetRefreshToken stores next only if the stored token equals expected.
	CompareAndSetRefreshToken(ctx context.Context, id, expected, next string) error

	SetPasswordHash(ctx context.Context, id, hash string) (*User, error)
	MarkConfirmed(ctx context.Context, id string) error
}
