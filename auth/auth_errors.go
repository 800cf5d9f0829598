package auth

import "errors"

// Credential and identity errors
var (
	ErrBadCredentials = errors.New("bad credentials")
	ErrNotFound       = errors.New("identity not found")
	ErrNotConfirmed   = errors.New("email not confirmed")
	ErrAlreadyExists  = errors.New("identity already exists")
	ErrWeakPassword   = errors.New("password does not meet requirements")
	ErrInvalidEmail   = errors.New("invalid email address")
)

// Token errors
var (
	ErrWrongScope = errors.New("token scope not accepted here")
	ErrExpired    = errors.New("token expired")
	ErrForged     = errors.New("token invalid")
	ErrRevoked    = errors.New("refresh token revoked")
)

// ErrStoreUnavailable means a collaborator (user store or session cache) could not
// answer. It is never reported as ErrNotFound.
var ErrStoreUnavailable = errors.New("store unavailable")
