package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/jrsteele09/contacts-auth/internal/metrics"
	"github.com/jrsteele09/contacts-auth/sessions"
	"github.com/jrsteele09/contacts-auth/token"
	"github.com/jrsteele09/contacts-auth/users"
)

// Default lifetimes
const (
	DefaultAccessTokenTTL      = 15 * time.Minute
	DefaultRefreshTokenTTL     = 7 * 24 * time.Hour
	DefaultEmailVerifyTokenTTL = 24 * time.Hour
	DefaultMinPasswordLength   = 8
)

const bearerTokenType = "bearer"

// TokenPair is what a successful login or refresh hands back to the client.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// ConfirmResult tells the caller whether ConfirmEmail changed anything.
type ConfirmResult int

const (
	Confirmed ConfirmResult = iota + 1
	AlreadyConfirmed
)

func (r ConfirmResult) String() string {
	switch r {
	case Confirmed:
		return "confirmed"
	case AlreadyConfirmed:
		return "already_confirmed"
	}
	return "unknown"
}

// Deps holds the collaborators the Service orchestrates
type Deps struct {
	Users  users.Repo     // System of record for identities
	Hasher users.Hasher   // Password hashing boundary
	Codec  *token.Codec   // Signs and verifies tokens
	Cache  sessions.Cache // Resolved identity cache
}

// Service issues, validates and rotates scoped tokens and resolves bearer tokens to
// identities.
type Service struct {
	deps Deps

	accessTTL      time.Duration
	refreshTTL     time.Duration
	emailVerifyTTL time.Duration
	cacheTTL       time.Duration
	minPasswordLen int

	locks    *keyedMutex
	resolves singleflight.Group
	nowTime  func() time.Time
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// WithTokenLifetimes overrides the access, refresh and email verification lifetimes.
func WithTokenLifetimes(access, refresh, emailVerify time.Duration) ServiceOption {
	return func(s *Service) {
		s.accessTTL = access
		s.refreshTTL = refresh
		s.emailVerifyTTL = emailVerify
	}
}

// WithCacheTTL sets how long a resolved identity stays cached, capped at
// sessions.DefaultTTL.
func WithCacheTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		s.cacheTTL = min(ttl, sessions.DefaultTTL)
	}
}

// WithMinPasswordLength sets the shortest password Register and ResetPassword accept.
func WithMinPasswordLength(n int) ServiceOption {
	return func(s *Service) {
		s.minPasswordLen = n
	}
}

// NewService validates deps and applies options over the default lifetimes.
func NewService(deps Deps, options ...ServiceOption) (*Service, error) {
	if deps.Users == nil {
		return nil, errors.New("[NewService] Users repo is required")
	}
	if deps.Hasher == nil {
		return nil, errors.New("[NewService] Hasher is required")
	}
	if deps.Codec == nil {
		return nil, errors.New("[NewService] Codec is required")
	}
	if deps.Cache == nil {
		return nil, errors.New("[NewService] Cache is required")
	}

	s := &Service{
		deps:           deps,
		accessTTL:      DefaultAccessTokenTTL,
		refreshTTL:     DefaultRefreshTokenTTL,
		emailVerifyTTL: DefaultEmailVerifyTokenTTL,
		cacheTTL:       sessions.DefaultTTL,
		minPasswordLen: DefaultMinPasswordLength,
		locks:          newKeyedMutex(),
		nowTime:        time.Now,
	}

	for _, opt := range options {
		opt(s)
	}

	return s, nil
}

// IssueToken signs a token for subject with the given scope, valid for ttl from now.
// A ttl of zero yields a token that is already expired.
func (s *Service) IssueToken(subject string, scope token.Scope, ttl time.Duration) (string, error) {
	now := s.nowTime()
	return s.deps.Codec.Encode(subject, scope, now, now.Add(ttl))
}

func (s *Service) IssueAccessToken(subject string) (string, error) {
	return s.IssueToken(subject, token.ScopeAccess, s.accessTTL)
}

func (s *Service) IssueRefreshToken(subject string) (string, error) {
	return s.IssueToken(subject, token.ScopeRefresh, s.refreshTTL)
}

func (s *Service) IssueEmailVerificationToken(subject string) (string, error) {
	return s.IssueToken(subject, token.ScopeEmailVerify, s.emailVerifyTTL)
}

// Authenticate checks credentials in the order existence, confirmation, password and
// returns a fresh pair. The refresh token is persisted before the pair is returned.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*TokenPair, error) {
	pair, err := s.authenticate(ctx, email, password)
	metrics.RecordLogin(outcome(err))
	return pair, err
}

func (s *Service) authenticate(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.lookup(ctx, email)
	if err != nil {
		return nil, err
	}
	if !user.Confirmed {
		return nil, ErrNotConfirmed
	}
	if !s.deps.Hasher.Verify(password, user.PasswordHash) {
		return nil, ErrBadCredentials
	}

	unlock := s.locks.Lock(user.Email)
	defer unlock()

	pair, err := s.issuePair(user.Email)
	if err != nil {
		return nil, err
	}
	if err := s.deps.Users.SetRefreshToken(ctx, user.ID, &pair.RefreshToken); err != nil {
		return nil, storeError(err)
	}
	if err := s.invalidate(ctx, user.Email); err != nil {
		return nil, err
	}

	log.Info().Str("subject", user.Email).Msg("user authenticated")
	return pair, nil
}

// Refresh rotates a refresh token. The presented token must be the one currently
// stored for its subject; anything else clears the stored token and fails with
// ErrRevoked.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	pair, err := s.refresh(ctx, refreshToken)
	metrics.RecordRefresh(outcome(err))
	return pair, err
}

func (s *Service) refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.decode(refreshToken, token.ScopeRefresh)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(claims.Subject)
	defer unlock()

	user, err := s.lookup(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	if !user.HasRefreshToken(refreshToken) {
		return nil, s.revoke(ctx, user, claims, "presented refresh token is not the stored one")
	}

	pair, err := s.issuePair(user.Email)
	if err != nil {
		return nil, err
	}

	err = s.deps.Users.CompareAndSetRefreshToken(ctx, user.ID, refreshToken, pair.RefreshToken)
	switch {
	case errors.Is(err, users.ErrRefreshTokenMismatch):
		return nil, s.revoke(ctx, user, claims, "refresh token rotated concurrently")
	case err != nil:
		return nil, storeError(err)
	}

	if err := s.invalidate(ctx, user.Email); err != nil {
		return nil, err
	}
	return pair, nil
}

// revoke clears the stored refresh token after a reuse attempt.
func (s *Service) revoke(ctx context.Context, user *users.User, claims *token.Claims, reason string) error {
	log.Warn().
		Str("event", "refresh_token_reuse").
		Str("subject", user.Email).
		Str("jti", claims.ID).
		Msg(reason)

	if err := s.deps.Users.SetRefreshToken(ctx, user.ID, nil); err != nil {
		return storeError(err)
	}
	if err := s.invalidate(ctx, user.Email); err != nil {
		return err
	}
	return ErrRevoked
}

// ResolveBearer maps an access token to its identity, consulting the session cache
// first. Concurrent misses for one subject share a single store lookup.
func (s *Service) ResolveBearer(ctx context.Context, accessToken string) (*users.User, error) {
	claims, err := s.decode(accessToken, token.ScopeAccess)
	if err != nil {
		return nil, err
	}

	cached, ok, err := s.deps.Cache.Get(ctx, claims.Subject)
	switch {
	case err != nil:
		metrics.RecordCacheError()
		log.Warn().Err(err).Str("subject", claims.Subject).Msg("session cache read failed, using store")
	case ok:
		metrics.RecordCacheHit()
		return cached, nil
	default:
		metrics.RecordCacheMiss()
	}

	v, err, _ := s.resolves.Do(claims.Subject, func() (any, error) {
		// Shared by every waiter, so one caller cancelling must not fail the rest.
		fillCtx := context.WithoutCancel(ctx)

		// Lookup and Put run under the identity lock so a mutation's invalidate cannot
		// land between them and leave the old record cached.
		unlock := s.locks.Lock(claims.Subject)
		defer unlock()

		user, err := s.lookup(fillCtx, claims.Subject)
		if err != nil {
			return nil, err
		}
		if err := s.deps.Cache.Put(fillCtx, claims.Subject, user, s.cacheTTL); err != nil {
			log.Warn().Err(err).Str("subject", claims.Subject).Msg("session cache write failed")
		}
		return user, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*users.User).Clone(), nil
}

// DecodeEmailVerificationToken returns the subject of an email_verify token.
func (s *Service) DecodeEmailVerificationToken(emailToken string) (string, error) {
	claims, err := s.decode(emailToken, token.ScopeEmailVerify)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// ConfirmEmail marks subject confirmed. Confirming twice is not an error.
func (s *Service) ConfirmEmail(ctx context.Context, subject string) (ConfirmResult, error) {
	unlock := s.locks.Lock(subject)
	defer unlock()

	user, err := s.lookup(ctx, subject)
	if err != nil {
		return 0, err
	}
	if user.Confirmed {
		return AlreadyConfirmed, nil
	}
	if err := s.deps.Users.MarkConfirmed(ctx, user.ID); err != nil {
		return 0, storeError(err)
	}
	if err := s.invalidate(ctx, subject); err != nil {
		return 0, err
	}

	log.Info().Str("subject", subject).Msg("email confirmed")
	return Confirmed, nil
}

// RequestPasswordReset returns an email_verify token for a confirmed identity. Sending
// it is up to the caller.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	user, err := s.lookup(ctx, email)
	if err != nil {
		return "", err
	}
	if !user.Confirmed {
		return "", ErrNotConfirmed
	}
	return s.IssueEmailVerificationToken(user.Email)
}

// ResetPassword sets a new password for the subject of emailToken and clears the
// stored refresh token so existing sessions must log in again.
func (s *Service) ResetPassword(ctx context.Context, emailToken, newPassword string) error {
	subject, err := s.DecodeEmailVerificationToken(emailToken)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(subject)
	defer unlock()

	user, err := s.lookup(ctx, subject)
	if err != nil {
		return err
	}
	if !user.Confirmed {
		return ErrNotConfirmed
	}
	if err := users.ValidatePasswordStrength(newPassword, s.minPasswordLen); err != nil {
		return fmt.Errorf("%w: %v", ErrWeakPassword, err)
	}

	hash, err := s.deps.Hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("[ResetPassword] hash password: %w", err)
	}
	if _, err := s.deps.Users.SetPasswordHash(ctx, user.ID, hash); err != nil {
		return storeError(err)
	}
	if err := s.deps.Users.SetRefreshToken(ctx, user.ID, nil); err != nil {
		return storeError(err)
	}
	if err := s.invalidate(ctx, subject); err != nil {
		return err
	}

	log.Info().Str("subject", subject).Msg("password reset")
	return nil
}

// Register creates an unconfirmed identity and returns it with an email verification
// token.
func (s *Service) Register(ctx context.Context, email, username, password string) (*users.User, string, error) {
	email = strings.TrimSpace(email)
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, "", ErrInvalidEmail
	}

	switch _, err := s.deps.Users.GetByEmail(ctx, email); {
	case err == nil:
		return nil, "", ErrAlreadyExists
	case !errors.Is(err, users.ErrNotFound):
		return nil, "", storeError(err)
	}

	if err := users.ValidatePasswordStrength(password, s.minPasswordLen); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrWeakPassword, err)
	}
	hash, err := s.deps.Hasher.Hash(password)
	if err != nil {
		return nil, "", fmt.Errorf("[Register] hash password: %w", err)
	}

	user := &users.User{
		Email:        email,
		Username:     strings.TrimSpace(username),
		PasswordHash: hash,
		CreatedAt:    s.nowTime().UTC(),
	}
	if err := s.deps.Users.Create(ctx, user); err != nil {
		if errors.Is(err, users.ErrAlreadyExists) {
			return nil, "", ErrAlreadyExists
		}
		return nil, "", storeError(err)
	}

	emailToken, err := s.IssueEmailVerificationToken(email)
	if err != nil {
		return nil, "", err
	}

	log.Info().Str("subject", email).Str("user_id", user.ID).Msg("user registered")
	return user, emailToken, nil
}

// Logout clears the stored refresh token if it is the one presented.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.decode(refreshToken, token.ScopeRefresh)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(claims.Subject)
	defer unlock()

	user, err := s.lookup(ctx, claims.Subject)
	if err != nil {
		return err
	}
	if !user.HasRefreshToken(refreshToken) {
		return ErrRevoked
	}
	if err := s.deps.Users.SetRefreshToken(ctx, user.ID, nil); err != nil {
		return storeError(err)
	}
	return s.invalidate(ctx, user.Email)
}

func (s *Service) issuePair(subject string) (*TokenPair, error) {
	access, err := s.IssueAccessToken(subject)
	if err != nil {
		return nil, err
	}
	refresh, err := s.IssueRefreshToken(subject)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: bearerTokenType}, nil
}

// decode verifies raw and checks it was issued for want.
func (s *Service) decode(raw string, want token.Scope) (*token.Claims, error) {
	claims, err := s.deps.Codec.Decode(raw)
	switch {
	case errors.Is(err, token.ErrExpired):
		err = ErrExpired
	case err != nil:
		err = ErrForged
	case claims.Scope != want:
		err = ErrWrongScope
	}
	metrics.RecordTokenValidation(want.String(), outcome(err))
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *Service) lookup(ctx context.Context, email string) (*users.User, error) {
	user, err := s.deps.Users.GetByEmail(ctx, email)
	if err != nil {
		return nil, storeError(err)
	}
	return user, nil
}

func (s *Service) invalidate(ctx context.Context, subject string) error {
	if err := s.deps.Cache.Invalidate(ctx, subject); err != nil {
		log.Err(err).Str("subject", subject).Msg("session cache invalidation failed")
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// storeError maps user store errors onto the service taxonomy.
func storeError(err error) error {
	if errors.Is(err, users.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrBadCredentials):
		return "bad_credentials"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrNotConfirmed):
		return "not_confirmed"
	case errors.Is(err, ErrWrongScope):
		return "wrong_scope"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrForged):
		return "forged"
	case errors.Is(err, ErrRevoked):
		return "revoked"
	case errors.Is(err, ErrStoreUnavailable):
		return "unavailable"
	}
	return "error"
}
