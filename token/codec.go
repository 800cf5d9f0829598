package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrForged means the signature does not match or the algorithm is not the configured one.
	ErrForged = errors.New("token signature invalid")
	// ErrExpired means the signature is valid but exp is not in the future.
	ErrExpired = errors.New("token expired")
	// ErrMalformed means the value is not a compact JWS or lacks required claims.
	ErrMalformed = errors.New("token malformed")
)

// scopedClaims is the wire representation: sub, iat, exp, jti and scope.
type scopedClaims struct {
	Scope Scope `json:"scope"`
	jwt.RegisteredClaims
}

// Codec encodes and decodes signed scoped tokens. It checks signature and expiry
// only; whether a scope is acceptable is left to the caller.
type Codec struct {
	signer  Signer
	nowFunc func() time.Time
}

type CodecOption func(*Codec)

// WithNowFunc sets the clock used for expiry checks (primarily for testing)
func WithNowFunc(now func() time.Time) CodecOption {
	return func(c *Codec) {
		c.nowFunc = now
	}
}

func NewCodec(signer Signer, options ...CodecOption) (*Codec, error) {
	if signer == nil {
		return nil, errors.New("[NewCodec] signer is required")
	}
	c := &Codec{
		signer:  signer,
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// Encode signs subject and scope together with iat, exp and a random jti.
func (c *Codec) Encode(subject string, scope Scope, issuedAt, expiresAt time.Time) (string, error) {
	if strings.TrimSpace(subject) == "" {
		return "", errors.New("[Encode] subject is required")
	}
	if !scope.Valid() {
		return "", fmt.Errorf("[Encode] unknown scope %q", scope)
	}

	claims := scopedClaims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.New().String(),
		},
	}
	return c.signer.Sign(claims)
}

// Decode verifies raw and returns its claims. Errors are ErrForged, ErrExpired or
// ErrMalformed; the signature is checked before expiry.
func (c *Codec) Decode(raw string) (*Claims, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrMalformed
	}

	var claims scopedClaims
	_, err := jwt.ParseWithClaims(raw, &claims, c.signer.GetVerificationKey,
		jwt.WithValidMethods([]string{c.signer.GetSigningMethod().Alg()}),
		jwt.WithTimeFunc(c.nowFunc),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, classify(err)
	}

	if claims.Subject == "" || !claims.Scope.Valid() || claims.IssuedAt == nil {
		return nil, ErrMalformed
	}

	return &Claims{
		ID:        claims.ID,
		Subject:   claims.Subject,
		Scope:     claims.Scope,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrForged, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}
