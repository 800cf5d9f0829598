package config

import (
	"errors"
	"fmt"
	"time"
)

type TokenConfig interface {
	GetSigningKey() string
	GetSigningAlgorithm() string
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
	GetEmailTokenExpiry() time.Duration
	GetSessionCacheTTL() time.Duration
}

// Tokens holds the process-wide signing material and token lifetimes.
type Tokens struct {
	SigningKey         string        `env:"SECRET_KEY_JWT"`
	SigningAlgorithm   string        `env:"ALGORITHM" envDefault:"HS256"`
	AccessTokenExpiry  time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTokenExpiry time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`
	EmailTokenExpiry   time.Duration `env:"EMAIL_TOKEN_TTL" envDefault:"24h"`
	SessionCacheTTL    time.Duration `env:"SESSION_CACHE_TTL" envDefault:"900s"`
}

var _ TokenConfig = Tokens{}

const (
	minSigningKeyLength = 32
	maxSessionCacheTTL  = 900 * time.Second
)

var ErrSigningKeyMissing = errors.New("SECRET_KEY_JWT is required")

// Validate rejects a missing or short signing key and unsupported algorithms.
func (t Tokens) Validate() error {
	if t.SigningKey == "" {
		return ErrSigningKeyMissing
	}
	if len(t.SigningKey) < minSigningKeyLength {
		return fmt.Errorf("SECRET_KEY_JWT must be at least %d bytes", minSigningKeyLength)
	}
	switch t.GetSigningAlgorithm() {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("unsupported signing algorithm %q", t.SigningAlgorithm)
	}
	return nil
}

func (t Tokens) GetSigningKey() string {
	return t.SigningKey
}

func (t Tokens) GetSigningAlgorithm() string {
	if t.SigningAlgorithm == "" {
		return "HS256"
	}
	return t.SigningAlgorithm
}

func (t Tokens) GetAccessTokenExpiry() time.Duration {
	return t.AccessTokenExpiry
}

func (t Tokens) GetRefreshTokenExpiry() time.Duration {
	return t.RefreshTokenExpiry
}

func (t Tokens) GetEmailTokenExpiry() time.Duration {
	return t.EmailTokenExpiry
}

// GetSessionCacheTTL is the lifetime of a cached identity. Zero or anything
// above 900s falls back to 900s.
func (t Tokens) GetSessionCacheTTL() time.Duration {
	if t.SessionCacheTTL <= 0 || t.SessionCacheTTL > maxSessionCacheTTL {
		return maxSessionCacheTTL
	}
	return t.SessionCacheTTL
}
