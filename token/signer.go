package token

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Signer is an interface for signing and verifying JWT tokens
type Signer interface {
	// Sign creates a signed JWT token from claims
	Sign(claims jwt.Claims) (string, error)

	// GetVerificationKey returns the key used to verify token, rejecting unexpected algorithms
	GetVerificationKey(token *jwt.Token) (any, error)

	// GetSigningMethod returns the JWT signing method used
	GetSigningMethod() jwt.SigningMethod
}

// HMACSigner implements Signer using a symmetric HMAC-SHA2 secret
type HMACSigner struct {
	secret []byte
	method *jwt.SigningMethodHMAC
}

var _ Signer = (*HMACSigner)(nil)

// NewHMACSigner creates a signer for the given HMAC method; nil means HS256
func NewHMACSigner(secret string, method *jwt.SigningMethodHMAC) *HMACSigner {
	if method == nil {
		method = jwt.SigningMethodHS256
	}
	return &HMACSigner{
		secret: []byte(secret),
		method: method,
	}
}

func (h *HMACSigner) Sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(h.method, claims)
	signedToken, err := token.SignedString(h.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token with HMAC: %w", err)
	}
	return signedToken, nil
}

func (h *HMACSigner) GetVerificationKey(token *jwt.Token) (any, error) {
	if token.Method != h.method {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return h.secret, nil
}

func (h *HMACSigner) GetSigningMethod() jwt.SigningMethod {
	return h.method
}
