package token

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var ErrUnsupportedAlgorithm = errors.New("unsupported signing algorithm")

// NewSigner builds the process-wide signer from the configured algorithm and key.
// Only the HMAC-SHA2 family is supported.
func NewSigner(algorithm, secret string) (Signer, error) {
	if secret == "" {
		return nil, errors.New("signing key is required")
	}

	var method *jwt.SigningMethodHMAC
	switch algorithm {
	case "", jwt.SigningMethodHS256.Alg():
		method = jwt.SigningMethodHS256
	case jwt.SigningMethodHS384.Alg():
		method = jwt.SigningMethodHS384
	case jwt.SigningMethodHS512.Alg():
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, algorithm)
	}

	return NewHMACSigner(secret, method), nil
}
