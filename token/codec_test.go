package token_test

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/contacts-auth/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	secretStr   = "0123456789abcdef0123456789abcdef"
	testSubject = "a@x.com"
)

var fixedNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func newTestCodec(t *testing.T, now func() time.Time) *token.Codec {
	t.Helper()

	signer, err := token.NewSigner("HS256", secretStr)
	require.NoError(t, err)
	codec, err := token.NewCodec(signer, token.WithNowFunc(now))
	require.NoError(t, err)
	return codec
}

func TestCodec_RoundTrip(t *testing.T) {
	codec := newTestCodec(t, func() time.Time { return fixedNow })

	for _, scope := range []token.Scope{token.ScopeAccess, token.ScopeRefresh, token.ScopeEmailVerify} {
		t.Run(scope.String(), func(t *testing.T) {
			raw, err := codec.Encode(testSubject, scope, fixedNow, fixedNow.Add(15*time.Minute))
			require.NoError(t, err)
			require.Len(t, strings.Split(raw, "."), 3)

			claims, err := codec.Decode(raw)
			require.NoError(t, err)
			assert.Equal(t, testSubject, claims.Subject)
			assert.Equal(t, scope, claims.Scope)
			assert.Equal(t, fixedNow.Unix(), claims.IssuedAt.Unix())
			assert.Equal(t, fixedNow.Add(15*time.Minute).Unix(), claims.ExpiresAt.Unix())
			assert.NotEmpty(t, claims.ID)
		})
	}
}

func TestCodec_EncodeIsUniquePerCall(t *testing.T) {
	codec := newTestCodec(t, func() time.Time { return fixedNow })

	first, err := codec.Encode(testSubject, token.ScopeRefresh, fixedNow, fixedNow.Add(time.Hour))
	require.NoError(t, err)
	second, err := codec.Encode(testSubject, token.ScopeRefresh, fixedNow, fixedNow.Add(time.Hour))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestCodec_EncodeRejectsBadInput(t *testing.T) {
	codec := newTestCodec(t, time.Now)

	_, err := codec.Encode("", token.ScopeAccess, fixedNow, fixedNow.Add(time.Minute))
	require.Error(t, err)
	_, err = codec.Encode(testSubject, token.Scope("admin"), fixedNow, fixedNow.Add(time.Minute))
	require.Error(t, err)
}

func TestCodec_Expired(t *testing.T) {
	now := fixedNow
	codec := newTestCodec(t, func() time.Time { return now })

	raw, err := codec.Encode(testSubject, token.ScopeAccess, fixedNow, fixedNow.Add(time.Minute))
	require.NoError(t, err)

	now = fixedNow.Add(time.Minute)
	_, err = codec.Decode(raw)
	require.ErrorIs(t, err, token.ErrExpired)
	require.NotErrorIs(t, err, token.ErrForged)

	now = fixedNow.Add(59 * time.Second)
	_, err = codec.Decode(raw)
	require.NoError(t, err)
}

func TestCodec_ZeroTTLIsExpiredImmediately(t *testing.T) {
	codec := newTestCodec(t, time.Now)

	now := time.Now()
	raw, err := codec.Encode(testSubject, token.ScopeAccess, now, now)
	require.NoError(t, err)

	_, err = codec.Decode(raw)
	require.ErrorIs(t, err, token.ErrExpired)
}

func TestCodec_AlteredSignatureIsForged(t *testing.T) {
	codec := newTestCodec(t, func() time.Time { return fixedNow })

	raw, err := codec.Encode(testSubject, token.ScopeAccess, fixedNow, fixedNow.Add(time.Minute))
	require.NoError(t, err)

	parts := strings.Split(raw, ".")
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	require.NoError(t, err)
	sig[0] ^= 0xFF
	parts[2] = base64.RawURLEncoding.EncodeToString(sig)

	_, err = codec.Decode(strings.Join(parts, "."))
	require.ErrorIs(t, err, token.ErrForged)
}

func TestCodec_AlteredClaimsAreForged(t *testing.T) {
	codec := newTestCodec(t, func() time.Time { return fixedNow })

	raw, err := codec.Encode(testSubject, token.ScopeRefresh, fixedNow, fixedNow.Add(time.Minute))
	require.NoError(t, err)

	parts := strings.Split(raw, ".")
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	tampered := strings.Replace(string(payload), `"refresh"`, `"access"`, 1)
	parts[1] = base64.RawURLEncoding.EncodeToString([]byte(tampered))

	_, err = codec.Decode(strings.Join(parts, "."))
	require.ErrorIs(t, err, token.ErrForged)
}

func TestCodec_ForgedExpiredTokenIsForged(t *testing.T) {
	other, err := token.NewSigner("HS256", "another-secret-another-secret-xx")
	require.NoError(t, err)
	otherCodec, err := token.NewCodec(other, token.WithNowFunc(func() time.Time { return fixedNow }))
	require.NoError(t, err)

	raw, err := otherCodec.Encode(testSubject, token.ScopeAccess, fixedNow.Add(-time.Hour), fixedNow.Add(-time.Minute))
	require.NoError(t, err)

	codec := newTestCodec(t, func() time.Time { return fixedNow })
	_, err = codec.Decode(raw)
	require.ErrorIs(t, err, token.ErrForged)
}

func TestCodec_RejectsOtherAlgorithms(t *testing.T) {
	codec := newTestCodec(t, func() time.Time { return fixedNow })
	claims := jwt.MapClaims{
		"sub":   testSubject,
		"scope": "access",
		"iat":   fixedNow.Unix(),
		"exp":   fixedNow.Add(time.Minute).Unix(),
	}

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(secretStr))
	require.NoError(t, err)
	_, err = codec.Decode(hs512)
	require.ErrorIs(t, err, token.ErrForged)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = codec.Decode(none)
	require.ErrorIs(t, err, token.ErrForged)
}

func TestCodec_Malformed(t *testing.T) {
	codec := newTestCodec(t, func() time.Time { return fixedNow })
	signer, err := token.NewSigner("HS256", secretStr)
	require.NoError(t, err)

	missingScope, err := signer.Sign(jwt.MapClaims{
		"sub": testSubject,
		"iat": fixedNow.Unix(),
		"exp": fixedNow.Add(time.Minute).Unix(),
	})
	require.NoError(t, err)

	unknownScope, err := signer.Sign(jwt.MapClaims{
		"sub":   testSubject,
		"scope": "admin",
		"iat":   fixedNow.Unix(),
		"exp":   fixedNow.Add(time.Minute).Unix(),
	})
	require.NoError(t, err)

	missingExp, err := signer.Sign(jwt.MapClaims{
		"sub":   testSubject,
		"scope": "access",
		"iat":   fixedNow.Unix(),
	})
	require.NoError(t, err)

	for name, raw := range map[string]string{
		"empty":         "",
		"garbage":       "not-a-token",
		"two segments":  "abc.def",
		"missing scope": missingScope,
		"unknown scope": unknownScope,
		"missing exp":   missingExp,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := codec.Decode(raw)
			require.ErrorIs(t, err, token.ErrMalformed)
		})
	}
}

func TestNewSigner(t *testing.T) {
	for _, alg := range []string{"HS256", "HS384", "HS512"} {
		signer, err := token.NewSigner(alg, secretStr)
		require.NoError(t, err)
		assert.Equal(t, alg, signer.GetSigningMethod().Alg())
	}

	_, err := token.NewSigner("RS256", secretStr)
	require.ErrorIs(t, err, token.ErrUnsupportedAlgorithm)

	_, err = token.NewSigner("HS256", "")
	require.Error(t, err)
}

func TestNewCodec_RequiresSigner(t *testing.T) {
	_, err := token.NewCodec(nil)
	require.Error(t, err)
}
