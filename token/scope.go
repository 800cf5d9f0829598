package token

import "time"

// Scope is the declared purpose of a token.
type Scope string

const (
	ScopeAccess      Scope = "access"
	ScopeRefresh     Scope = "refresh"
	ScopeEmailVerify Scope = "email_verify"
)

func (s Scope) Valid() bool {
	switch s {
	case ScopeAccess, ScopeRefresh, ScopeEmailVerify:
		return true
	}
	return false
}

func (s Scope) String() string {
	return string(s)
}

// Claims is the decoded content of a verified token.
type Claims struct {
	ID        string    // jti, unique per issued token
	Subject   string    // identity key, the user's email
	Scope     Scope     // purpose the token was issued for
	IssuedAt  time.Time // iat
	ExpiresAt time.Time // exp
}
