package users

import (
	"fmt"
	"time"
	"unicode"
)

// User is the principal an authentication resolves to. The user store owns it; the
// auth service only changes it through the Repo update operations.
type User struct {
	ID           string    `json:"id,omitempty"`         // Unique identifier for the user
	Email        string    `json:"email,omitempty"`      // Login name and token subject
	Username     string    `json:"username,omitempty"`   // Display name
	PasswordHash string    `json:"-"`                    // Hashed version of the user's password - never serialize
	Confirmed    bool      `json:"confirmed"`            // Confirmed, has the user verified their email address
	RefreshToken *string   `json:"-"`                    // The single currently valid refresh token, if any
	CreatedAt    time.Time `json:"created_at,omitempty"` // Date and time when the user registered
}

// Clone returns a deep copy so cached values never alias store-owned records.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.RefreshToken != nil {
		rt := *u.RefreshToken
		c.RefreshToken = &rt
	}
	return &c
}

// HasRefreshToken reports whether token is the stored refresh token.
func (u *User) HasRefreshToken(token string) bool {
	return u.RefreshToken != nil && token != "" && *u.RefreshToken == token
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least minLength characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string, minLength int) error {
	if len(password) < minLength {
		return fmt.Errorf("password must be at least %d characters long", minLength)
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}

	return nil
}
