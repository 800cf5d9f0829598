package users

import "golang.org/x/crypto/bcrypt"

// Hasher is the one-way password boundary.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// BcryptHasher hashes with bcrypt. Every hash carries its own salt and cost.
type BcryptHasher struct {
	cost int
}

var _ Hasher = BcryptHasher{}

func NewBcryptHasher(cost int) BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return BcryptHasher{cost: cost}
}

func (h BcryptHasher) Hash(password string) (string, error) {
	cost := h.cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	return string(bytes), err
}

// Verify compares in constant time. A malformed hash is reported as a mismatch.
func (h BcryptHasher) Verify(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

func HashPassword(password string) (string, error) {
	return BcryptHasher{}.Hash(password)
}

func CheckPasswordHash(password, hash string) bool {
	return BcryptHasher{}.Verify(password, hash)
}
