package config

import "golang.org/x/crypto/bcrypt"

type SecurityConfig interface {
	GetBcryptCost() int
	GetMinPasswordLength() int
}

type Security struct {
	BcryptCost        int `env:"BCRYPT_COST"`
	MinPasswordLength int `env:"MIN_PASSWORD_LENGTH" envDefault:"8"`
}

var _ SecurityConfig = Security{}

func (s Security) GetBcryptCost() int {
	if s.BcryptCost < bcrypt.MinCost || s.BcryptCost > bcrypt.MaxCost {
		return bcrypt.DefaultCost
	}
	return s.BcryptCost
}

func (s Security) GetMinPasswordLength() int {
	if s.MinPasswordLength <= 0 {
		return 8
	}
	return s.MinPasswordLength
}
