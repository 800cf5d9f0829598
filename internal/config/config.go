package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config interface {
	EnvConfig
	CorsConfig
	TokenConfig
	SecurityConfig
	StorageConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type StorageConfig interface {
	GetDatabasePath() string
	GetRedisURL() string
	GetRedisKeyPrefix() string
}

type mainConfig struct {
	EnvVars
	Cors
	Tokens
	Security
}

var _ Config = mainConfig{}

// New reads the process configuration from the environment. It is called once at
// startup; the signing key and algorithm it returns stay fixed for the process lifetime.
func New() (Config, error) {
	var c mainConfig
	if err := env.Parse(&c); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := c.Tokens.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
