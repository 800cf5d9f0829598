package config

import (
	"fmt"
	"strings"
)

type EnvVars struct {
	Port           string `env:"PORT" envDefault:"8080"`
	AppName        string `env:"APP_NAME" envDefault:"Contacts Auth"`
	Environment    string `env:"ENV" envDefault:"DEV"`
	DatabasePath   string `env:"DB_PATH" envDefault:"./data/users.db"`
	RedisURL       string `env:"REDIS_URL"`
	RedisKeyPrefix string `env:"REDIS_KEY_PREFIX" envDefault:"user:"`
}

var _ EnvConfig = EnvVars{}
var _ StorageConfig = EnvVars{}

func (e EnvVars) GetPort() string {
	port := e.Port
	if port == "" {
		port = "8080"
	}
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

func (e EnvVars) GetEnv() string {
	if e.Environment == "" {
		return "DEV"
	}
	return e.Environment
}

func (e EnvVars) GetDatabasePath() string {
	return e.DatabasePath
}

// GetRedisURL returns the redis connection URL (redis://:pass@host:6379/0).
// An empty value selects the in-process session cache.
func (e EnvVars) GetRedisURL() string {
	return e.RedisURL
}

func (e EnvVars) GetRedisKeyPrefix() string {
	return e.RedisKeyPrefix
}
