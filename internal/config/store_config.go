package config

import (
	"os"
	"path/filepath"
	"strings"
)

// Token store names accepted by TOKEN_STORE
const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

type StoreConfig interface {
	GetTokenStore() string
	GetTokenFile() string
	GetRedisAddr() string
	GetRedisKeyPrefix() string
	GetDatabaseURL() string
}

type Store struct{}

var _ StoreConfig = Store{}

func (Store) GetTokenStore() string {
	return strings.ToLower(GetEnv("TOKEN_STORE", StoreFile))
}

func (Store) GetTokenFile() string {
	if path := os.Getenv("TOKEN_FILE"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".portfolio", "credentials.json")
	}
	return filepath.Join(home, ".portfolio", "credentials.json")
}

func (Store) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "localhost:6379")
}

func (Store) GetRedisKeyPrefix() string {
	return GetEnv("REDIS_KEY_PREFIX", "portfolio:credentials")
}

func (Store) GetDatabaseURL() string {
	return GetEnv("DATABASE_URL", "")
}
