// Package navstate stores navigation payloads under one-shot tokens so a
// redirect can hand data to its target screen without putting it in the URL.
package navstate

import (
	"context"
	"fmt"
	"time"

	"github.com/mkrupp/authui/internal/domain"
)

// Repository defines the interface for navigation state persistence.
type Repository interface {
	// Put stores payload under token until ttl elapses.
	// Returns domain.ErrNavigationStateExists if the token is taken.
	Put(ctx context.Context, token string, payload domain.NavigationPayload, ttl time.Duration) error

	// Take returns the payload stored under token and removes it.
	// Returns domain.ErrNavigationStateNotFound if the token is unknown,
	// already taken or expired.
	Take(ctx context.Context, token string) (domain.NavigationPayload, error)

	// Purge removes expired entries and reports how many were removed.
	Purge(ctx context.Context) (int64, error)

	// Close releases any resources held by the repository.
	Close() error
}

// RepositoryFactory is a function that creates a new Repository instance.
type RepositoryFactory func() (Repository, error)

const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config selects and configures the navigation state backend.
type Config struct {
	// Backend is "sqlite" for a single frontend instance or "redis" when
	// several instances share state
	Backend string `env:"BACKEND" default:"sqlite"`

	SQLite SQLiteRepositoryConfig `envPrefix:"SQLITE_"`
	Redis  RedisRepositoryConfig  `envPrefix:"REDIS_"`
}

// RepositoryFactoryFor returns the factory of the configured backend.
func RepositoryFactoryFor(cfg Config) (RepositoryFactory, error) {
	switch cfg.Backend {
	case BackendSQLite:
		return SQLiteRepositoryFactory(cfg.SQLite), nil
	case BackendRedis:
		return RedisRepositoryFactory(cfg.Redis), nil
	default:
		return nil, fmt.Errorf("unknown navigation state backend %q", cfg.Backend)
	}
}
