// Package store persists reconciliation outputs. Every backend loads and
// saves a whole Output at once; a failed Save leaves the previous Output in
// place.
package store

import (
	"context"
	"fmt"

	"hmf-id-generator/internal/identity"
)

// Store loads the previous run's Output and saves the next one.
type Store interface {
	// Load returns the persisted Output, or an empty Output if nothing has
	// been saved yet.
	Load(ctx context.Context) (*identity.Output, error)

	// Save replaces the persisted Output.
	Save(ctx context.Context, out *identity.Output) error

	Close() error
}

// Backend names.
const (
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config selects and configures a backend.
type Config struct {
	Backend  string         `yaml:"backend"`
	File     FileConfig     `yaml:"file"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// Open connects to the configured backend.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", BackendFile:
		return NewFileStore(cfg.File)
	case BackendRedis:
		return NewRedisStore(ctx, cfg.Redis)
	case BackendPostgres:
		return NewPostgresStore(ctx, cfg.Postgres)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// Location describes where a store keeps its data, for log output.
func (c Config) Location() string {
	switch c.Backend {
	case BackendRedis:
		return fmt.Sprintf("redis key %s", c.Redis.key())
	case BackendPostgres:
		return fmt.Sprintf("postgres table %s", c.Postgres.table())
	default:
		return c.File.Path
	}
}
