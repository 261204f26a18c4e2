package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"hmf-id-generator/internal/identity"
)

// DefaultRedisKey is the hash holding one field per SourceID.
const DefaultRedisKey = "idgen:output"

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	URL         string        `yaml:"url"`
	Key         string        `yaml:"key"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

func (c RedisConfig) key() string {
	if c.Key == "" {
		return DefaultRedisKey
	}
	return c.Key
}

// RedisStore keeps the Output in a Redis hash, one JSON encoded entry per
// field. Saves replace the hash inside a MULTI/EXEC transaction.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis store: url is required")
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisStore{client: client, key: cfg.key()}, nil
}

func (s *RedisStore) Load(ctx context.Context) (*identity.Output, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis load %s: %w", s.key, err)
	}

	records := make([]record, 0, len(fields))
	for source, raw := range fields {
		var r record
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			return nil, fmt.Errorf("redis load %s: entry %s: %w", s.key, source, err)
		}
		if r.Source != source {
			return nil, fmt.Errorf("redis load %s: field %s holds entry for %s", s.key, source, r.Source)
		}
		records = append(records, r)
	}
	return fromRecords(records)
}

func (s *RedisStore) Save(ctx context.Context, out *identity.Output) error {
	records := toRecords(out)
	values := make(map[string]interface{}, len(records))
	for _, r := range records {
		raw, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal entry %s: %w", r.Source, err)
		}
		values[r.Source] = raw
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(values) > 0 {
			pipe.HSet(ctx, s.key, values)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save %s: %w", s.key, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
