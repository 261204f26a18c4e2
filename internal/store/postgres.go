package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hmf-id-generator/internal/identity"
)

// DefaultPostgresTable holds one row per SourceID.
const DefaultPostgresTable = "anonymized_ids"

// PostgresConfig configures the Postgres backend.
type PostgresConfig struct {
	URL   string `yaml:"url"`
	Table string `yaml:"table"`
}

func (c PostgresConfig) table() string {
	if c.Table == "" {
		return DefaultPostgresTable
	}
	return c.Table
}

// PostgresStore keeps the Output in a table. Saves replace every row inside
// one transaction.
type PostgresStore struct {
	pool  *pgxpool.Pool
	table string
}

// NewPostgresStore connects, verifies the connection and creates the table if
// it does not exist.
func NewPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	if cfg.URL == "" {
		return nil, errors.New("postgres store: url is required")
	}

	pool, err := pgxpool.New(ctx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresStore{pool: pool, table: pgx.Identifier{cfg.table()}.Sanitize()}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS ` + s.table + ` (
			source              TEXT PRIMARY KEY,
			digest              TEXT NOT NULL,
			sequence            INTEGER NOT NULL CHECK (sequence > 0),
			canonical           TEXT NOT NULL DEFAULT '',
			superseded_digest   TEXT NOT NULL DEFAULT '',
			superseded_sequence INTEGER NOT NULL DEFAULT 0
		)`
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context) (*identity.Output, error) {
	query := `
		SELECT source, digest, sequence, canonical, superseded_digest, superseded_sequence
		FROM ` + s.table + `
		ORDER BY source`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.table, err)
	}
	defer rows.Close()

	var records []record
	for rows.Next() {
		var r record
		if err := rows.Scan(&r.Source, &r.Digest, &r.Sequence, &r.Canonical, &r.SupersededDigest, &r.SupersededSequence); err != nil {
			return nil, fmt.Errorf("scan %s: %w", s.table, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", s.table, err)
	}
	return fromRecords(records)
}

func (s *PostgresStore) Save(ctx context.Context, out *identity.Output) error {
	records := toRecords(out)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM `+s.table); err != nil {
		return fmt.Errorf("clear %s: %w", s.table, err)
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO ` + s.table + ` (
			source, digest, sequence, canonical, superseded_digest, superseded_sequence
		) VALUES ($1, $2, $3, $4, $5, $6)`
	for _, r := range records {
		batch.Queue(query, r.Source, r.Digest, r.Sequence, r.Canonical, r.SupersededDigest, r.SupersededSequence)
	}

	br := tx.SendBatch(ctx, batch)
	for i := range records {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("batch insert entry %d: %w", i, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("batch insert: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
