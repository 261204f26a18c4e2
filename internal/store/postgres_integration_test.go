//go:build integration

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"hmf-id-generator/internal/identity"
)

// newPostgresContainer starts a throwaway Postgres and returns its URL.
func newPostgresContainer(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("idgen"),
		tcpostgres.WithUsername("idgen"),
		tcpostgres.WithPassword("idgen"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, container)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get postgres connection string: %v", err)
	}
	return url
}

func TestPostgresStore(t *testing.T) {
	url := newPostgresContainer(t)

	s, err := NewPostgresStore(context.Background(), PostgresConfig{URL: url})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	testRoundTrip(t, s)
}

func TestPostgresStoreReopen(t *testing.T) {
	ctx := context.Background()
	url := newPostgresContainer(t)
	cfg := PostgresConfig{URL: url, Table: "ids"}

	first, err := NewPostgresStore(ctx, cfg)
	require.NoError(t, err)
	want := sampleOutput(t)
	require.NoError(t, first.Save(ctx, want))
	require.NoError(t, first.Close())

	second, err := Open(ctx, Config{Backend: BackendPostgres, Postgres: cfg})
	require.NoError(t, err, "reopening must not fail on the existing table")
	t.Cleanup(func() { second.Close() })

	got, err := second.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want.Entries(), got.Entries())

	// A smaller snapshot replaces every row.
	smaller, err := identity.Reconcile("password",
		identity.NewBatch([]identity.SourceID{"CPCT01990007"}, nil), nil)
	require.NoError(t, err)
	require.NoError(t, second.Save(ctx, smaller))

	got, err = second.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, smaller.Entries(), got.Entries())
}

func TestPostgresStoreRejectsCorruptRows(t *testing.T) {
	ctx := context.Background()
	url := newPostgresContainer(t)

	s, err := NewPostgresStore(ctx, PostgresConfig{URL: url})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	_, err = s.pool.Exec(ctx, `INSERT INTO `+s.table+` (source, digest, sequence) VALUES ('CPCT01990001', 'zz', 1)`)
	require.NoError(t, err)

	_, err = s.Load(ctx)
	assert.Error(t, err)
}
