package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupPostgres(t *testing.T) *PostgresStore {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("lazyqa"),
		postgres.WithUsername("lazyqa"),
		postgres.WithPassword("lazyqa"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, Migrate(dsn, nil))
	// A second run is a no-op.
	require.NoError(t, Migrate(dsn, nil))

	pool, err := Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return NewPostgresStore(pool)
}

func TestPostgresStore(t *testing.T) {
	s := setupPostgres(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	_, err := s.Get(ctx, "acme/web", 42)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Save(ctx, Summary{Repo: "acme/web", RunID: 42, Workflow: "QA US - Smoke", Text: "Timeout", CreatedAt: base}))
	require.NoError(t, s.Save(ctx, Summary{Repo: "acme/web", RunID: 42, Workflow: "QA US - Smoke", Text: "Timeout again", CreatedAt: base}))
	require.NoError(t, s.Save(ctx, Summary{Repo: "acme/web", RunID: 43, Workflow: "QA EU - Regression", Text: "Element not found", CreatedAt: base.Add(time.Hour)}))
	require.NoError(t, s.Save(ctx, Summary{Repo: "acme/web", RunID: 44, Text: "defaulted time"}))

	got, err := s.Get(ctx, "acme/web", 42)
	require.NoError(t, err)
	assert.Equal(t, "Timeout again", got.Text)
	assert.Equal(t, "QA US - Smoke", got.Workflow)
	assert.True(t, got.CreatedAt.Equal(base))

	listed, err := s.ListSince(ctx, "acme/web", base, 2)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, int64(44), listed[0].RunID, "now() sorts after the fixed timestamps")
	assert.Equal(t, int64(43), listed[1].RunID)
}
