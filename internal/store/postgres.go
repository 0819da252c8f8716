package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Open creates a connection pool and verifies it with a ping.
func Open(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres connection string: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres database: %w", err)
	}
	return pool, nil
}

// Migrate applies the embedded schema migrations.
func Migrate(dsn string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, dsn)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		logger.Info("no migrations applied yet")
	case err != nil:
		return fmt.Errorf("failed to get migration version: %w", err)
	default:
		logger.Info("migrations applied", zap.Uint("version", version), zap.Bool("dirty", dirty))
	}
	return nil
}

// PostgresStore is a SummaryStore backed by PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an open pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const upsertSummary = `
INSERT INTO failure_summaries (repo, run_id, workflow, summary, created_at)
VALUES ($1, $2, $3, $4, COALESCE($5, now()))
ON CONFLICT (repo, run_id) DO UPDATE
SET workflow = EXCLUDED.workflow, summary = EXCLUDED.summary, created_at = EXCLUDED.created_at`

func (p *PostgresStore) Save(ctx context.Context, s Summary) error {
	var created *time.Time
	if !s.CreatedAt.IsZero() {
		created = &s.CreatedAt
	}
	if _, err := p.pool.Exec(ctx, upsertSummary, s.Repo, s.RunID, s.Workflow, s.Text, created); err != nil {
		return fmt.Errorf("save summary for run %d: %w", s.RunID, err)
	}
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, repo string, runID int64) (Summary, error) {
	s := Summary{Repo: repo, RunID: runID}
	err := p.pool.QueryRow(ctx,
		`SELECT workflow, summary, created_at FROM failure_summaries WHERE repo = $1 AND run_id = $2`,
		repo, runID,
	).Scan(&s.Workflow, &s.Text, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Summary{}, ErrNotFound
	}
	if err != nil {
		return Summary{}, fmt.Errorf("get summary for run %d: %w", runID, err)
	}
	return s, nil
}

func (p *PostgresStore) ListSince(ctx context.Context, repo string, since time.Time, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := p.pool.Query(ctx,
		`SELECT repo, run_id, workflow, summary, created_at
		   FROM failure_summaries
		  WHERE repo = $1 AND created_at >= $2
		  ORDER BY created_at DESC, run_id DESC
		  LIMIT $3`,
		repo, since, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.Repo, &s.RunID, &s.Workflow, &s.Text, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
