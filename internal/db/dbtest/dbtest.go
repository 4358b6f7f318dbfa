// Package dbtest opens migrated metadata stores for tests.
package dbtest

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/cloudfiles/webapp/internal/db"
)

// SQLite returns a migrated sqlite database in a temporary directory.
func SQLite(t *testing.T) *sql.DB {
	t.Helper()

	ctx := context.Background()
	logger := slog.New(slog.DiscardHandler)
	path := filepath.Join(t.TempDir(), "webapp.db")

	require.NoError(t, db.Migrate("sqlite", path, logger))
	conn, err := db.OpenSQLite(ctx, path, logger)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// Postgres starts a PostgreSQL container, applies migrations and returns a pool.
// The test is skipped unless TEST_INTEGRATION is set.
func Postgres(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("skipping integration test: TEST_INTEGRATION not set")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("webapp_test"),
		postgres.WithUsername("webapp"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	logger := slog.New(slog.DiscardHandler)
	require.NoError(t, db.Migrate("postgres", dsn, logger))

	pool, err := db.Connect(ctx, dsn, logger)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}
