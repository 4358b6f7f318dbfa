// Package health probes the metadata store and records a heartbeat row per
// successful probe.
package health

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the slice of the metadata store the health check touches.
type Repository interface {
	// Ping performs a lightweight round-trip to the database.
	Ping(ctx context.Context) error
	// RecordCheck appends one healthz_check row stamped with the current time.
	RecordCheck(ctx context.Context) error
}

// PostgresRepository probes PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a PostgresRepository with the given connection pool.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func (r *PostgresRepository) RecordCheck(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, `INSERT INTO healthz_check DEFAULT VALUES`); err != nil {
		return fmt.Errorf("insert healthz_check: %w", err)
	}
	return nil
}

// SQLiteRepository probes an embedded SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a SQLiteRepository on an open database handle.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) RecordCheck(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `INSERT INTO healthz_check DEFAULT VALUES`); err != nil {
		return fmt.Errorf("insert healthz_check: %w", err)
	}
	return nil
}

var (
	_ Repository = (*PostgresRepository)(nil)
	_ Repository = (*SQLiteRepository)(nil)
)
