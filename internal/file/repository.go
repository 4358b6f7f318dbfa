// Package file manages uploaded files: the object in the store and its
// metadata record.
package file

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Record is the persisted metadata of one uploaded file. Records are immutable
// once created.
type Record struct {
	ID         string
	FileName   string
	URL        string
	UploadDate time.Time

	// Attributes reported by the object store at upload time.
	ETag          string
	ContentType   string
	ContentLength int64
	LastModified  *time.Time
}

// errRecordNotFound is returned by repositories when no row matches the id.
var errRecordNotFound = errors.New("file record not found")

// Repository persists file records.
type Repository interface {
	Create(ctx context.Context, rec *Record) error
	GetByID(ctx context.Context, id string) (*Record, error)
	Delete(ctx context.Context, id string) error
}

// PostgresRepository stores records in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a PostgresRepository with the given connection pool.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts rec. UploadDate is filled from the database default.
func (r *PostgresRepository) Create(ctx context.Context, rec *Record) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO files (id, file_name, url, etag, content_type, content_length, last_modified)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING upload_date`,
		rec.ID, rec.FileName, rec.URL, rec.ETag, rec.ContentType, rec.ContentLength, rec.LastModified,
	).Scan(&rec.UploadDate)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create file record: duplicate id %s", rec.ID)
		}
		return fmt.Errorf("create file record: %w", err)
	}
	return nil
}

// GetByID fetches a record by its UUID.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Record, error) {
	rec := &Record{}
	var etag, contentType *string
	var contentLength *int64
	err := r.db.QueryRow(ctx,
		`SELECT id, file_name, url, upload_date, etag, content_type, content_length, last_modified
		 FROM files WHERE id = $1`,
		id,
	).Scan(&rec.ID, &rec.FileName, &rec.URL, &rec.UploadDate, &etag, &contentType, &contentLength, &rec.LastModified)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get file by id: %w", err)
	}
	rec.ETag = deref(etag)
	rec.ContentType = deref(contentType)
	if contentLength != nil {
		rec.ContentLength = *contentLength
	}
	return rec, nil
}

// Delete removes the record with the given id.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete file record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errRecordNotFound
	}
	return nil
}

// isUniqueViolation checks whether an error is a PostgreSQL unique_violation (code 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var _ Repository = (*PostgresRepository)(nil)
