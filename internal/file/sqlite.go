package file

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLiteRepository stores records in an embedded SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a SQLiteRepository on an open database handle.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts rec. UploadDate is set to the current UTC time when zero.
func (r *SQLiteRepository) Create(ctx context.Context, rec *Record) error {
	if rec.UploadDate.IsZero() {
		rec.UploadDate = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO files (id, file_name, url, upload_date, etag, content_type, content_length, last_modified)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.FileName, rec.URL, rec.UploadDate, rec.ETag, rec.ContentType, rec.ContentLength, rec.LastModified,
	)
	if err != nil {
		return fmt.Errorf("create file record: %w", err)
	}
	return nil
}

// GetByID fetches a record by id.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Record, error) {
	rec := &Record{}
	var etag, contentType sql.NullString
	var contentLength sql.NullInt64
	var lastModified sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT id, file_name, url, upload_date, etag, content_type, content_length, last_modified
		 FROM files WHERE id = ?`,
		id,
	).Scan(&rec.ID, &rec.FileName, &rec.URL, &rec.UploadDate, &etag, &contentType, &contentLength, &lastModified)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get file by id: %w", err)
	}
	rec.ETag = etag.String
	rec.ContentType = contentType.String
	rec.ContentLength = contentLength.Int64
	if lastModified.Valid {
		rec.LastModified = &lastModified.Time
	}
	return rec, nil
}

// Delete removes the record with the given id.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete file record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete file record: rows affected: %w", err)
	}
	if n == 0 {
		return errRecordNotFound
	}
	return nil
}

var _ Repository = (*SQLiteRepository)(nil)
