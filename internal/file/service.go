package file

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/cloudfiles/webapp/internal/metrics"
	"github.com/cloudfiles/webapp/internal/storage"
)

// maxNameLength bounds file_name to the width of its column.
const maxNameLength = 255

var (
	// ErrInvalidRequest is returned when the upload is empty or unnamed. No store is contacted.
	ErrInvalidRequest = errors.New("invalid file request")
	// ErrNotFound is returned when no record exists for the id.
	ErrNotFound = errors.New("file not found")
	// ErrStorage wraps object store failures.
	ErrStorage = errors.New("object storage failure")
	// ErrPersistence wraps metadata store failures.
	ErrPersistence = errors.New("metadata persistence failure")
)

// Upload is a fully buffered file received from a client.
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
}

// Service sequences object store and metadata store calls for the file
// lifecycle. It holds no per-request state.
type Service struct {
	repo   Repository
	store  storage.Storage
	logger *slog.Logger
}

// NewService creates a new file Service.
func NewService(repo Repository, store storage.Storage, logger *slog.Logger) *Service {
	return &Service{repo: repo, store: store, logger: logger}
}

// Create writes the payload to the object store and then records its metadata.
// The client-supplied name is stored as given.
// A failed record insert leaves the stored object in place.
func (s *Service) Create(ctx context.Context, in Upload) (*Record, error) {
	name := in.Name
	if len(in.Data) == 0 || strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("create file: empty payload or name: %w", ErrInvalidRequest)
	}
	if !utf8.ValidString(name) {
		return nil, fmt.Errorf("create file: name is not valid UTF-8: %w", ErrInvalidRequest)
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return nil, fmt.Errorf("create file: name longer than %d characters: %w", maxNameLength, ErrInvalidRequest)
	}

	contentType := in.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mimetype.Detect(in.Data).String()
	}

	key := objectKey(uuid.NewString(), strings.TrimSpace(name))
	size := int64(len(in.Data))

	timer := metrics.StorageTimer("put")
	info, err := s.store.Put(ctx, key, bytes.NewReader(in.Data), size, contentType)
	timer.ObserveDuration()
	if err != nil {
		s.logger.Error("store object failed", "key", key, "error", err)
		return nil, fmt.Errorf("store object: %w: %w", ErrStorage, err)
	}

	rec := &Record{
		ID:            uuid.NewString(),
		FileName:      name,
		URL:           info.Location,
		ETag:          info.ETag,
		ContentType:   info.ContentType,
		ContentLength: info.Size,
	}
	if rec.ContentType == "" {
		rec.ContentType = contentType
	}
	if !info.LastModified.IsZero() {
		lm := info.LastModified.UTC()
		rec.LastModified = &lm
	}

	timer = metrics.DBTimer("insert_file")
	err = s.repo.Create(ctx, rec)
	timer.ObserveDuration()
	if err != nil {
		s.logger.Error("record file failed, object left in store", "key", key, "error", err)
		return nil, fmt.Errorf("record file: %w: %w", ErrPersistence, err)
	}

	s.logger.Info("file uploaded",
		"id", rec.ID,
		"key", key,
		"content_type", rec.ContentType,
		"size", humanize.Bytes(uint64(size)),
	)
	return rec, nil
}

// Get returns the record for id. The object store is not consulted.
func (s *Service) Get(ctx context.Context, id string) (*Record, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("get file %q: %w", id, ErrNotFound)
	}

	timer := metrics.DBTimer("select_file")
	rec, err := s.repo.GetByID(ctx, parsed.String())
	timer.ObserveDuration()
	if errors.Is(err, errRecordNotFound) {
		return nil, fmt.Errorf("get file %s: %w", parsed, ErrNotFound)
	}
	if err != nil {
		s.logger.Error("lookup file failed", "id", parsed.String(), "error", err)
		return nil, fmt.Errorf("get file %s: %w: %w", parsed, ErrPersistence, err)
	}
	return rec, nil
}

// Delete removes the object and then the record. If the object delete fails
// both are kept; if the record delete fails the record outlives its object.
func (s *Service) Delete(ctx context.Context, id string) error {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	key, err := s.store.KeyFromURL(rec.URL)
	if err != nil {
		s.logger.Error("resolve object key failed", "id", rec.ID, "url", rec.URL, "error", err)
		return fmt.Errorf("delete file %s: %w: %w", rec.ID, ErrStorage, err)
	}

	timer := metrics.StorageTimer("delete")
	err = s.store.Delete(ctx, key)
	timer.ObserveDuration()
	if err != nil {
		s.logger.Error("delete object failed", "id", rec.ID, "key", key, "error", err)
		return fmt.Errorf("delete file %s: %w: %w", rec.ID, ErrStorage, err)
	}

	timer = metrics.DBTimer("delete_file")
	err = s.repo.Delete(ctx, rec.ID)
	timer.ObserveDuration()
	if errors.Is(err, errRecordNotFound) {
		return fmt.Errorf("delete file %s: %w", rec.ID, ErrNotFound)
	}
	if err != nil {
		s.logger.Error("delete record failed, record outlives object", "id", rec.ID, "key", key, "error", err)
		return fmt.Errorf("delete file %s: %w: %w", rec.ID, ErrPersistence, err)
	}

	s.logger.Info("file deleted", "id", rec.ID, "key", key)
	return nil
}

// UploadDay formats the record's upload time as a UTC calendar date.
func (r *Record) UploadDay() string {
	return r.UploadDate.UTC().Format(time.DateOnly)
}

// objectKey builds "<prefix>.<ext>" using the lower-cased extension of name.
// Extensions that are not short and alphanumeric are dropped.
func objectKey(prefix, name string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(path.Base(strings.ReplaceAll(name, `\`, "/"))), "."))
	if ext == "" || len(ext) > 16 {
		return prefix
	}
	for _, c := range ext {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return prefix
		}
	}
	return prefix + "." + ext
}
