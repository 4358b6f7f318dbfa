// Package storage defines the interface for object storage operations.
// Swap implementations by changing the concrete type injected at startup:
// MinIO works with any S3-compatible provider, S3 talks to AWS directly and
// FS keeps objects on a local (or in-memory) filesystem.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/cloudfiles/webapp/internal/config"
)

// ErrObjectNotFound is returned by Stat when no object exists under the key.
var ErrObjectNotFound = errors.New("object not found")

// ErrForeignURL is returned by KeyFromURL when the URL does not point into this store.
var ErrForeignURL = errors.New("url does not belong to this store")

// ObjectInfo is the metadata the store assigns to a written object.
type ObjectInfo struct {
	Key          string
	Location     string
	ETag         string
	ContentType  string
	Size         int64
	LastModified time.Time
}

// Storage is the interface for writing, inspecting and removing objects.
type Storage interface {
	// Put writes size bytes from reader under key and returns the stored object's metadata.
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (ObjectInfo, error)
	// Stat returns metadata for the object at key, or ErrObjectNotFound.
	Stat(ctx context.Context, key string) (ObjectInfo, error)
	// Delete removes the object at key. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error
	// KeyFromURL recovers the object key from a location previously returned by Put.
	KeyFromURL(rawURL string) (string, error)
}

// New builds the Storage selected by cfg.Driver.
func New(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (Storage, error) {
	switch cfg.Driver {
	case config.StorageMinio:
		return NewMinioStorage(ctx, cfg, logger)
	case config.StorageS3:
		return NewS3Storage(cfg.Region, cfg.Endpoint, cfg.AccessKey, cfg.SecretKey, cfg.Bucket)
	case config.StorageFS:
		osFs := afero.NewOsFs()
		if err := osFs.MkdirAll(cfg.Root, 0o755); err != nil {
			return nil, fmt.Errorf("create storage root %q: %w", cfg.Root, err)
		}
		logger.Info("storage: using local filesystem", "root", cfg.Root)
		return NewFSStorage(afero.NewBasePathFs(osFs, cfg.Root), cfg.PublicBase), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}

// keyFromBase strips base from rawURL and validates what remains as an object key.
func keyFromBase(base, rawURL string) (string, error) {
	key, ok := strings.CutPrefix(rawURL, base+"/")
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrForeignURL, rawURL)
	}
	return validKey(key)
}

// validKey rejects empty keys and keys that would escape the bucket root.
func validKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || path.Clean(key) != key || strings.HasPrefix(key, "..") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return key, nil
}
