package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"path"
	"strings"

	"github.com/spf13/afero"
)

// FSStorage implements Storage on an afero filesystem. Keys map to file names
// relative to the filesystem root.
type FSStorage struct {
	fs         afero.Fs
	publicBase string
}

// NewFSStorage returns a store writing into fsys. Object URLs are publicBase + "/" + key.
func NewFSStorage(fsys afero.Fs, publicBase string) *FSStorage {
	return &FSStorage{fs: fsys, publicBase: strings.TrimRight(publicBase, "/")}
}

// Put writes reader to key. The etag is the hex MD5 of the content, as S3 reports
// for single-part uploads.
func (s *FSStorage) Put(ctx context.Context, key string, reader io.Reader, _ int64, contentType string) (ObjectInfo, error) {
	if _, err := validKey(key); err != nil {
		return ObjectInfo{}, err
	}
	if dir := path.Dir(key); dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return ObjectInfo{}, fmt.Errorf("create directory for %q: %w", key, err)
		}
	}

	f, err := s.fs.Create(key)
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("create object %q: %w", key, err)
	}

	hash := md5.New()
	if _, err := io.Copy(io.MultiWriter(f, hash), reader); err != nil {
		f.Close()
		_ = s.fs.Remove(key)
		return ObjectInfo{}, fmt.Errorf("write object %q: %w", key, err)
	}
	if err := f.Close(); err != nil {
		return ObjectInfo{}, fmt.Errorf("close object %q: %w", key, err)
	}

	info, err := s.Stat(ctx, key)
	if err != nil {
		return ObjectInfo{}, err
	}
	info.ETag = hex.EncodeToString(hash.Sum(nil))
	if contentType != "" {
		info.ContentType = contentType
	}
	return info, nil
}

// Stat returns size and modification time for key.
func (s *FSStorage) Stat(_ context.Context, key string) (ObjectInfo, error) {
	fi, err := s.fs.Stat(key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ObjectInfo{}, fmt.Errorf("stat object %q: %w", key, ErrObjectNotFound)
		}
		return ObjectInfo{}, fmt.Errorf("stat object %q: %w", key, err)
	}
	return ObjectInfo{
		Key:          key,
		Location:     s.publicBase + "/" + key,
		ContentType:  mime.TypeByExtension(path.Ext(key)),
		Size:         fi.Size(),
		LastModified: fi.ModTime(),
	}, nil
}

// Delete removes key. A missing file is treated as already deleted.
func (s *FSStorage) Delete(_ context.Context, key string) error {
	if err := s.fs.Remove(key); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove object %q: %w", key, err)
	}
	return nil
}

// KeyFromURL strips the public base from rawURL.
func (s *FSStorage) KeyFromURL(rawURL string) (string, error) {
	return keyFromBase(s.publicBase, rawURL)
}

var _ Storage = (*FSStorage)(nil)
