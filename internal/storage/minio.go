package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/cloudfiles/webapp/internal/config"
)

// MinioStorage implements Storage using a MinIO (or any S3-compatible) backend.
type MinioStorage struct {
	client     *minio.Client
	bucket     string
	publicBase string
}

// NewMinioStorage connects to the endpoint in cfg and prepares the bucket for
// anonymous reads of object URLs.
func NewMinioStorage(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (*MinioStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client for %s: %w", cfg.Endpoint, err)
	}

	s := &MinioStorage{
		client:     client,
		bucket:     cfg.Bucket,
		publicBase: strings.TrimRight(cfg.PublicBase, "/"),
	}
	if err := s.prepareBucket(ctx, cfg.Region, logger); err != nil {
		return nil, err
	}
	return s, nil
}

// prepareBucket creates the bucket when missing and installs the read policy.
func (s *MinioStorage) prepareBucket(ctx context.Context, region string, logger *slog.Logger) error {
	found, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("lookup bucket %s: %w", s.bucket, err)
	}
	if !found {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return fmt.Errorf("make bucket %s: %w", s.bucket, err)
		}
		logger.Info("storage: bucket created", "bucket", s.bucket, "region", region)
	}

	policy, err := objectReadPolicy(s.bucket)
	if err != nil {
		return err
	}
	if err := s.client.SetBucketPolicy(ctx, s.bucket, policy); err != nil {
		return fmt.Errorf("apply policy to bucket %s: %w", s.bucket, err)
	}
	return nil
}

// Put writes reader to MinIO under key, then reads back the stored object's
// attributes since PutObject does not report last-modified or content type.
func (s *MinioStorage) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (ObjectInfo, error) {
	upload, err := s.client.PutObject(ctx, s.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("put object %q: %w", key, err)
	}

	info, err := s.Stat(ctx, key)
	if err != nil {
		return ObjectInfo{}, err
	}
	if info.ETag == "" {
		info.ETag = upload.ETag
	}
	return info, nil
}

// Stat returns the attributes of the object at key.
func (s *MinioStorage) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	obj, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return ObjectInfo{}, fmt.Errorf("stat object %q: %w", key, ErrObjectNotFound)
		}
		return ObjectInfo{}, fmt.Errorf("stat object %q: %w", key, err)
	}
	return ObjectInfo{
		Key:          key,
		Location:     s.PublicURL(key),
		ETag:         obj.ETag,
		ContentType:  obj.ContentType,
		Size:         obj.Size,
		LastModified: obj.LastModified,
	}, nil
}

// Delete removes the object at key from the bucket.
func (s *MinioStorage) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %q: %w", key, err)
	}
	return nil
}

// PublicURL returns the browser-accessible URL for the given key.
// For local MinIO: "http://localhost:9000/webapp-files/0b5c...e1.txt"
func (s *MinioStorage) PublicURL(key string) string {
	return s.publicBase + "/" + key
}

// KeyFromURL is the inverse of PublicURL.
func (s *MinioStorage) KeyFromURL(rawURL string) (string, error) {
	return keyFromBase(s.publicBase, rawURL)
}

type policyStatement struct {
	Effect    string   `json:"Effect"`
	Principal string   `json:"Principal"`
	Action    []string `json:"Action"`
	Resource  []string `json:"Resource"`
}

type bucketPolicy struct {
	Version   string            `json:"Version"`
	Statement []policyStatement `json:"Statement"`
}

// objectReadPolicy grants anonymous GetObject on every key in bucket. Listing
// stays private, so only holders of a file URL can fetch it.
func objectReadPolicy(bucket string) (string, error) {
	b, err := json.Marshal(bucketPolicy{
		Version: "2012-10-17",
		Statement: []policyStatement{{
			Effect:    "Allow",
			Principal: "*",
			Action:    []string{"s3:GetObject"},
			Resource:  []string{"arn:aws:s3:::" + bucket + "/*"},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("encode bucket policy: %w", err)
	}
	return string(b), nil
}

var _ Storage = (*MinioStorage)(nil)

