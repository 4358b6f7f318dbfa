package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// S3Storage implements Storage against AWS S3. Object URLs are the locations
// reported by S3 on upload.
type S3Storage struct {
	client   *s3.S3
	uploader *s3manager.Uploader
	bucket   string
}

// NewS3Storage creates an S3 session for region. Static credentials are used when
// accessKey is set, otherwise the default AWS credential chain applies. endpoint is
// only honoured when it carries a scheme, so the MinIO-style "host:port" default is ignored.
func NewS3Storage(region, endpoint, accessKey, secretKey, bucket string) (*S3Storage, error) {
	cfg := aws.NewConfig().WithRegion(region)
	if accessKey != "" {
		cfg = cfg.WithCredentials(credentials.NewStaticCredentials(accessKey, secretKey, ""))
	}
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		cfg = cfg.WithEndpoint(endpoint).WithS3ForcePathStyle(true)
	}

	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}

	return &S3Storage{
		client:   s3.New(sess),
		uploader: s3manager.NewUploader(sess),
		bucket:   bucket,
	}, nil
}

// Put uploads reader under key. The upload reports only location and etag, so the
// remaining attributes come from a HEAD on the new object.
func (s *S3Storage) Put(ctx context.Context, key string, reader io.Reader, _ int64, contentType string) (ObjectInfo, error) {
	out, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        reader,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("upload object %q: %w", key, err)
	}

	info, err := s.Stat(ctx, key)
	if err != nil {
		return ObjectInfo{}, err
	}
	info.Location = out.Location
	return info, nil
}

// Stat issues a HEAD request for key.
func (s *S3Storage) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	head, err := s.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && (aerr.Code() == "NotFound" || aerr.Code() == s3.ErrCodeNoSuchKey) {
			return ObjectInfo{}, fmt.Errorf("head object %q: %w", key, ErrObjectNotFound)
		}
		return ObjectInfo{}, fmt.Errorf("head object %q: %w", key, err)
	}
	return ObjectInfo{
		Key:          key,
		ETag:         strings.Trim(aws.StringValue(head.ETag), `"`),
		ContentType:  aws.StringValue(head.ContentType),
		Size:         aws.Int64Value(head.ContentLength),
		LastModified: aws.TimeValue(head.LastModified),
	}, nil
}

// Delete removes the object at key.
func (s *S3Storage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %q: %w", key, err)
	}
	return nil
}

// KeyFromURL accepts both virtual-hosted ("https://bucket.s3.amazonaws.com/key")
// and path-style ("https://s3.amazonaws.com/bucket/key") locations.
func (s *S3Storage) KeyFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse object url: %w", err)
	}

	key := strings.TrimPrefix(u.Path, "/")
	if !strings.HasPrefix(u.Host, s.bucket+".") {
		var ok bool
		key, ok = strings.CutPrefix(key, s.bucket+"/")
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrForeignURL, rawURL)
		}
	}
	return validKey(key)
}

var _ Storage = (*S3Storage)(nil)
