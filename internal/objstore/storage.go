// Package objstore wraps MinIO/S3 interactions for receipt images.
package objstore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"billed/internal/config"
)

type Storage struct {
	client *minio.Client
	bucket string
	region string
}

// New creates a MinIO client from the Config.
func New(cfg *config.Config) (*Storage, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	return &Storage{
		client: client,
		bucket: cfg.ReceiptBucket,
		region: cfg.S3Region,
	}, nil
}

// EnsureBucket makes sure the receipt bucket exists before use.
func (s *Storage) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return fmt.Errorf("make bucket %s: %w", s.bucket, err)
		}
	}
	return nil
}

// PutReceipt uploads one receipt image and returns its stored URL.
func (s *Storage) PutReceipt(ctx context.Context, objectKey string, r io.Reader, size int64, contentType string) (string, error) {
	opts := minio.PutObjectOptions{ContentType: contentType}
	if _, err := s.client.PutObject(ctx, s.bucket, objectKey, r, size, opts); err != nil {
		return "", fmt.Errorf("upload receipt object: %w", err)
	}
	return s.client.EndpointURL().JoinPath(s.bucket, objectKey).String(), nil
}

// PresignReceiptURL returns a signed GET URL for a stored receipt, used by
// the preview modal.
func (s *Storage) PresignReceiptURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, objectKey, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign receipt object: %w", err)
	}
	return u.String(), nil
}

// RemoveReceipt deletes a stored receipt object.
func (s *Storage) RemoveReceipt(ctx context.Context, objectKey string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, objectKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove receipt object: %w", err)
	}
	return nil
}
