// Package storage publishes exported card images to S3-compatible object
// storage so social previews can point at a stable image URL.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MaxURLExpiry is the longest lifetime S3 accepts for a presigned URL.
const MaxURLExpiry = 7 * 24 * time.Hour

// ErrDisabled is returned when publishing is requested without a configured
// object store.
var ErrDisabled = errors.New("storage: object storage is not configured")

// ObjectStore is the subset of object storage the service needs.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	URL(ctx context.Context, key string, expiry time.Duration) (string, error)
	Remove(ctx context.Context, key string) error
}

// Config describes the MinIO connection. An empty Endpoint disables
// publishing.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Enabled reports whether an object store is configured.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.Endpoint) != ""
}

// ObjectKey is where the image of a saved card is stored.
func ObjectKey(cardID string) string {
	return "cards/" + url.PathEscape(cardID) + ".png"
}

// MinIOStore stores objects in a single MinIO bucket.
type MinIOStore struct {
	client *minio.Client
	bucket string
	logger *slog.Logger
}

var _ ObjectStore = (*MinIOStore)(nil)

// NewMinIOStore connects to MinIO and creates the bucket if it does not
// exist yet.
func NewMinIOStore(ctx context.Context, cfg Config, logger *slog.Logger) (*MinIOStore, error) {
	if !cfg.Enabled() {
		return nil, ErrDisabled
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage: bucket name is required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: creating minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("storage: checking bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("storage: creating bucket %s: %w", cfg.Bucket, err)
		}
		logger.Info("bucket created", slog.String("bucket", cfg.Bucket))
	}

	return &MinIOStore{client: client, bucket: cfg.Bucket, logger: logger}, nil
}

func (m *MinIOStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "public, max-age=300",
	})
	if err != nil {
		return fmt.Errorf("storage: uploading %s: %w", key, err)
	}
	m.logger.Info("object uploaded", slog.String("key", key), slog.Int("bytes", len(data)))
	return nil
}

// URL returns a presigned GET URL for key. expiry is clamped to MaxURLExpiry.
func (m *MinIOStore) URL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if expiry <= 0 || expiry > MaxURLExpiry {
		expiry = MaxURLExpiry
	}
	u, err := m.client.PresignedGetObject(ctx, m.bucket, key, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("storage: presigning %s: %w", key, err)
	}
	return u.String(), nil
}

// Remove deletes key. A missing object is not an error.
func (m *MinIOStore) Remove(ctx context.Context, key string) error {
	err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{})
	if err != nil && minio.ToErrorResponse(err).Code != "NoSuchKey" {
		return fmt.Errorf("storage: deleting %s: %w", key, err)
	}
	return nil
}
