package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/noah-isme/geophoto-api/pkg/config"
)

// MinioUploader puts photos into a MinIO bucket.
type MinioUploader struct {
	client     *minio.Client
	bucket     string
	prefix     string
	publicURL  string
	presignTTL time.Duration
}

// NewMinioUploader connects to the server and creates the bucket when missing.
func NewMinioUploader(ctx context.Context, cfg config.ObjectStoreConfig) (*MinioUploader, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("minio bucket is required")
	}
	client, err := minio.New(cfg.Minio.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Minio.AccessKeyID, cfg.Minio.SecretAccessKey, ""),
		Secure: cfg.Minio.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect minio %s: %w", cfg.Minio.Endpoint, err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check minio bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create minio bucket %s: %w", cfg.Bucket, err)
		}
	}

	ttl := cfg.PresignTTL
	// presigned links are capped at seven days
	if ttl <= 0 || ttl > 7*24*time.Hour {
		ttl = 7 * 24 * time.Hour
	}
	return &MinioUploader{
		client:     client,
		bucket:     cfg.Bucket,
		prefix:     cfg.KeyPrefix,
		publicURL:  strings.TrimRight(cfg.PublicURL, "/"),
		presignTTL: ttl,
	}, nil
}

// Upload stores the object and returns a public or presigned link.
func (u *MinioUploader) Upload(ctx context.Context, name string, body io.Reader, size int64, contentType string) (string, error) {
	key := ObjectKey(u.prefix, name)
	if size <= 0 {
		size = -1
	}
	_, err := u.client.StatObject(ctx, u.bucket, key, minio.StatObjectOptions{})
	switch {
	case err == nil:
		return "", fmt.Errorf("minio put %s: %w", key, ErrObjectExists)
	case minio.ToErrorResponse(err).Code != "NoSuchKey":
		return "", fmt.Errorf("minio stat %s: %w", key, err)
	}
	if _, err := u.client.PutObject(ctx, u.bucket, key, body, size, minio.PutObjectOptions{ContentType: contentType}); err != nil {
		return "", fmt.Errorf("minio put %s: %w", key, err)
	}

	if u.publicURL != "" {
		return fmt.Sprintf("%s/%s", u.publicURL, escapeKey(key)), nil
	}
	link, err := u.client.PresignedGetObject(ctx, u.bucket, key, u.presignTTL, nil)
	if err != nil {
		return "", fmt.Errorf("minio presign %s: %w", key, err)
	}
	return link.String(), nil
}
