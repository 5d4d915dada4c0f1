// Package storage uploads photo binaries to object storage and returns durable
// download references.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/geophoto-api/pkg/config"
)

// Uploader stores one object and returns a reference clients can download from.
type Uploader interface {
	Upload(ctx context.Context, name string, body io.Reader, size int64, contentType string) (string, error)
}

// ObjectKey joins the key prefix and file name, e.g. "images/camera_1.jpg".
func ObjectKey(prefix, name string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// Open builds the configured uploader. The "none" driver returns nil, which
// disables the binary upload step.
func Open(ctx context.Context, cfg config.ObjectStoreConfig, logger *zap.Logger) (Uploader, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Driver {
	case "", config.ObjectStoreNone:
		return nil, nil
	case config.ObjectStoreS3:
		return NewS3Uploader(ctx, cfg, logger)
	case config.ObjectStoreMinio:
		return NewMinioUploader(ctx, cfg)
	case config.ObjectStoreLocal:
		local, err := NewLocalStorage(cfg.LocalDir)
		if err != nil {
			return nil, err
		}
		signer := NewSignedURLSigner(cfg.SignedSecret, cfg.PresignTTL)
		return NewLocalUploader(local, signer, cfg.KeyPrefix, cfg.PublicURL), nil
	default:
		return nil, fmt.Errorf("unsupported object store driver %q", cfg.Driver)
	}
}
