package storage

import (
	"context"
	"fmt"
	"io"

	"couponme/api/internal/config"
)

// ObjectStore persists uploaded files and resolves their public URL.
type ObjectStore interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, key string) error
	PublicURL(key string) string
}

func New(cfg config.StorageConfig) (ObjectStore, error) {
	switch cfg.Driver {
	case config.StorageDriverMinio:
		return NewMinioStore(cfg)
	case config.StorageDriverLocal:
		return NewLocalStore(cfg.LocalDir, cfg.PublicBaseURL), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
