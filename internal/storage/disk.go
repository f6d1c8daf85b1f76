// Package storage writes uploaded product images to the local filesystem or
// to S3-compatible object storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"storefront/internal/config"

	"github.com/google/uuid"
)

// Disk is the image storage driver interface.
type Disk interface {
	// Put writes r to key.
	Put(ctx context.Context, key string, r io.Reader, contentType string) error
	// URL returns the public URL for key.
	URL(key string) string
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// New builds the disk selected by cfg.Driver.
func New(cfg config.StorageConfig) (Disk, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocalDisk(cfg.LocalRoot, cfg.URL)
	case "s3":
		return NewS3Disk(cfg)
	default:
		return nil, fmt.Errorf("storage: unsupported driver %q", cfg.Driver)
	}
}

var allowedImageExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// ImageKey returns a fresh object key under products/ that keeps the
// extension of filename. Files that are not images are rejected.
func ImageKey(filename string) (string, error) {
	ext := strings.ToLower(path.Ext(filename))
	if !allowedImageExt[ext] {
		return "", fmt.Errorf("storage: unsupported image type %q", ext)
	}
	return "products/" + uuid.New().String() + ext, nil
}
