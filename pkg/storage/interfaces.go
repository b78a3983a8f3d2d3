package storage

import (
	"context"
	"io"
)

// Config holds blob storage backend settings.
type Config struct {
	Type           string // "filesystem" or "s3"
	FilesystemRoot string

	S3Endpoint     string
	S3Region       string
	S3Bucket       string
	S3AccessKey    string
	S3SecretKey    string
	S3UsePathStyle bool
}

// BlobStore stores opaque objects such as organization logos.
type BlobStore interface {
	Put(ctx context.Context, key string, content io.Reader, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// New creates the blob store named by the config type.
func New(cfg Config) (BlobStore, error) {
	if cfg.Type == "s3" {
		return NewS3Store(cfg)
	}
	return NewFilesystemStore(cfg.FilesystemRoot)
}
