// Package storage contains object storage abstractions and the S3-compatible drivers behind them.
// Implementations must avoid using local disk and rely on streaming I/O only.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"certdocs/internal/config"
	"certdocs/internal/model"
)

const (
	DriverMinIO = "minio"
	DriverS3    = "s3"
)

// ErrObjectNotFound is returned by Get when the key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// PutObjectOptions define optional parameters for uploading objects.
// Size should be the exact number of bytes if known; if unknown, set to -1 and the implementation
// will buffer/chunk as supported by the backend.
// ContentType and Metadata are optional.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about an object in storage.
type ObjectInfo struct {
	Key          string
	URL          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Storage is a reusable, S3-compatible object storage client interface.
// Methods use context and streaming readers/writers; no local disk is used.
// The actor is passed for the backend's own logging only; it is never used for authorization.
type Storage interface {
	// Put uploads an object under the given key using the provided reader and options.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions, by model.Actor) (ObjectInfo, error)
	// Get retrieves an object's content as a streaming reader alongside its info.
	Get(ctx context.Context, key string, by model.Actor) (io.ReadCloser, ObjectInfo, error)
	// Delete removes an object by key.
	Delete(ctx context.Context, key string, by model.Actor) error
	// PresignGet returns a time-limited URL that can be used to download the object without credentials.
	PresignGet(ctx context.Context, key string, expiry time.Duration, by model.Actor) (string, error)
}

// Open builds the driver selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StorageConfig, log logrus.FieldLogger) (Storage, error) {
	switch cfg.Driver {
	case DriverMinIO, "":
		return NewMinIO(cfg.MinIO, log)
	case DriverS3:
		return NewS3(ctx, cfg.S3, log)
	default:
		return nil, fmt.Errorf("storage: unknown driver %q (want %q or %q)", cfg.Driver, DriverMinIO, DriverS3)
	}
}
