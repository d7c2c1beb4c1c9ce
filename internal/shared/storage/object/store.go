package object

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned when no object exists under a key.
var ErrNotFound = errors.New("object not found")

// Info describes a stored object.
type Info struct {
	Key         string
	Size        int64
	ContentType string
}

// ObjectStore defines the contract for saving and retrieving binary objects.
type ObjectStore interface {
	// Provider names the backend ("local" or "s3").
	Provider() string
	// Put stores r under key. size may be -1 when unknown. It returns the bytes written.
	Put(ctx context.Context, key, contentType string, size int64, r io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Stat(ctx context.Context, key string) (Info, error)
	Copy(ctx context.Context, srcKey, dstKey string) error
}

// Presigner issues time-limited upload URLs for direct client uploads.
type Presigner interface {
	PresignPut(ctx context.Context, key, contentType string, size int64, expires time.Duration) (string, error)
}

// Locator maps a storage key to its bucket and fully-qualified object key.
type Locator interface {
	Locate(key string) (bucket, objectKey string)
}
