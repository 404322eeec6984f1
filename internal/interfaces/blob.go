package interfaces

import (
	"context"
	"time"
)

// BlobStore is the optional object-store mirror for fetched artifacts.
// Mirror failures are logged by callers and never fail the pipeline.
type BlobStore interface {
	// Head reports whether an object already exists at key.
	Head(ctx context.Context, key string) (bool, error)

	// Put uploads the file at filePath to key with the given content type.
	// Uploading an existing key is a no-op.
	Put(ctx context.Context, key, filePath, contentType string) error

	// Presign returns a time-limited URL for reading key.
	Presign(ctx context.Context, key string, ttl time.Duration) (string, error)
}
