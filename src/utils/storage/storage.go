package storage

import (
	"context"
)

// Writes generated artifacts to object storage.
// Put returns the public URL of the stored object.
type ArtifactStore interface {
	Put(ctx context.Context, bucket, key, contentType string, data []byte) (url string, err error)

	// URL returns the public URL an object will have once stored,
	// without touching the store
	URL(bucket, key string) string
}
