package domain

import (
	"context"
	"io"
	"time"
)

// Object describes a stored blob.
type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// BlobStore holds the uploaded image bytes. Uploaded objects are publicly readable.
type BlobStore interface {
	// Upload stores body under key and returns its public URL.
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// List returns every object whose key starts with prefix.
	List(ctx context.Context, prefix string) ([]Object, error)
	// ObjectKey recovers the key from a URL returned by Upload.
	ObjectKey(publicURL string) (string, bool)
}
