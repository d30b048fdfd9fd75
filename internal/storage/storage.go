// Package storage abstracts the blob store behind the CMS: image upload,
// key reorganization and public URL derivation.
package storage

import (
	"context"
	"io"
	"time"
)

// TempUploadPrefix is where freshly uploaded blobs land before a record
// owns them; the organizer moves them out, the sweeper reaps leftovers.
const TempUploadPrefix = "tmp/uploads/"

type BlobInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// BlobStore is the interface the rest of the system depends on. Move
// must rekey a blob without the caller re-uploading bytes, and PublicURL
// must be a pure function of the key.
type BlobStore interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	Move(ctx context.Context, fromKey, toKey string) error
	Remove(ctx context.Context, keys []string) error
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
	PublicURL(key string) string
	// KeyFromURL maps a public URL back to its store key; ok is false
	// for URLs this store does not serve.
	KeyFromURL(rawURL string) (key string, ok bool)
}
