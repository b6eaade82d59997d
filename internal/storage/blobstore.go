// AngelaMos | 2026
// blobstore.go

package storage

import (
	"context"
	"io"
)

// BlobStore is the binary object backend. Keys are opaque identifiers
// minted at upload time; callers never derive filesystem paths from them.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}
