package ivcs

import (
	"context"
	"io"
)

// VersionStore is content-addressed blob storage for committed versions.
// Keys are the hex SHA-256 of the plaintext content.
type VersionStore interface {
	// Put stores everything read from r and returns its key.
	// Storing content that already exists is a no-op returning the same key.
	Put(ctx context.Context, r io.Reader) (string, error)

	// Get writes the content stored under key to w.
	// A missing key yields a *NotFoundError with Kind "content".
	Get(ctx context.Context, key string, w io.Writer) error

	// Has reports whether key is stored.
	Has(ctx context.Context, key string) (bool, error)

	// Keys lists every stored key.
	Keys(ctx context.Context) ([]string, error)

	// Delete removes a blob. Only garbage collection calls it.
	Delete(ctx context.Context, key string) error
}
