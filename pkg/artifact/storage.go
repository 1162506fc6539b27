package artifact

import "context"

// Entry represents an object or directory entry in blob storage.
type Entry struct {
	Name  string
	Path  string
	IsDir bool
	Size  int64
}

// BlobStorage abstracts where version content lives. Implementations must
// confine all operations to their configured root.
type BlobStorage interface {
	// Put stores data at the given path, creating parent directories as
	// needed and overwriting any existing object.
	Put(ctx context.Context, path string, data []byte) error

	// Get returns the full content at the given path.
	// Returns ErrContentNotFound if no object exists there.
	Get(ctx context.Context, path string) ([]byte, error)

	// Delete removes a single object.
	Delete(ctx context.Context, path string) error

	// DeleteDir removes a directory (or key prefix) and everything under it.
	DeleteDir(ctx context.Context, path string) error

	// Exists reports whether an object exists at the given path.
	Exists(ctx context.Context, path string) bool

	// List returns the entries directly under a directory or prefix.
	List(ctx context.Context, dir string) ([]Entry, error)
}
