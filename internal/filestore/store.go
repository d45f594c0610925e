// Package filestore defines the unified interface for file/object storage backends.
//
// All providers (MinIO, in-memory) implement the Store interface and register
// themselves from init. Callers depend only on this package and open a
// backend by name:
//
//	cfg := filestore.DefaultConfig("localhost:9000", "minioadmin", "minioadmin")
//	store, err := filestore.Open(ctx, cfg)
//	if err != nil { ... }
//	defer store.Close()
package filestore

import (
	"context"
	"io"
	"sync"

	"github.com/dataquerypro/dataquery/internal/errs"
)

// Store is the single interface all file storage providers must implement.
type Store interface {
	// Ping verifies the storage backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any held resources (connections, goroutines, etc.).
	Close() error

	// EnsureBucket creates bucket if it does not exist yet.
	EnsureBucket(ctx context.Context, bucket string) error

	// ListObjects returns the objects in bucket that match opts.
	// Virtual directory entries (common prefixes) are included when opts.Recursive is false.
	ListObjects(ctx context.Context, bucket string, opts ListOptions) ([]ObjectInfo, error)

	// GetObject opens a streaming handle to the object at key inside bucket.
	// The caller MUST call Object.Close() after reading.
	GetObject(ctx context.Context, bucket, key string) (Object, error)

	// PutObject writes size bytes from r to key, replacing any previous
	// object. Pass size -1 when the length is unknown.
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) (*ObjectInfo, error)

	// RemoveObject deletes the object at key. Removing a missing object is
	// not an error.
	RemoveObject(ctx context.Context, bucket, key string) error
}

// Opener connects to one kind of backend.
type Opener func(ctx context.Context, cfg *Config) (Store, error)

var (
	providersMu sync.RWMutex
	providers   = map[Provider]Opener{}
)

// Register makes a provider available to Open.
func Register(p Provider, open Opener) {
	providersMu.Lock()
	defer providersMu.Unlock()
	providers[p] = open
}

// Open connects to the backend named by cfg.Provider.
func Open(ctx context.Context, cfg *Config) (Store, error) {
	if cfg == nil {
		return nil, errs.New(errs.ErrKindInvalidInput, "missing file store config")
	}

	providersMu.RLock()
	open, ok := providers[cfg.Provider]
	providersMu.RUnlock()

	if !ok {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "unsupported file store provider %q", cfg.Provider)
	}
	return open(ctx, cfg)
}
