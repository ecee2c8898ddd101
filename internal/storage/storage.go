// Package storage persists opaque blobs under string keys.
// The chat store keeps its whole state in a single key.
package storage

import (
	"context"

	"github.com/pkg/errors"

	"github.com/malonaz/companion/internal/configuration"
)

// ErrNotFound is returned by Read when the key has never been written.
var ErrNotFound = errors.New("key not found")

// Storage is a key/blob persistence backend.
type Storage interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, value []byte) error
	Close() error
}

// New opens the backend selected by the configuration.
func New(ctx context.Context, config *configuration.StorageConfig) (Storage, error) {
	switch config.Backend {
	case configuration.BackendSQLite:
		return NewSQLite(config.Path)
	case configuration.BackendBolt:
		return NewBolt(config.Path)
	case configuration.BackendFile:
		return NewFile(config.Path)
	case configuration.BackendRedis:
		return NewRedis(ctx, config.Redis)
	}
	return nil, errors.Errorf("unknown storage backend %q", config.Backend)
}
