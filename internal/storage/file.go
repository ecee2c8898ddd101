package storage

import (
	"context"
	"net/url"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/malonaz/companion/internal/file"
)

// File stores each key as a JSON file in a directory.
type File struct {
	directory string
}

// NewFile returns a file storage rooted at directory.
func NewFile(directory string) (*File, error) {
	if err := file.CreateDirectoryIfNotExist(directory); err != nil {
		return nil, errors.Wrap(err, "creating storage directory")
	}
	return &File{directory: directory}, nil
}

func (f *File) path(key string) string {
	return filepath.Join(f.directory, url.PathEscape(key)+".json")
}

// Read a value.
func (f *File) Read(_ context.Context, key string) ([]byte, error) {
	bytes, err := os.ReadFile(f.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "reading file")
	}
	return bytes, nil
}

// Write a value.
func (f *File) Write(_ context.Context, key string, value []byte) error {
	if err := file.WriteAtomic(f.path(key), value, 0644); err != nil {
		return errors.Wrap(err, "writing file")
	}
	return nil
}

// Close is a no-op.
func (f *File) Close() error { return nil }
