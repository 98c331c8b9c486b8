package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
)

// Local stores files on the operating system file system.
type Local struct {
	dir string
}

var _ Backend = (*Local)(nil)

// NewLocal creates a local backend. Temporary files are created in dir, or in the
// system temp directory when dir is empty.
func NewLocal(dir string) *Local {
	return &Local{dir: dir}
}

// Create creates or truncates the file name.
func (l *Local) Create(_ context.Context, name string) (io.WriteCloser, error) {
	f, err := os.Create(name)
	if err != nil {
		return nil, err
	}

	return f, nil
}

// CreateTemp creates a new file named seqstore-<random>.seq.
func (l *Local) CreateTemp(_ context.Context) (string, io.WriteCloser, error) {
	f, err := os.CreateTemp(l.dir, tempPattern)
	if err != nil {
		return "", nil, err
	}

	return f.Name(), f, nil
}

// Open opens the file name for reading.
func (l *Local) Open(_ context.Context, name string) (io.ReadCloser, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}

	return f, nil
}

// Remove deletes the file name.
func (l *Local) Remove(_ context.Context, name string) error {
	return os.Remove(name)
}

// Exists reports whether the file name exists.
func (l *Local) Exists(_ context.Context, name string) (bool, error) {
	_, err := os.Stat(name)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}

	return false, err
}
