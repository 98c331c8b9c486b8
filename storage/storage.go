// Package storage abstracts where sequence files live.
//
// A Backend creates, opens and removes files by name. The store only ever streams
// through a file from start to end, so a backend needs no seeking or random access.
// Two backends are provided: Local for the operating system file system and AFS
// for any viant/afs URL (local files, in-memory and cloud object stores).
package storage

import (
	"context"
	"io"
)

// Backend owns the files of sequence stores.
//
// Implementations must be safe for concurrent use: several read sessions of one
// store open the same file concurrently.
type Backend interface {
	// Create creates or truncates the file name and returns a writer to it.
	// Closing the writer makes the written content durable and visible to Open.
	Create(ctx context.Context, name string) (io.WriteCloser, error)

	// CreateTemp creates a new uniquely named file and returns its name and a
	// writer to it.
	CreateTemp(ctx context.Context) (string, io.WriteCloser, error)

	// Open opens the file name for reading from the start.
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// Remove deletes the file name.
	Remove(ctx context.Context, name string) error

	// Exists reports whether the file name exists.
	Exists(ctx context.Context, name string) (bool, error)
}

// tempPattern is the name pattern of anonymous sequence files.
const tempPattern = "seqstore-*.seq"
