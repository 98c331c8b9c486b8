// Package seqstore persists an ordered sequence of structured values to a single
// compressed file and replays it later, any number of times, without holding the
// sequence in memory.
//
// # Core Features
//
//   - Closed set of value kinds: none, bool, int, float, text, bytes, list, map,
//     record and set, nested to any depth
//   - Self-delimiting records in one of four format revisions (fixed, compact,
//     msgpack, framed), freely mixed within a file
//   - Streaming compression (gzip, zstd, S2, LZ4 or none), detected on read
//   - Independent concurrent read sessions, each with its own file handle
//   - Identity tag checked before the first value of a session is returned
//   - Local files or any viant/afs URL as storage
//
// # Basic Usage
//
//	s, _ := seqstore.New(store.WithIdentityTag("producer-v1"))
//
//	err := s.Write(ctx, func(s *store.Store) error {
//	    for i := range 10 {
//	        if err := s.Add(value.Int(int64(i))); err != nil {
//	            return err
//	        }
//	    }
//	    return nil
//	})
//
//	for v, err := range s.All(ctx) {
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(v)
//	}
//
//	_ = s.RemoveFile(ctx)
//
// # Package Structure
//
// This package provides convenient top-level wrappers around the store package.
// For fine-grained control, use store, encoding and compress directly.
package seqstore

import (
	"context"

	"github.com/arloliu/seqstore/store"
	"github.com/arloliu/seqstore/value"
)

// New creates a sequence store. Without options it writes a gzip compressed
// anonymous temporary file in the default temp directory, using the compact
// revision and no identity tag.
//
// Returns an error if an option is invalid.
func New(opts ...store.Option) (*store.Store, error) {
	return store.New(opts...)
}

// Create creates a store, writes values to it and closes it.
//
// The store is returned closed and ready to be read. On error the file is
// removed and no store is returned.
func Create(ctx context.Context, values []value.Value, opts ...store.Option) (*store.Store, error) {
	s, err := store.New(opts...)
	if err != nil {
		return nil, err
	}

	err = s.Write(ctx, func(s *store.Store) error {
		for _, v := range values {
			if err := s.Add(v); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		_ = s.RemoveFile(ctx)
		return nil, err
	}

	return s, nil
}

// Collect reads the whole sequence into memory.
//
// It is meant for small sequences and tests; large sequences should be consumed
// with Store.All or Store.Iter.
func Collect(ctx context.Context, s *store.Store) ([]value.Value, error) {
	var values []value.Value
	for v, err := range s.All(ctx) {
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}

	return values, nil
}
