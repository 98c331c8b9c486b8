package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/arloliu/seqstore/compress"
	"github.com/arloliu/seqstore/encoding"
	"github.com/arloliu/seqstore/internal/options"
	"github.com/arloliu/seqstore/value"
)

// Store persists an ordered sequence of values to one compressed file and replays
// it through any number of independent read sessions.
//
// A Store moves through NotStarted, Writing, WriteFinished and FileRemoved. Values
// are appended during a single write session (Open, Add..., Close, or the scoped
// Write), after which Iter and All start read sessions. Calling an operation in a
// state that does not allow it returns a *ProtocolError.
//
// Note: Open, Add and Close must be called from one goroutine at a time. Read
// sessions may be started and consumed concurrently.
type Store struct {
	cfg *Config

	mu    sync.Mutex
	state State
	name  string
	owned bool

	// write session
	file    io.WriteCloser
	counter *compress.CountingWriter
	zw      io.WriteCloser
	enc     *encoding.Encoder

	stats Stats
}

// New creates a store in the NotStarted state.
//
// Without WithPath the store owns an anonymous temporary file, created by Open.
// Invalid options (unknown revision or compression, level out of range) are
// reported here.
func New(opts ...Option) (*Store, error) {
	cfg := newConfig()
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &Store{
		cfg:   cfg,
		state: StateNotStarted,
		name:  cfg.path,
		owned: cfg.path == "",
		stats: Stats{
			Revision: cfg.revision,
			Stats:    compress.Stats{Algorithm: cfg.compression},
		},
	}, nil
}

// Config returns the configuration of the store.
func (s *Store) Config() *Config { return s.cfg }

// State returns the current lifecycle state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Name returns the file name of the store. For a store without WithPath it is ""
// until Open creates the temporary file.
func (s *Store) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.name
}

// Stats returns the counters of the write session. While writing, CompressedSize
// only covers what the compressor has flushed so far.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.stats
	if s.state == StateWriting {
		st.OriginalSize = s.enc.BytesWritten()
		st.CompressedSize = s.counter.N
	}

	return st
}

// Open starts the write session: it creates the file, wraps it in the configured
// compression and writes the identity tag as the first record.
//
// If any step fails, everything acquired so far is released and the store stays
// in NotStarted.
func (s *Store) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.state.Transition(OpOpen)
	if err != nil {
		return err
	}
	if err := s.openLocked(ctx); err != nil {
		return err
	}
	s.state = next

	return nil
}

func (s *Store) openLocked(ctx context.Context) error {
	var (
		name string
		file io.WriteCloser
		err  error
	)
	if s.owned {
		name, file, err = s.cfg.backend.CreateTemp(ctx)
	} else {
		name = s.name
		file, err = s.cfg.backend.Create(ctx, name)
	}
	if err != nil {
		return fmt.Errorf("create sequence file: %w", err)
	}

	counter := &compress.CountingWriter{W: file}
	zw, err := compress.NewWriter(s.cfg.compression, counter, s.cfg.level)
	if err != nil {
		return s.abortOpen(ctx, name, file, nil, nil, err)
	}
	enc, err := encoding.NewEncoder(zw, s.cfg.revision)
	if err != nil {
		return s.abortOpen(ctx, name, file, zw, nil, err)
	}
	if err := enc.Encode(s.cfg.tag); err != nil {
		return s.abortOpen(ctx, name, file, zw, enc, fmt.Errorf("write identity tag: %w", err))
	}

	s.name = name
	s.file, s.counter, s.zw, s.enc = file, counter, zw, enc
	s.stats.Records = 0

	s.cfg.logger.LogAttrs(ctx, slog.LevelDebug, "seqstore: write session opened",
		slog.String("file", name),
		slog.String("compression", s.cfg.compression.String()),
		slog.Int("level", s.cfg.level),
		slog.String("revision", s.cfg.revision.String()))

	return nil
}

// abortOpen releases a partially opened write session. An anonymous temporary file
// is deleted as well, as nothing refers to it.
func (s *Store) abortOpen(ctx context.Context, name string, file, zw io.WriteCloser, enc *encoding.Encoder, cause error) error {
	var cleanup []error
	if enc != nil {
		enc.Release()
	}
	if zw != nil {
		cleanup = append(cleanup, zw.Close())
	}
	cleanup = append(cleanup, file.Close())
	if s.owned {
		cleanup = append(cleanup, s.cfg.backend.Remove(ctx, name))
	}

	if err := errors.Join(cleanup...); err != nil {
		s.cfg.logger.LogAttrs(ctx, slog.LevelError, "seqstore: cleanup after failed open",
			slog.String("file", name), slog.Any("err", err))

		return errors.Join(cause, err)
	}

	return cause
}

// Add appends v to the sequence.
//
// A value that cannot be encoded returns an error wrapping errs.ErrUnsupportedValue
// and leaves the sequence unchanged. I/O errors are returned as-is; the session
// stays open and must still be closed.
func (s *Store) Add(v value.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.state.Transition(OpAdd); err != nil {
		return err
	}
	if err := s.enc.Encode(v); err != nil {
		return err
	}
	s.stats.Records++

	return nil
}

// AddAny converts x with value.Of and appends it.
func (s *Store) AddAny(x any) error {
	v, err := value.Of(x)
	if err != nil {
		return err
	}

	return s.Add(v)
}

// Close finishes the write session: it finalizes the compressed stream and closes
// the file. Calling Close again after the session is finished does nothing.
//
// The session is finished even when finalizing fails; the returned error then
// reports every failure.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.state.Transition(OpClose)
	if err != nil {
		return err
	}
	if s.state == StateWriting {
		err = s.closeLocked()
	}
	s.state = next

	return err
}

func (s *Store) closeLocked() error {
	s.stats.OriginalSize = s.enc.BytesWritten()
	s.enc.Release()

	zerr := s.zw.Close()
	ferr := s.file.Close()
	s.stats.CompressedSize = s.counter.N

	s.file, s.counter, s.zw, s.enc = nil, nil, nil, nil

	if err := errors.Join(zerr, ferr); err != nil {
		s.cfg.logger.LogAttrs(context.Background(), slog.LevelError, "seqstore: close failed",
			slog.String("file", s.name), slog.Any("err", err))

		return fmt.Errorf("close sequence file %s: %w", s.name, err)
	}

	s.cfg.logger.LogAttrs(context.Background(), slog.LevelDebug, "seqstore: write session closed",
		slog.String("file", s.name),
		slog.Int64("records", s.stats.Records),
		slog.Int64("encoded_bytes", s.stats.OriginalSize),
		slog.Int64("compressed_bytes", s.stats.CompressedSize))

	return nil
}

// Write runs fn inside a write session. The session is opened before fn runs and
// is always closed afterwards, also when fn returns an error or panics.
//
// Returns:
//   - error: the Open error, or the errors of fn and Close joined together
func (s *Store) Write(ctx context.Context, fn func(*Store) error) error {
	if err := s.Open(ctx); err != nil {
		return err
	}

	closed := false
	defer func() {
		if !closed {
			_ = s.Close()
		}
	}()

	ferr := fn(s)
	closed = true

	return errors.Join(ferr, s.Close())
}

// Iter starts a read session over the whole sequence.
//
// Calling Iter on a store that was never written finishes it first: a store with
// an anonymous file gets an empty sequence, a store with WithPath reads whatever
// the file already holds. If that file does not exist, Iter returns an error
// wrapping fs.ErrNotExist and the store stays in NotStarted. Each session owns its
// file handle and decompressor.
//
// The identity tag is checked before Iter returns. A mismatch returns an
// *IdentityError and no iterator.
func (s *Store) Iter(ctx context.Context) (*Iterator, error) {
	s.mu.Lock()
	next, err := s.state.Transition(OpIterate)
	if err == nil && s.state == StateNotStarted {
		if s.owned {
			// nothing was written: finish an empty sequence
			if err = s.openLocked(ctx); err == nil {
				err = s.closeLocked()
			}
		} else {
			err = s.checkExists(ctx)
		}
	}
	if err == nil {
		s.state = next
	}
	name := s.name
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}

	return openIterator(ctx, s.cfg, name)
}

// checkExists reports a missing file written by another producer before the
// store commits to reading it.
func (s *Store) checkExists(ctx context.Context) error {
	ok, err := s.cfg.backend.Exists(ctx, s.name)
	if err != nil {
		return fmt.Errorf("stat sequence file %s: %w", s.name, err)
	}
	if !ok {
		return fmt.Errorf("no such sequence file %s: %w", s.name, fs.ErrNotExist)
	}

	return nil
}

// RemoveFile deletes the file. The store is unusable afterwards.
//
// A store with an anonymous file that was never opened has nothing to delete.
func (s *Store) RemoveFile(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.state.Transition(OpRemoveFile)
	if err != nil {
		return err
	}
	if s.name != "" {
		if err := s.cfg.backend.Remove(ctx, s.name); err != nil {
			return fmt.Errorf("remove sequence file %s: %w", s.name, err)
		}
	}
	s.state = next

	s.cfg.logger.LogAttrs(ctx, slog.LevelDebug, "seqstore: file removed", slog.String("file", s.name))

	return nil
}
