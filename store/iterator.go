package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"

	"github.com/arloliu/seqstore/compress"
	"github.com/arloliu/seqstore/encoding"
	"github.com/arloliu/seqstore/format"
	"github.com/arloliu/seqstore/value"
)

// Iterator is one read session: a forward-only cursor over the values of a file.
//
// The session owns a file handle and a decompressor. They are released when Next
// reaches the end of the data or fails, and by Close, whichever comes first.
// Close may be called any number of times.
//
// Typical use:
//
//	it, err := s.Iter(ctx)
//	if err != nil {
//		return err
//	}
//	defer it.Close()
//	for it.Next() {
//		process(it.Value())
//	}
//	return it.Err()
//
// Note: An Iterator is NOT thread-safe. Use one iterator per goroutine.
type Iterator struct {
	ctx    context.Context //nolint:containedctx
	name   string
	logger *slog.Logger

	src io.ReadCloser
	zr  io.ReadCloser
	dec *encoding.Decoder
	ct  format.CompressionType

	cur    value.Value
	count  int64
	err    error
	closed bool
}

func openIterator(ctx context.Context, cfg *Config, name string) (*Iterator, error) {
	src, err := cfg.backend.Open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("open sequence file: %w", err)
	}

	zr, ct, err := compress.NewReader(src)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("read sequence file %s: %w", name, err), src.Close())
	}

	it := &Iterator{
		ctx:    ctx,
		name:   name,
		logger: cfg.logger,
		src:    src,
		zr:     zr,
		dec:    encoding.NewDecoder(zr),
		ct:     ct,
	}

	if err := it.checkIdentity(cfg.tag); err != nil {
		return nil, errors.Join(err, it.Close())
	}

	cfg.logger.LogAttrs(ctx, slog.LevelDebug, "seqstore: read session opened",
		slog.String("file", name), slog.String("compression", ct.String()))

	return it, nil
}

func (it *Iterator) checkIdentity(expected value.Value) error {
	actual, err := it.dec.Decode()
	if errors.Is(err, io.EOF) {
		err = &encoding.DecodeError{Msg: "missing identity tag"}
	}
	if err != nil {
		return fmt.Errorf("read identity tag of %s: %w", it.name, err)
	}

	if !actual.Equal(expected) {
		it.logger.LogAttrs(it.ctx, slog.LevelWarn, "seqstore: identity tag mismatch",
			slog.String("file", it.name),
			slog.String("expected", expected.String()),
			slog.String("actual", actual.String()))

		return &IdentityError{Name: it.name, Expected: expected, Actual: actual}
	}

	return nil
}

// Next advances to the next value. It returns false at the end of the data, on a
// decoding or I/O error (see Err), when the context is done, and after Close.
func (it *Iterator) Next() bool {
	if it.closed {
		return false
	}
	if err := it.ctx.Err(); err != nil {
		it.fail(err)
		return false
	}

	v, err := it.dec.Decode()
	if errors.Is(err, io.EOF) {
		it.cur = value.Value{}
		it.err = it.Close()

		return false
	}
	if err != nil {
		it.fail(fmt.Errorf("read %s: %w", it.name, err))
		return false
	}

	it.cur = v
	it.count++

	return true
}

func (it *Iterator) fail(err error) {
	it.cur = value.Value{}
	it.err = errors.Join(err, it.Close())
}

// Value returns the value Next advanced to.
func (it *Iterator) Value() value.Value { return it.cur }

// Err returns the error that stopped the iteration, or nil after a clean end.
func (it *Iterator) Err() error { return it.err }

// Count returns the number of values yielded so far.
func (it *Iterator) Count() int64 { return it.count }

// Compression returns the compression detected for the file.
func (it *Iterator) Compression() format.CompressionType { return it.ct }

// Close releases the decompressor and the file handle. Only the first call has an
// effect.
func (it *Iterator) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true

	err := errors.Join(it.zr.Close(), it.src.Close())
	it.zr, it.src, it.dec = nil, nil, nil

	if err != nil {
		it.logger.LogAttrs(it.ctx, slog.LevelError, "seqstore: read session close failed",
			slog.String("file", it.name), slog.Any("err", err))

		return fmt.Errorf("close %s: %w", it.name, err)
	}

	it.logger.LogAttrs(it.ctx, slog.LevelDebug, "seqstore: read session closed",
		slog.String("file", it.name), slog.Int64("values", it.count))

	return nil
}

// All returns the sequence as a range-over-func iterator. Each range loop starts
// its own read session; an error ends the loop after being yielded once with a
// None value.
//
// The session is closed when the loop finishes, when the loop body breaks out
// early and when it panics.
func (s *Store) All(ctx context.Context) iter.Seq2[value.Value, error] {
	return func(yield func(value.Value, error) bool) {
		it, err := s.Iter(ctx)
		if err != nil {
			yield(value.Value{}, err)
			return
		}
		defer it.Close()

		for it.Next() {
			if !yield(it.Value(), nil) {
				return
			}
		}
		if err := it.Err(); err != nil {
			yield(value.Value{}, err)
		}
	}
}
