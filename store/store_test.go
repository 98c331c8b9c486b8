package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/seqstore/errs"
	"github.com/arloliu/seqstore/format"
	"github.com/arloliu/seqstore/storage"
	"github.com/arloliu/seqstore/value"
)

// countingBackend counts read handles opened and closed through it.
type countingBackend struct {
	storage.Backend
	opened atomic.Int64
	closed atomic.Int64
}

func newCountingBackend(t *testing.T) *countingBackend {
	t.Helper()
	return &countingBackend{Backend: storage.NewLocal(t.TempDir())}
}

func (b *countingBackend) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	r, err := b.Backend.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	b.opened.Add(1)

	return &countingReader{ReadCloser: r, b: b}, nil
}

func (b *countingBackend) requireBalanced(t *testing.T, opened int64) {
	t.Helper()
	require.Equal(t, opened, b.opened.Load(), "opened handles")
	require.Equal(t, opened, b.closed.Load(), "closed handles")
}

type countingReader struct {
	io.ReadCloser
	b *countingBackend
}

func (r *countingReader) Close() error {
	r.b.closed.Add(1)
	return r.ReadCloser.Close()
}

// failingBackend fails file creation.
type failingBackend struct {
	storage.Backend
}

func (failingBackend) Create(context.Context, string) (io.WriteCloser, error) {
	return nil, errors.New("disk full")
}

func (failingBackend) CreateTemp(context.Context) (string, io.WriteCloser, error) {
	return "", nil, errors.New("disk full")
}

// existsFailingBackend cannot tell whether a file exists.
type existsFailingBackend struct {
	storage.Backend
}

func (existsFailingBackend) Exists(context.Context, string) (bool, error) {
	return false, errors.New("permission denied")
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{WithTempDir(t.TempDir()), WithLogger(quietLogger())}, opts...)
	s, err := New(opts...)
	require.NoError(t, err)

	return s
}

// nestedValues covers every kind, with containers nested at least two levels deep.
func nestedValues() []value.Value {
	return []value.Value{
		value.None(),
		value.Bool(true),
		value.Bool(false),
		value.Int(0),
		value.Int(-1 << 40),
		value.Int(1<<63 - 1),
		value.Float(3.25),
		value.Float(math.Copysign(0, -1)),
		value.Text(""),
		value.Text("héllo, 世界"),
		value.Bytes(nil),
		value.Bytes([]byte{0, 1, 255}),
		value.List(value.Int(1), value.List(value.Text("nested"), value.None(), value.List())),
		value.Map(
			value.Entry{Key: "k", Value: value.Map(value.Entry{Key: "inner", Value: value.Set(value.Int(1), value.Int(2))})},
			value.Entry{Key: "empty", Value: value.Map()},
		),
		value.Record("Sample",
			value.Field{Name: "index", Value: value.Int(1)},
			value.Field{Name: "name", Value: value.Text("name")},
			value.Field{Name: "is_active", Value: value.Bool(true)},
			value.Field{Name: "properties", Value: value.List(value.Text("a"), value.Text("b"))},
		),
		value.Set(
			value.Text("x"),
			value.Record("R", value.Field{Name: "f", Value: value.Bytes([]byte("raw"))}),
			value.List(value.Map(value.Entry{Key: "deep", Value: value.Set()})),
		),
	}
}

func writeValues(t *testing.T, s *Store, values []value.Value) {
	t.Helper()
	err := s.Write(context.Background(), func(s *Store) error {
		for _, v := range values {
			if err := s.Add(v); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func readValues(t *testing.T, s *Store) []value.Value {
	t.Helper()
	var got []value.Value
	for v, err := range s.All(context.Background()) {
		require.NoError(t, err)
		got = append(got, v)
	}

	return got
}

func requireValuesEqual(t *testing.T, want, got []value.Value) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		require.True(t, want[i].Equal(got[i]), "value %d: want %s, got %s", i, want[i], got[i])
	}
}

func TestRoundTrip_AllRevisionsAndCompressions(t *testing.T) {
	revisions := []format.Revision{format.RevisionFixed, format.RevisionCompact, format.RevisionMsgPack, format.RevisionFramed}
	compressions := []format.CompressionType{
		format.CompressionNone, format.CompressionGzip, format.CompressionZstd, format.CompressionS2, format.CompressionLZ4,
	}
	want := nestedValues()

	for _, rev := range revisions {
		for _, ct := range compressions {
			t.Run(rev.String()+"/"+ct.String(), func(t *testing.T) {
				s := newTestStore(t, WithRevision(rev), WithCompression(ct), WithIdentityTag("tag"))
				writeValues(t, s, want)
				requireValuesEqual(t, want, readValues(t, s))

				it, err := s.Iter(context.Background())
				require.NoError(t, err)
				require.Equal(t, ct, it.Compression())
				require.NoError(t, it.Close())
			})
		}
	}
}

func TestOpenAddClose(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.Equal(t, StateNotStarted, s.State())
	require.Empty(t, s.Name())

	require.NoError(t, s.Open(ctx))
	require.Equal(t, StateWriting, s.State())
	require.NotEmpty(t, s.Name())

	require.NoError(t, s.Add(value.Int(1)))
	require.NoError(t, s.AddAny(map[string]any{"a": []any{"x", 2}}))
	require.NoError(t, s.Close())
	require.Equal(t, StateWriteFinished, s.State())

	// close is idempotent once finished
	require.NoError(t, s.Close())

	got := readValues(t, s)
	requireValuesEqual(t, []value.Value{
		value.Int(1),
		value.Map(value.Entry{Key: "a", Value: value.List(value.Text("x"), value.Int(2))}),
	}, got)

	require.NoError(t, s.RemoveFile(ctx))
	require.Equal(t, StateFileRemoved, s.State())
	_, err := os.Stat(s.Name())
	require.True(t, os.IsNotExist(err))
}

func TestProtocolViolations(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.ErrorIs(t, s.Add(value.Int(1)), errs.ErrProtocolViolation)
	require.ErrorIs(t, s.Close(), errs.ErrProtocolViolation)

	require.NoError(t, s.Open(ctx))
	require.ErrorIs(t, s.Open(ctx), errs.ErrProtocolViolation)
	_, err := s.Iter(ctx)
	require.ErrorIs(t, err, errs.ErrProtocolViolation)
	require.ErrorIs(t, s.RemoveFile(ctx), errs.ErrProtocolViolation)
	require.Equal(t, StateWriting, s.State())
	require.NoError(t, s.Close())

	require.ErrorIs(t, s.Open(ctx), errs.ErrProtocolViolation)
	require.ErrorIs(t, s.Add(value.Int(1)), errs.ErrProtocolViolation)

	require.NoError(t, s.RemoveFile(ctx))
	for _, err := range []error{
		s.Open(ctx),
		s.Add(value.Int(1)),
		s.Close(),
		s.RemoveFile(ctx),
	} {
		require.ErrorIs(t, err, errs.ErrProtocolViolation)
	}
	_, err = s.Iter(ctx)
	require.ErrorIs(t, err, errs.ErrProtocolViolation)

	var perr *ProtocolError
	require.ErrorAs(t, s.Add(value.Int(1)), &perr)
	require.Equal(t, OpAdd, perr.Op)
	require.Equal(t, StateFileRemoved, perr.State)

	// the rejected range loop yields the error once
	var yielded []error
	for _, err := range s.All(ctx) {
		yielded = append(yielded, err)
	}
	require.Len(t, yielded, 1)
	require.ErrorIs(t, yielded[0], errs.ErrProtocolViolation)
}

func TestIdentityTag(t *testing.T) {
	tests := []struct {
		name     string
		written  Option
		expected Option
		ok       bool
	}{
		{"same tag", WithIdentityTag("A"), WithIdentityTag("A"), true},
		{"both absent", WithoutIdentityTag(), WithoutIdentityTag(), true},
		{"different tag", WithIdentityTag("A"), WithIdentityTag("B"), false},
		{"expected absent", WithIdentityTag("A"), WithoutIdentityTag(), false},
		{"written absent", WithoutIdentityTag(), WithIdentityTag("A"), false},
		{"empty tag is not absent", WithIdentityTag(""), WithoutIdentityTag(), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			path := filepath.Join(t.TempDir(), "tagged.seq")
			backend := newCountingBackend(t)

			writer := newTestStore(t, WithPath(path), tt.written)
			writeValues(t, writer, []value.Value{value.Int(1), value.Int(2)})

			reader := newTestStore(t, WithPath(path), WithBackend(backend), tt.expected)
			it, err := reader.Iter(ctx)
			if tt.ok {
				require.NoError(t, err)
				require.True(t, it.Next())
				require.NoError(t, it.Close())
				backend.requireBalanced(t, 1)
				return
			}

			require.Nil(t, it)
			require.ErrorIs(t, err, errs.ErrIdentityMismatch)
			var ierr *IdentityError
			require.ErrorAs(t, err, &ierr)
			require.True(t, ierr.Expected.Equal(reader.Config().IdentityTag()))
			require.True(t, ierr.Actual.Equal(writer.Config().IdentityTag()))
			backend.requireBalanced(t, 1)

			// the range form yields only the error
			count := 0
			for v, err := range reader.All(ctx) {
				require.ErrorIs(t, err, errs.ErrIdentityMismatch)
				require.True(t, v.IsNone())
				count++
			}
			require.Equal(t, 1, count)
			backend.requireBalanced(t, 2)
		})
	}
}

func TestIdentityError_Message(t *testing.T) {
	err := &IdentityError{Name: "f", Expected: value.Text("B"), Actual: value.Text("A")}
	require.Equal(t, `identity tag mismatch: f has tag "A", expected "B"`, err.Error())

	err = &IdentityError{Name: "f", Expected: value.Text("B"), Actual: value.None()}
	require.Equal(t, `identity tag mismatch: f has no tag, expected "B"`, err.Error())

	err = &IdentityError{Name: "f", Expected: value.None(), Actual: value.Text("A")}
	require.Equal(t, `identity tag mismatch: f has tag "A", expected no tag`, err.Error())
}

func TestMultipleReadersAreIndependent(t *testing.T) {
	ctx := context.Background()
	backend := newCountingBackend(t)
	s := newTestStore(t, WithBackend(backend))

	const n = 1000
	want := make([]value.Value, n)
	for i := range want {
		want[i] = value.Record("Item", value.Field{Name: "i", Value: value.Int(int64(i))})
	}
	writeValues(t, s, want)

	const readers = 3
	its := make([]*Iterator, readers)
	got := make([][]value.Value, readers)
	for i := range its {
		it, err := s.Iter(ctx)
		require.NoError(t, err)
		its[i] = it
	}

	// interleave: reader i advances i+1 values per round
	for active := readers; active > 0; {
		active = 0
		for i, it := range its {
			for range i + 1 {
				if !it.Next() {
					break
				}
				got[i] = append(got[i], it.Value())
			}
			if len(got[i]) < n {
				active++
			}
		}
	}

	for i, it := range its {
		require.False(t, it.Next())
		require.NoError(t, it.Err())
		require.Equal(t, int64(n), it.Count())
		requireValuesEqual(t, want, got[i])
		require.NoError(t, it.Close())
	}
	backend.requireBalanced(t, readers)
}

func TestConcurrentReaders(t *testing.T) {
	s := newTestStore(t, WithCompression(format.CompressionZstd))
	want := make([]value.Value, 5000)
	for i := range want {
		want[i] = value.Text(fmt.Sprintf("value-%d", i))
	}
	writeValues(t, s, want)

	var wg sync.WaitGroup
	results := make([][]value.Value, 4)
	errList := make([]error, 4)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for v, err := range s.All(context.Background()) {
				if err != nil {
					errList[i] = err
					return
				}
				results[i] = append(results[i], v)
			}
		}()
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errList[i])
		requireValuesEqual(t, want, results[i])
	}
}

func TestAll_EarlyExitClosesSession(t *testing.T) {
	backend := newCountingBackend(t)
	s := newTestStore(t, WithBackend(backend))
	writeValues(t, s, []value.Value{value.Int(1), value.Int(2), value.Int(3)})

	for v, err := range s.All(context.Background()) {
		require.NoError(t, err)
		require.True(t, v.Equal(value.Int(1)))
		break
	}
	backend.requireBalanced(t, 1)

	errStop := errors.New("consumer failed")
	consume := func() (err error) {
		defer func() {
			if p := recover(); p != nil {
				err = p.(error)
			}
		}()
		for range s.All(context.Background()) {
			panic(errStop)
		}
		return nil
	}
	require.ErrorIs(t, consume(), errStop)
	backend.requireBalanced(t, 2)

	// the store stays readable
	requireValuesEqual(t, []value.Value{value.Int(1), value.Int(2), value.Int(3)}, readValues(t, s))
	backend.requireBalanced(t, 3)
}

func TestIterator_CloseIsIdempotent(t *testing.T) {
	backend := newCountingBackend(t)
	s := newTestStore(t, WithBackend(backend))
	writeValues(t, s, []value.Value{value.Int(1), value.Int(2)})

	it, err := s.Iter(context.Background())
	require.NoError(t, err)
	require.True(t, it.Next())
	require.NoError(t, it.Close())
	require.NoError(t, it.Close())
	require.False(t, it.Next())
	require.NoError(t, it.Err())
	backend.requireBalanced(t, 1)

	// exhaustion closes the session by itself
	it, err = s.Iter(context.Background())
	require.NoError(t, err)
	for it.Next() {
	}
	require.NoError(t, it.Err())
	backend.requireBalanced(t, 2)
	require.NoError(t, it.Close())
	backend.requireBalanced(t, 2)
}

func TestIterator_ContextCancel(t *testing.T) {
	backend := newCountingBackend(t)
	s := newTestStore(t, WithBackend(backend))
	writeValues(t, s, []value.Value{value.Int(1), value.Int(2)})

	ctx, cancel := context.WithCancel(context.Background())
	it, err := s.Iter(ctx)
	require.NoError(t, err)
	require.True(t, it.Next())
	cancel()
	require.False(t, it.Next())
	require.ErrorIs(t, it.Err(), context.Canceled)
	backend.requireBalanced(t, 1)
}

func TestEmptySequence(t *testing.T) {
	ctx := context.Background()

	// written with no values
	s := newTestStore(t, WithIdentityTag("empty"))
	require.NoError(t, s.Write(ctx, func(*Store) error { return nil }))
	require.Empty(t, readValues(t, s))

	// never opened: iterating finishes an empty sequence
	s = newTestStore(t, WithIdentityTag("empty"))
	require.Empty(t, readValues(t, s))
	require.Equal(t, StateWriteFinished, s.State())
	require.NotEmpty(t, s.Name())
	require.Empty(t, readValues(t, s))
	require.ErrorIs(t, s.Open(ctx), errs.ErrProtocolViolation)
}

func TestRemoveFile_NeverOpened(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.RemoveFile(context.Background()))
	require.Equal(t, StateFileRemoved, s.State())
}

func TestWrite_ClosesOnError(t *testing.T) {
	s := newTestStore(t)
	errFn := errors.New("producer failed")

	err := s.Write(context.Background(), func(s *Store) error {
		require.NoError(t, s.Add(value.Int(1)))
		return errFn
	})
	require.ErrorIs(t, err, errFn)
	require.Equal(t, StateWriteFinished, s.State())

	// values added before the failure are kept
	requireValuesEqual(t, []value.Value{value.Int(1)}, readValues(t, s))
}

func TestWrite_ClosesOnPanic(t *testing.T) {
	s := newTestStore(t)

	require.PanicsWithValue(t, "boom", func() {
		_ = s.Write(context.Background(), func(s *Store) error {
			_ = s.Add(value.Int(7))
			panic("boom")
		})
	})
	require.Equal(t, StateWriteFinished, s.State())
	requireValuesEqual(t, []value.Value{value.Int(7)}, readValues(t, s))
}

func TestOpen_FailureKeepsNotStarted(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, WithBackend(failingBackend{storage.NewLocal(t.TempDir())}))

	err := s.Open(ctx)
	require.ErrorContains(t, err, "disk full")
	require.Equal(t, StateNotStarted, s.State())

	err = s.Write(ctx, func(*Store) error {
		t.Fatal("must not run")
		return nil
	})
	require.ErrorContains(t, err, "disk full")
	require.Equal(t, StateNotStarted, s.State())
}

func TestAdd_UnsupportedValue(t *testing.T) {
	s := newTestStore(t)

	err := s.Write(context.Background(), func(s *Store) error {
		require.NoError(t, s.Add(value.Int(1)))
		require.ErrorIs(t, s.Add(value.Text("bad \xff utf-8")), errs.ErrUnsupportedValue)
		require.ErrorIs(t, s.AddAny(struct{}{}), errs.ErrUnsupportedValue)
		require.NoError(t, s.Add(value.Int(2)))
		return nil
	})
	require.NoError(t, err)

	requireValuesEqual(t, []value.Value{value.Int(1), value.Int(2)}, readValues(t, s))
	require.Equal(t, int64(2), s.Stats().Records)
}

func TestIter_ExplicitPathReadsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.seq")
	want := nestedValues()

	producer := newTestStore(t, WithPath(path), WithIdentityTag("producer"), WithCompression(format.CompressionLZ4))
	writeValues(t, producer, want)

	// a consumer with different write settings reads it, detecting the compression
	consumer := newTestStore(t, WithPath(path), WithIdentityTag("producer"), WithRevision(format.RevisionFixed))
	requireValuesEqual(t, want, readValues(t, consumer))
	require.Equal(t, StateWriteFinished, consumer.State())

	require.NoError(t, consumer.RemoveFile(context.Background()))
	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))
}

func TestIter_MissingFile(t *testing.T) {
	s := newTestStore(t, WithPath(filepath.Join(t.TempDir(), "missing.seq")))
	_, err := s.Iter(context.Background())
	require.ErrorIs(t, err, os.ErrNotExist)
	require.ErrorContains(t, err, "no such sequence file")
	require.Equal(t, StateNotStarted, s.State())

	// the file appears later: the same store can still read it
	producer := newTestStore(t, WithPath(s.Name()))
	writeValues(t, producer, []value.Value{value.Int(7)})
	requireValuesEqual(t, []value.Value{value.Int(7)}, readValues(t, s))
}

func TestIter_ExistsFailure(t *testing.T) {
	s := newTestStore(t, WithPath("any.seq"), WithBackend(existsFailingBackend{}))
	_, err := s.Iter(context.Background())
	require.ErrorContains(t, err, "stat sequence file")
	require.Equal(t, StateNotStarted, s.State())
}

func TestRoundTrip_LZ4Levels(t *testing.T) {
	want := nestedValues()
	for level := 0; level <= 9; level++ {
		s := newTestStore(t, WithCompression(format.CompressionLZ4), WithCompressionLevel(level))
		writeValues(t, s, want)
		requireValuesEqual(t, want, readValues(t, s))
	}
}

func TestIter_MissingIdentityTag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.seq")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	s := newTestStore(t, WithPath(path))
	_, err := s.Iter(context.Background())
	require.ErrorIs(t, err, errs.ErrMalformedEncoding)
	require.ErrorContains(t, err, "missing identity tag")
}

func TestIter_TruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "values.seq")
	backend := newCountingBackend(t)
	writer := newTestStore(t, WithPath(path), WithCompression(format.CompressionNone))

	want := make([]value.Value, 100)
	for i := range want {
		want[i] = value.Text(fmt.Sprintf("record %03d", i))
	}
	writeValues(t, writer, want)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data[:len(data)-3], 0o600))

	reader := newTestStore(t, WithPath(path), WithBackend(backend))
	it, err := reader.Iter(context.Background())
	require.NoError(t, err)

	var got []value.Value
	for it.Next() {
		got = append(got, it.Value())
	}
	require.ErrorIs(t, it.Err(), errs.ErrMalformedEncoding)
	require.ErrorIs(t, it.Err(), io.ErrUnexpectedEOF)
	requireValuesEqual(t, want[:99], got)
	backend.requireBalanced(t, 1)
}

func TestStats(t *testing.T) {
	s := newTestStore(t, WithCompression(format.CompressionGzip))
	require.NoError(t, s.Open(context.Background()))
	for i := range 1000 {
		require.NoError(t, s.Add(value.Text(fmt.Sprintf("repetitive value %d", i%10))))
	}
	inFlight := s.Stats()
	require.Equal(t, int64(1000), inFlight.Records)
	require.Positive(t, inFlight.OriginalSize)
	require.NoError(t, s.Close())

	st := s.Stats()
	require.Equal(t, int64(1000), st.Records)
	require.Equal(t, format.CompressionGzip, st.Algorithm)
	require.Equal(t, format.DefaultRevision, st.Revision)
	require.Equal(t, inFlight.OriginalSize, st.OriginalSize)
	require.Less(t, st.CompressedSize, st.OriginalSize)
	require.Greater(t, st.SpaceSavings(), 50.0)

	info, err := os.Stat(s.Name())
	require.NoError(t, err)
	require.Equal(t, info.Size(), st.CompressedSize)
}

func TestNew_InvalidOptions(t *testing.T) {
	_, err := New(WithRevision(format.Revision(0)))
	require.ErrorIs(t, err, errs.ErrInvalidRevision)

	_, err = New(WithCompression(format.CompressionType(42)))
	require.ErrorIs(t, err, errs.ErrInvalidCompression)

	_, err = New(WithCompression(format.CompressionZstd), WithCompressionLevel(0))
	require.ErrorIs(t, err, errs.ErrInvalidCompressionLevel)

	_, err = New(WithCompressionLevel(10))
	require.ErrorIs(t, err, errs.ErrInvalidCompressionLevel)

	_, err = New(WithIdentityTag("\xff"))
	require.ErrorIs(t, err, errs.ErrUnsupportedValue)

	_, err = New(WithBackend(nil))
	require.Error(t, err)

	s, err := New(WithCompressionLevel(9), WithCompression(format.CompressionZstd))
	require.NoError(t, err)
	require.Equal(t, 9, s.Config().CompressionLevel())
	require.Equal(t, format.CompressionZstd, s.Config().Compression())
}

func TestNew_Defaults(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	cfg := s.Config()
	require.Equal(t, format.CompressionGzip, cfg.Compression())
	require.Equal(t, 1, cfg.CompressionLevel())
	require.Equal(t, format.DefaultRevision, cfg.Revision())
	require.True(t, cfg.IdentityTag().IsNone())
	require.Empty(t, cfg.Path())
}

func TestAFSBackend(t *testing.T) {
	s := newTestStore(t, WithBackend(storage.NewAFS(t.TempDir())), WithIdentityTag("afs"), WithCompression(format.CompressionS2))
	want := nestedValues()
	writeValues(t, s, want)
	requireValuesEqual(t, want, readValues(t, s))
	require.NoError(t, s.RemoveFile(context.Background()))
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	path := filepath.Join(t.TempDir(), "logged.seq")
	s := newTestStore(t, WithPath(path), WithLogger(logger), WithIdentityTag("A"))
	writeValues(t, s, []value.Value{value.Int(1)})
	_ = readValues(t, s)

	other := newTestStore(t, WithPath(path), WithLogger(logger), WithIdentityTag("B"))
	_, err := other.Iter(context.Background())
	require.Error(t, err)

	out := buf.String()
	require.Contains(t, out, "seqstore: write session opened")
	require.Contains(t, out, "seqstore: write session closed")
	require.Contains(t, out, "seqstore: read session closed")
	require.Contains(t, out, "level=WARN msg=\"seqstore: identity tag mismatch\"")
}

func TestStress(t *testing.T) {
	if testing.Short() {
		t.Skip("stress test skipped in short mode")
	}

	const n = 131072
	rng := rand.New(rand.NewSource(1)) //nolint:gosec
	s := newTestStore(t, WithIdentityTag("stress"))

	randomValue := func(i int) value.Value {
		props := make([]value.Value, rng.Intn(5))
		for j := range props {
			props[j] = value.Text(fmt.Sprintf("p%d", rng.Intn(1000)))
		}

		return value.Record("Sample",
			value.Field{Name: "index", Value: value.Int(int64(i))},
			value.Field{Name: "score", Value: value.Float(rng.Float64())},
			value.Field{Name: "is_active", Value: value.Bool(rng.Intn(2) == 0)},
			value.Field{Name: "properties", Value: value.List(props...)},
		)
	}

	want := make([]value.Value, n)
	err := s.Write(context.Background(), func(s *Store) error {
		for i := range want {
			want[i] = randomValue(i)
			if err := s.Add(want[i]); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	i := 0
	for v, err := range s.All(context.Background()) {
		require.NoError(t, err)
		if !want[i].Equal(v) {
			require.Failf(t, "value mismatch", "index %d: want %s, got %s", i, want[i], v)
		}
		i++
	}
	require.Equal(t, n, i)
	require.NoError(t, s.RemoveFile(context.Background()))
}
