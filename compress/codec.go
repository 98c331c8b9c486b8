package compress

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/arloliu/seqstore/errs"
	"github.com/arloliu/seqstore/format"
)

// peekSize is the longest magic prefix Detect looks at.
const peekSize = 10

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	s2Magic   = []byte{0xff, 0x06, 0x00, 0x00, 'S', '2', 's', 'T', 'w', 'O'}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
)

// levelRange is the inclusive level range and the default level of one algorithm.
type levelRange struct {
	min, max, def int
}

var levels = map[format.CompressionType]levelRange{
	format.CompressionNone: {0, 0, 0},
	format.CompressionGzip: {-3, 9, 1},
	format.CompressionZstd: {1, 22, 3},
	format.CompressionS2:   {1, 3, 1},
	format.CompressionLZ4:  {0, 9, 0},
}

// DefaultLevel returns the level used for ct when none is configured.
//
// Gzip defaults to level 1, which favours write throughput over file size.
func DefaultLevel(ct format.CompressionType) int {
	return levels[ct].def
}

// ValidateLevel checks that level is accepted by ct.
//
// Parameters:
//   - ct: Compression algorithm
//   - level: Algorithm specific level
//
// Returns:
//   - error: wraps errs.ErrInvalidCompression for an unknown algorithm, or
//     errs.ErrInvalidCompressionLevel for a level outside the algorithm's range
func ValidateLevel(ct format.CompressionType, level int) error {
	r, ok := levels[ct]
	if !ok {
		return fmt.Errorf("%w: %s", errs.ErrInvalidCompression, ct)
	}
	if level < r.min || level > r.max {
		return fmt.Errorf("%w: %s accepts %d..%d, got %d", errs.ErrInvalidCompressionLevel, ct, r.min, r.max, level)
	}

	return nil
}

// NewWriter wraps w in a compressing writer for ct.
//
// Closing the returned writer finalizes the compressed stream (trailers, frame
// end markers) but never closes w.
//
// Parameters:
//   - ct: Compression algorithm
//   - w: Destination of the compressed stream
//   - level: Algorithm specific level, see ValidateLevel
//
// Returns:
//   - io.WriteCloser: Writer accepting uncompressed bytes
//   - error: Invalid algorithm or level
func NewWriter(ct format.CompressionType, w io.Writer, level int) (io.WriteCloser, error) {
	if err := ValidateLevel(ct, level); err != nil {
		return nil, err
	}

	switch ct {
	case format.CompressionNone:
		return nopWriteCloser{w}, nil
	case format.CompressionGzip:
		return newGzipWriter(w, level)
	case format.CompressionZstd:
		return newZstdWriter(w, level)
	case format.CompressionS2:
		return newS2Writer(w, level), nil
	case format.CompressionLZ4:
		return newLZ4Writer(w, level)
	default:
		return nil, fmt.Errorf("%w: %s", errs.ErrInvalidCompression, ct)
	}
}

// NewReader detects the compression of r from its leading magic bytes and returns
// a reader yielding the uncompressed stream.
//
// Streams that match no known magic, including empty streams, are read as
// uncompressed. Closing the returned reader releases decompressor resources but
// never closes r.
//
// Returns:
//   - io.ReadCloser: Reader of uncompressed bytes
//   - format.CompressionType: Detected algorithm
//   - error: Read error while detecting, or decompressor setup failure
func NewReader(r io.Reader) (io.ReadCloser, format.CompressionType, error) {
	br := bufio.NewReader(r)
	ct, err := Detect(br)
	if err != nil {
		return nil, 0, err
	}

	var rc io.ReadCloser
	switch ct {
	case format.CompressionGzip:
		rc, err = newGzipReader(br)
	case format.CompressionZstd:
		rc, err = newZstdReader(br)
	case format.CompressionS2:
		rc = newS2Reader(br)
	case format.CompressionLZ4:
		rc = newLZ4Reader(br)
	default:
		rc = io.NopCloser(br)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("open %s stream: %w", ct, err)
	}

	return rc, ct, nil
}

// Detect peeks at the head of br and reports which compression it starts with.
// No bytes are consumed.
func Detect(br *bufio.Reader) (format.CompressionType, error) {
	head, err := br.Peek(peekSize)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return 0, err
	}

	switch {
	case bytes.HasPrefix(head, gzipMagic):
		return format.CompressionGzip, nil
	case bytes.HasPrefix(head, zstdMagic):
		return format.CompressionZstd, nil
	case bytes.HasPrefix(head, s2Magic):
		return format.CompressionS2, nil
	case bytes.HasPrefix(head, lz4Magic):
		return format.CompressionLZ4, nil
	default:
		return format.CompressionNone, nil
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
