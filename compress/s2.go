package compress

import (
	"io"

	"github.com/klauspost/compress/s2"
)

// newS2Writer maps levels 1..3 to the fast, better and best S2 encoders.
func newS2Writer(w io.Writer, level int) io.WriteCloser {
	opts := []s2.WriterOption{s2.WriterConcurrency(1)}
	switch level {
	case 2:
		opts = append(opts, s2.WriterBetterCompression())
	case 3:
		opts = append(opts, s2.WriterBestCompression())
	}

	return s2.NewWriter(w, opts...)
}

func newS2Reader(r io.Reader) io.ReadCloser {
	return io.NopCloser(s2.NewReader(r))
}
