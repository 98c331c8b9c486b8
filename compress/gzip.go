package compress

import (
	"io"

	"github.com/klauspost/compress/gzip"
)

// newGzipWriter accepts the klauspost gzip levels: -3 (stateless), -2 (huffman
// only), -1 (default), 0 (store) and 1..9.
func newGzipWriter(w io.Writer, level int) (io.WriteCloser, error) {
	zw, err := gzip.NewWriterLevel(w, level)
	if err != nil {
		return nil, err
	}

	return zw, nil
}

func newGzipReader(r io.Reader) (io.ReadCloser, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}

	return zr, nil
}
