//go:build cgo && gozstd

package compress

import (
	"io"

	"github.com/valyala/gozstd"
)

func newZstdWriter(w io.Writer, level int) (io.WriteCloser, error) {
	return &gozstdWriter{Writer: gozstd.NewWriterLevel(w, level)}, nil
}

func newZstdReader(r io.Reader) (io.ReadCloser, error) {
	return &gozstdReader{Reader: gozstd.NewReader(r)}, nil
}

// gozstdWriter releases the C encoder state after the frame is finished.
type gozstdWriter struct {
	*gozstd.Writer
}

func (w *gozstdWriter) Close() error {
	if w.Writer == nil {
		return nil
	}
	err := w.Writer.Close()
	w.Release()
	w.Writer = nil

	return err
}

type gozstdReader struct {
	*gozstd.Reader
}

func (r *gozstdReader) Read(p []byte) (int, error) {
	if r.Reader == nil {
		return 0, io.ErrClosedPipe
	}

	return r.Reader.Read(p)
}

func (r *gozstdReader) Close() error {
	if r.Reader == nil {
		return nil
	}
	r.Release()
	r.Reader = nil

	return nil
}
