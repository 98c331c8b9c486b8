package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
)

// AFS stores files through viant/afs, so any URL scheme registered with afs
// (file://, mem://, gs://, s3://, ...) can hold sequence files.
type AFS struct {
	fs      afs.Service
	baseURL string
}

var _ Backend = (*AFS)(nil)

// NewAFS creates an afs backend. Temporary files are created under baseURL.
func NewAFS(baseURL string) *AFS {
	return &AFS{fs: afs.New(), baseURL: baseURL}
}

// Create streams everything written to the returned writer into an afs upload of
// URL. The upload completes when the writer is closed.
//
// The upload outlives ctx: cancelling it after Create returns does not cut the
// file short. Values from ctx are still passed to afs.
func (a *AFS) Create(ctx context.Context, URL string) (io.WriteCloser, error) {
	pr, pw := io.Pipe()
	w := &uploadWriter{pw: pw, done: make(chan struct{})}
	uploadCtx := context.WithoutCancel(ctx)

	go func() {
		defer close(w.done)
		err := a.fs.Upload(uploadCtx, URL, file.DefaultFileOsMode, pr)
		if err != nil {
			err = fmt.Errorf("upload %s: %w", URL, err)
		}
		w.err = err
		// unblock pending writes when the upload gives up early
		_ = pr.CloseWithError(errors.Join(err, io.ErrClosedPipe))
	}()

	return w, nil
}

// CreateTemp creates <baseURL>/seqstore-<uuid>.seq.
func (a *AFS) CreateTemp(ctx context.Context) (string, io.WriteCloser, error) {
	name := strings.Replace(tempPattern, "*", uuid.NewString(), 1)
	URL := url.Join(a.baseURL, name)

	w, err := a.Create(ctx, URL)
	if err != nil {
		return "", nil, err
	}

	return URL, w, nil
}

// Open opens URL for reading.
func (a *AFS) Open(ctx context.Context, URL string) (io.ReadCloser, error) {
	return a.fs.OpenURL(ctx, URL)
}

// Remove deletes URL.
func (a *AFS) Remove(ctx context.Context, URL string) error {
	return a.fs.Delete(ctx, URL)
}

// Exists reports whether URL exists.
func (a *AFS) Exists(ctx context.Context, URL string) (bool, error) {
	return a.fs.Exists(ctx, URL)
}

// uploadWriter is the write end of a pipe drained by an afs upload.
type uploadWriter struct {
	pw     *io.PipeWriter
	done   chan struct{}
	err    error
	closed bool
}

func (w *uploadWriter) Write(p []byte) (int, error) {
	n, err := w.pw.Write(p)
	if err != nil {
		<-w.done
		if w.err != nil {
			return n, w.err
		}
	}

	return n, err
}

// Close signals the end of the content and waits for the upload to finish.
func (w *uploadWriter) Close() error {
	if w.closed {
		return w.err
	}
	w.closed = true
	_ = w.pw.Close()
	<-w.done

	return w.err
}
