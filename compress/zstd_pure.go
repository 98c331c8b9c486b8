//go:build !(cgo && gozstd)

package compress

import (
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// zstdDecoderPool pools zstd decoders for reuse. Every read session needs one, and
// klauspost/compress decoders are designed to run allocation free once warmed up.
var zstdDecoderPool = sync.Pool{
	New: func() any {
		decoder, err := zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderLowmem(false),
		)
		if err != nil {
			panic(fmt.Sprintf("failed to create zstd decoder for pool: %v", err))
		}

		return decoder
	},
}

func newZstdWriter(w io.Writer, level int) (io.WriteCloser, error) {
	encoder, err := zstd.NewWriter(w,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return nil, err
	}

	return encoder, nil
}

func newZstdReader(r io.Reader) (io.ReadCloser, error) {
	decoder, _ := zstdDecoderPool.Get().(*zstd.Decoder)
	if err := decoder.Reset(r); err != nil {
		zstdDecoderPool.Put(decoder)
		return nil, err
	}

	return &pooledZstdReader{decoder: decoder}, nil
}

// pooledZstdReader hands its decoder back to the pool on Close instead of
// closing it.
type pooledZstdReader struct {
	decoder *zstd.Decoder
}

func (r *pooledZstdReader) Read(p []byte) (int, error) {
	if r.decoder == nil {
		return 0, io.ErrClosedPipe
	}

	return r.decoder.Read(p)
}

func (r *pooledZstdReader) Close() error {
	if r.decoder == nil {
		return nil
	}

	// Detach the decoder from the source before it is shared again.
	_ = r.decoder.Reset(nil)
	zstdDecoderPool.Put(r.decoder)
	r.decoder = nil

	return nil
}
