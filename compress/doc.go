// Package compress provides the streaming compression layer of seqstore files.
//
// A sequence file is one compressed stream of encoded records. This package wraps
// the destination of a write session in a compressing io.WriteCloser and the source
// of a read session in a decompressing io.ReadCloser.
//
// # Supported Algorithms
//
//   - format.CompressionNone: bytes are stored as-is
//   - format.CompressionGzip: klauspost/compress gzip, levels -3..9, default 1
//   - format.CompressionZstd: klauspost/compress zstd, levels 1..22, default 3
//   - format.CompressionS2: klauspost/compress S2 stream format, levels 1..3
//   - format.CompressionLZ4: pierrec/lz4 frame format, levels 0..9
//
// Gzip level 1 is the default of the store: sequences are written once and
// replayed a handful of times, so write throughput matters more than a few
// percent of file size.
//
// # Detection
//
// Readers never need to be told the algorithm. NewReader peeks at the magic bytes
// at the head of the stream (gzip 1f 8b, zstd 28 b5 2f fd, S2 stream identifier,
// LZ4 frame 04 22 4d 18) and falls back to an uncompressed stream otherwise.
//
// # Zstd Backends
//
// Zstd uses the pure Go klauspost/compress implementation with pooled decoders by
// default. Building with cgo and the gozstd tag switches to valyala/gozstd:
//
//	go build -tags gozstd ./...
//
// # Ownership
//
// Closing a writer or reader returned by this package finalizes or releases the
// codec only. The wrapped io.Writer or io.Reader is left open and stays owned by
// the caller.
package compress
