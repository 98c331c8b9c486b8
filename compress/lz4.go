package compress

import (
	"io"

	"github.com/pierrec/lz4/v4"
)

// lz4Levels maps 0..9 onto the lz4 compression levels. Level 0 is the fast
// block compressor, 1..9 are the high compression levels.
var lz4Levels = [...]lz4.CompressionLevel{
	lz4.Fast,
	lz4.Level1, lz4.Level2, lz4.Level3,
	lz4.Level4, lz4.Level5, lz4.Level6,
	lz4.Level7, lz4.Level8, lz4.Level9,
}

func lz4Level(level int) lz4.CompressionLevel {
	return lz4Levels[level]
}

func newLZ4Writer(w io.Writer, level int) (io.WriteCloser, error) {
	zw := lz4.NewWriter(w)
	if err := zw.Apply(lz4.CompressionLevelOption(lz4Level(level))); err != nil {
		return nil, err
	}

	return zw, nil
}

func newLZ4Reader(r io.Reader) io.ReadCloser {
	return io.NopCloser(lz4.NewReader(r))
}
