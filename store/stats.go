package store

import (
	"github.com/arloliu/seqstore/compress"
	"github.com/arloliu/seqstore/format"
)

// Stats describes the content of a written sequence file.
//
// OriginalSize counts the encoded records including the identity tag, before
// compression. CompressedSize counts the bytes that reached the file.
type Stats struct {
	// Records is the number of values added, not counting the identity tag
	Records int64

	// Revision is the value encoding of the records
	Revision format.Revision

	compress.Stats
}
