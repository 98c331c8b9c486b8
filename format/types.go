package format

import (
	"fmt"
	"strings"

	"github.com/arloliu/seqstore/errs"
)

type (
	// CompressionType identifies the stream compression wrapping a sequence file.
	CompressionType uint8
	// Revision selects the value encoding used inside the compressed stream.
	Revision uint8
)

const (
	CompressionNone CompressionType = 0x1 // CompressionNone represents an uncompressed stream.
	CompressionGzip CompressionType = 0x2 // CompressionGzip represents a gzip stream.
	CompressionZstd CompressionType = 0x3 // CompressionZstd represents a Zstandard stream.
	CompressionS2   CompressionType = 0x4 // CompressionS2 represents an S2 stream.
	CompressionLZ4  CompressionType = 0x5 // CompressionLZ4 represents an LZ4 frame stream.
)

const (
	RevisionFixed   Revision = 0x1 // RevisionFixed uses fixed-width integers and lengths.
	RevisionCompact Revision = 0x2 // RevisionCompact uses varint integers and lengths.
	RevisionMsgPack Revision = 0x3 // RevisionMsgPack uses MessagePack primitives.
	RevisionFramed  Revision = 0x4 // RevisionFramed uses length-framed bintly payloads.

	// DefaultRevision is the revision used when none is configured.
	DefaultRevision = RevisionCompact
	// LatestRevision is the highest revision this package understands.
	LatestRevision = RevisionFramed
)

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionGzip:
		return "Gzip"
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(c))
	}
}

// Valid reports whether c is a known compression type.
func (c CompressionType) Valid() bool {
	return c >= CompressionNone && c <= CompressionLZ4
}

// ParseCompressionType returns the compression type named s, matched case-insensitively.
func ParseCompressionType(s string) (CompressionType, error) {
	for c := CompressionNone; c <= CompressionLZ4; c++ {
		if strings.EqualFold(s, c.String()) {
			return c, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", errs.ErrInvalidCompression, s)
}

func (r Revision) String() string {
	switch r {
	case RevisionFixed:
		return "Fixed"
	case RevisionCompact:
		return "Compact"
	case RevisionMsgPack:
		return "MsgPack"
	case RevisionFramed:
		return "Framed"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(r))
	}
}

// Valid reports whether r is a known revision.
func (r Revision) Valid() bool {
	return r >= RevisionFixed && r <= LatestRevision
}
