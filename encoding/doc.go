// Package encoding implements the value codec of seqstore files.
//
// A file body is a sequence of self-delimiting records, each holding one
// value.Value:
//
//	[revision:1][kind:1][payload]
//
// The revision byte selects how the payload primitives are laid out. All
// revisions describe the same values, so a Decoder accepts records of every
// revision, even mixed within one stream, and an Encoder writes exactly one.
//
// # Revisions
//
//   - format.RevisionFixed: fixed-width little-endian integers and lengths
//   - format.RevisionCompact: zig-zag varint integers and uvarint lengths (default)
//   - format.RevisionMsgPack: MessagePack primitives (vmihailenco/msgpack)
//   - format.RevisionFramed: a uvarint length followed by a bintly block
//     (viant/bintly), so a record can be bounded before it is parsed
//
// # Kind Tags
//
//	0x01 none    0x02 bool    0x03 int     0x04 float   0x05 text
//	0x06 bytes   0x07 list    0x08 map     0x09 record  0x0a set
//
// # End Of Data
//
// Decode returns io.EOF, unwrapped, only when the stream ends exactly on a record
// boundary. A stream that ends inside a record, or bytes that do not follow the
// encoding, produce a *DecodeError matching errs.ErrMalformedEncoding.
//
// # Limits
//
// Decoders reject nesting deeper than MaxDepth and payloads or counts above
// MaxPayloadSize instead of allocating for them. Encoders apply the same limits
// and reject text that is not valid UTF-8 with errs.ErrUnsupportedValue.
package encoding
