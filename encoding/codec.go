package encoding

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/arloliu/seqstore/errs"
	"github.com/arloliu/seqstore/format"
	"github.com/arloliu/seqstore/internal/pool"
	"github.com/arloliu/seqstore/value"
)

const (
	// MaxDepth is the deepest nesting of composite values the codec accepts.
	MaxDepth = 256

	// MaxPayloadSize is the largest text or bytes payload, and the largest framed
	// record, the codec accepts.
	MaxPayloadSize = 256 * 1024 * 1024 // 256MiB

	// readBufferSize is the bufio buffer placed in front of decompressed streams.
	readBufferSize = 64 * 1024
)

// payloadEncoder appends the kind tag and payload of one value to buf.
type payloadEncoder interface {
	encode(buf *pool.ByteBuffer, v value.Value) error
}

// payloadDecoder reads the kind tag and payload of one value.
type payloadDecoder interface {
	decode() (value.Value, error)
}

// Encoder writes self-delimiting value records to a stream.
//
// Every record is [revision:1][kind:1][payload]. The revision is fixed when the
// encoder is created. Each record is assembled in a pooled buffer and handed to the
// underlying writer with a single Write call.
//
// Note: The Encoder is NOT thread-safe.
type Encoder struct {
	w       io.Writer
	rev     format.Revision
	buf     *pool.ByteBuffer
	payload payloadEncoder

	records int64
	bytes   int64
}

// NewEncoder creates an encoder writing records of revision rev to w.
//
// Returns an error wrapping errs.ErrInvalidRevision if rev is unknown.
func NewEncoder(w io.Writer, rev format.Revision) (*Encoder, error) {
	payload, err := newPayloadEncoder(rev)
	if err != nil {
		return nil, err
	}

	return &Encoder{
		w:       w,
		rev:     rev,
		buf:     pool.GetRecordBuffer(),
		payload: payload,
	}, nil
}

func newPayloadEncoder(rev format.Revision) (payloadEncoder, error) {
	switch rev {
	case format.RevisionFixed:
		return streamEncoder{prim: fixedPrimitives{}}, nil
	case format.RevisionCompact:
		return streamEncoder{prim: compactPrimitives{}}, nil
	case format.RevisionMsgPack:
		return newMsgPackEncoder(), nil
	case format.RevisionFramed:
		return newFramedEncoder(), nil
	default:
		return nil, fmt.Errorf("%w: %s", errs.ErrInvalidRevision, rev)
	}
}

// Revision returns the revision used by the encoder.
func (e *Encoder) Revision() format.Revision { return e.rev }

// Records returns the number of records written so far.
func (e *Encoder) Records() int64 { return e.records }

// BytesWritten returns the number of encoded bytes handed to the writer.
func (e *Encoder) BytesWritten() int64 { return e.bytes }

// Encode writes v as one record.
//
// Values that cannot be represented (invalid UTF-8 text, payloads above
// MaxPayloadSize, nesting deeper than MaxDepth) return an error wrapping
// errs.ErrUnsupportedValue and write nothing. Write errors from the underlying
// stream are returned as-is.
func (e *Encoder) Encode(v value.Value) error {
	if e.buf == nil {
		return errors.New("encoder released")
	}
	if err := validate(v, 0); err != nil {
		return err
	}

	e.buf.Reset()
	_ = e.buf.WriteByte(byte(e.rev))
	if err := e.payload.encode(e.buf, v); err != nil {
		return err
	}

	n, err := e.buf.WriteTo(e.w)
	e.bytes += n
	if err != nil {
		return err
	}
	e.records++

	return nil
}

// Release returns pooled resources. The encoder must not be used afterwards.
func (e *Encoder) Release() {
	if e.buf != nil {
		pool.PutRecordBuffer(e.buf)
		e.buf = nil
	}
}

func validate(v value.Value, depth int) error {
	if depth > MaxDepth {
		return fmt.Errorf("%w: nesting deeper than %d", errs.ErrUnsupportedValue, MaxDepth)
	}

	switch v.Kind() { //nolint:exhaustive
	case value.KindText, value.KindBytes:
		if v.Len() > MaxPayloadSize {
			return fmt.Errorf("%w: %s payload of %d bytes exceeds %d", errs.ErrUnsupportedValue, v.Kind(), v.Len(), MaxPayloadSize)
		}
		if !v.ValidText() {
			return fmt.Errorf("%w: text is not valid UTF-8", errs.ErrUnsupportedValue)
		}
	case value.KindList, value.KindSet:
		for _, item := range v.Items() {
			if err := validate(item, depth+1); err != nil {
				return err
			}
		}
	case value.KindMap:
		for _, ent := range v.Entries() {
			if err := validateName(ent.Key); err != nil {
				return err
			}
			if err := validate(ent.Value, depth+1); err != nil {
				return err
			}
		}
	case value.KindRecord:
		if err := validateName(v.RecordName()); err != nil {
			return err
		}
		for _, f := range v.Fields() {
			if err := validateName(f.Name); err != nil {
				return err
			}
			if err := validate(f.Value, depth+1); err != nil {
				return err
			}
		}
	}

	return nil
}

func validateName(s string) error {
	if len(s) > MaxPayloadSize {
		return fmt.Errorf("%w: key of %d bytes exceeds %d", errs.ErrUnsupportedValue, len(s), MaxPayloadSize)
	}
	if !utf8.ValidString(s) {
		return fmt.Errorf("%w: key %q is not valid UTF-8", errs.ErrUnsupportedValue, s)
	}

	return nil
}

// DecodeError describes a record that could not be decoded.
//
// It matches errs.ErrMalformedEncoding with errors.Is, and also the underlying
// cause (e.g. io.ErrUnexpectedEOF for a truncated record) when there is one.
type DecodeError struct {
	Record   int64           // zero-based index of the record in the stream
	Revision format.Revision // revision byte of the record, zero if unknown
	Msg      string
	Err      error
}

func (e *DecodeError) Error() string {
	if e.Err != nil && !errors.Is(e.Err, errs.ErrMalformedEncoding) {
		return fmt.Sprintf("%s: record %d: %s: %v", errs.ErrMalformedEncoding, e.Record, e.Msg, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("record %d: %s: %v", e.Record, e.Msg, e.Err)
	}

	return fmt.Sprintf("%s: record %d: %s", errs.ErrMalformedEncoding, e.Record, e.Msg)
}

func (e *DecodeError) Unwrap() []error {
	if e.Err == nil {
		return []error{errs.ErrMalformedEncoding}
	}

	return []error{errs.ErrMalformedEncoding, e.Err}
}

func malformedf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{errs.ErrMalformedEncoding}, args...)...)
}

// sourceReader remembers the first non-EOF error of the wrapped reader, so decode
// failures caused by the platform can be told apart from corrupt bytes.
type sourceReader struct {
	r   io.Reader
	err error
}

func (s *sourceReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) && s.err == nil {
		s.err = err
	}

	return n, err
}

// Decoder reads value records from a stream one at a time.
//
// Note: The Decoder is NOT thread-safe. Independent decoders over independent
// streams may run concurrently.
type Decoder struct {
	src     *sourceReader
	br      *bufio.Reader
	decs    [format.LatestRevision + 1]payloadDecoder
	records int64
}

// NewDecoder creates a decoder reading records from r.
func NewDecoder(r io.Reader) *Decoder {
	src := &sourceReader{r: r}

	return &Decoder{
		src: src,
		br:  bufio.NewReaderSize(src, readBufferSize),
	}
}

// Records returns the number of records decoded so far.
func (d *Decoder) Records() int64 { return d.records }

// Decode reads exactly one record.
//
// It returns io.EOF, unwrapped, when the stream ends on a record boundary. A
// record that is truncated or does not follow the encoding yields a *DecodeError.
// Errors of the underlying reader are returned wrapped with %w.
func (d *Decoder) Decode() (value.Value, error) {
	b, err := d.br.ReadByte()
	if err != nil {
		if errors.Is(err, io.EOF) && d.src.err == nil {
			return value.Value{}, io.EOF
		}

		return value.Value{}, d.classify(0, err)
	}

	rev := format.Revision(b)
	if !rev.Valid() {
		return value.Value{}, &DecodeError{Record: d.records, Msg: fmt.Sprintf("unknown revision 0x%02x", b)}
	}

	v, err := d.decoderFor(rev).decode()
	if err != nil {
		return value.Value{}, d.classify(rev, err)
	}
	d.records++

	return v, nil
}

func (d *Decoder) decoderFor(rev format.Revision) payloadDecoder {
	if dec := d.decs[rev]; dec != nil {
		return dec
	}

	var dec payloadDecoder
	switch rev {
	case format.RevisionFixed:
		dec = &streamDecoder{br: d.br, prim: fixedPrimitives{}}
	case format.RevisionCompact:
		dec = &streamDecoder{br: d.br, prim: compactPrimitives{}}
	case format.RevisionMsgPack:
		dec = newMsgPackDecoder(d.br)
	case format.RevisionFramed:
		dec = newFramedDecoder(d.br)
	}
	d.decs[rev] = dec

	return dec
}

func (d *Decoder) classify(rev format.Revision, err error) error {
	if d.src.err != nil {
		return fmt.Errorf("read record %d: %w", d.records, d.src.err)
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &DecodeError{Record: d.records, Revision: rev, Msg: "truncated record", Err: io.ErrUnexpectedEOF}
	}

	return &DecodeError{Record: d.records, Revision: rev, Msg: "invalid record", Err: err}
}
