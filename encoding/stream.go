package encoding

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"unicode/utf8"

	"github.com/arloliu/seqstore/endian"
	"github.com/arloliu/seqstore/internal/pool"
	"github.com/arloliu/seqstore/value"
)

// primitives is the integer and length layout of a stream revision. The kind tags
// and the structural walk are shared between revisions.
type primitives interface {
	appendLen(b []byte, n int) []byte
	appendInt(b []byte, i int64) []byte
	readLen(br *bufio.Reader) (uint64, error)
	readInt(br *bufio.Reader) (int64, error)
}

// fixedPrimitives lays out integers as 8 little-endian bytes and lengths as 4.
type fixedPrimitives struct{}

var fixedEngine = endian.GetLittleEndianEngine()

func (fixedPrimitives) appendLen(b []byte, n int) []byte {
	return fixedEngine.AppendUint32(b, uint32(n)) //nolint:gosec
}

func (fixedPrimitives) appendInt(b []byte, i int64) []byte {
	return fixedEngine.AppendUint64(b, uint64(i)) //nolint:gosec
}

func (fixedPrimitives) readLen(br *bufio.Reader) (uint64, error) {
	var scratch [4]byte
	if _, err := io.ReadFull(br, scratch[:]); err != nil {
		return 0, err
	}

	return uint64(fixedEngine.Uint32(scratch[:])), nil
}

func (fixedPrimitives) readInt(br *bufio.Reader) (int64, error) {
	var scratch [8]byte
	if _, err := io.ReadFull(br, scratch[:]); err != nil {
		return 0, err
	}

	return int64(fixedEngine.Uint64(scratch[:])), nil //nolint:gosec
}

// compactPrimitives lays out integers as zig-zag varints and lengths as uvarints.
type compactPrimitives struct{}

func (compactPrimitives) appendLen(b []byte, n int) []byte {
	return binary.AppendUvarint(b, uint64(n)) //nolint:gosec
}

func (compactPrimitives) appendInt(b []byte, i int64) []byte {
	return binary.AppendVarint(b, i)
}

func (compactPrimitives) readLen(br *bufio.Reader) (uint64, error) {
	n, err := binary.ReadUvarint(br)
	return n, varintErr(err)
}

func (compactPrimitives) readInt(br *bufio.Reader) (int64, error) {
	i, err := binary.ReadVarint(br)
	return i, varintErr(err)
}

func varintErr(err error) error {
	if err == nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return err
	}

	return malformedf("%v", err)
}

// streamEncoder writes the structural layout shared by the fixed and compact revisions:
//
//	none            [kind]
//	bool            [kind][0|1]
//	int             [kind][int]
//	float           [kind][8 bytes IEEE-754, little-endian]
//	text, bytes     [kind][len][data]
//	list, set       [kind][count][value...]
//	map             [kind][count]([len][key][value])...
//	record          [kind][len][name][count]([len][field][value])...
type streamEncoder struct {
	prim primitives
}

func (e streamEncoder) encode(buf *pool.ByteBuffer, v value.Value) error {
	buf.B = e.append(buf.B, v)
	return nil
}

func (e streamEncoder) append(b []byte, v value.Value) []byte {
	b = append(b, byte(v.Kind()))

	switch v.Kind() {
	case value.KindNone:
	case value.KindBool:
		flag, _ := v.AsBool()
		if flag {
			b = append(b, 1)
		} else {
			b = append(b, 0)
		}
	case value.KindInt:
		i, _ := v.AsInt()
		b = e.prim.appendInt(b, i)
	case value.KindFloat:
		f, _ := v.AsFloat()
		b = fixedEngine.AppendUint64(b, math.Float64bits(f))
	case value.KindText:
		s, _ := v.AsText()
		b = e.appendString(b, s)
	case value.KindBytes:
		raw, _ := v.AsBytes()
		b = e.prim.appendLen(b, len(raw))
		b = append(b, raw...)
	case value.KindList, value.KindSet:
		items := v.Items()
		b = e.prim.appendLen(b, len(items))
		for _, item := range items {
			b = e.append(b, item)
		}
	case value.KindMap:
		ents := v.Entries()
		b = e.prim.appendLen(b, len(ents))
		for _, ent := range ents {
			b = e.appendString(b, ent.Key)
			b = e.append(b, ent.Value)
		}
	case value.KindRecord:
		b = e.appendString(b, v.RecordName())
		fields := v.Fields()
		b = e.prim.appendLen(b, len(fields))
		for _, f := range fields {
			b = e.appendString(b, f.Name)
			b = e.append(b, f.Value)
		}
	}

	return b
}

func (e streamEncoder) appendString(b []byte, s string) []byte {
	b = e.prim.appendLen(b, len(s))
	return append(b, s...)
}

// streamDecoder reads values written by streamEncoder.
type streamDecoder struct {
	br   *bufio.Reader
	prim primitives
}

func (d *streamDecoder) decode() (value.Value, error) {
	return d.value(0)
}

func (d *streamDecoder) value(depth int) (value.Value, error) {
	if depth > MaxDepth {
		return value.Value{}, malformedf("nesting deeper than %d", MaxDepth)
	}

	tag, err := d.br.ReadByte()
	if err != nil {
		return value.Value{}, err
	}

	switch kind := value.Kind(tag); kind {
	case value.KindNone:
		return value.None(), nil
	case value.KindBool:
		flag, err := d.br.ReadByte()
		if err != nil {
			return value.Value{}, err
		}
		if flag > 1 {
			return value.Value{}, malformedf("bool byte 0x%02x", flag)
		}

		return value.Bool(flag == 1), nil
	case value.KindInt:
		i, err := d.prim.readInt(d.br)
		if err != nil {
			return value.Value{}, err
		}

		return value.Int(i), nil
	case value.KindFloat:
		var scratch [8]byte
		if _, err := io.ReadFull(d.br, scratch[:]); err != nil {
			return value.Value{}, err
		}

		return value.Float(math.Float64frombits(fixedEngine.Uint64(scratch[:]))), nil
	case value.KindText:
		s, err := d.text()
		if err != nil {
			return value.Value{}, err
		}

		return value.Text(s), nil
	case value.KindBytes:
		raw, err := d.payload()
		if err != nil {
			return value.Value{}, err
		}

		return value.Bytes(raw), nil
	case value.KindList:
		n, err := d.count()
		if err != nil {
			return value.Value{}, err
		}
		items := make([]value.Value, 0, min(n, 1024))
		for range n {
			item, err := d.value(depth + 1)
			if err != nil {
				return value.Value{}, err
			}
			items = append(items, item)
		}

		return value.List(items...), nil
	case value.KindSet:
		n, err := d.count()
		if err != nil {
			return value.Value{}, err
		}
		b := value.NewSetBuilder(min(n, 1024))
		for range n {
			item, err := d.value(depth + 1)
			if err != nil {
				return value.Value{}, err
			}
			if !b.Add(item) {
				return value.Value{}, malformedf("duplicate set element %s", item)
			}
		}

		return b.Value(), nil
	case value.KindMap:
		n, err := d.count()
		if err != nil {
			return value.Value{}, err
		}
		b := value.NewMapBuilder(min(n, 1024))
		for range n {
			key, err := d.text()
			if err != nil {
				return value.Value{}, err
			}
			val, err := d.value(depth + 1)
			if err != nil {
				return value.Value{}, err
			}
			if !b.Set(key, val) {
				return value.Value{}, malformedf("duplicate map key %q", key)
			}
		}

		return b.Value(), nil
	case value.KindRecord:
		name, err := d.text()
		if err != nil {
			return value.Value{}, err
		}
		n, err := d.count()
		if err != nil {
			return value.Value{}, err
		}
		fields := make([]value.Field, 0, min(n, 1024))
		for range n {
			fname, err := d.text()
			if err != nil {
				return value.Value{}, err
			}
			fval, err := d.value(depth + 1)
			if err != nil {
				return value.Value{}, err
			}
			fields = append(fields, value.Field{Name: fname, Value: fval})
		}

		return value.Record(name, fields...), nil
	default:
		return value.Value{}, malformedf("unknown kind tag 0x%02x", tag)
	}
}

// count reads an element count. Every element takes at least one byte, so a count
// above MaxPayloadSize cannot be genuine.
func (d *streamDecoder) count() (int, error) {
	n, err := d.prim.readLen(d.br)
	if err != nil {
		return 0, err
	}
	if n > MaxPayloadSize {
		return 0, malformedf("element count %d exceeds %d", n, MaxPayloadSize)
	}

	return int(n), nil
}

func (d *streamDecoder) payload() ([]byte, error) {
	n, err := d.prim.readLen(d.br)
	if err != nil {
		return nil, err
	}
	if n > MaxPayloadSize {
		return nil, malformedf("payload length %d exceeds %d", n, MaxPayloadSize)
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(d.br, buf); err != nil {
		return nil, err
	}

	return buf, nil
}

func (d *streamDecoder) text() (string, error) {
	raw, err := d.payload()
	if err != nil {
		return "", err
	}
	if !utf8.Valid(raw) {
		return "", malformedf("text is not valid UTF-8")
	}

	return string(raw), nil
}
