package encoding

import (
	"bufio"
	"unicode/utf8"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/arloliu/seqstore/internal/pool"
	"github.com/arloliu/seqstore/value"
)

// msgpackEncoder writes payloads as MessagePack primitives. Each value is a kind
// tag (positive fixint) followed by:
//
//	none            nil
//	bool            bool
//	int             int
//	float           float64
//	text            str
//	bytes           bin
//	list, set       array header, values
//	map             map header, (str key, value)...
//	record          str name, map header, (str field, value)...
type msgpackEncoder struct {
	enc *msgpack.Encoder
}

func newMsgPackEncoder() *msgpackEncoder {
	return &msgpackEncoder{enc: msgpack.NewEncoder(nil)}
}

func (e *msgpackEncoder) encode(buf *pool.ByteBuffer, v value.Value) error {
	e.enc.Reset(buf)
	return e.value(v)
}

func (e *msgpackEncoder) value(v value.Value) error {
	if err := e.enc.EncodeUint(uint64(v.Kind())); err != nil {
		return err
	}

	switch v.Kind() {
	case value.KindNone:
		return e.enc.EncodeNil()
	case value.KindBool:
		flag, _ := v.AsBool()
		return e.enc.EncodeBool(flag)
	case value.KindInt:
		i, _ := v.AsInt()
		return e.enc.EncodeInt(i)
	case value.KindFloat:
		f, _ := v.AsFloat()
		return e.enc.EncodeFloat64(f)
	case value.KindText:
		s, _ := v.AsText()
		return e.enc.EncodeString(s)
	case value.KindBytes:
		raw, _ := v.AsBytes()
		if raw == nil {
			raw = []byte{}
		}

		return e.enc.EncodeBytes(raw)
	case value.KindList, value.KindSet:
		items := v.Items()
		if err := e.enc.EncodeArrayLen(len(items)); err != nil {
			return err
		}
		for _, item := range items {
			if err := e.value(item); err != nil {
				return err
			}
		}

		return nil
	case value.KindMap:
		ents := v.Entries()
		if err := e.enc.EncodeMapLen(len(ents)); err != nil {
			return err
		}
		for _, ent := range ents {
			if err := e.enc.EncodeString(ent.Key); err != nil {
				return err
			}
			if err := e.value(ent.Value); err != nil {
				return err
			}
		}

		return nil
	case value.KindRecord:
		if err := e.enc.EncodeString(v.RecordName()); err != nil {
			return err
		}
		fields := v.Fields()
		if err := e.enc.EncodeMapLen(len(fields)); err != nil {
			return err
		}
		for _, f := range fields {
			if err := e.enc.EncodeString(f.Name); err != nil {
				return err
			}
			if err := e.value(f.Value); err != nil {
				return err
			}
		}

		return nil
	default:
		return malformedf("unknown kind %s", v.Kind())
	}
}

// msgpackDecoder reads values written by msgpackEncoder. The msgpack decoder reads
// straight from the shared bufio.Reader, so the stream cursor stays exact between
// records of different revisions.
type msgpackDecoder struct {
	dec *msgpack.Decoder
}

func newMsgPackDecoder(br *bufio.Reader) *msgpackDecoder {
	return &msgpackDecoder{dec: msgpack.NewDecoder(br)}
}

func (d *msgpackDecoder) decode() (value.Value, error) {
	return d.value(0)
}

func (d *msgpackDecoder) value(depth int) (value.Value, error) {
	if depth > MaxDepth {
		return value.Value{}, malformedf("nesting deeper than %d", MaxDepth)
	}

	tag, err := d.dec.DecodeUint8()
	if err != nil {
		return value.Value{}, err
	}

	switch value.Kind(tag) {
	case value.KindNone:
		if err := d.dec.DecodeNil(); err != nil {
			return value.Value{}, err
		}

		return value.None(), nil
	case value.KindBool:
		flag, err := d.dec.DecodeBool()
		if err != nil {
			return value.Value{}, err
		}

		return value.Bool(flag), nil
	case value.KindInt:
		i, err := d.dec.DecodeInt64()
		if err != nil {
			return value.Value{}, err
		}

		return value.Int(i), nil
	case value.KindFloat:
		f, err := d.dec.DecodeFloat64()
		if err != nil {
			return value.Value{}, err
		}

		return value.Float(f), nil
	case value.KindText:
		s, err := d.text()
		if err != nil {
			return value.Value{}, err
		}

		return value.Text(s), nil
	case value.KindBytes:
		raw, err := d.dec.DecodeBytes()
		if err != nil {
			return value.Value{}, err
		}
		if raw == nil {
			raw = []byte{}
		}

		return value.Bytes(raw), nil
	case value.KindList:
		n, err := d.length(d.dec.DecodeArrayLen)
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
		n, err := d.length(d.dec.DecodeArrayLen)
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
		n, err := d.length(d.dec.DecodeMapLen)
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
		n, err := d.length(d.dec.DecodeMapLen)
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

func (d *msgpackDecoder) length(read func() (int, error)) (int, error) {
	n, err := read()
	if err != nil {
		return 0, err
	}
	if n < 0 || n > MaxPayloadSize {
		return 0, malformedf("invalid container length %d", n)
	}

	return n, nil
}

func (d *msgpackDecoder) text() (string, error) {
	s, err := d.dec.DecodeString()
	if err != nil {
		return "", err
	}
	if !utf8.ValidString(s) {
		return "", malformedf("text is not valid UTF-8")
	}

	return s, nil
}
