package encoding

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math/bits"
	"unicode/utf8"

	"github.com/viant/bintly"

	"github.com/arloliu/seqstore/errs"
	"github.com/arloliu/seqstore/internal/pool"
	"github.com/arloliu/seqstore/value"
)

var (
	framedWriters = bintly.NewWriters()
	framedReaders = bintly.NewReaders()
)

// framedEncoder writes each payload as a length-prefixed bintly block:
//
//	[uvarint block length][bintly block]
//
// Inside the block values are walked like the stream revisions: a uint8 kind tag,
// then the primitive for scalars, an int count for containers, text as string
// and bytes as uint8 slice. Knowing the block length up front lets a reader skip
// or bound a record without parsing it.
type framedEncoder struct {
	maxBlock int
}

func newFramedEncoder() framedEncoder {
	return framedEncoder{maxBlock: MaxPayloadSize}
}

func (e framedEncoder) encode(buf *pool.ByteBuffer, v value.Value) error {
	w := framedWriters.Get()
	defer framedWriters.Put(w)

	writeFramed(w, v)
	block := w.Bytes()
	if len(block) > e.maxBlock {
		return fmt.Errorf("%w: framed block of %d bytes exceeds %d", errs.ErrUnsupportedValue, len(block), e.maxBlock)
	}

	buf.B = binary.AppendUvarint(buf.B, uint64(len(block)))
	buf.B = append(buf.B, block...)

	return nil
}

func writeFramed(w *bintly.Writer, v value.Value) {
	w.Uint8(uint8(v.Kind()))

	switch v.Kind() {
	case value.KindNone:
	case value.KindBool:
		flag, _ := v.AsBool()
		w.Bool(flag)
	case value.KindInt:
		i, _ := v.AsInt()
		w.Int64(i)
	case value.KindFloat:
		f, _ := v.AsFloat()
		w.Float64(f)
	case value.KindText:
		s, _ := v.AsText()
		w.String(s)
	case value.KindBytes:
		raw, _ := v.AsBytes()
		w.Uint8s(raw)
	case value.KindList, value.KindSet:
		items := v.Items()
		w.Int(len(items))
		for _, item := range items {
			writeFramed(w, item)
		}
	case value.KindMap:
		ents := v.Entries()
		w.Int(len(ents))
		for _, ent := range ents {
			w.String(ent.Key)
			writeFramed(w, ent.Value)
		}
	case value.KindRecord:
		w.String(v.RecordName())
		fields := v.Fields()
		w.Int(len(fields))
		for _, f := range fields {
			w.String(f.Name)
			writeFramed(w, f.Value)
		}
	}
}

// framedDecoder reads values written by framedEncoder.
type framedDecoder struct {
	br    *bufio.Reader
	block []byte
}

func newFramedDecoder(br *bufio.Reader) *framedDecoder {
	return &framedDecoder{br: br}
}

func (d *framedDecoder) decode() (value.Value, error) {
	n, err := binary.ReadUvarint(d.br)
	if err != nil {
		return value.Value{}, varintErr(err)
	}
	if n > MaxPayloadSize {
		return value.Value{}, malformedf("framed block of %d bytes exceeds %d", n, MaxPayloadSize)
	}

	if uint64(cap(d.block)) < n {
		d.block = make([]byte, n)
	}
	d.block = d.block[:n]
	if _, err := io.ReadFull(d.br, d.block); err != nil {
		return value.Value{}, err
	}

	return readFramed(d.block)
}

// framedSections lists the bintly section codecs in the order a block stores them,
// with the byte size of one element.
var framedSections = [...]struct {
	codec    byte
	elemSize uint64
}{
	{1, 4},       // alloc sizes, int32
	{2, 2},       // medium alloc sizes, uint16
	{3, intSize}, // ints
	{13, 8},      // float64s
	{12, 1},      // uint8s
	{7, 4},       // int32s
	{8, 4},       // uint32s
	{14, 4},      // float32s
	{4, intSize}, // uints
	{5, 8},       // int64s
	{6, 8},       // uint64s
	{9, 2},       // int16s
	{10, 2},      // uint16s
	{11, 1},      // int8s
}

const (
	framedEOF = 0
	intSize   = bits.UintSize / 8
)

// checkFramedLayout verifies that every section of a bintly block fits inside the
// block and that the block ends right after the terminator. bintly allocates each
// section from its stored count before looking at the data, so a forged count
// must be rejected here.
func checkFramedLayout(block []byte) error {
	off := uint64(0)
	size := uint64(len(block))
	for _, sec := range framedSections {
		if off >= size {
			return malformedf("framed block truncated at offset %d", off)
		}
		if block[off] != sec.codec {
			continue
		}
		if size-off < 5 {
			return malformedf("framed section 0x%02x header truncated", sec.codec)
		}
		count := uint64(binary.NativeEndian.Uint32(block[off+1:]))
		off += 5
		if count*sec.elemSize > size-off {
			return malformedf("framed section 0x%02x of %d elements exceeds block", sec.codec, count)
		}
		off += count * sec.elemSize
	}

	if off >= size || block[off] != framedEOF {
		return malformedf("framed block missing terminator")
	}
	if off+1 != size {
		return malformedf("framed block has %d trailing bytes", size-off-1)
	}

	return nil
}

// readFramed walks one block. The bintly reader panics when its size tables
// disagree with each other, so a panic here means corrupt input.
func readFramed(block []byte) (v value.Value, err error) {
	if err := checkFramedLayout(block); err != nil {
		return value.Value{}, err
	}

	r := framedReaders.Get()
	defer framedReaders.Put(r)
	defer func() {
		if p := recover(); p != nil {
			v, err = value.Value{}, malformedf("framed block: %v", p)
		}
	}()

	if err := r.FromBytes(block); err != nil {
		return value.Value{}, malformedf("framed block: %v", err)
	}

	return readFramedValue(r, 0)
}

func readFramedValue(r *bintly.Reader, depth int) (value.Value, error) {
	if depth > MaxDepth {
		return value.Value{}, malformedf("nesting deeper than %d", MaxDepth)
	}

	var tag uint8
	r.Uint8(&tag)

	switch value.Kind(tag) {
	case value.KindNone:
		return value.None(), nil
	case value.KindBool:
		var flag bool
		r.Bool(&flag)

		return value.Bool(flag), nil
	case value.KindInt:
		var i int64
		r.Int64(&i)

		return value.Int(i), nil
	case value.KindFloat:
		var f float64
		r.Float64(&f)

		return value.Float(f), nil
	case value.KindText:
		s, err := framedText(r)
		if err != nil {
			return value.Value{}, err
		}

		return value.Text(s), nil
	case value.KindBytes:
		var raw []uint8
		r.Uint8s(&raw)
		if raw == nil {
			raw = []byte{}
		}

		return value.Bytes(raw), nil
	case value.KindList:
		n, err := framedCount(r)
		if err != nil {
			return value.Value{}, err
		}
		items := make([]value.Value, 0, min(n, 1024))
		for range n {
			item, err := readFramedValue(r, depth+1)
			if err != nil {
				return value.Value{}, err
			}
			items = append(items, item)
		}

		return value.List(items...), nil
	case value.KindSet:
		n, err := framedCount(r)
		if err != nil {
			return value.Value{}, err
		}
		b := value.NewSetBuilder(min(n, 1024))
		for range n {
			item, err := readFramedValue(r, depth+1)
			if err != nil {
				return value.Value{}, err
			}
			if !b.Add(item) {
				return value.Value{}, malformedf("duplicate set element %s", item)
			}
		}

		return b.Value(), nil
	case value.KindMap:
		n, err := framedCount(r)
		if err != nil {
			return value.Value{}, err
		}
		b := value.NewMapBuilder(min(n, 1024))
		for range n {
			key, err := framedText(r)
			if err != nil {
				return value.Value{}, err
			}
			val, err := readFramedValue(r, depth+1)
			if err != nil {
				return value.Value{}, err
			}
			if !b.Set(key, val) {
				return value.Value{}, malformedf("duplicate map key %q", key)
			}
		}

		return b.Value(), nil
	case value.KindRecord:
		name, err := framedText(r)
		if err != nil {
			return value.Value{}, err
		}
		n, err := framedCount(r)
		if err != nil {
			return value.Value{}, err
		}
		fields := make([]value.Field, 0, min(n, 1024))
		for range n {
			fname, err := framedText(r)
			if err != nil {
				return value.Value{}, err
			}
			fval, err := readFramedValue(r, depth+1)
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

func framedCount(r *bintly.Reader) (int, error) {
	var n int
	r.Int(&n)
	if n < 0 || n > MaxPayloadSize {
		return 0, malformedf("invalid container length %d", n)
	}

	return n, nil
}

func framedText(r *bintly.Reader) (string, error) {
	var s string
	r.String(&s)
	if !utf8.ValidString(s) {
		return "", malformedf("text is not valid UTF-8")
	}

	return s, nil
}
