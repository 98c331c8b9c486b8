// Package value defines Value, the closed set of structured data kinds that a
// sequence file can hold.
//
// A Value is immutable once constructed. Composite kinds (list, map, record, set)
// hold other Values and may nest to any depth; the codec bounds nesting when decoding.
package value

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/arloliu/seqstore/internal/hash"
)

// Kind identifies the variant held by a Value. The numeric values are the kind
// tags written by the codec and must never change.
type Kind uint8

const (
	KindNone   Kind = 0x01 // KindNone is the explicit absence of a value.
	KindBool   Kind = 0x02 // KindBool is a boolean.
	KindInt    Kind = 0x03 // KindInt is a signed 64-bit integer.
	KindFloat  Kind = 0x04 // KindFloat is an IEEE-754 double.
	KindText   Kind = 0x05 // KindText is a UTF-8 string.
	KindBytes  Kind = 0x06 // KindBytes is a raw byte sequence.
	KindList   Kind = 0x07 // KindList is an ordered sequence of values.
	KindMap    Kind = 0x08 // KindMap is an insertion-ordered text-keyed mapping.
	KindRecord Kind = 0x09 // KindRecord is a named record with ordered named fields.
	KindSet    Kind = 0x0a // KindSet is an unordered collection of distinct values.
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindBool:
		return "Bool"
	case KindInt:
		return "Int"
	case KindFloat:
		return "Float"
	case KindText:
		return "Text"
	case KindBytes:
		return "Bytes"
	case KindList:
		return "List"
	case KindMap:
		return "Map"
	case KindRecord:
		return "Record"
	case KindSet:
		return "Set"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Valid reports whether k is one of the supported kinds.
func (k Kind) Valid() bool {
	return k >= KindNone && k <= KindSet
}

// Entry is one key/value pair of a map.
type Entry struct {
	Key   string
	Value Value
}

// Field is one named field of a record.
type Field struct {
	Name  string
	Value Value
}

// Value is a tagged union over the supported kinds.
//
// The zero Value is None.
type Value struct {
	kind Kind

	num  uint64 // bool, int (two's complement) and float bits
	str  string // text, or record name
	raw  []byte
	list []Value // list and set elements
	ents []Entry
	flds []Field
}

// None returns the absence-of-value marker.
func None() Value { return Value{kind: KindNone} }

// Bool returns a boolean value.
func Bool(b bool) Value {
	v := Value{kind: KindBool}
	if b {
		v.num = 1
	}

	return v
}

// Int returns an integer value.
func Int(i int64) Value { return Value{kind: KindInt, num: uint64(i)} } //nolint:gosec

// Float returns a floating point value.
func Float(f float64) Value { return Value{kind: KindFloat, num: math.Float64bits(f)} }

// Text returns a text value. Text that is not valid UTF-8 is rejected by the encoder.
func Text(s string) Value { return Value{kind: KindText, str: s} }

// Bytes returns a raw bytes value. The slice is copied.
func Bytes(b []byte) Value {
	return Value{kind: KindBytes, raw: bytes.Clone(b)}
}

// List returns a list holding items in order.
func List(items ...Value) Value {
	return Value{kind: KindList, list: append([]Value(nil), items...)}
}

// Map returns an ordered mapping. When a key repeats, the later value replaces the
// earlier one but the key keeps its first position.
func Map(entries ...Entry) Value {
	b := NewMapBuilder(len(entries))
	for _, e := range entries {
		b.Set(e.Key, e.Value)
	}

	return b.Value()
}

// Record returns a named record with fields in the given order.
func Record(name string, fields ...Field) Value {
	return Value{kind: KindRecord, str: name, flds: append([]Field(nil), fields...)}
}

// Set returns a set of the distinct items; duplicates are dropped and the first
// occurrence keeps its position in the encoding order.
func Set(items ...Value) Value {
	b := NewSetBuilder(len(items))
	for _, item := range items {
		b.Add(item)
	}

	return b.Value()
}

// Kind returns the kind of v. The zero Value reports KindNone.
func (v Value) Kind() Kind {
	if v.kind == 0 {
		return KindNone
	}

	return v.kind
}

// IsNone reports whether v is the absence marker.
func (v Value) IsNone() bool { return v.Kind() == KindNone }

// AsBool returns the boolean payload.
func (v Value) AsBool() (bool, bool) {
	return v.num == 1, v.kind == KindBool
}

// AsInt returns the integer payload.
func (v Value) AsInt() (int64, bool) {
	return int64(v.num), v.kind == KindInt //nolint:gosec
}

// AsFloat returns the float payload.
func (v Value) AsFloat() (float64, bool) {
	return math.Float64frombits(v.num), v.kind == KindFloat
}

// AsText returns the text payload.
func (v Value) AsText() (string, bool) {
	return v.str, v.kind == KindText
}

// AsBytes returns the bytes payload. The caller must not modify the returned slice.
func (v Value) AsBytes() ([]byte, bool) {
	return v.raw, v.kind == KindBytes
}

// Items returns the elements of a list or set. The caller must not modify the slice.
func (v Value) Items() []Value {
	if v.kind != KindList && v.kind != KindSet {
		return nil
	}

	return v.list
}

// Entries returns the entries of a map in insertion order. The caller must not
// modify the slice.
func (v Value) Entries() []Entry {
	if v.kind != KindMap {
		return nil
	}

	return v.ents
}

// Get returns the value stored under key in a map.
func (v Value) Get(key string) (Value, bool) {
	for _, e := range v.Entries() {
		if e.Key == key {
			return e.Value, true
		}
	}

	return Value{}, false
}

// RecordName returns the name of a record.
func (v Value) RecordName() string {
	if v.kind != KindRecord {
		return ""
	}

	return v.str
}

// Fields returns the fields of a record in declaration order. The caller must not
// modify the slice.
func (v Value) Fields() []Field {
	if v.kind != KindRecord {
		return nil
	}

	return v.flds
}

// Field returns the record field called name.
func (v Value) Field(name string) (Value, bool) {
	for _, f := range v.Fields() {
		if f.Name == name {
			return f.Value, true
		}
	}

	return Value{}, false
}

// Len returns the number of elements, entries or fields of a composite value,
// the byte length of text and bytes, and zero otherwise.
func (v Value) Len() int {
	switch v.kind { //nolint:exhaustive
	case KindText:
		return len(v.str)
	case KindBytes:
		return len(v.raw)
	case KindList, KindSet:
		return len(v.list)
	case KindMap:
		return len(v.ents)
	case KindRecord:
		return len(v.flds)
	default:
		return 0
	}
}

// Equal reports whether v and o hold the same data.
//
// Floats compare bitwise, so NaN equals an identical NaN. Maps and records compare
// entry by entry in order, including keys and field names. Sets compare as sets.
func (v Value) Equal(o Value) bool {
	if v.Kind() != o.Kind() {
		return false
	}

	switch v.Kind() {
	case KindNone:
		return true
	case KindBool, KindInt, KindFloat:
		return v.num == o.num
	case KindText:
		return v.str == o.str
	case KindBytes:
		return bytes.Equal(v.raw, o.raw)
	case KindList:
		return equalSlices(v.list, o.list)
	case KindMap:
		if len(v.ents) != len(o.ents) {
			return false
		}
		for i := range v.ents {
			if v.ents[i].Key != o.ents[i].Key || !v.ents[i].Value.Equal(o.ents[i].Value) {
				return false
			}
		}

		return true
	case KindRecord:
		if v.str != o.str || len(v.flds) != len(o.flds) {
			return false
		}
		for i := range v.flds {
			if v.flds[i].Name != o.flds[i].Name || !v.flds[i].Value.Equal(o.flds[i].Value) {
				return false
			}
		}

		return true
	case KindSet:
		if len(v.list) != len(o.list) {
			return false
		}
		idx := newHashIndex(len(o.list))
		for _, item := range o.list {
			idx.insert(item)
		}
		for _, item := range v.list {
			if !idx.contains(item) {
				return false
			}
		}

		return true
	default:
		return false
	}
}

func equalSlices(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}

	return true
}

// Hash returns a 64-bit xxHash fingerprint of v. Equal values have equal hashes;
// for sets the element order does not contribute.
func (v Value) Hash() uint64 {
	d := hash.NewDigest()
	var scratch [9]byte

	scratch[0] = byte(v.Kind())
	switch v.Kind() {
	case KindNone:
		_, _ = d.Write(scratch[:1])
	case KindBool, KindInt, KindFloat:
		putUint64(scratch[1:], v.num)
		_, _ = d.Write(scratch[:9])
	case KindText:
		_, _ = d.Write(scratch[:1])
		_, _ = d.WriteString(v.str)
	case KindBytes:
		_, _ = d.Write(scratch[:1])
		_, _ = d.Write(v.raw)
	case KindList:
		_, _ = d.Write(scratch[:1])
		for _, item := range v.list {
			putUint64(scratch[1:], item.Hash())
			_, _ = d.Write(scratch[1:9])
		}
	case KindMap:
		_, _ = d.Write(scratch[:1])
		for _, e := range v.ents {
			putUint64(scratch[1:], hash.String(e.Key))
			_, _ = d.Write(scratch[1:9])
			putUint64(scratch[1:], e.Value.Hash())
			_, _ = d.Write(scratch[1:9])
		}
	case KindRecord:
		_, _ = d.Write(scratch[:1])
		_, _ = d.WriteString(v.str)
		for _, f := range v.flds {
			putUint64(scratch[1:], hash.String(f.Name))
			_, _ = d.Write(scratch[1:9])
			putUint64(scratch[1:], f.Value.Hash())
			_, _ = d.Write(scratch[1:9])
		}
	case KindSet:
		hashes := make([]uint64, len(v.list))
		for i, item := range v.list {
			hashes[i] = item.Hash()
		}
		putUint64(scratch[1:], hash.Unordered(hashes...))
		_, _ = d.Write(scratch[:9])
	}

	return d.Sum64()
}

func putUint64(b []byte, x uint64) {
	_ = b[7]
	for i := 0; i < 8; i++ {
		b[i] = byte(x >> (8 * i))
	}
}

// ValidText reports whether every text payload inside v, including map keys,
// record names and field names, is valid UTF-8.
func (v Value) ValidText() bool {
	switch v.Kind() { //nolint:exhaustive
	case KindText:
		return utf8.ValidString(v.str)
	case KindList, KindSet:
		for _, item := range v.list {
			if !item.ValidText() {
				return false
			}
		}
	case KindMap:
		for _, e := range v.ents {
			if !utf8.ValidString(e.Key) || !e.Value.ValidText() {
				return false
			}
		}
	case KindRecord:
		if !utf8.ValidString(v.str) {
			return false
		}
		for _, f := range v.flds {
			if !utf8.ValidString(f.Name) || !f.Value.ValidText() {
				return false
			}
		}
	}

	return true
}

// String renders v for debugging and error messages.
func (v Value) String() string {
	var sb strings.Builder
	v.format(&sb)

	return sb.String()
}

func (v Value) format(sb *strings.Builder) {
	switch v.Kind() {
	case KindNone:
		sb.WriteString("None")
	case KindBool:
		b, _ := v.AsBool()
		sb.WriteString(strconv.FormatBool(b))
	case KindInt:
		i, _ := v.AsInt()
		sb.WriteString(strconv.FormatInt(i, 10))
	case KindFloat:
		f, _ := v.AsFloat()
		sb.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	case KindText:
		sb.WriteString(strconv.Quote(v.str))
	case KindBytes:
		fmt.Fprintf(sb, "b%q", v.raw)
	case KindList, KindSet:
		open, closing := "[", "]"
		if v.kind == KindSet {
			open, closing = "{", "}"
		}
		sb.WriteString(open)
		for i, item := range v.list {
			if i > 0 {
				sb.WriteString(", ")
			}
			item.format(sb)
		}
		sb.WriteString(closing)
	case KindMap:
		sb.WriteString("{")
		for i, e := range v.ents {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(strconv.Quote(e.Key))
			sb.WriteString(": ")
			e.Value.format(sb)
		}
		sb.WriteString("}")
	case KindRecord:
		sb.WriteString(v.str)
		sb.WriteString("(")
		for i, f := range v.flds {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(f.Name)
			sb.WriteString("=")
			f.Value.format(sb)
		}
		sb.WriteString(")")
	}
}
