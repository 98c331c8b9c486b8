package value

import (
	"fmt"
	"math"
	"slices"

	"github.com/arloliu/seqstore/errs"
)

// Of converts a Go native value into a Value.
//
// Supported inputs are nil, Value, bool, all sized and unsized integer types
// (unsigned values must fit in int64), float32, float64, string, []byte, []any,
// []string, []int64, map[string]any and map[string]string. Go maps have no order,
// so their entries are sorted by key. Any other type returns an error wrapping
// errs.ErrUnsupportedValue.
func Of(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return None(), nil
	case Value:
		return t, nil
	case bool:
		return Bool(t), nil
	case int:
		return Int(int64(t)), nil
	case int8:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint:
		return uintValue(uint64(t))
	case uint8:
		return Int(int64(t)), nil
	case uint16:
		return Int(int64(t)), nil
	case uint32:
		return Int(int64(t)), nil
	case uint64:
		return uintValue(t)
	case float32:
		return Float(float64(t)), nil
	case float64:
		return Float(t), nil
	case string:
		return Text(t), nil
	case []byte:
		return Bytes(t), nil
	case []string:
		items := make([]Value, len(t))
		for i, s := range t {
			items[i] = Text(s)
		}

		return Value{kind: KindList, list: items}, nil
	case []int64:
		items := make([]Value, len(t))
		for i, n := range t {
			items[i] = Int(n)
		}

		return Value{kind: KindList, list: items}, nil
	case []any:
		items := make([]Value, len(t))
		for i, elem := range t {
			v, err := Of(elem)
			if err != nil {
				return Value{}, fmt.Errorf("list element %d: %w", i, err)
			}
			items[i] = v
		}

		return Value{kind: KindList, list: items}, nil
	case map[string]string:
		keys := sortedKeys(t)
		b := NewMapBuilder(len(keys))
		for _, k := range keys {
			b.Set(k, Text(t[k]))
		}

		return b.Value(), nil
	case map[string]any:
		keys := sortedKeys(t)
		b := NewMapBuilder(len(keys))
		for _, k := range keys {
			v, err := Of(t[k])
			if err != nil {
				return Value{}, fmt.Errorf("map key %q: %w", k, err)
			}
			b.Set(k, v)
		}

		return b.Value(), nil
	default:
		return Value{}, fmt.Errorf("%w: Go type %T", errs.ErrUnsupportedValue, x)
	}
}

// MustOf is like Of but panics on unsupported input. It is intended for tests and
// literals.
func MustOf(x any) Value {
	v, err := Of(x)
	if err != nil {
		panic(err)
	}

	return v
}

func uintValue(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return Value{}, fmt.Errorf("%w: integer %d overflows int64", errs.ErrUnsupportedValue, u)
	}

	return Int(int64(u)), nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	return keys
}
