package codec

import "math"

// Equal reports whether a and b hold the same wire value. String and Binary
// compare by bytes; doubles compare by bit pattern so NaN equals itself.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Type() != b.Type() {
		return false
	}
	switch x := a.(type) {
	case Bool, Byte, I16, I32, I64:
		return a == b
	case Double:
		y := b.(Double)
		return math.Float64bits(float64(x)) == math.Float64bits(float64(y))
	case String:
		return string(x) == string(bytesOf(b))
	case Binary:
		return string(x) == string(bytesOf(b))
	case *Struct:
		y := b.(*Struct)
		if len(x.Fields) != len(y.Fields) {
			return false
		}
		for i := range x.Fields {
			if x.Fields[i].ID != y.Fields[i].ID || !Equal(x.Fields[i].Value, y.Fields[i].Value) {
				return false
			}
		}
		return true
	case *Map:
		y := b.(*Map)
		if x.KeyType != y.KeyType || x.ValueType != y.ValueType || len(x.Entries) != len(y.Entries) {
			return false
		}
		for i := range x.Entries {
			if !Equal(x.Entries[i].Key, y.Entries[i].Key) || !Equal(x.Entries[i].Value, y.Entries[i].Value) {
				return false
			}
		}
		return true
	case *List:
		y := b.(*List)
		return x.ElemType == y.ElemType && equalElems(x.Elems, y.Elems)
	case *Set:
		y := b.(*Set)
		return x.ElemType == y.ElemType && equalElems(x.Elems, y.Elems)
	}
	return false
}

func equalElems(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func bytesOf(v Value) []byte {
	switch s := v.(type) {
	case String:
		return []byte(s)
	case Binary:
		return s
	}
	return nil
}
