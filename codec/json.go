package codec

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
)

// ToJSON renders v for humans: structs become objects keyed by field id,
// maps become arrays of [key, value] pairs, binaries become base64 strings.
func ToJSON(v Value) ([]byte, error) {
	return json.Marshal(plain(v))
}

// ToJSONIndent is ToJSON with indentation.
func ToJSONIndent(v Value) ([]byte, error) {
	return json.MarshalIndent(plain(v), "", "  ")
}

func plain(v Value) any {
	switch x := v.(type) {
	case nil:
		return nil
	case Bool:
		return bool(x)
	case Byte:
		return int8(x)
	case I16:
		return int16(x)
	case I32:
		return int32(x)
	case I64:
		return int64(x)
	case Double:
		return float64(x)
	case String:
		return string(x)
	case Binary:
		return base64.StdEncoding.EncodeToString(x)
	case *Struct:
		out := make(map[string]any, len(x.Fields))
		for _, f := range x.Fields {
			out[strconv.Itoa(int(f.ID))] = plain(f.Value)
		}
		return out
	case *Map:
		out := make([][2]any, 0, len(x.Entries))
		for _, e := range x.Entries {
			out = append(out, [2]any{plain(e.Key), plain(e.Value)})
		}
		return out
	case *List:
		return plainElems(x.Elems)
	case *Set:
		return plainElems(x.Elems)
	}
	return fmt.Sprintf("%v", v)
}

func plainElems(elems []Value) []any {
	out := make([]any, 0, len(elems))
	for _, e := range elems {
		out = append(out, plain(e))
	}
	return out
}
