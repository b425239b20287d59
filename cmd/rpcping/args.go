package main

import (
	"fmt"
	"strconv"
	"strings"

	"async-rpc/codec"
)

// parseArgs turns id:type=value flags into an argument struct.
func parseArgs(flags []string) (*codec.Struct, error) {
	args := &codec.Struct{Name: "args"}
	for _, arg := range flags {
		head, raw, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("argument %q: want id:type=value", arg)
		}
		idText, typ, ok := strings.Cut(head, ":")
		if !ok {
			return nil, fmt.Errorf("argument %q: want id:type=value", arg)
		}
		id, err := strconv.ParseInt(idText, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("argument %q: field id: %w", arg, err)
		}
		v, err := parseValue(typ, raw)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", arg, err)
		}
		args.Set(int16(id), v)
	}
	return args, nil
}

func parseValue(typ, raw string) (codec.Value, error) {
	switch typ {
	case "bool":
		b, err := strconv.ParseBool(raw)
		return codec.Bool(b), err
	case "byte":
		n, err := strconv.ParseInt(raw, 10, 8)
		return codec.Byte(n), err
	case "i16":
		n, err := strconv.ParseInt(raw, 10, 16)
		return codec.I16(n), err
	case "i32":
		n, err := strconv.ParseInt(raw, 10, 32)
		return codec.I32(n), err
	case "i64":
		n, err := strconv.ParseInt(raw, 10, 64)
		return codec.I64(n), err
	case "double":
		f, err := strconv.ParseFloat(raw, 64)
		return codec.Double(f), err
	case "string":
		return codec.String(raw), nil
	case "binary":
		return codec.Binary(raw), nil
	}
	return nil, fmt.Errorf("unknown type %q", typ)
}
