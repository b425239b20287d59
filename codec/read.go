package codec

import (
	"unicode/utf8"

	"async-rpc/protocol"
)

// Read decodes one value of type typ. Composites consume one unit of
// maxDepth per level, matching protocol.Skip.
//
// STRING payloads that are valid UTF-8 come back as String, anything else as
// Binary; Equal treats the two as the same bytes.
func Read(r protocol.Reader, typ protocol.TType, maxDepth int) (Value, error) {
	switch typ {
	case protocol.STRUCT, protocol.MAP, protocol.SET, protocol.LIST:
		if maxDepth <= 0 {
			return nil, &protocol.ProtocolError{Kind: protocol.DepthLimit, Msg: "cannot enter " + typ.String()}
		}
	}
	switch typ {
	case protocol.BOOL:
		v, err := r.ReadBool()
		return Bool(v), err
	case protocol.BYTE:
		v, err := r.ReadI8()
		return Byte(v), err
	case protocol.I16:
		v, err := r.ReadI16()
		return I16(v), err
	case protocol.I32:
		v, err := r.ReadI32()
		return I32(v), err
	case protocol.I64:
		v, err := r.ReadI64()
		return I64(v), err
	case protocol.DOUBLE:
		v, err := r.ReadDouble()
		return Double(v), err
	case protocol.STRING:
		b, err := r.ReadBinary()
		if err != nil {
			return nil, err
		}
		if utf8.Valid(b) {
			return String(b), nil
		}
		return Binary(b), nil
	case protocol.STRUCT:
		return ReadStruct(r, maxDepth)
	case protocol.MAP:
		keyType, valueType, size, err := r.ReadMapBegin()
		if err != nil {
			return nil, err
		}
		m := &Map{KeyType: keyType, ValueType: valueType, Entries: make([]MapEntry, 0, size)}
		for i := 0; i < size; i++ {
			k, err := Read(r, keyType, maxDepth-1)
			if err != nil {
				return nil, err
			}
			v, err := Read(r, valueType, maxDepth-1)
			if err != nil {
				return nil, err
			}
			m.Entries = append(m.Entries, MapEntry{Key: k, Value: v})
		}
		return m, r.ReadMapEnd()
	case protocol.SET:
		elemType, size, err := r.ReadSetBegin()
		if err != nil {
			return nil, err
		}
		elems, err := readElems(r, elemType, size, maxDepth-1)
		if err != nil {
			return nil, err
		}
		return &Set{ElemType: elemType, Elems: elems}, r.ReadSetEnd()
	case protocol.LIST:
		elemType, size, err := r.ReadListBegin()
		if err != nil {
			return nil, err
		}
		elems, err := readElems(r, elemType, size, maxDepth-1)
		if err != nil {
			return nil, err
		}
		return &List{ElemType: elemType, Elems: elems}, r.ReadListEnd()
	}
	return nil, &protocol.ProtocolError{Kind: protocol.UnknownType, Msg: "cannot read " + typ.String()}
}

// ReadStruct decodes a struct body up to and including its STOP tag.
func ReadStruct(r protocol.Reader, maxDepth int) (*Struct, error) {
	if maxDepth <= 0 {
		return nil, &protocol.ProtocolError{Kind: protocol.DepthLimit, Msg: "cannot enter STRUCT"}
	}
	name, err := r.ReadStructBegin()
	if err != nil {
		return nil, err
	}
	s := &Struct{Name: name}
	for {
		_, typ, id, err := r.ReadFieldBegin()
		if err != nil {
			return nil, err
		}
		if typ == protocol.STOP {
			break
		}
		v, err := Read(r, typ, maxDepth-1)
		if err != nil {
			return nil, err
		}
		s.Fields = append(s.Fields, Field{ID: id, Value: v})
		if err := r.ReadFieldEnd(); err != nil {
			return nil, err
		}
	}
	return s, r.ReadStructEnd()
}

func readElems(r protocol.Reader, elemType protocol.TType, size, maxDepth int) ([]Value, error) {
	elems := make([]Value, 0, size)
	for i := 0; i < size; i++ {
		v, err := Read(r, elemType, maxDepth)
		if err != nil {
			return nil, err
		}
		elems = append(elems, v)
	}
	return elems, nil
}
