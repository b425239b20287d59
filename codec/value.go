// Package codec models generic typed values and moves them through a protocol.
//
// A Value is a tagged union over the wire types. Generated stubs are not
// needed to talk to a service: arguments and results can be built and read
// as Structs of Values.
package codec

import (
	"fmt"

	"async-rpc/protocol"
)

// Value is one serializable value.
type Value interface {
	Type() protocol.TType
	Write(w protocol.Writer) error
}

type (
	Bool   bool
	Byte   int8
	I16    int16
	I32    int32
	I64    int64
	Double float64
	String string
	Binary []byte
)

func (Bool) Type() protocol.TType   { return protocol.BOOL }
func (Byte) Type() protocol.TType   { return protocol.BYTE }
func (I16) Type() protocol.TType    { return protocol.I16 }
func (I32) Type() protocol.TType    { return protocol.I32 }
func (I64) Type() protocol.TType    { return protocol.I64 }
func (Double) Type() protocol.TType { return protocol.DOUBLE }
func (String) Type() protocol.TType { return protocol.STRING }
func (Binary) Type() protocol.TType { return protocol.STRING }

func (v Bool) Write(w protocol.Writer) error   { return w.WriteBool(bool(v)) }
func (v Byte) Write(w protocol.Writer) error   { return w.WriteI8(int8(v)) }
func (v I16) Write(w protocol.Writer) error    { return w.WriteI16(int16(v)) }
func (v I32) Write(w protocol.Writer) error    { return w.WriteI32(int32(v)) }
func (v I64) Write(w protocol.Writer) error    { return w.WriteI64(int64(v)) }
func (v Double) Write(w protocol.Writer) error { return w.WriteDouble(float64(v)) }
func (v String) Write(w protocol.Writer) error { return w.WriteString(string(v)) }
func (v Binary) Write(w protocol.Writer) error { return w.WriteBinary([]byte(v)) }

// Field is one member of a Struct.
type Field struct {
	ID    int16
	Value Value
}

// Struct is an ordered list of fields terminated by STOP on the wire.
type Struct struct {
	Name   string
	Fields []Field
}

func (*Struct) Type() protocol.TType { return protocol.STRUCT }

func (s *Struct) Write(w protocol.Writer) error {
	if err := w.WriteStructBegin(s.Name); err != nil {
		return err
	}
	for _, f := range s.Fields {
		if f.Value == nil {
			continue
		}
		if err := w.WriteFieldBegin("", f.Value.Type(), f.ID); err != nil {
			return err
		}
		if err := f.Value.Write(w); err != nil {
			return err
		}
		if err := w.WriteFieldEnd(); err != nil {
			return err
		}
	}
	if err := w.WriteFieldStop(); err != nil {
		return err
	}
	return w.WriteStructEnd()
}

// Field returns the value with the given id, or nil.
func (s *Struct) Field(id int16) Value {
	for _, f := range s.Fields {
		if f.ID == id {
			return f.Value
		}
	}
	return nil
}

// Set adds or replaces the field with the given id.
func (s *Struct) Set(id int16, v Value) {
	for i := range s.Fields {
		if s.Fields[i].ID == id {
			s.Fields[i].Value = v
			return
		}
	}
	s.Fields = append(s.Fields, Field{ID: id, Value: v})
}

// MapEntry is one key/value pair of a Map.
type MapEntry struct {
	Key   Value
	Value Value
}

// Map keeps entries in wire order.
type Map struct {
	KeyType   protocol.TType
	ValueType protocol.TType
	Entries   []MapEntry
}

func (*Map) Type() protocol.TType { return protocol.MAP }

func (m *Map) Write(w protocol.Writer) error {
	if err := w.WriteMapBegin(m.KeyType, m.ValueType, len(m.Entries)); err != nil {
		return err
	}
	for _, e := range m.Entries {
		if err := checkType(e.Key, m.KeyType); err != nil {
			return err
		}
		if err := checkType(e.Value, m.ValueType); err != nil {
			return err
		}
		if err := e.Key.Write(w); err != nil {
			return err
		}
		if err := e.Value.Write(w); err != nil {
			return err
		}
	}
	return w.WriteMapEnd()
}

// List is an ordered sequence of same-typed elements.
type List struct {
	ElemType protocol.TType
	Elems    []Value
}

func (*List) Type() protocol.TType { return protocol.LIST }

func (l *List) Write(w protocol.Writer) error {
	if err := w.WriteListBegin(l.ElemType, len(l.Elems)); err != nil {
		return err
	}
	if err := writeElems(w, l.ElemType, l.Elems); err != nil {
		return err
	}
	return w.WriteListEnd()
}

// Set has the same wire layout as List; uniqueness is the writer's concern.
type Set struct {
	ElemType protocol.TType
	Elems    []Value
}

func (*Set) Type() protocol.TType { return protocol.SET }

func (s *Set) Write(w protocol.Writer) error {
	if err := w.WriteSetBegin(s.ElemType, len(s.Elems)); err != nil {
		return err
	}
	if err := writeElems(w, s.ElemType, s.Elems); err != nil {
		return err
	}
	return w.WriteSetEnd()
}

func writeElems(w protocol.Writer, elemType protocol.TType, elems []Value) error {
	for _, e := range elems {
		if err := checkType(e, elemType); err != nil {
			return err
		}
		if err := e.Write(w); err != nil {
			return err
		}
	}
	return nil
}

func checkType(v Value, want protocol.TType) error {
	if v == nil {
		return fmt.Errorf("codec: nil element where %s expected", want)
	}
	if v.Type() != want {
		return fmt.Errorf("codec: %s element in %s collection", v.Type(), want)
	}
	return nil
}
