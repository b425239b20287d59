// Package protocol implements the binary wire protocol used by async-rpc.
//
// Every value on the wire is identified by a one-byte type tag. Integers are
// fixed-width big-endian, doubles are the big-endian IEEE-754 bit pattern, and
// strings/binaries carry a 4-byte length prefix. A message is wrapped in an
// envelope:
//
//	strict:  ┌───────────────────────┬──────────────┬────────┐
//	         │ 0x8001 0000 | kind i32 │ name string  │ seq i32│
//	         └───────────────────────┴──────────────┴────────┘
//	legacy:  ┌──────────────┬─────────┬────────┐
//	         │ name string  │ kind i8 │ seq i32│
//	         └──────────────┴─────────┴────────┘
//
// Structs have no begin marker on the wire: fields are written as
// (tag i8, id i16, value) and the struct ends with a STOP tag.
package protocol

import "fmt"

// TType is the wire type tag of a serialized value.
type TType byte

const (
	STOP   TType = 0
	VOID   TType = 1
	BOOL   TType = 2
	BYTE   TType = 3
	DOUBLE TType = 4
	I16    TType = 6
	I32    TType = 8
	I64    TType = 10
	STRING TType = 11
	STRUCT TType = 12
	MAP    TType = 13
	SET    TType = 14
	LIST   TType = 15
)

var typeNames = map[TType]string{
	STOP:   "STOP",
	VOID:   "VOID",
	BOOL:   "BOOL",
	BYTE:   "BYTE",
	DOUBLE: "DOUBLE",
	I16:    "I16",
	I32:    "I32",
	I64:    "I64",
	STRING: "STRING",
	STRUCT: "STRUCT",
	MAP:    "MAP",
	SET:    "SET",
	LIST:   "LIST",
}

func (t TType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TType(%d)", byte(t))
}

// Valid reports whether t is a tag a value can carry.
func (t TType) Valid() bool {
	_, ok := typeNames[t]
	return ok && t != STOP && t != VOID
}

// MessageKind distinguishes the four envelope kinds.
type MessageKind byte

const (
	Call      MessageKind = 1 // Client → Server request expecting a reply
	Reply     MessageKind = 2 // Server → Client normal reply
	Exception MessageKind = 3 // Server → Client application exception
	Oneway    MessageKind = 4 // Client → Server request with no reply
)

func (k MessageKind) String() string {
	switch k {
	case Call:
		return "call"
	case Reply:
		return "reply"
	case Exception:
		return "exception"
	case Oneway:
		return "oneway"
	}
	return fmt.Sprintf("MessageKind(%d)", byte(k))
}

// Version marker carried in the high 16 bits of a strict envelope.
const (
	VersionMask uint32 = 0xffff0000
	Version1    uint32 = 0x80010000
	kindMask    uint32 = 0x000000ff
)
