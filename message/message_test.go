package message

import (
	"errors"
	"testing"

	"async-rpc/codec"
	"async-rpc/protocol"
	"async-rpc/transport"
)

func newBuffer() (*protocol.BinaryProtocol, *transport.Buffer) {
	buf := transport.NewBuffer(nil)
	return protocol.NewBinaryProtocol(buf, nil), buf
}

func TestApplicationErrorRoundTrip(t *testing.T) {
	p, _ := newBuffer()
	in := &ApplicationError{Kind: UnknownMethod, Message: "no such method: frob"}
	if err := in.Write(p); err != nil {
		t.Fatal(err)
	}
	out, err := ReadApplicationError(p, protocol.DefaultMaxDepth)
	if err != nil {
		t.Fatalf("ReadApplicationError failed: %v", err)
	}
	if *out != *in {
		t.Fatalf("got %+v, want %+v", out, in)
	}
	if out.Error() != "application error (unknown method): no such method: frob" {
		t.Fatalf("unexpected message %q", out.Error())
	}
}

func TestApplicationErrorSkipsUnknownFields(t *testing.T) {
	p, _ := newBuffer()
	s := &codec.Struct{Fields: []codec.Field{
		{ID: 1, Value: codec.String("boom")},
		{ID: 5, Value: &codec.List{ElemType: protocol.I32, Elems: []codec.Value{codec.I32(1)}}},
		{ID: 2, Value: codec.I32(int32(InternalError))},
	}}
	if err := s.Write(p); err != nil {
		t.Fatal(err)
	}
	p.WriteI32(42)

	e, err := ReadApplicationError(p, protocol.DefaultMaxDepth)
	if err != nil {
		t.Fatalf("ReadApplicationError failed: %v", err)
	}
	if e.Kind != InternalError || e.Message != "boom" {
		t.Fatalf("got %+v", e)
	}
	if v, err := p.ReadI32(); err != nil || v != 42 {
		t.Fatalf("stream not positioned after the payload: %d, %v", v, err)
	}
}

func TestApplicationErrorKindString(t *testing.T) {
	if UnsupportedClientType.String() != "unsupported client type" {
		t.Fatalf("got %q", UnsupportedClientType.String())
	}
	if ApplicationErrorKind(99).String() != "ApplicationErrorKind(99)" {
		t.Fatalf("got %q", ApplicationErrorKind(99).String())
	}
}

func TestReadResultSuccess(t *testing.T) {
	p, _ := newBuffer()
	(&Reply{Success: codec.String("pong")}).Write(p)
	v, err := GenericResult.ReadResult(p, protocol.DefaultMaxDepth)
	if err != nil {
		t.Fatalf("ReadResult failed: %v", err)
	}
	if !codec.Equal(v.(codec.Value), codec.String("pong")) {
		t.Fatalf("got %v, want pong", v)
	}
}

func TestReadResultVoid(t *testing.T) {
	p, _ := newBuffer()
	(&Reply{}).Write(p)
	v, err := ReadResult(p, protocol.DefaultMaxDepth)
	if err != nil || v != nil {
		t.Fatalf("void result = %v, %v; want nil, nil", v, err)
	}
}

func TestReadResultDeclared(t *testing.T) {
	p, _ := newBuffer()
	exc := &codec.Struct{Fields: []codec.Field{{ID: 1, Value: codec.String("not found")}}}
	(&Reply{DeclaredID: 1, Declared: exc}).Write(p)

	_, err := ReadResult(p, protocol.DefaultMaxDepth)
	var declared *DeclaredError
	if !errors.As(err, &declared) {
		t.Fatalf("expect *DeclaredError, got %v", err)
	}
	if declared.FieldID != 1 || !codec.Equal(declared.Value, exc) {
		t.Fatalf("got field %d value %v", declared.FieldID, declared.Value)
	}
	if declared.Error() != `declared exception in field 1: {"1":"not found"}` {
		t.Fatalf("unexpected message %q", declared.Error())
	}
}

func TestReadResultTruncated(t *testing.T) {
	p := protocol.NewBinaryProtocol(transport.NewBuffer([]byte{byte(protocol.STRING), 0, 0, 0, 0, 0, 9, 'x'}), nil)
	_, err := ReadResult(p, protocol.DefaultMaxDepth)
	if !errors.Is(err, protocol.ErrInvalidData) {
		t.Fatalf("expect ErrInvalidData, got %v", err)
	}
}
