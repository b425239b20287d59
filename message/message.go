// Package message defines the payloads exchanged in reply envelopes.
//
// A reply carries either a result struct or, under the exception envelope
// kind, an ApplicationError:
//
//   - Reply:     result struct; field 0 holds the return value, any other
//     field holds an exception declared by the method contract.
//   - Exception: struct{1: string message, 2: i32 kind}.
package message

import (
	"fmt"

	"async-rpc/codec"
	"async-rpc/protocol"
)

// ApplicationErrorKind classifies a generic remote failure.
type ApplicationErrorKind int32

const (
	UnknownApplicationError ApplicationErrorKind = 0
	UnknownMethod           ApplicationErrorKind = 1
	InvalidMessageType      ApplicationErrorKind = 2
	WrongMethodName         ApplicationErrorKind = 3
	BadSequenceID           ApplicationErrorKind = 4
	MissingResult           ApplicationErrorKind = 5
	InternalError           ApplicationErrorKind = 6
	ProtocolError           ApplicationErrorKind = 7
	InvalidTransform        ApplicationErrorKind = 8
	InvalidProtocol         ApplicationErrorKind = 9
	UnsupportedClientType   ApplicationErrorKind = 10
)

var applicationErrorNames = map[ApplicationErrorKind]string{
	UnknownApplicationError: "unknown",
	UnknownMethod:           "unknown method",
	InvalidMessageType:      "invalid message type",
	WrongMethodName:         "wrong method name",
	BadSequenceID:           "bad sequence id",
	MissingResult:           "missing result",
	InternalError:           "internal error",
	ProtocolError:           "protocol error",
	InvalidTransform:        "invalid transform",
	InvalidProtocol:         "invalid protocol",
	UnsupportedClientType:   "unsupported client type",
}

func (k ApplicationErrorKind) String() string {
	if name, ok := applicationErrorNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ApplicationErrorKind(%d)", int32(k))
}

// ApplicationError is a generic failure reported by the remote side.
type ApplicationError struct {
	Kind    ApplicationErrorKind
	Message string
}

func (e *ApplicationError) Error() string {
	if e.Message == "" {
		return "application error: " + e.Kind.String()
	}
	return fmt.Sprintf("application error (%s): %s", e.Kind, e.Message)
}

// Write encodes e as an exception payload.
func (e *ApplicationError) Write(w protocol.Writer) error {
	s := &codec.Struct{Name: "ApplicationError"}
	if e.Message != "" {
		s.Set(1, codec.String(e.Message))
	}
	s.Set(2, codec.I32(e.Kind))
	return s.Write(w)
}

// ReadApplicationError decodes an exception payload, skipping unknown fields.
func ReadApplicationError(r protocol.Reader, maxDepth int) (*ApplicationError, error) {
	if _, err := r.ReadStructBegin(); err != nil {
		return nil, err
	}
	e := &ApplicationError{}
	for {
		_, typ, id, err := r.ReadFieldBegin()
		if err != nil {
			return nil, err
		}
		if typ == protocol.STOP {
			break
		}
		switch {
		case id == 1 && typ == protocol.STRING:
			if e.Message, err = r.ReadString(); err != nil {
				return nil, err
			}
		case id == 2 && typ == protocol.I32:
			kind, err := r.ReadI32()
			if err != nil {
				return nil, err
			}
			e.Kind = ApplicationErrorKind(kind)
		default:
			if err := protocol.Skip(r, typ, maxDepth-1); err != nil {
				return nil, err
			}
		}
		if err := r.ReadFieldEnd(); err != nil {
			return nil, err
		}
	}
	return e, r.ReadStructEnd()
}

// DeclaredError is an exception the method contract declares, delivered in
// a non-zero field of the result struct.
type DeclaredError struct {
	FieldID int16
	Value   codec.Value
}

func (e *DeclaredError) Error() string {
	text, err := codec.ToJSON(e.Value)
	if err != nil {
		return fmt.Sprintf("declared exception in field %d", e.FieldID)
	}
	return fmt.Sprintf("declared exception in field %d: %s", e.FieldID, text)
}
