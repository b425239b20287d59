package message

import (
	"async-rpc/codec"
	"async-rpc/protocol"
)

// ResultReader decodes the payload that follows a reply envelope.
type ResultReader interface {
	ReadResult(r protocol.Reader, maxDepth int) (any, error)
}

// ResultReaderFunc adapts a function to ResultReader.
type ResultReaderFunc func(r protocol.Reader, maxDepth int) (any, error)

func (f ResultReaderFunc) ReadResult(r protocol.Reader, maxDepth int) (any, error) {
	return f(r, maxDepth)
}

// GenericResult reads any result struct as codec values: field 0 is the
// return value (nil for void methods) and any other field is returned as a
// *DeclaredError.
var GenericResult ResultReader = ResultReaderFunc(ReadResult)

// ReadResult implements GenericResult.
func ReadResult(r protocol.Reader, maxDepth int) (any, error) {
	s, err := codec.ReadStruct(r, maxDepth)
	if err != nil {
		return nil, err
	}
	for _, f := range s.Fields {
		if f.ID != 0 {
			return nil, &DeclaredError{FieldID: f.ID, Value: f.Value}
		}
	}
	if v := s.Field(0); v != nil {
		return v, nil
	}
	return nil, nil
}

// Reply is a result struct a peer writes back: exactly one of Success or
// Declared is set, or neither for a void method.
type Reply struct {
	Success    codec.Value
	DeclaredID int16
	Declared   codec.Value
}

func (r *Reply) Write(w protocol.Writer) error {
	s := &codec.Struct{Name: "result"}
	switch {
	case r.Declared != nil:
		s.Set(r.DeclaredID, r.Declared)
	case r.Success != nil:
		s.Set(0, r.Success)
	}
	return s.Write(w)
}
