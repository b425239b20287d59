package protocol

import "fmt"

// ErrorKind classifies a protocol violation.
type ErrorKind int

const (
	UnknownError ErrorKind = iota
	InvalidData
	NegativeSize
	SizeLimit
	BadVersion
	DepthLimit
	UnknownType
)

var kindNames = [...]string{
	UnknownError: "unknown protocol error",
	InvalidData:  "invalid data",
	NegativeSize: "negative size",
	SizeLimit:    "size limit exceeded",
	BadVersion:   "bad version",
	DepthLimit:   "depth limit exceeded",
	UnknownType:  "unknown type",
}

func (k ErrorKind) String() string {
	if int(k) >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// ProtocolError reports malformed or unsupported wire data.
//
// The package-level sentinels carry only a Kind, so errors.Is(err, ErrDepthLimit)
// matches any ProtocolError of that kind regardless of its message.
type ProtocolError struct {
	Kind ErrorKind
	Msg  string
}

var (
	ErrInvalidData  = &ProtocolError{Kind: InvalidData}
	ErrNegativeSize = &ProtocolError{Kind: NegativeSize}
	ErrSizeLimit    = &ProtocolError{Kind: SizeLimit}
	ErrBadVersion   = &ProtocolError{Kind: BadVersion}
	ErrDepthLimit   = &ProtocolError{Kind: DepthLimit}
	ErrUnknownType  = &ProtocolError{Kind: UnknownType}
)

func (e *ProtocolError) Error() string {
	if e.Msg == "" {
		return "protocol: " + e.Kind.String()
	}
	return "protocol: " + e.Kind.String() + ": " + e.Msg
}

func (e *ProtocolError) Is(target error) bool {
	t, ok := target.(*ProtocolError)
	return ok && t.Msg == "" && t.Kind == e.Kind
}

func newError(kind ErrorKind, format string, args ...any) error {
	return &ProtocolError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
