package client

import (
	"errors"
	"fmt"
	"time"

	"async-rpc/message"
	"async-rpc/protocol"
	"async-rpc/transport"
)

var (
	// ErrEngineNotRunning is returned by Submit once the engine has stopped.
	ErrEngineNotRunning = errors.New("client: engine is not running")
	// ErrCallInProgress is returned when a handle already has a call in flight.
	ErrCallInProgress = errors.New("client: handle is already executing a call")
	// ErrHandleFailed is returned by a handle whose last call left its channel unusable.
	ErrHandleFailed = errors.New("client: handle has a pending error")
	// ErrUnsupported is returned where no readiness multiplexer is available.
	ErrUnsupported = errors.New("client: readiness multiplexing is not supported on this platform")
)

// TransportError wraps a failure of the call's channel.
type TransportError struct {
	Op   string // "connect", "register", "read", "write"
	Addr string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("client: %s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// TimeoutError is delivered when a call's deadline passes before it finishes.
type TimeoutError struct {
	Method  string
	SeqID   int32
	Elapsed time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("client: %s (seq %d) timed out after %s", e.Method, e.SeqID, e.Elapsed)
}

// Timeout reports true, matching net.Error.
func (e *TimeoutError) Timeout() bool { return true }

// PanicError is delivered when driving a call panicked inside the engine,
// for example in a ResultReader. It counts as a transport failure.
type PanicError struct {
	Method string
	SeqID  int32
	Value  any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("client: %s (seq %d) panicked: %v", e.Method, e.SeqID, e.Value)
}

// ErrorClass is the coarse category of a call failure.
type ErrorClass int

const (
	NoError ErrorClass = iota
	TransportClass
	ProtocolClass
	TimeoutClass
	ApplicationClass
)

func (c ErrorClass) String() string {
	switch c {
	case NoError:
		return "none"
	case TransportClass:
		return "transport"
	case ProtocolClass:
		return "protocol"
	case TimeoutClass:
		return "timeout"
	case ApplicationClass:
		return "application"
	}
	return fmt.Sprintf("ErrorClass(%d)", int(c))
}

// Classify sorts err into the four failure classes. Errors not produced by
// this package or its codec count as transport failures.
func Classify(err error) ErrorClass {
	if err == nil {
		return NoError
	}
	var (
		timeoutErr  *TimeoutError
		protoErr    *protocol.ProtocolError
		appErr      *message.ApplicationError
		declaredErr *message.DeclaredError
	)
	switch {
	case errors.As(err, &timeoutErr):
		return TimeoutClass
	case errors.As(err, &appErr), errors.As(err, &declaredErr):
		return ApplicationClass
	case errors.As(err, &protoErr), errors.Is(err, transport.ErrFrameSize):
		return ProtocolClass
	}
	return TransportClass
}

// poisonsChannel reports whether err leaves the channel in an unknown position.
func poisonsChannel(err error) bool {
	switch Classify(err) {
	case TransportClass, ProtocolClass, TimeoutClass:
		return true
	}
	return false
}
