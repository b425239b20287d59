package client

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"async-rpc/message"
	"async-rpc/protocol"
	"async-rpc/transport"
)

// State is a call's position in its lifecycle.
//
//	Created → Connecting → WritingRequest → ReadingResponseSize → ReadingResponseBody → Done
//	                 any state ──────────────────────────────────────────────────────→ Error
//
// A call on a handle whose channel is already connected starts at WritingRequest.
type State int

const (
	Created State = iota
	Connecting
	WritingRequest
	ReadingResponseSize
	ReadingResponseBody
	Done
	Error
)

var stateNames = [...]string{
	Created:             "created",
	Connecting:          "connecting",
	WritingRequest:      "writing request",
	ReadingResponseSize: "reading response size",
	ReadingResponseBody: "reading response body",
	Done:                "done",
	Error:               "error",
}

func (s State) String() string {
	if int(s) >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Result is the single outcome delivered for a call: Err is nil on success.
type Result struct {
	Method  string
	SeqID   int32
	Value   any
	Err     error
	Elapsed time.Duration
}

// Callback receives a call's Result exactly once, on the engine goroutine.
// It must not block.
type Callback func(Result)

// Call is one in-flight asynchronous invocation. After Submit it belongs to
// the engine goroutine and must not be touched by the caller.
type Call struct {
	handle   *Handle
	sock     *socket
	method   string
	kind     protocol.MessageKind
	seqID    int32
	args     protocol.Writable
	result   message.ResultReader
	proto    *protocol.Config
	maxFrame int
	callback Callback

	started  time.Time
	timeout  time.Duration
	deadline time.Time

	state    State
	sendBuf  []byte
	sent     int
	sizeBuf  [transport.FrameHeaderSize]byte
	sizeRead int
	body     []byte
	bodyRead int

	value     any
	err       error
	delivered bool

	admitted  uint64
	heapIndex int
}

// Method returns the invoked method name.
func (c *Call) Method() string { return c.method }

// SeqID returns the envelope sequence id.
func (c *Call) SeqID() int32 { return c.seqID }

// Kind returns protocol.Call or protocol.Oneway.
func (c *Call) Kind() protocol.MessageKind { return c.kind }

// State returns the lifecycle state.
func (c *Call) State() State { return c.state }

// Timeout returns the configured timeout; zero means none.
func (c *Call) Timeout() time.Duration { return c.timeout }

// SetTimeout sets the deadline to d after the call was created. Zero or
// negative removes the deadline. It has no effect once the call is submitted.
func (c *Call) SetTimeout(d time.Duration) {
	if d <= 0 {
		c.timeout = 0
		c.deadline = time.Time{}
		return
	}
	c.timeout = d
	c.deadline = c.started.Add(d)
}

// Deadline returns when the call times out and whether it has a deadline.
func (c *Call) Deadline() (time.Time, bool) {
	return c.deadline, c.timeout > 0
}

// IsTerminal reports whether the call reached Done or Error.
func (c *Call) IsTerminal() bool {
	return c.state == Done || c.state == Error
}

// WrapCallback replaces the callback with wrap(current). Middleware uses it
// to observe completion.
func (c *Call) WrapCallback(wrap func(next Callback) Callback) {
	c.callback = wrap(c.callback)
}

// Prepare serializes the envelope and arguments as one frame so that no
// partially built request is ever sent.
func (c *Call) Prepare() error {
	buf := transport.NewBuffer(nil)
	p := protocol.NewBinaryProtocol(transport.NewFramed(buf, c.maxFrame), c.proto)
	if err := p.WriteMessageBegin(c.method, c.kind, c.seqID); err != nil {
		return err
	}
	if c.args != nil {
		if err := c.args.Write(p); err != nil {
			return err
		}
	} else {
		if err := p.WriteStructBegin("args"); err != nil {
			return err
		}
		if err := p.WriteFieldStop(); err != nil {
			return err
		}
		if err := p.WriteStructEnd(); err != nil {
			return err
		}
	}
	if err := p.WriteMessageEnd(); err != nil {
		return err
	}
	if err := p.Flush(); err != nil {
		return err
	}
	if size := buf.Len() - transport.FrameHeaderSize; c.maxFrame > 0 && size > c.maxFrame {
		return &protocol.ProtocolError{Kind: protocol.SizeLimit, Msg: fmt.Sprintf("request frame %d exceeds %d", size, c.maxFrame)}
	}
	c.sendBuf = buf.Bytes()
	return nil
}

// start registers the call's channel, opening it first if needed.
func (c *Call) start(p *poller) error {
	if c.sendBuf == nil {
		if err := c.Prepare(); err != nil {
			return err
		}
	}
	if c.sock.isOpen() {
		c.state = WritingRequest
	} else {
		if err := c.sock.open(); err != nil {
			return c.transportError("connect", err)
		}
		c.state = Connecting
	}
	if err := p.add(c.sock.fd, writable); err != nil {
		return c.transportError("register", err)
	}
	return nil
}

// advance moves the state machine as far as the channel allows without
// blocking.
func (c *Call) advance(ready readiness, p *poller) {
	for {
		switch c.state {
		case Connecting:
			if !ready.has(writable | hangup | failure) {
				return
			}
			if err := c.sock.finishConnect(); err != nil {
				c.fail(c.transportError("connect", err))
				return
			}
			c.state = WritingRequest

		case WritingRequest:
			done, err := c.writeRequest()
			if err != nil {
				c.fail(c.transportError("write", err))
				return
			}
			if !done {
				return
			}
			if c.kind == protocol.Oneway {
				c.succeed(nil)
				return
			}
			if err := p.modify(c.sock.fd, readable); err != nil {
				c.fail(c.transportError("register", err))
				return
			}
			c.state = ReadingResponseSize
			return

		case ReadingResponseSize:
			done, err := c.readInto(c.sizeBuf[:], &c.sizeRead)
			if err != nil {
				c.fail(c.transportError("read", err))
				return
			}
			if !done {
				return
			}
			size := int32(binary.BigEndian.Uint32(c.sizeBuf[:]))
			if size < 0 {
				c.fail(&protocol.ProtocolError{Kind: protocol.NegativeSize, Msg: fmt.Sprintf("response frame size %d", size)})
				return
			}
			if c.maxFrame > 0 && int(size) > c.maxFrame {
				c.fail(&protocol.ProtocolError{Kind: protocol.SizeLimit, Msg: fmt.Sprintf("response frame size %d exceeds %d", size, c.maxFrame)})
				return
			}
			c.body = make([]byte, size)
			c.state = ReadingResponseBody

		case ReadingResponseBody:
			done, err := c.readInto(c.body, &c.bodyRead)
			if err != nil {
				c.fail(c.transportError("read", err))
				return
			}
			if !done {
				return
			}
			c.decodeResponse()
			return

		default:
			return
		}
	}
}

func (c *Call) writeRequest() (bool, error) {
	for c.sent < len(c.sendBuf) {
		n, err := c.sock.write(c.sendBuf[c.sent:])
		c.sent += n
		if err != nil {
			if wouldBlock(err) {
				return false, nil
			}
			return false, err
		}
	}
	return true, nil
}

// readInto fills buf from the channel, tracking progress in *off across
// readiness events.
func (c *Call) readInto(buf []byte, off *int) (bool, error) {
	for *off < len(buf) {
		n, err := c.sock.read(buf[*off:])
		if err != nil {
			if wouldBlock(err) {
				return false, nil
			}
			return false, err
		}
		if n == 0 {
			return false, io.ErrUnexpectedEOF
		}
		*off += n
	}
	return true, nil
}

func (c *Call) decodeResponse() {
	p := protocol.NewBinaryProtocol(transport.NewBuffer(c.body), c.proto)
	depth := p.Depth()
	_, kind, _, err := p.ReadMessageBegin()
	if err != nil {
		c.fail(decodeError(err))
		return
	}
	switch kind {
	case protocol.Reply:
		reader := c.result
		if reader == nil {
			reader = message.GenericResult
		}
		v, err := reader.ReadResult(p, depth)
		if err != nil {
			if Classify(err) == ApplicationClass {
				c.finishWith(nil, err)
				return
			}
			c.fail(decodeError(err))
			return
		}
		if err := p.ReadMessageEnd(); err != nil {
			c.fail(decodeError(err))
			return
		}
		c.succeed(v)
	case protocol.Exception:
		appErr, err := message.ReadApplicationError(p, depth)
		if err != nil {
			c.fail(decodeError(err))
			return
		}
		c.finishWith(nil, appErr)
	default:
		c.fail(&protocol.ProtocolError{Kind: protocol.InvalidData, Msg: fmt.Sprintf("unexpected %s envelope in response", kind)})
	}
}

// decodeError turns a short read of a complete frame into a protocol error.
func decodeError(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &protocol.ProtocolError{Kind: protocol.InvalidData, Msg: "response frame truncated"}
	}
	return err
}

func (c *Call) transportError(op string, err error) error {
	return &TransportError{Op: op, Addr: c.sock.addr.String(), Err: err}
}

func (c *Call) succeed(v any) {
	c.finishWith(v, nil)
}

// finishWith completes the call with a decoded outcome; the channel stays
// usable because the response was consumed exactly.
func (c *Call) finishWith(v any, err error) {
	if c.IsTerminal() {
		return
	}
	c.value, c.err = v, err
	c.state = Done
}

// fail moves the call to Error. The engine closes the channel before the
// callback runs.
func (c *Call) fail(err error) {
	if c.IsTerminal() {
		return
	}
	c.value, c.err = nil, err
	c.state = Error
}

// outcome builds the value handed to the callback.
func (c *Call) outcome(now time.Time) Result {
	return Result{
		Method:  c.method,
		SeqID:   c.seqID,
		Value:   c.value,
		Err:     c.err,
		Elapsed: now.Sub(c.started),
	}
}
