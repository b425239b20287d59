package client

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"async-rpc/loadbalance"
	"async-rpc/message"
	"async-rpc/protocol"
	"async-rpc/registry"
	"async-rpc/transport"
)

// HandleOptions configures a Handle.
type HandleOptions struct {
	// Protocol configures the codec; nil selects protocol.DefaultConfig.
	Protocol *protocol.Config
	// MaxFrameSize bounds request and response frames; zero selects
	// transport.DefaultMaxFrameSize.
	MaxFrameSize int
	// Timeout is applied to every call; zero means no timeout.
	Timeout time.Duration
}

// Handle issues calls to one endpoint over one channel, one call at a time.
//
// The channel is opened by the first call and kept across successful calls.
// A transport, protocol or timeout failure closes it and leaves the handle
// in an error state in which it refuses further calls.
type Handle struct {
	submitter Submitter
	addr      string
	sock      *socket
	proto     *protocol.Config
	maxFrame  int
	seq       atomic.Int32

	mu      sync.Mutex
	timeout time.Duration
	current *Call
	err     error
}

// NewHandle resolves addr and returns a handle submitting through s.
func NewHandle(s Submitter, addr string, opts *HandleOptions) (*Handle, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("client: resolve %s: %w", addr, err)
	}
	if opts == nil {
		opts = &HandleOptions{}
	}
	h := &Handle{
		submitter: s,
		addr:      addr,
		sock:      newSocket(tcpAddr),
		proto:     opts.Protocol,
		maxFrame:  opts.MaxFrameSize,
		timeout:   opts.Timeout,
	}
	if h.proto == nil {
		h.proto = protocol.DefaultConfig()
	}
	if h.maxFrame <= 0 {
		h.maxFrame = transport.DefaultMaxFrameSize
	}
	return h, nil
}

// NewServiceHandle discovers the instances of service in reg and connects a
// handle to the one bal picks.
func NewServiceHandle(s Submitter, reg registry.Registry, bal loadbalance.Balancer, service string, opts *HandleOptions) (*Handle, error) {
	instances, err := reg.Discover(service)
	if err != nil {
		return nil, fmt.Errorf("client: discover %s: %w", service, err)
	}
	instance, err := bal.Pick(instances)
	if err != nil {
		return nil, fmt.Errorf("client: pick %s instance: %w", service, err)
	}
	return NewHandle(s, instance.Addr, opts)
}

// Addr returns the endpoint the handle talks to.
func (h *Handle) Addr() string { return h.addr }

// SetTimeout sets the timeout for subsequent calls; zero disables it.
func (h *Handle) SetTimeout(d time.Duration) {
	h.mu.Lock()
	h.timeout = d
	h.mu.Unlock()
}

// Timeout returns the timeout applied to new calls.
func (h *Handle) Timeout() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.timeout
}

// HasPendingError reports whether a previous call left the handle unusable.
func (h *Handle) HasPendingError() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err != nil
}

// LastError returns the error that left the handle unusable, if any.
func (h *Handle) LastError() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// CheckIdle fails if a call is in flight or the handle is in error.
func (h *Handle) CheckIdle() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.checkIdleLocked()
}

func (h *Handle) checkIdleLocked() error {
	if h.current != nil {
		return fmt.Errorf("%w: %s (seq %d)", ErrCallInProgress, h.current.method, h.current.seqID)
	}
	if h.err != nil {
		return fmt.Errorf("%w: %w", ErrHandleFailed, h.err)
	}
	return nil
}

// Call invokes method with args and delivers the decoded result to cb.
// A nil result reader selects message.GenericResult.
func (h *Handle) Call(method string, args protocol.Writable, result message.ResultReader, cb Callback) error {
	return h.issue(protocol.Call, method, args, result, cb)
}

// Oneway sends method with args; cb fires once the request is fully written.
func (h *Handle) Oneway(method string, args protocol.Writable, cb Callback) error {
	return h.issue(protocol.Oneway, method, args, nil, cb)
}

// Go is Call with the Result delivered on a buffered channel.
func (h *Handle) Go(method string, args protocol.Writable, result message.ResultReader) (<-chan Result, error) {
	ch := make(chan Result, 1)
	if err := h.Call(method, args, result, func(r Result) { ch <- r }); err != nil {
		return nil, err
	}
	return ch, nil
}

// Close closes the channel. It fails while a call is in flight.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current != nil {
		return ErrCallInProgress
	}
	return h.sock.close()
}

func (h *Handle) issue(kind protocol.MessageKind, method string, args protocol.Writable, result message.ResultReader, cb Callback) error {
	h.mu.Lock()
	if err := h.checkIdleLocked(); err != nil {
		h.mu.Unlock()
		return err
	}
	c := h.newCall(kind, method, args, result, cb)
	if err := c.Prepare(); err != nil {
		h.mu.Unlock()
		return err
	}
	h.current = c
	h.mu.Unlock()

	if err := h.submitter.Submit(c); err != nil {
		h.mu.Lock()
		if h.current == c {
			h.current = nil
		}
		h.mu.Unlock()
		return err
	}
	return nil
}

func (h *Handle) newCall(kind protocol.MessageKind, method string, args protocol.Writable, result message.ResultReader, cb Callback) *Call {
	c := &Call{
		handle:    h,
		sock:      h.sock,
		method:    method,
		kind:      kind,
		seqID:     h.seq.Add(1),
		args:      args,
		result:    result,
		proto:     h.proto,
		maxFrame:  h.maxFrame,
		callback:  cb,
		started:   time.Now(),
		state:     Created,
		heapIndex: -1,
	}
	c.SetTimeout(h.timeout)
	return c
}

// complete runs on the engine goroutine before the callback.
func (h *Handle) complete(c *Call, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current == c {
		h.current = nil
	}
	if err != nil && poisonsChannel(err) {
		h.err = err
	}
}
