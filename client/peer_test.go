package client

import (
	"bytes"
	"net"
	"sync"
	"sync/atomic"
	"testing"

	"async-rpc/codec"
	"async-rpc/message"
	"async-rpc/protocol"
	"async-rpc/transport"
)

// peerRequest is one decoded request as the peer saw it.
type peerRequest struct {
	Name string
	Kind protocol.MessageKind
	Seq  int32
	Args *codec.Struct
}

// peerConn answers requests on one accepted connection.
type peerConn struct {
	stream *transport.Stream
	proto  *protocol.BinaryProtocol
}

func (pc *peerConn) reply(req *peerRequest, kind protocol.MessageKind, body protocol.Writable) error {
	frame, err := encodeFrame(req, kind, body)
	if err != nil {
		return err
	}
	return pc.raw(frame)
}

// raw writes b to the connection without framing.
func (pc *peerConn) raw(b []byte) error {
	if _, err := pc.stream.Write(b); err != nil {
		return err
	}
	return pc.stream.Flush()
}

// encodeFrame returns the framed wire bytes of a response to req.
func encodeFrame(req *peerRequest, kind protocol.MessageKind, body protocol.Writable) ([]byte, error) {
	var buf bytes.Buffer
	p := protocol.NewBinaryProtocol(transport.NewFramed(&buf, 0), nil)
	if err := p.WriteMessageBegin(req.Name, kind, req.Seq); err != nil {
		return nil, err
	}
	if err := body.Write(p); err != nil {
		return nil, err
	}
	if err := p.WriteMessageEnd(); err != nil {
		return nil, err
	}
	if err := p.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// peerHandler answers req. Returning false closes the connection.
type peerHandler func(pc *peerConn, req *peerRequest) bool

// peerServer is a blocking loopback server speaking the framed binary
// protocol: one goroutine per connection reads frames sequentially and
// hands each request to the handler.
type peerServer struct {
	listener net.Listener
	handler  peerHandler
	accepted atomic.Int32
	received chan *peerRequest

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

func startPeer(t *testing.T, h peerHandler) *peerServer {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ps := &peerServer{
		listener: l,
		handler:  h,
		received: make(chan *peerRequest, 64),
		conns:    make(map[net.Conn]struct{}),
	}
	go ps.serve()
	t.Cleanup(ps.close)
	return ps
}

func (ps *peerServer) Addr() string { return ps.listener.Addr().String() }

func (ps *peerServer) serve() {
	for {
		conn, err := ps.listener.Accept()
		if err != nil {
			return
		}
		ps.accepted.Add(1)
		ps.mu.Lock()
		ps.conns[conn] = struct{}{}
		ps.mu.Unlock()
		go ps.handleConn(conn)
	}
}

func (ps *peerServer) handleConn(conn net.Conn) {
	defer func() {
		ps.mu.Lock()
		delete(ps.conns, conn)
		ps.mu.Unlock()
		conn.Close()
	}()
	stream := transport.NewStream(conn)
	pc := &peerConn{stream: stream, proto: protocol.NewBinaryProtocol(transport.NewFramed(stream, 0), nil)}
	for {
		name, kind, seq, err := pc.proto.ReadMessageBegin()
		if err != nil {
			return
		}
		args, err := codec.ReadStruct(pc.proto, pc.proto.Depth())
		if err != nil {
			return
		}
		req := &peerRequest{Name: name, Kind: kind, Seq: seq, Args: args}
		select {
		case ps.received <- req:
		default:
		}
		if !ps.handler(pc, req) {
			return
		}
	}
}

func (ps *peerServer) close() {
	ps.listener.Close()
	ps.mu.Lock()
	defer ps.mu.Unlock()
	for conn := range ps.conns {
		conn.Close()
	}
}

// echoHandler returns field 1 of the arguments and ignores oneway requests.
func echoHandler(pc *peerConn, req *peerRequest) bool {
	if req.Kind == protocol.Oneway {
		return true
	}
	return pc.reply(req, protocol.Reply, &message.Reply{Success: req.Args.Field(1)}) == nil
}

// silentHandler reads requests and never answers.
func silentHandler(pc *peerConn, req *peerRequest) bool {
	return true
}
