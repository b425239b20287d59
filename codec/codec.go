package codec

import (
	"async-rpc/protocol"
	"async-rpc/transport"
)

// Codec turns values into bytes and back.
type Codec interface {
	Encode(v Value) ([]byte, error)
	Decode(data []byte, typ protocol.TType) (Value, error)
}

// BinaryCodec encodes values with protocol.BinaryProtocol over an in-memory buffer.
type BinaryCodec struct {
	Config *protocol.Config // nil selects protocol.DefaultConfig
}

var _ Codec = (*BinaryCodec)(nil)

func (c *BinaryCodec) Encode(v Value) ([]byte, error) {
	buf := transport.NewBuffer(nil)
	p := protocol.NewBinaryProtocol(buf, c.Config)
	if err := v.Write(p); err != nil {
		return nil, err
	}
	if err := p.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *BinaryCodec) Decode(data []byte, typ protocol.TType) (Value, error) {
	p := protocol.NewBinaryProtocol(transport.NewBuffer(data), c.Config)
	return Read(p, typ, p.Depth())
}
