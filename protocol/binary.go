package protocol

import (
	"encoding/binary"
	"errors"
	"io"
	"math"

	"async-rpc/transport"
)

// BinaryProtocol encodes values in the fixed-width big-endian binary format.
//
// It is not safe for concurrent use: one protocol wraps one transport and
// each call owns its own pair.
type BinaryProtocol struct {
	trans transport.Transport
	cfg   Config
	buf   [8]byte
}

var _ Protocol = (*BinaryProtocol)(nil)

// NewBinaryProtocol wraps t. A nil cfg selects DefaultConfig.
func NewBinaryProtocol(t transport.Transport, cfg *Config) *BinaryProtocol {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &BinaryProtocol{trans: t, cfg: *cfg}
}

// Depth returns the nesting ceiling this protocol was configured with.
func (p *BinaryProtocol) Depth() int {
	return p.cfg.Depth()
}

func (p *BinaryProtocol) WriteMessageBegin(name string, kind MessageKind, seqID int32) error {
	if p.cfg.StrictWrite {
		if err := p.WriteI32(int32(Version1 | uint32(kind))); err != nil {
			return err
		}
		if err := p.WriteString(name); err != nil {
			return err
		}
		return p.WriteI32(seqID)
	}
	if err := p.WriteString(name); err != nil {
		return err
	}
	if err := p.WriteI8(int8(kind)); err != nil {
		return err
	}
	return p.WriteI32(seqID)
}

func (p *BinaryProtocol) WriteMessageEnd() error { return nil }

func (p *BinaryProtocol) WriteStructBegin(name string) error { return nil }

func (p *BinaryProtocol) WriteStructEnd() error { return nil }

func (p *BinaryProtocol) WriteFieldBegin(name string, typ TType, id int16) error {
	if err := p.WriteI8(int8(typ)); err != nil {
		return err
	}
	return p.WriteI16(id)
}

func (p *BinaryProtocol) WriteFieldEnd() error { return nil }

func (p *BinaryProtocol) WriteFieldStop() error {
	return p.WriteI8(int8(STOP))
}

func (p *BinaryProtocol) WriteMapBegin(keyType, valueType TType, size int) error {
	if err := p.WriteI8(int8(keyType)); err != nil {
		return err
	}
	if err := p.WriteI8(int8(valueType)); err != nil {
		return err
	}
	return p.writeSize(size)
}

func (p *BinaryProtocol) WriteMapEnd() error { return nil }

func (p *BinaryProtocol) WriteListBegin(elemType TType, size int) error {
	if err := p.WriteI8(int8(elemType)); err != nil {
		return err
	}
	return p.writeSize(size)
}

func (p *BinaryProtocol) WriteListEnd() error { return nil }

func (p *BinaryProtocol) WriteSetBegin(elemType TType, size int) error {
	return p.WriteListBegin(elemType, size)
}

func (p *BinaryProtocol) WriteSetEnd() error { return nil }

func (p *BinaryProtocol) WriteBool(v bool) error {
	if v {
		return p.WriteI8(1)
	}
	return p.WriteI8(0)
}

func (p *BinaryProtocol) WriteI8(v int8) error {
	p.buf[0] = byte(v)
	_, err := p.trans.Write(p.buf[:1])
	return err
}

func (p *BinaryProtocol) WriteI16(v int16) error {
	binary.BigEndian.PutUint16(p.buf[:2], uint16(v))
	_, err := p.trans.Write(p.buf[:2])
	return err
}

func (p *BinaryProtocol) WriteI32(v int32) error {
	binary.BigEndian.PutUint32(p.buf[:4], uint32(v))
	_, err := p.trans.Write(p.buf[:4])
	return err
}

func (p *BinaryProtocol) WriteI64(v int64) error {
	binary.BigEndian.PutUint64(p.buf[:8], uint64(v))
	_, err := p.trans.Write(p.buf[:8])
	return err
}

func (p *BinaryProtocol) WriteDouble(v float64) error {
	return p.WriteI64(int64(math.Float64bits(v)))
}

func (p *BinaryProtocol) WriteString(v string) error {
	if err := p.writeSize(len(v)); err != nil {
		return err
	}
	_, err := io.WriteString(p.trans, v)
	return err
}

func (p *BinaryProtocol) WriteBinary(v []byte) error {
	if err := p.writeSize(len(v)); err != nil {
		return err
	}
	_, err := p.trans.Write(v)
	return err
}

// Flush pushes everything written so far to the underlying channel.
func (p *BinaryProtocol) Flush() error {
	return p.trans.Flush()
}

func (p *BinaryProtocol) writeSize(size int) error {
	if size < 0 {
		return newError(NegativeSize, "cannot write size %d", size)
	}
	if size > math.MaxInt32 {
		return newError(SizeLimit, "size %d does not fit in i32", size)
	}
	return p.WriteI32(int32(size))
}

// ReadMessageBegin decodes either envelope form. A negative first word
// means the strict form and its version must be Version1; a non-negative
// word is the legacy name length and is refused under StrictRead.
func (p *BinaryProtocol) ReadMessageBegin() (name string, kind MessageKind, seqID int32, err error) {
	first, err := p.ReadI32()
	if err != nil {
		return "", 0, 0, err
	}
	if first < 0 {
		version := uint32(first) & VersionMask
		if version != Version1 {
			return "", 0, 0, newError(BadVersion, "bad version 0x%08x in message header", version)
		}
		kind = MessageKind(uint32(first) & kindMask)
		if name, err = p.ReadString(); err != nil {
			return "", 0, 0, err
		}
		if seqID, err = p.ReadI32(); err != nil {
			return "", 0, 0, err
		}
		return name, kind, seqID, nil
	}
	if p.cfg.StrictRead {
		return "", 0, 0, newError(BadVersion, "missing version in message header")
	}
	if name, err = p.readStringBody(int(first)); err != nil {
		return "", 0, 0, err
	}
	k, err := p.ReadI8()
	if err != nil {
		return "", 0, 0, err
	}
	if seqID, err = p.ReadI32(); err != nil {
		return "", 0, 0, err
	}
	return name, MessageKind(k), seqID, nil
}

func (p *BinaryProtocol) ReadMessageEnd() error { return nil }

func (p *BinaryProtocol) ReadStructBegin() (string, error) { return "", nil }

func (p *BinaryProtocol) ReadStructEnd() error { return nil }

func (p *BinaryProtocol) ReadFieldBegin() (name string, typ TType, id int16, err error) {
	t, err := p.ReadI8()
	if err != nil {
		return "", 0, 0, err
	}
	typ = TType(t)
	if typ == STOP {
		return "", STOP, 0, nil
	}
	id, err = p.ReadI16()
	return "", typ, id, err
}

func (p *BinaryProtocol) ReadFieldEnd() error { return nil }

func (p *BinaryProtocol) ReadMapBegin() (keyType, valueType TType, size int, err error) {
	k, err := p.ReadI8()
	if err != nil {
		return 0, 0, 0, err
	}
	v, err := p.ReadI8()
	if err != nil {
		return 0, 0, 0, err
	}
	// Every entry takes at least two bytes on the wire.
	size, err = p.readSize(2)
	return TType(k), TType(v), size, err
}

func (p *BinaryProtocol) ReadMapEnd() error { return nil }

func (p *BinaryProtocol) ReadListBegin() (elemType TType, size int, err error) {
	e, err := p.ReadI8()
	if err != nil {
		return 0, 0, err
	}
	size, err = p.readSize(1)
	return TType(e), size, err
}

func (p *BinaryProtocol) ReadListEnd() error { return nil }

func (p *BinaryProtocol) ReadSetBegin() (elemType TType, size int, err error) {
	return p.ReadListBegin()
}

func (p *BinaryProtocol) ReadSetEnd() error { return nil }

func (p *BinaryProtocol) ReadBool() (bool, error) {
	b, err := p.ReadI8()
	return b != 0, err
}

func (p *BinaryProtocol) ReadI8() (int8, error) {
	if err := p.readFull(p.buf[:1]); err != nil {
		return 0, err
	}
	return int8(p.buf[0]), nil
}

func (p *BinaryProtocol) ReadI16() (int16, error) {
	if err := p.readFull(p.buf[:2]); err != nil {
		return 0, err
	}
	return int16(binary.BigEndian.Uint16(p.buf[:2])), nil
}

func (p *BinaryProtocol) ReadI32() (int32, error) {
	if err := p.readFull(p.buf[:4]); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(p.buf[:4])), nil
}

func (p *BinaryProtocol) ReadI64() (int64, error) {
	if err := p.readFull(p.buf[:8]); err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(p.buf[:8])), nil
}

func (p *BinaryProtocol) ReadDouble() (float64, error) {
	v, err := p.ReadI64()
	return math.Float64frombits(uint64(v)), err
}

func (p *BinaryProtocol) ReadString() (string, error) {
	size, err := p.ReadI32()
	if err != nil {
		return "", err
	}
	return p.readStringBody(int(size))
}

func (p *BinaryProtocol) ReadBinary() ([]byte, error) {
	size, err := p.ReadI32()
	if err != nil {
		return nil, err
	}
	return p.readBytes(int(size))
}

func (p *BinaryProtocol) readStringBody(size int) (string, error) {
	b, err := p.readBytes(size)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (p *BinaryProtocol) readBytes(size int) ([]byte, error) {
	if size < 0 {
		return nil, newError(NegativeSize, "string length %d", size)
	}
	if p.cfg.MaxStringLength > 0 && size > p.cfg.MaxStringLength {
		return nil, newError(SizeLimit, "string length %d exceeds %d", size, p.cfg.MaxStringLength)
	}
	if r, ok := p.trans.(transport.Bounded); ok && size > r.RemainingBytes() {
		return nil, newError(InvalidData, "string length %d exceeds %d remaining bytes", size, r.RemainingBytes())
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(p.trans, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, newError(InvalidData, "string of length %d truncated", size)
		}
		return nil, err
	}
	return buf, nil
}

// readSize reads a collection count and checks it against the bytes the
// transport has left, assuming each element needs at least minElem bytes.
func (p *BinaryProtocol) readSize(minElem int) (int, error) {
	size, err := p.ReadI32()
	if err != nil {
		return 0, err
	}
	if size < 0 {
		return 0, newError(NegativeSize, "collection size %d", size)
	}
	if r, ok := p.trans.(transport.Bounded); ok && int64(size)*int64(minElem) > int64(r.RemainingBytes()) {
		return 0, newError(InvalidData, "collection size %d exceeds %d remaining bytes", size, r.RemainingBytes())
	}
	return int(size), nil
}

func (p *BinaryProtocol) readFull(buf []byte) error {
	_, err := io.ReadFull(p.trans, buf)
	return err
}
