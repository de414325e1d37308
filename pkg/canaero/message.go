package canaero

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/gpgreen/ahrs/pkg/can"
)

// HeaderSize is the number of bytes preceding the payload.
const HeaderSize = 4

// ErrShortFrame is returned when a frame can not hold a message header.
var ErrShortFrame = errors.New("canaero: frame shorter than header")

// Message is a CANaerospace message.
// On the wire: node id, data type, service code, message code, payload (big-endian).
type Message struct {
	ID      uint32
	Node    uint8
	Type    DataType
	Service uint8
	Code    uint8
	Data    [4]byte
}

// Frame encodes the message.
func (m *Message) Frame() can.Frame {
	f := can.Frame{ID: m.ID, Len: uint8(HeaderSize + m.Type.Size())}
	f.Data[0], f.Data[1], f.Data[2], f.Data[3] = m.Node, byte(m.Type), m.Service, m.Code
	copy(f.Data[HeaderSize:], m.Data[:])
	return f
}

// DecodeMessage decodes a data frame.
func DecodeMessage(f can.Frame) (m Message, err error) {
	if f.Len < HeaderSize || f.RTR || f.Err {
		return m, ErrShortFrame
	}
	m.ID = f.ID
	m.Node, m.Type, m.Service, m.Code = f.Data[0], DataType(f.Data[1]), f.Data[2], f.Data[3]
	copy(m.Data[:], f.Data[HeaderSize:])
	return m, nil
}

// Payload returns the payload bytes covered by the data type.
func (m *Message) Payload() []byte {
	return m.Data[:m.Type.Size()]
}

// String formats the message with its decoded payload.
func (m Message) String() string {
	return fmt.Sprintf("id=%d node=%d svc=%d code=%d %s %s", m.ID, m.Node, m.Service, m.Code, m.Type, m.Value())
}

// Value renders the payload according to the data type.
func (m *Message) Value() string {
	d := m.Data[:]
	switch m.Type {
	case NODATA:
		return "-"
	case FLOAT:
		return fmt.Sprintf("%g", Float(d))
	case LONG:
		return fmt.Sprintf("%d", int32(binary.BigEndian.Uint32(d)))
	case ULONG:
		return fmt.Sprintf("%d", binary.BigEndian.Uint32(d))
	case SHORT:
		return fmt.Sprintf("%d", int16(binary.BigEndian.Uint16(d)))
	case USHORT:
		return fmt.Sprintf("%d", binary.BigEndian.Uint16(d))
	case USHORT2:
		a, b := UShort2(d)
		return fmt.Sprintf("%d,%d", a, b)
	case UCHAR, UCHAR2, UCHAR3, UCHAR4, CHAR, CHAR2, CHAR3, CHAR4:
		return fmt.Sprintf("%v", m.Payload())
	case ACHAR, ACHAR2, ACHAR3, ACHAR4:
		return fmt.Sprintf("%q", string(m.Payload()))
	default:
		return fmt.Sprintf("% X", m.Payload())
	}
}

// PutFloat packs an IEEE-754 single big-endian.
func PutFloat(b []byte, v float32) {
	binary.BigEndian.PutUint32(b, math.Float32bits(v))
}

// Float unpacks an IEEE-754 single.
func Float(b []byte) float32 {
	return math.Float32frombits(binary.BigEndian.Uint32(b))
}

// PutUShort packs an unsigned 16-bit value.
func PutUShort(b []byte, v uint16) {
	binary.BigEndian.PutUint16(b, v)
}

// UShort unpacks an unsigned 16-bit value.
func UShort(b []byte) uint16 {
	return binary.BigEndian.Uint16(b)
}

// PutULong packs an unsigned 32-bit value.
func PutULong(b []byte, v uint32) {
	binary.BigEndian.PutUint32(b, v)
}

// ULong unpacks an unsigned 32-bit value.
func ULong(b []byte) uint32 {
	return binary.BigEndian.Uint32(b)
}

// PutUShort2 packs two unsigned 16-bit values.
func PutUShort2(b []byte, v0, v1 uint16) {
	binary.BigEndian.PutUint16(b, v0)
	binary.BigEndian.PutUint16(b[2:], v1)
}

// UShort2 unpacks two unsigned 16-bit values.
func UShort2(b []byte) (uint16, uint16) {
	return binary.BigEndian.Uint16(b), binary.BigEndian.Uint16(b[2:])
}
