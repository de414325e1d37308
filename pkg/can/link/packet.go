package link

import (
	"encoding/binary"
	"errors"
	"io"
	"time"

	"github.com/gpgreen/ahrs/pkg/can"
)

// Seq is a packet sequence number, valid in 1..0xef.
// 0xf0..0xff are reserved for control bytes.
type Seq byte

// NewSeq returns a random starting sequence number.
func NewSeq() Seq {
	return Seq(byte(time.Now().UnixNano())).Next()
}

// Next returns the sequence number following s.
func (s Seq) Next() Seq {
	n := byte(s) + 1
	if n == 0 || n >= 0xf0 {
		n = 1
	}
	return Seq(n)
}

// Valid reports whether s can number a packet.
func (s Seq) Valid() bool {
	return s > 0 && s < 0xf0
}

// Packet kinds.
const (
	KindFrame byte = 0x00
	KindPing  byte = 0x01
	KindPong  byte = 0x02
)

const (
	kindMask   = 0x8f
	lenShift   = 4
	lenInline  = 7
	maxDataLen = 0x7f
)

// ErrBadFramePacket is returned when a packet does not carry a frame.
var ErrBadFramePacket = errors.New("link: malformed frame packet")

// Packet is the unit exchanged on the link.
//
// Encoding: seq, kind with the data length in bits 4..6, data. Lengths of 7
// and above put 7 in the kind byte and the length in an extra byte.
type Packet struct {
	Seq  Seq
	Kind byte
	Data []byte
}

func (p *Packet) header() []byte {
	h := []byte{byte(p.Seq), p.Kind & kindMask, byte(len(p.Data))}
	if h[2] < lenInline {
		h[1] |= h[2] << lenShift
		return h[:2]
	}
	h[1] |= lenInline << lenShift
	return h
}

// Encode returns the wire bytes.
func (p *Packet) Encode() []byte {
	return append(p.header(), p.Data...)
}

// WriteTo writes the encoded packet in a single write.
func (p *Packet) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(p.Encode())
	return int64(n), err
}

// FramePacket wraps a CAN frame: 4 byte big-endian raw identifier then data.
func FramePacket(f can.Frame) *Packet {
	data := make([]byte, 4, 4+f.Len)
	binary.BigEndian.PutUint32(data, f.RawID())
	data = append(data, f.Payload()...)
	return &Packet{Kind: KindFrame, Data: data}
}

// Frame decodes a KindFrame packet.
func (p *Packet) Frame() (f can.Frame, err error) {
	if p.Kind != KindFrame || len(p.Data) < 4 || len(p.Data) > 4+8 {
		return f, ErrBadFramePacket
	}
	f.SetRawID(binary.BigEndian.Uint32(p.Data))
	f.Len = uint8(copy(f.Data[:], p.Data[4:]))
	return f, f.Validate()
}
