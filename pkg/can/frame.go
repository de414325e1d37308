package can

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

// Frame is a classical CAN 2.0A/2.0B frame.
// Err marks a controller-generated error frame, its class is carried in ID
// and details in Data the way SocketCAN reports them.
type Frame struct {
	ID       uint32
	Extended bool
	RTR      bool
	Err      bool
	Len      uint8
	Data     [8]byte
}

const (
	// MaxStdID is the largest 11-bit identifier.
	MaxStdID = 0x7FF
	// MaxExtID is the largest 29-bit identifier.
	MaxExtID = 0x1FFFFFFF

	flagEFF = 0x80000000
	flagRTR = 0x40000000
	flagERR = 0x20000000
)

// FrameSize is the length of the SocketCAN can_frame layout.
const FrameSize = 16

var (
	// ErrInvalidID indicates an identifier out of range.
	ErrInvalidID = errors.New("can: invalid identifier")
	// ErrInvalidLen indicates a data length above 8.
	ErrInvalidLen = errors.New("can: invalid data length")
)

// Validate checks identifier range and data length.
func (f Frame) Validate() error {
	if f.Len > 8 {
		return ErrInvalidLen
	}
	max := uint32(MaxStdID)
	if f.Extended || f.Err {
		max = MaxExtID
	}
	if f.ID > max {
		return ErrInvalidID
	}
	return nil
}

// NewFrame builds a standard data frame.
func NewFrame(id uint32, data ...byte) (Frame, error) {
	f := Frame{ID: id}
	if len(data) > 8 {
		return f, ErrInvalidLen
	}
	f.Len = uint8(copy(f.Data[:], data))
	return f, f.Validate()
}

// MustFrame is NewFrame that panics on invalid input.
func MustFrame(id uint32, data ...byte) Frame {
	f, err := NewFrame(id, data...)
	if err != nil {
		panic(err)
	}
	return f
}

// Payload returns the valid data bytes.
func (f *Frame) Payload() []byte {
	n := f.Len
	if n > 8 {
		n = 8
	}
	return f.Data[:n]
}

// RawID returns the identifier with SocketCAN EFF/RTR/ERR flags.
func (f Frame) RawID() uint32 {
	id := f.ID
	if f.Extended {
		id |= flagEFF
	}
	if f.RTR {
		id |= flagRTR
	}
	if f.Err {
		id |= flagERR
	}
	return id
}

// SetRawID decodes an identifier with SocketCAN flags.
func (f *Frame) SetRawID(id uint32) {
	f.Extended = id&flagEFF != 0
	f.RTR = id&flagRTR != 0
	f.Err = id&flagERR != 0
	if f.Extended || f.Err {
		f.ID = id & MaxExtID
	} else {
		f.ID = id & MaxStdID
	}
}

// MarshalBinary encodes the frame in the SocketCAN can_frame layout.
func (f Frame) MarshalBinary() ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	buf := make([]byte, FrameSize)
	binary.LittleEndian.PutUint32(buf[0:4], f.RawID())
	buf[4] = f.Len
	copy(buf[8:], f.Data[:])
	return buf, nil
}

// UnmarshalBinary decodes the SocketCAN can_frame layout.
func (f *Frame) UnmarshalBinary(data []byte) error {
	if len(data) < FrameSize {
		return fmt.Errorf("can: need %d bytes, got %d", FrameSize, len(data))
	}
	f.SetRawID(binary.LittleEndian.Uint32(data[0:4]))
	f.Len = data[4]
	copy(f.Data[:], data[8:FrameSize])
	return f.Validate()
}

// String formats the frame like candump.
func (f Frame) String() string {
	var sb strings.Builder
	switch {
	case f.Err:
		fmt.Fprintf(&sb, "ERR %08X", f.ID)
	case f.Extended:
		fmt.Fprintf(&sb, "%08X", f.ID)
	default:
		fmt.Fprintf(&sb, "%03X", f.ID)
	}
	fmt.Fprintf(&sb, " [%d]", f.Len)
	if f.RTR {
		sb.WriteString(" remote request")
		return sb.String()
	}
	for _, b := range f.Payload() {
		fmt.Fprintf(&sb, " %02X", b)
	}
	return sb.String()
}
