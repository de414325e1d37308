package mqtt

import (
	"errors"
	"fmt"

	"github.com/golang/protobuf/proto"

	"github.com/gpgreen/ahrs/pkg/can"
)

// Frame message fields, protobuf wire format:
//
//	message Frame {
//	  uint32 id = 1;
//	  uint32 flags = 2;
//	  bytes data = 3;
//	  string sender = 4;
//	}
const (
	fieldID     = 1
	fieldFlags  = 2
	fieldData   = 3
	fieldSender = 4

	wireVarint  = 0
	wireFixed64 = 1
	wireBytes   = 2
	wireFixed32 = 5
)

// Frame flags.
const (
	FlagExtended = 1 << iota
	FlagRTR
	FlagErr
)

// ErrMalformed is returned for payloads that do not decode as a frame.
var ErrMalformed = errors.New("mqtt: malformed frame message")

func key(field, wire int) uint64 {
	return uint64(field<<3 | wire)
}

// EncodeFrame encodes f sent by sender.
func EncodeFrame(f can.Frame, sender string) []byte {
	var flags uint64
	if f.Extended {
		flags |= FlagExtended
	}
	if f.RTR {
		flags |= FlagRTR
	}
	if f.Err {
		flags |= FlagErr
	}
	buf := proto.NewBuffer(make([]byte, 0, 16+len(sender)))
	buf.EncodeVarint(key(fieldID, wireVarint))
	buf.EncodeVarint(uint64(f.ID))
	if flags != 0 {
		buf.EncodeVarint(key(fieldFlags, wireVarint))
		buf.EncodeVarint(flags)
	}
	if f.Len > 0 {
		buf.EncodeVarint(key(fieldData, wireBytes))
		buf.EncodeRawBytes(f.Payload())
	}
	if sender != "" {
		buf.EncodeVarint(key(fieldSender, wireBytes))
		buf.EncodeStringBytes(sender)
	}
	return buf.Bytes()
}

// DecodeFrame decodes a frame message. Unknown fields are skipped.
func DecodeFrame(b []byte) (f can.Frame, sender string, err error) {
	varint := func() (uint64, error) {
		v, n := proto.DecodeVarint(b)
		if n == 0 {
			return 0, ErrMalformed
		}
		b = b[n:]
		return v, nil
	}
	skip := func(n uint64) ([]byte, error) {
		if uint64(len(b)) < n {
			return nil, ErrMalformed
		}
		out := b[:n]
		b = b[n:]
		return out, nil
	}
	for len(b) > 0 {
		k, err := varint()
		if err != nil {
			return f, "", err
		}
		field, wire := int(k>>3), int(k&7)
		var v uint64
		var raw []byte
		switch wire {
		case wireVarint:
			v, err = varint()
		case wireFixed64:
			_, err = skip(8)
		case wireFixed32:
			_, err = skip(4)
		case wireBytes:
			if v, err = varint(); err == nil {
				raw, err = skip(v)
			}
		default:
			err = fmt.Errorf("%w: wire type %d", ErrMalformed, wire)
		}
		if err != nil {
			return f, "", err
		}
		switch {
		case field == fieldID && wire == wireVarint:
			f.ID = uint32(v)
		case field == fieldFlags && wire == wireVarint:
			f.Extended = v&FlagExtended != 0
			f.RTR = v&FlagRTR != 0
			f.Err = v&FlagErr != 0
		case field == fieldData && wire == wireBytes:
			if len(raw) > len(f.Data) {
				return f, "", can.ErrInvalidLen
			}
			f.Len = uint8(copy(f.Data[:], raw))
		case field == fieldSender && wire == wireBytes:
			sender = string(raw)
		}
	}
	return f, sender, f.Validate()
}
