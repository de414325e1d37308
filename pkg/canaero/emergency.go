package canaero

import (
	"fmt"

	"github.com/gpgreen/ahrs/pkg/can"
)

// Emergency event error codes.
const (
	ErrCodeNone uint16 = iota
	// ErrCodeDisplayBufferOverflow is raised by a display that can not keep up
	// with the data rate; senders must stop transmitting.
	ErrCodeDisplayBufferOverflow
)

// EmergencyEvent is decoded from emergency event data (identifiers 0..127).
// Layout: node id, ERROR, operation id, location id, error code (big-endian).
type EmergencyEvent struct {
	ID          uint32
	Node        uint8
	OperationID uint8
	LocationID  uint8
	ErrorCode   uint16
}

// DecodeEmergencyEvent decodes an EED frame.
func DecodeEmergencyEvent(f can.Frame) (ev EmergencyEvent, err error) {
	if !IsEmergency(f.ID) {
		return ev, fmt.Errorf("canaero: id %d is not emergency event data", f.ID)
	}
	msg, err := DecodeMessage(f)
	if err != nil {
		return ev, err
	}
	ev.ID, ev.Node, ev.OperationID, ev.LocationID = msg.ID, msg.Node, msg.Service, msg.Code
	if f.Len >= HeaderSize+2 {
		ev.ErrorCode = UShort(msg.Data[:])
	}
	return ev, nil
}

// Frame encodes the event.
func (ev EmergencyEvent) Frame() can.Frame {
	msg := Message{ID: ev.ID, Node: ev.Node, Type: ERROR, Service: ev.OperationID, Code: ev.LocationID}
	PutUShort(msg.Data[:], ev.ErrorCode)
	return msg.Frame()
}

func (ev EmergencyEvent) String() string {
	return fmt.Sprintf("EE(%d):%d %d %d", ev.Node, ev.ErrorCode, ev.OperationID, ev.LocationID)
}
