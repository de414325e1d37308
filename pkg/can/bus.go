package can

import (
	"context"
	"errors"
)

// ErrClosed is returned by operations on a closed bus.
var ErrClosed = errors.New("can: bus closed")

// Bus is a CAN interface capable of sending and receiving frames.
// Receive blocks until a frame arrives, the bus closes or ctx is done.
type Bus interface {
	Send(ctx context.Context, frame Frame) error
	Receive(ctx context.Context) (Frame, error)
	Close() error
}

// SelfTester is implemented by buses able to verify the controller.
type SelfTester interface {
	SelfTest(ctx context.Context) error
}
