package mqtt

import (
	"context"
	"errors"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	"github.com/gpgreen/ahrs/pkg/can"
)

// FramesTopic is the topic under the prefix carrying frames.
const FramesTopic = "frames"

// RecvBufLen is the number of received frames buffered for Receive.
const RecvBufLen = 64

// DefaultTimeout bounds connecting and publishing.
const DefaultTimeout = 5 * time.Second

// ErrTimeout is returned when the broker does not acknowledge in time.
var ErrTimeout = errors.New("mqtt: timeout")

// Bus is a can.Bus over a Queue. Frames published by this bus, recognised
// by the sender field, are not received back.
type Bus struct {
	Queue    *Queue
	ClientID string
	Timeout  time.Duration

	sub  *Subscription
	rxCh chan can.Frame
	done chan struct{}
}

// NewBus subscribes to the frames topic of q.
func NewBus(q *Queue, clientID string) *Bus {
	b := &Bus{
		Queue:    q,
		ClientID: clientID,
		Timeout:  DefaultTimeout,
		rxCh:     make(chan can.Frame, RecvBufLen),
		done:     make(chan struct{}),
	}
	b.sub = q.Sub(FramesTopic, b.handle)
	return b
}

// Dial connects to the broker at brokerURL and returns its bus.
func Dial(brokerURL, clientID string) (*Bus, error) {
	opts, prefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	if opts.ClientID == "" {
		opts.SetClientID(clientID)
	}
	q := NewQueue(opts, prefix)
	b := NewBus(q, clientID)
	if err := wait(q.Connect(), b.Timeout); err != nil {
		q.Close()
		return nil, err
	}
	return b, nil
}

func wait(token paho.Token, timeout time.Duration) error {
	if !token.WaitTimeout(timeout) {
		return ErrTimeout
	}
	return token.Error()
}

func (b *Bus) handle(_ string, payload []byte) {
	f, sender, err := DecodeFrame(payload)
	if err != nil {
		glog.Warningf("mqtt: dropped message: %v", err)
		return
	}
	if sender != "" && sender == b.ClientID {
		return
	}
	select {
	case b.rxCh <- f:
	case <-b.done:
	default:
		glog.Warningf("mqtt: receive buffer full, dropped %s", f)
	}
}

// Send implements can.Bus.
func (b *Bus) Send(ctx context.Context, f can.Frame) error {
	if err := f.Validate(); err != nil {
		return err
	}
	select {
	case <-b.done:
		return can.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	return wait(b.Queue.Pub(FramesTopic, EncodeFrame(f, b.ClientID)), b.Timeout)
}

// Receive implements can.Bus.
func (b *Bus) Receive(ctx context.Context) (can.Frame, error) {
	select {
	case f := <-b.rxCh:
		return f, nil
	case <-b.done:
		return can.Frame{}, can.ErrClosed
	case <-ctx.Done():
		return can.Frame{}, ctx.Err()
	}
}

// SelfTest implements can.SelfTester by checking the broker connection.
func (b *Bus) SelfTest(ctx context.Context) error {
	if !b.Queue.Client.IsConnected() {
		return errors.New("mqtt: not connected")
	}
	return nil
}

// Close unsubscribes and disconnects.
func (b *Bus) Close() error {
	select {
	case <-b.done:
		return nil
	default:
	}
	close(b.done)
	b.sub.Close()
	return b.Queue.Close()
}
