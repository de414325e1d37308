// Package link carries CAN frames over a byte stream, such as a serial port
// or a websocket, between two peers.
//
// Both ends run the same sequence based handshake: a REQ control byte
// followed by the sender's sequence number is answered with an ACK and the
// receiver's sequence number. Every packet then carries the expected next
// sequence number; any mismatch or a stalled packet restarts the handshake.
// There is no checksum, a serial port can enable parity for that.
package link

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/gpgreen/ahrs/pkg/can"
)

// DefaultTimeout is the resync timeout.
const DefaultTimeout = 100 * time.Millisecond

// RecvBufLen is the number of received frames buffered for Receive.
const RecvBufLen = 64

// ErrNotReady is returned by Send while the link is not synchronised.
var ErrNotReady = errors.New("link: not ready")

// Link is a can.Bus over an io.ReadWriter. Run must be running for frames
// to flow.
type Link struct {
	ReadWriter io.ReadWriter
	Name       string
	Timeout    time.Duration
	// ReadTimeout is set when Read returns on its own after Timeout,
	// e.g. a serial port with a read timeout.
	ReadTimeout bool

	lock  sync.Mutex
	seq   Seq
	state State
	ready chan struct{}

	dec    Decoder
	timer  <-chan time.Time
	rxCh   chan can.Frame
	pongCh chan struct{}
	done   chan struct{}
	once   sync.Once
}

// New creates a link over rw.
func New(rw io.ReadWriter) *Link {
	return &Link{
		ReadWriter: rw,
		Name:       "link",
		Timeout:    DefaultTimeout,
		seq:        NewSeq(),
		ready:      make(chan struct{}),
		rxCh:       make(chan can.Frame, RecvBufLen),
		pongCh:     make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

// State returns the synchronisation state.
func (l *Link) State() State {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.state
}

// WaitReady blocks until the link is synchronised.
func (l *Link) WaitReady(ctx context.Context) error {
	l.lock.Lock()
	ready := l.ready
	l.lock.Unlock()
	select {
	case <-ready:
		return nil
	case <-l.done:
		return can.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Link) write(pkt *Packet) error {
	l.lock.Lock()
	defer l.lock.Unlock()
	if !l.state.Ready() {
		return ErrNotReady
	}
	pkt.Seq = l.seq
	if _, err := pkt.WriteTo(l.ReadWriter); err != nil {
		return err
	}
	l.seq = l.seq.Next()
	return nil
}

// Send implements can.Bus.
func (l *Link) Send(ctx context.Context, f can.Frame) error {
	if err := f.Validate(); err != nil {
		return err
	}
	select {
	case <-l.done:
		return can.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	return l.write(FramePacket(f))
}

// Receive implements can.Bus.
func (l *Link) Receive(ctx context.Context) (can.Frame, error) {
	select {
	case f := <-l.rxCh:
		return f, nil
	case <-l.done:
		return can.Frame{}, can.ErrClosed
	case <-ctx.Done():
		return can.Frame{}, ctx.Err()
	}
}

// SelfTest implements can.SelfTester: it waits for the handshake and
// expects the peer to answer a ping.
func (l *Link) SelfTest(ctx context.Context) error {
	if err := l.WaitReady(ctx); err != nil {
		return err
	}
	select {
	case <-l.pongCh:
	default:
	}
	if err := l.write(&Packet{Kind: KindPing}); err != nil {
		return err
	}
	select {
	case <-l.pongCh:
		return nil
	case <-l.done:
		return can.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the link and closes the underlying stream when it is an io.Closer.
func (l *Link) Close() (err error) {
	l.once.Do(func() {
		close(l.done)
		if c, ok := l.ReadWriter.(io.Closer); ok {
			err = c.Close()
		}
	})
	return
}

// Run reads and decodes the stream until ctx is done or the stream fails.
func (l *Link) Run(ctx context.Context) error {
	if err := l.apply(ctx, l.dec.Reset()); err != nil {
		return err
	}
	if l.ReadTimeout {
		return l.runTimed(ctx)
	}

	byteCh, errCh := make(chan byte), make(chan error, 1)
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go l.readLoop(subCtx, byteCh, errCh)
	for {
		var res Result
		select {
		case b := <-byteCh:
			res = l.dec.Feed(b)
		case err := <-errCh:
			return err
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			return can.ErrClosed
		case <-l.timer:
			res = l.dec.Timeout()
		}
		if err := l.apply(ctx, res); err != nil {
			return err
		}
	}
}

func (l *Link) runTimed(ctx context.Context) error {
	buf := make([]byte, 1)
	for {
		var res Result
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			return can.ErrClosed
		case <-l.timer:
			res = l.dec.Timeout()
		default:
			n, err := l.ReadWriter.Read(buf)
			switch {
			case err != nil && !os.IsTimeout(err):
				return err
			case err != nil || n == 0:
				res = l.dec.Timeout()
			default:
				res = l.dec.Feed(buf[0])
			}
		}
		if err := l.apply(ctx, res); err != nil {
			return err
		}
	}
}

func (l *Link) readLoop(ctx context.Context, byteCh chan<- byte, errCh chan<- error) {
	buf := make([]byte, 1)
	for {
		if _, err := l.ReadWriter.Read(buf); err != nil {
			errCh <- err
			return
		}
		select {
		case byteCh <- buf[0]:
		case <-ctx.Done():
			return
		}
	}
}

func (l *Link) apply(ctx context.Context, res Result) (err error) {
	l.lock.Lock()
	if l.state != res.State {
		glog.V(2).Infof("%s: %s -> %s", l.Name, l.state, res.State)
		if res.State.Ready() && !l.state.Ready() {
			close(l.ready)
		} else if !res.State.Ready() && l.state.Ready() {
			l.ready = make(chan struct{})
		}
		l.state = res.State
	}
	if res.Control != 0 {
		_, err = l.ReadWriter.Write([]byte{res.Control, byte(l.seq)})
	}
	l.lock.Unlock()
	if err != nil {
		return err
	}

	if l.ReadTimeout {
		if res.Control == ctrlREQ {
			l.timer = time.After(l.Timeout)
		} else {
			l.timer = nil
		}
	} else {
		switch res.Timer() {
		case TimerRestart:
			l.timer = time.After(l.Timeout)
		case TimerStop:
			l.timer = nil
		}
	}

	if res.Packet != nil {
		return l.handle(ctx, res.Packet)
	}
	return nil
}

func (l *Link) handle(ctx context.Context, pkt *Packet) error {
	switch pkt.Kind {
	case KindPing:
		if err := l.write(&Packet{Kind: KindPong}); err != nil && err != ErrNotReady {
			return err
		}
	case KindPong:
		select {
		case l.pongCh <- struct{}{}:
		default:
		}
	case KindFrame:
		f, err := pkt.Frame()
		if err != nil {
			glog.Warningf("%s: %v", l.Name, err)
			return nil
		}
		select {
		case l.rxCh <- f:
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			return can.ErrClosed
		}
	default:
		glog.V(1).Infof("%s: ignored packet kind %#x", l.Name, pkt.Kind)
	}
	return nil
}
