package can

import (
	"context"
	"sync"
)

// LoopbackBus is an in-memory bus. Frames sent from one endpoint reach
// every other endpoint opened on the same bus.
type LoopbackBus struct {
	lock      sync.RWMutex
	closed    bool
	endpoints map[*loopEndpoint]struct{}
}

// NewLoopbackBus creates an empty loopback bus.
func NewLoopbackBus() *LoopbackBus {
	return &LoopbackBus{endpoints: make(map[*loopEndpoint]struct{})}
}

// Open attaches a new endpoint.
func (b *LoopbackBus) Open() Bus {
	ep := &loopEndpoint{
		bus:    b,
		rxCh:   make(chan Frame, 64),
		doneCh: make(chan struct{}),
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.closed {
		ep.dead = true
		close(ep.doneCh)
		return ep
	}
	b.endpoints[ep] = struct{}{}
	return ep
}

// Inject delivers a frame to every endpoint, as if the controller produced it.
// Used for error frames.
func (b *LoopbackBus) Inject(frame Frame) {
	b.deliver(nil, frame)
}

// Close detaches all endpoints.
func (b *LoopbackBus) Close() error {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for ep := range b.endpoints {
		ep.shutdown()
	}
	b.endpoints = nil
	return nil
}

func (b *LoopbackBus) deliver(from *loopEndpoint, frame Frame) error {
	b.lock.RLock()
	if b.closed {
		b.lock.RUnlock()
		return ErrClosed
	}
	targets := make([]*loopEndpoint, 0, len(b.endpoints))
	for ep := range b.endpoints {
		if ep != from {
			targets = append(targets, ep)
		}
	}
	b.lock.RUnlock()
	for _, ep := range targets {
		select {
		case ep.rxCh <- frame:
		case <-ep.doneCh:
		}
	}
	return nil
}

type loopEndpoint struct {
	bus    *LoopbackBus
	rxCh   chan Frame
	doneCh chan struct{}
	dead   bool
	once   sync.Once
}

func (e *loopEndpoint) Send(ctx context.Context, frame Frame) error {
	if err := frame.Validate(); err != nil {
		return err
	}
	select {
	case <-e.doneCh:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	return e.bus.deliver(e, frame)
}

func (e *loopEndpoint) Receive(ctx context.Context) (Frame, error) {
	select {
	case f := <-e.rxCh:
		return f, nil
	case <-e.doneCh:
		return Frame{}, ErrClosed
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

func (e *loopEndpoint) Close() error {
	e.bus.lock.Lock()
	delete(e.bus.endpoints, e)
	e.bus.lock.Unlock()
	e.shutdown()
	return nil
}

func (e *loopEndpoint) shutdown() {
	e.once.Do(func() {
		if !e.dead {
			close(e.doneCh)
		}
		e.dead = true
	})
}
