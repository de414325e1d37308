package can

import (
	"context"
	"sync"
)

// Mux fans frames received from a Bus out to filtered subscribers.
// It owns Receive on the bus. Slow subscribers lose frames.
type Mux struct {
	Bus Bus

	lock sync.RWMutex
	subs map[*Subscription]struct{}
}

// Subscription receives frames accepted by its filter.
type Subscription struct {
	C <-chan Frame

	mux    *Mux
	filter FrameFilter
	ch     chan Frame
}

// NewMux creates a Mux over bus.
func NewMux(bus Bus) *Mux {
	return &Mux{Bus: bus, subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a filtered subscriber with a channel buffer.
func (m *Mux) Subscribe(filter FrameFilter, buffer int) *Subscription {
	if buffer < 1 {
		buffer = 1
	}
	s := &Subscription{mux: m, filter: filter, ch: make(chan Frame, buffer)}
	s.C = s.ch
	m.lock.Lock()
	m.subs[s] = struct{}{}
	m.lock.Unlock()
	return s
}

// Close unregisters the subscription and closes its channel.
func (s *Subscription) Close() error {
	m := s.mux
	m.lock.Lock()
	defer m.lock.Unlock()
	if _, ok := m.subs[s]; ok {
		delete(m.subs, s)
		close(s.ch)
	}
	return nil
}

// Send forwards to the underlying bus.
func (m *Mux) Send(ctx context.Context, f Frame) error {
	return m.Bus.Send(ctx, f)
}

// Run receives until ctx is done or the bus fails, then closes all subscriptions.
func (m *Mux) Run(ctx context.Context) error {
	defer m.closeAll()
	for {
		f, err := m.Bus.Receive(ctx)
		if err != nil {
			return err
		}
		m.lock.RLock()
		for s := range m.subs {
			if s.filter.Accept(f) {
				select {
				case s.ch <- f:
				default:
				}
			}
		}
		m.lock.RUnlock()
	}
}

func (m *Mux) closeAll() {
	m.lock.Lock()
	for s := range m.subs {
		close(s.ch)
		delete(m.subs, s)
	}
	m.lock.Unlock()
}
