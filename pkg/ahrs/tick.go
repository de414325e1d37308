package ahrs

import (
	"context"
	"time"
)

// Tick rates.
const (
	TickRate     = 80
	TickInterval = time.Second / TickRate
	TickDivider  = 4
)

// Ticks is the periodic time source. Each signal holds at most one pending
// occurrence; occurrences not consumed in time coalesce.
type Ticks struct {
	tick80 chan struct{}
	tick20 chan struct{}
	wake   chan struct{}
	div    uint8
}

// NewTicks creates an idle tick source.
func NewTicks() *Ticks {
	return &Ticks{
		tick80: make(chan struct{}, 1),
		tick20: make(chan struct{}, 1),
		wake:   make(chan struct{}, 1),
	}
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func consume(ch chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

// Fire raises Tick80, and Tick20 on every fourth call.
// It must only be called from one goroutine.
func (t *Ticks) Fire() {
	signal(t.tick80)
	if t.div++; t.div >= TickDivider {
		t.div = 0
		signal(t.tick20)
	}
	signal(t.wake)
}

// Take80 consumes a pending 80 Hz occurrence.
func (t *Ticks) Take80() bool {
	return consume(t.tick80)
}

// Take20 consumes a pending 20 Hz occurrence.
func (t *Ticks) Take20() bool {
	return consume(t.tick20)
}

// Pending reports whether either signal is raised.
func (t *Ticks) Pending() bool {
	return len(t.tick80) > 0 || len(t.tick20) > 0
}

// Wake is signalled on every Fire.
func (t *Ticks) Wake() <-chan struct{} {
	return t.wake
}

// Run fires at TickRate until ctx is done.
func (t *Ticks) Run(ctx context.Context) error {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			t.Fire()
		}
	}
}
