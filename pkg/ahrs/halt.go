package ahrs

import (
	"context"

	"github.com/golang/glog"

	"github.com/gpgreen/ahrs/pkg/indicator"
)

// FaultPause is the number of 20 Hz ticks between fault code repetitions.
const FaultPause = 8

// Halt renders fatal faults on the indicators, paced by Tick20.
// Status is LED1, Fault is LED2. The watchdog is kept refreshed so the
// halt lasts until the process is stopped.
type Halt struct {
	Ticks    *Ticks
	Status   indicator.Indicator
	Fault    indicator.Indicator
	Watchdog Watchdog
}

func (h *Halt) refresh() {
	if h.Watchdog != nil {
		h.Watchdog.Refresh()
	}
}

// offlinePattern toggles every tick.
type offlinePattern struct {
	on bool
}

func (p *offlinePattern) step() bool {
	p.on = !p.on
	return p.on
}

// failedPattern writes 2*code alternating values, even counts on,
// then pauses FaultPause ticks. Code 0 never pauses.
type failedPattern struct {
	code  int
	count int
	pause int
}

func (p *failedPattern) step() (on, write bool) {
	if p.pause > 0 {
		p.pause--
		return false, false
	}
	on = p.count%2 == 0
	p.count++
	if p.count == 2*p.code {
		p.pause, p.count = FaultPause, 0
	}
	return on, true
}

// Enter renders f until ctx is done. Non-fatal faults return immediately.
func (h *Halt) Enter(ctx context.Context, f Fault) error {
	switch f := f.(type) {
	case *PreCommsFault:
		glog.Errorf("offline: %v", f.Err)
		return h.Offline(ctx)
	case *PostCommsFault:
		glog.Errorf("failed(%d): %v", uint8(f.Code), f.Err)
		return h.Failed(ctx, f.Code)
	}
	return nil
}

// Offline is the pre-communications halt: status on, then toggled per tick.
func (h *Halt) Offline(ctx context.Context) error {
	glog.Flush()
	p := &offlinePattern{on: true}
	h.Status.Set(true)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-h.Ticks.Wake():
			h.refresh()
			if h.Ticks.Take20() {
				h.Status.Set(p.step())
			}
		}
	}
}

// Failed is the post-communications halt blinking code on the fault indicator.
func (h *Halt) Failed(ctx context.Context, code FaultCode) error {
	glog.Flush()
	p := &failedPattern{code: int(code)}
	h.Status.Set(false)
	h.Fault.Set(true)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-h.Ticks.Wake():
			h.refresh()
			if !h.Ticks.Take20() {
				continue
			}
			if on, write := p.step(); write {
				h.Fault.Set(on)
			}
		}
	}
}
