package can

import (
	"context"

	"github.com/golang/glog"
)

// LogOption selects the directions a LoggedBus reports.
type LogOption uint8

// Log options.
const (
	LogRead LogOption = 1 << iota
	LogWrite
	LogAll = LogRead | LogWrite
)

// LoggedBus decorates a Bus with glog output at verbosity Level.
type LoggedBus struct {
	Bus
	Name    string
	Level   glog.Level
	Options LogOption
	Filter  FrameFilter
}

// NewLoggedBus wraps bus, logging both directions at verbosity level.
func NewLoggedBus(bus Bus, name string, level glog.Level) *LoggedBus {
	return &LoggedBus{Bus: bus, Name: name, Level: level, Options: LogAll}
}

// Send implements Bus.
func (b *LoggedBus) Send(ctx context.Context, f Frame) error {
	err := b.Bus.Send(ctx, f)
	if b.Options&LogWrite != 0 {
		if err != nil {
			glog.Errorf("%s: TX %s: %v", b.Name, f, err)
		} else if bool(glog.V(b.Level)) && b.Filter.Accept(f) {
			glog.Infof("%s: TX %s", b.Name, f)
		}
	}
	return err
}

// Receive implements Bus.
func (b *LoggedBus) Receive(ctx context.Context) (Frame, error) {
	f, err := b.Bus.Receive(ctx)
	if b.Options&LogRead != 0 {
		if err != nil {
			if err != ctx.Err() {
				glog.Errorf("%s: RX: %v", b.Name, err)
			}
		} else if bool(glog.V(b.Level)) && b.Filter.Accept(f) {
			glog.Infof("%s: RX %s", b.Name, f)
		}
	}
	return f, err
}

// SelfTest forwards to the wrapped bus when it supports it.
func (b *LoggedBus) SelfTest(ctx context.Context) error {
	if st, ok := b.Bus.(SelfTester); ok {
		return st.SelfTest(ctx)
	}
	return nil
}
