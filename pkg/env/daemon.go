package env

import (
	"context"
	"io"

	"github.com/golang/glog"

	"github.com/gpgreen/ahrs/pkg/ahrs"
	"github.com/gpgreen/ahrs/pkg/can"
	"github.com/gpgreen/ahrs/pkg/canaero"
	"github.com/gpgreen/ahrs/pkg/framework"
	"github.com/gpgreen/ahrs/pkg/watchdog"
)

// Daemon is a node wired to its bus, devices and lamps.
type Daemon struct {
	Config    *Config
	Transport *Transport
	Stack     *canaero.Stack
	Node      *ahrs.Node
	Watchdog  *watchdog.Watchdog
	Resets    *watchdog.Store

	closers []io.Closer
}

// memResets counts resets in memory when no file is configured.
type memResets struct {
	counters watchdog.Counters
}

func (r *memResets) UpdateOnBoot() (watchdog.Counters, watchdog.Cause, error) {
	r.counters.Count(watchdog.CausePowerOn)
	return r.counters, watchdog.CausePowerOn, nil
}

// NewDaemon opens everything the configuration names.
func (c *Config) NewDaemon() (*Daemon, error) {
	d := &Daemon{Config: c}
	t, err := OpenBus(c.BusURL, ClientID(c.NodeID), c.LinkTimeout)
	if err != nil {
		return nil, err
	}
	d.Transport = t
	d.closers = append(d.closers, t.Bus)

	hw, err := c.OpenDevices()
	if err != nil {
		d.Close()
		return nil, err
	}
	d.closers = append(d.closers, hw)

	status, fault, lamps, err := c.OpenIndicators()
	if err != nil {
		d.Close()
		return nil, err
	}
	d.closers = append(d.closers, lamps...)

	var resets ahrs.ResetCounter = &memResets{}
	if c.ResetsFile != "" {
		d.Resets = &watchdog.Store{Path: c.ResetsFile}
		resets = d.Resets
	}
	d.Watchdog = watchdog.New(c.WatchdogTimeout, d.Resets)

	bus := can.NewLoggedBus(t.Bus, "can", 3)
	d.Stack = canaero.NewStack(bus)
	d.Node = ahrs.NewNode(ahrs.Options{
		Protocol: d.Stack,
		Config:   c.CANaero(),
		Devices:  hw.Devices,
		Features: c.Features,
		Watchdog: d.Watchdog,
		Resets:   resets,
		BringUp:  t.BringUp,
		Status:   status,
		Fault:    fault,
	})
	return d, nil
}

// Tasks returns the background tasks in start order. The node comes last,
// its boot needs the transport running.
func (d *Daemon) Tasks() []framework.Runnable {
	tasks := []framework.Runnable{framework.NamedRun("ticks", framework.RunFunc(d.Node.Ticks.Run))}
	tasks = append(tasks, d.Transport.Tasks...)
	tasks = append(tasks, framework.NamedRun("canaero", d.Stack))
	if d.Config.WatchdogTimeout > 0 {
		tasks = append(tasks, framework.NamedRun("watchdog", d.Watchdog))
	}
	return append(tasks, framework.NamedRun("node", d.Node))
}

// Run runs the daemon until ctx is done or a task fails.
func (d *Daemon) Run(ctx context.Context) error {
	return framework.NewRunnerWith(ctx).Go(d.Tasks()...).Wait()
}

// MarkExternalReset records a requested stop as the cause of the next start.
func (d *Daemon) MarkExternalReset() {
	if d.Resets == nil {
		return
	}
	if err := d.Resets.Mark(watchdog.CauseExternal); err != nil {
		glog.Errorf("record reset cause: %v", err)
	}
}

// Close releases the bus, devices and lamps.
func (d *Daemon) Close() error {
	var errs framework.AggregatedError
	for i := len(d.closers) - 1; i >= 0; i-- {
		errs.Add(d.closers[i].Close())
	}
	d.closers = nil
	return errs.Aggregate()
}
