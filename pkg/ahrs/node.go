package ahrs

import (
	"context"

	"github.com/golang/glog"

	"github.com/gpgreen/ahrs/pkg/can"
	"github.com/gpgreen/ahrs/pkg/canaero"
	"github.com/gpgreen/ahrs/pkg/indicator"
)

// Options configure a Node.
type Options struct {
	Protocol Protocol
	Config   canaero.Config
	Devices  *Devices
	Features Features
	Watchdog Watchdog
	Resets   ResetCounter
	BringUp  func() error
	Status   indicator.Indicator
	Fault    indicator.Indicator
}

// Node is the AHRS node: boot, main loop and halt.
type Node struct {
	Context   *Context
	Ticks     *Ticks
	Boot      *Boot
	Scheduler *Scheduler
	Halt      *Halt
	Services  *Services
	Telemetry *Telemetry

	protocol Protocol
}

// NewNode wires the node components around the protocol stack.
func NewNode(opts Options) *Node {
	ctx := NewContext()
	ticks := NewTicks()
	n := &Node{Context: ctx, Ticks: ticks, protocol: opts.Protocol}
	n.Services = &Services{Context: ctx, Transport: opts.Protocol}
	n.Telemetry = NewTelemetry(opts.Protocol, ctx, opts.Devices)

	cfg := opts.Config
	cfg.Services = n.Services.Table(opts.Protocol.StandardServices())
	cfg.OnBusFault = n.BusFault
	cfg.OnEmergency = n.Emergency

	n.Boot = &Boot{
		Context:  ctx,
		Protocol: opts.Protocol,
		Config:   cfg,
		Devices:  opts.Devices,
		Features: opts.Features,
		Watchdog: opts.Watchdog,
		Resets:   opts.Resets,
		BringUp:  opts.BringUp,
		Status:   opts.Status,
		Fault:    opts.Fault,
	}
	n.Scheduler = &Scheduler{
		Context:   ctx,
		Ticks:     ticks,
		Transport: opts.Protocol,
		Telemetry: n.Telemetry,
		Devices:   opts.Devices,
		Features:  opts.Features,
		Watchdog:  opts.Watchdog,
	}
	n.Halt = &Halt{Ticks: ticks, Status: opts.Status, Fault: opts.Fault, Watchdog: opts.Watchdog}
	return n
}

// BusFault handles controller error states reported by the stack.
func (n *Node) BusFault(state can.BusState) {
	switch state {
	case can.BusStateOff, can.BusStatePassive:
		if n.Context.State() != StateListen {
			glog.Warningf("bus %s, switching to listen mode", state)
		}
		n.Context.SetState(StateListen)
	default:
		glog.V(1).Infof("bus %s", state)
	}
}

// Emergency handles emergency events from other nodes.
func (n *Node) Emergency(ev canaero.EmergencyEvent) {
	glog.Warningf("EE(%d): error %d operation %d location %d", ev.Node, ev.ErrorCode, ev.OperationID, ev.LocationID)
	if ev.ErrorCode == canaero.ErrCodeDisplayBufferOverflow {
		n.Context.SetState(StateListen)
		n.protocol.ClearTxBuffers()
		glog.Info("switching to listen mode")
	}
}

// Run boots the node and runs the main loop. A fatal fault is rendered on
// the indicators until ctx is done. Ticks must be running.
func (n *Node) Run(ctx context.Context) error {
	f := n.Boot.Run()
	if f == nil {
		err := n.Scheduler.Run(ctx)
		var ok bool
		if f, ok = err.(Fault); !ok {
			return err
		}
	}
	return n.Halt.Enter(ctx, f)
}
