// Package ahrs is the AHRS node core: tick source, scheduler, telemetry,
// module services, boot sequence and fatal halts.
package ahrs

import (
	"fmt"
	"sync/atomic"

	"github.com/gpgreen/ahrs/pkg/canaero"
	"github.com/gpgreen/ahrs/pkg/sensors"
	"github.com/gpgreen/ahrs/pkg/watchdog"
)

// NodeState is the protocol state of the node.
type NodeState int32

// Node states.
const (
	StateInit NodeState = iota
	StateListen
	StateActive
)

func (s NodeState) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateListen:
		return "listen"
	case StateActive:
		return "active"
	}
	return fmt.Sprintf("NodeState(%d)", int32(s))
}

// FilterMode selects which service requests the stack accepts.
type FilterMode uint8

// Filter modes.
const (
	FilterHighPriorityOnly FilterMode = iota
	FilterNone
)

// HighPriorityOnly reports whether low priority requests are filtered.
func (m FilterMode) HighPriorityOnly() bool {
	return m == FilterHighPriorityOnly
}

// Equipment indices, in the order of the module information payload.
const (
	EquipAccelerometer = iota
	EquipGyroscope
	EquipStaticAir
	EquipDynamicAir
	NumEquipment
)

// Equipment holds the enabled flag of each device as a raw byte, nonzero is enabled.
type Equipment [NumEquipment]uint8

// Enabled reports whether device i is enabled.
func (e *Equipment) Enabled(i int) bool {
	return e[i] != 0
}

// Set enables or disables device i.
func (e *Equipment) Set(i int, on bool) {
	e[i] = 0
	if on {
		e[i] = 1
	}
}

// Features are the capabilities the node is built with.
type Features struct {
	Accelerometer bool `yaml:"accelerometer"`
	Gyroscope     bool `yaml:"gyroscope"`
}

// Transport is the protocol stack as seen from the main loop.
type Transport interface {
	PollInterrupt() bool
	DispatchPending()
	Send(canaero.Message) error
	SendServiceReply(*canaero.Request, *canaero.ServiceTemplate) error
	ClearTxBuffers()
	ResetSequenceCounters()
	Reinit(highPriorityOnly bool) error
	Wake() <-chan struct{}
}

// Protocol adds the boot time operations to Transport.
type Protocol interface {
	Transport
	Init(canaero.Config) error
	SelfTest() error
	StandardServices() canaero.DispatchTable
}

// Watchdog is refreshed once per loop iteration.
type Watchdog interface {
	Refresh()
}

// Devices are the sensors sampled by the node.
type Devices struct {
	Static        sensors.Device
	Dynamic       sensors.Device
	Accelerometer sensors.Device
	Gyroscope     sensors.Device
}

// Pressure returns static (0) or dynamic (1) pressure device.
func (d *Devices) Pressure(n int) sensors.Device {
	if n == 0 {
		return d.Static
	}
	return d.Dynamic
}

// Context is the node state shared by the loop, the services and the
// telemetry producers. Apart from State, it is only touched on the main loop.
type Context struct {
	Filter    FilterMode
	Equipment Equipment
	// CycleTime is the last 80 Hz period in tenths of a millisecond.
	CycleTime uint16
	Resets    watchdog.Counters

	state atomic.Int32
	fault Fault
}

// NewContext creates a context in StateInit with high priority filtering.
func NewContext() *Context {
	return &Context{Filter: FilterHighPriorityOnly}
}

// State returns the node state.
func (c *Context) State() NodeState {
	return NodeState(c.state.Load())
}

// SetState changes the node state.
func (c *Context) SetState(s NodeState) {
	c.state.Store(int32(s))
}

// Fail records a fault to be returned by the main loop.
// The first fault wins.
func (c *Context) Fail(f Fault) {
	if c.fault == nil {
		c.fault = f
	}
}

// TakeFault returns and clears the recorded fault.
func (c *Context) TakeFault() Fault {
	f := c.fault
	c.fault = nil
	return f
}
