package canaero

import (
	"fmt"
	"time"

	"github.com/gpgreen/ahrs/pkg/can"
)

// Supported bit rates.
var BitRates = []uint32{125000, 250000, 500000, 1000000}

// Config configures a Stack. Init installs a copy.
type Config struct {
	NodeID           uint8
	ServiceChannel   uint8
	BitRate          uint32
	TxWait           time.Duration
	HardwareRevision uint8
	SoftwareRevision uint8

	// HighPriorityOnly restricts service reception to the high priority
	// request identifier of the channel. Emergency events are always accepted.
	HighPriorityOnly bool

	Services    DispatchTable
	OnBusFault  func(can.BusState)
	OnEmergency func(EmergencyEvent)
}

// DefaultConfig returns the node defaults.
func DefaultConfig() Config {
	return Config{
		NodeID:           2,
		ServiceChannel:   0,
		BitRate:          250000,
		TxWait:           20 * time.Millisecond,
		HardwareRevision: 4,
		SoftwareRevision: 1,
		HighPriorityOnly: true,
	}
}

// InitError reports an invalid configuration passed to Init.
type InitError struct {
	Reason string
}

func (e *InitError) Error() string {
	return "canaero: init failed: " + e.Reason
}

// ValidBitRate reports whether rate is supported.
func ValidBitRate(rate uint32) bool {
	for _, r := range BitRates {
		if r == rate {
			return true
		}
	}
	return false
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.NodeID == 0 {
		return &InitError{Reason: "node id 0 is reserved for broadcast"}
	}
	if c.ServiceChannel > MaxChannel {
		return &InitError{Reason: fmt.Sprintf("service channel %d out of range", c.ServiceChannel)}
	}
	if !ValidBitRate(c.BitRate) {
		return &InitError{Reason: fmt.Sprintf("unsupported bit rate %d", c.BitRate)}
	}
	if c.TxWait <= 0 {
		return &InitError{Reason: "tx wait must be positive"}
	}
	return nil
}

// Filter builds the acceptance filter for the configuration.
func (c *Config) Filter() can.FrameFilter {
	return ServiceFilter(c.ServiceChannel, c.HighPriorityOnly)
}

// ServiceFilter accepts emergency events and the service requests of channel.
// Low priority requests are accepted unless highPriorityOnly.
func ServiceFilter(channel uint8, highPriorityOnly bool) can.FrameFilter {
	accept := []can.FrameFilter{
		can.ByRange(EEDFirst, EEDLast),
		can.ByID(HighPriorityRequestID(channel)),
	}
	if !highPriorityOnly && channel <= MaxLowPriorityChannel {
		accept = append(accept, can.ByID(LowPriorityRequestID(channel)))
	}
	return can.And(can.StandardOnly(), can.DataOnly(), can.Or(accept...))
}
