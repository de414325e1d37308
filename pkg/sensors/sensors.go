// Package sensors defines the device contract the node samples.
package sensors

import (
	"errors"
	"fmt"
)

// Device is a sensor. Read samples the hardware, Value returns the last
// sample of an axis. Pressure devices have a single axis 0.
type Device interface {
	Init() error
	SelfTest() error
	Read() error
	Value(axis int) float32
}

// Axes.
const (
	AxisX = iota
	AxisY
	AxisZ
	NumAxes
)

// ErrSelfTest is wrapped by self-test failures.
var ErrSelfTest = errors.New("self-test failed")

// SelfTestError describes a failed self-test.
type SelfTestError struct {
	Device string
	Reason string
}

func (e *SelfTestError) Error() string {
	return fmt.Sprintf("%s: %v: %s", e.Device, ErrSelfTest, e.Reason)
}

// Unwrap returns ErrSelfTest.
func (e *SelfTestError) Unwrap() error {
	return ErrSelfTest
}
