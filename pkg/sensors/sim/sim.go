// Package sim provides simulated sensor devices.
package sim

import (
	"errors"
	"math/rand"

	"github.com/gpgreen/ahrs/pkg/sensors"
)

// ErrNotInitialized is returned by Read before Init.
var ErrNotInitialized = errors.New("sim: device not initialized")

// Device produces Base plus uniform noise in [-Noise, Noise] on every axis.
type Device struct {
	Name  string
	Base  [sensors.NumAxes]float32
	Noise float32

	// Failures injected by tests or configuration.
	InitErr     error
	SelfTestErr error

	rnd         *rand.Rand
	values      [sensors.NumAxes]float32
	initialized bool
	reads       int
}

// NewDevice creates a device seeded with seed.
func NewDevice(name string, seed int64, base [sensors.NumAxes]float32, noise float32) *Device {
	return &Device{Name: name, Base: base, Noise: noise, rnd: rand.New(rand.NewSource(seed))}
}

// NewAccelerometer is level and at rest, in g.
func NewAccelerometer(seed int64) *Device {
	return NewDevice("accelerometer", seed, [sensors.NumAxes]float32{0, 0, -1}, 0.01)
}

// NewGyroscope is at rest, in raw counts.
func NewGyroscope(seed int64) *Device {
	return NewDevice("gyroscope", seed, [sensors.NumAxes]float32{}, 8)
}

// NewPressure reports pressure in pascal.
func NewPressure(name string, seed int64, pascal float32) *Device {
	return NewDevice(name, seed, [sensors.NumAxes]float32{pascal}, 3)
}

// Init implements sensors.Device.
func (d *Device) Init() error {
	if d.InitErr != nil {
		return d.InitErr
	}
	d.initialized = true
	d.values = d.Base
	return nil
}

// SelfTest implements sensors.Device.
func (d *Device) SelfTest() error {
	if !d.initialized {
		return ErrNotInitialized
	}
	if d.SelfTestErr != nil {
		return &sensors.SelfTestError{Device: d.Name, Reason: d.SelfTestErr.Error()}
	}
	return nil
}

// Read implements sensors.Device.
func (d *Device) Read() error {
	if !d.initialized {
		return ErrNotInitialized
	}
	for i := range d.values {
		d.values[i] = d.Base[i]
		if d.Noise != 0 && d.rnd != nil {
			d.values[i] += (d.rnd.Float32()*2 - 1) * d.Noise
		}
	}
	d.reads++
	return nil
}

// Value implements sensors.Device.
func (d *Device) Value(axis int) float32 {
	if axis < 0 || axis >= len(d.values) {
		return 0
	}
	return d.values[axis]
}

// Reads counts successful reads.
func (d *Device) Reads() int {
	return d.reads
}
