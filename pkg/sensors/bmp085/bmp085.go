// Package bmp085 adapts the Bosch BMP085 pressure sensor on an I2C bus.
package bmp085

import (
	"fmt"
	"sync"

	"github.com/golang/glog"
	"github.com/kidoman/embd"
	"github.com/kidoman/embd/sensor/bmp085"

	"github.com/gpgreen/ahrs/pkg/sensors"
)

// Register map.
const (
	Address   = 0x77
	regChipID = 0xD0
	chipID    = 0x55

	minPressure = 30000
	maxPressure = 110000
)

// Device is a BMP085 reporting pressure in pascal on axis 0.
type Device struct {
	Name string
	Bus  embd.I2CBus

	lock     sync.Mutex
	sensor   *bmp085.BMP085
	pressure float32
}

// New creates a device on bus.
func New(name string, bus embd.I2CBus) *Device {
	return &Device{Name: name, Bus: bus}
}

// Init checks the chip identity and loads calibration through the first reading.
func (d *Device) Init() error {
	id, err := d.Bus.ReadByteFromReg(Address, regChipID)
	if err != nil {
		return fmt.Errorf("%s: read chip id: %v", d.Name, err)
	}
	if id != chipID {
		return fmt.Errorf("%s: chip id %#x, expected %#x", d.Name, id, chipID)
	}
	d.lock.Lock()
	d.sensor = bmp085.New(d.Bus)
	d.lock.Unlock()
	glog.Infof("%s: bmp085 initialized.", d.Name)
	return nil
}

// SelfTest verifies a reading is physically plausible.
func (d *Device) SelfTest() error {
	if err := d.Read(); err != nil {
		return &sensors.SelfTestError{Device: d.Name, Reason: err.Error()}
	}
	if p := d.Value(0); p < minPressure || p > maxPressure {
		return &sensors.SelfTestError{Device: d.Name, Reason: fmt.Sprintf("pressure %g Pa out of range", p)}
	}
	return nil
}

// Read samples the pressure.
func (d *Device) Read() error {
	d.lock.Lock()
	s := d.sensor
	d.lock.Unlock()
	if s == nil {
		return fmt.Errorf("%s: not initialized", d.Name)
	}
	p, err := s.Pressure()
	if err != nil {
		return err
	}
	d.lock.Lock()
	d.pressure = float32(p)
	d.lock.Unlock()
	return nil
}

// Value implements sensors.Device.
func (d *Device) Value(axis int) float32 {
	if axis != 0 {
		return 0
	}
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.pressure
}
