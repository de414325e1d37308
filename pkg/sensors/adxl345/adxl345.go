// Package adxl345 drives the Analog Devices ADXL345 accelerometer over I2C.
package adxl345

import (
	"encoding/binary"
	"fmt"

	"github.com/golang/glog"
	"github.com/kidoman/embd"

	"github.com/gpgreen/ahrs/pkg/sensors"
)

// Register map.
const (
	Address = 0x53

	regDevID      = 0x00
	regBWRate     = 0x2C
	regPowerCtl   = 0x2D
	regDataFormat = 0x31
	regDataX0     = 0x32

	devID = 0xE5

	rate100Hz  = 0x0A
	measure    = 0x08
	fullRes    = 0x08
	selfTestOn = 0x80

	// ScaleG is g per LSB in full resolution mode.
	ScaleG = 0.0039

	// minimum z change in LSB when the self-test force is applied.
	minSelfTestDelta = 50
)

// Device is an ADXL345 reporting acceleration in g.
type Device struct {
	Bus embd.I2CBus

	raw [sensors.NumAxes]int16
}

// New creates a device on bus.
func New(bus embd.I2CBus) *Device {
	return &Device{Bus: bus}
}

// Init configures 100 Hz full resolution measurement.
func (d *Device) Init() error {
	id, err := d.Bus.ReadByteFromReg(Address, regDevID)
	if err != nil {
		return fmt.Errorf("adxl345: read device id: %v", err)
	}
	if id != devID {
		return fmt.Errorf("adxl345: device id %#x, expected %#x", id, devID)
	}
	for _, w := range [][2]byte{
		{regBWRate, rate100Hz},
		{regDataFormat, fullRes},
		{regPowerCtl, measure},
	} {
		if err = d.Bus.WriteByteToReg(Address, w[0], w[1]); err != nil {
			return fmt.Errorf("adxl345: write %#x: %v", w[0], err)
		}
	}
	glog.Info("adxl345 initialized.")
	return nil
}

// SelfTest applies the electrostatic self-test force and checks the z response.
func (d *Device) SelfTest() error {
	if err := d.Read(); err != nil {
		return err
	}
	before := d.raw[sensors.AxisZ]
	if err := d.Bus.WriteByteToReg(Address, regDataFormat, fullRes|selfTestOn); err != nil {
		return err
	}
	err := d.Read()
	after := d.raw[sensors.AxisZ]
	if rerr := d.Bus.WriteByteToReg(Address, regDataFormat, fullRes); err == nil {
		err = rerr
	}
	if err != nil {
		return err
	}
	if delta := int(after) - int(before); delta < minSelfTestDelta {
		return &sensors.SelfTestError{Device: "adxl345", Reason: fmt.Sprintf("z delta %d LSB", delta)}
	}
	glog.Info("adxl345 self-test complete.")
	return nil
}

// Read samples all axes.
func (d *Device) Read() error {
	buf := make([]byte, 6)
	if err := d.Bus.ReadFromReg(Address, regDataX0, buf); err != nil {
		return fmt.Errorf("adxl345: read data: %v", err)
	}
	for i := range d.raw {
		d.raw[i] = int16(binary.LittleEndian.Uint16(buf[2*i:]))
	}
	return nil
}

// Value implements sensors.Device.
func (d *Device) Value(axis int) float32 {
	if axis < 0 || axis >= sensors.NumAxes {
		return 0
	}
	return float32(d.raw[axis]) * ScaleG
}
