// Package l3g4200d drives the ST L3G4200D three axis gyroscope over I2C.
// Values are raw counts.
package l3g4200d

import (
	"encoding/binary"
	"fmt"

	"github.com/golang/glog"
	"github.com/kidoman/embd"

	"github.com/gpgreen/ahrs/pkg/sensors"
)

// Register map.
const (
	Address = 0x69

	regWhoAmI  = 0x0F
	regCtrl1   = 0x20
	regCtrl4   = 0x23
	regStatus  = 0x27
	regOutXL   = 0x28
	autoIncr   = 0x80
	whoAmI     = 0xD3
	normal100  = 0x0F // 100 Hz, normal mode, xyz enabled
	scale500   = 0x10 // 500 dps
	statusXYZA = 0x08
)

// Device is an L3G4200D.
type Device struct {
	Bus embd.I2CBus

	raw [sensors.NumAxes]int16
}

// New creates a device on bus.
func New(bus embd.I2CBus) *Device {
	return &Device{Bus: bus}
}

// Init powers the gyro up at 100 Hz, 500 dps.
func (d *Device) Init() error {
	if err := d.checkID(); err != nil {
		return err
	}
	if err := d.Bus.WriteByteToReg(Address, regCtrl1, normal100); err != nil {
		return fmt.Errorf("l3g4200d: ctrl1: %v", err)
	}
	if err := d.Bus.WriteByteToReg(Address, regCtrl4, scale500); err != nil {
		return fmt.Errorf("l3g4200d: ctrl4: %v", err)
	}
	glog.Info("gyro initialized.")
	return nil
}

func (d *Device) checkID() error {
	id, err := d.Bus.ReadByteFromReg(Address, regWhoAmI)
	if err != nil {
		return fmt.Errorf("l3g4200d: who am i: %v", err)
	}
	if id != whoAmI {
		return fmt.Errorf("l3g4200d: who am i %#x, expected %#x", id, whoAmI)
	}
	return nil
}

// SelfTest checks the identity and that a sample is available.
func (d *Device) SelfTest() error {
	if err := d.checkID(); err != nil {
		return &sensors.SelfTestError{Device: "l3g4200d", Reason: err.Error()}
	}
	status, err := d.Bus.ReadByteFromReg(Address, regStatus)
	if err != nil {
		return err
	}
	if status&statusXYZA == 0 {
		return &sensors.SelfTestError{Device: "l3g4200d", Reason: "no data available"}
	}
	glog.Info("gyro self-test complete.")
	return d.Read()
}

// Read samples all axes.
func (d *Device) Read() error {
	buf := make([]byte, 6)
	if err := d.Bus.ReadFromReg(Address, regOutXL|autoIncr, buf); err != nil {
		return fmt.Errorf("l3g4200d: read data: %v", err)
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
	return float32(d.raw[axis])
}
