// Package sensortest provides an in-memory I2C bus for driver tests.
package sensortest

import (
	"sync"

	"github.com/kidoman/embd"
)

// Write records a register write.
type Write struct {
	Addr, Reg, Val byte
}

// Bus is a register file per device address. Methods not overridden
// panic through the nil embedded interface.
type Bus struct {
	embd.I2CBus

	// RegMask is applied to register addresses of block reads.
	RegMask byte
	// OnWrite runs after a register write is stored.
	OnWrite func(b *Bus, w Write)
	// Err fails every access when set.
	Err error

	lock   sync.Mutex
	regs   map[byte]map[byte]byte
	writes []Write
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{RegMask: 0xFF, regs: make(map[byte]map[byte]byte)}
}

// Set stores consecutive register values.
func (b *Bus) Set(addr, reg byte, vals ...byte) {
	b.lock.Lock()
	defer b.lock.Unlock()
	dev := b.regs[addr]
	if dev == nil {
		dev = make(map[byte]byte)
		b.regs[addr] = dev
	}
	for i, v := range vals {
		dev[reg+byte(i)] = v
	}
}

// Writes returns the recorded writes.
func (b *Bus) Writes() []Write {
	b.lock.Lock()
	defer b.lock.Unlock()
	return append([]Write(nil), b.writes...)
}

// ReadByteFromReg implements embd.I2CBus.
func (b *Bus) ReadByteFromReg(addr, reg byte) (byte, error) {
	if b.Err != nil {
		return 0, b.Err
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.regs[addr][reg], nil
}

// ReadFromReg implements embd.I2CBus.
func (b *Bus) ReadFromReg(addr, reg byte, value []byte) error {
	if b.Err != nil {
		return b.Err
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	reg &= b.RegMask
	for i := range value {
		value[i] = b.regs[addr][reg+byte(i)]
	}
	return nil
}

// WriteByteToReg implements embd.I2CBus.
func (b *Bus) WriteByteToReg(addr, reg, val byte) error {
	if b.Err != nil {
		return b.Err
	}
	w := Write{Addr: addr, Reg: reg, Val: val}
	b.Set(addr, reg, val)
	b.lock.Lock()
	b.writes = append(b.writes, w)
	hook := b.OnWrite
	b.lock.Unlock()
	if hook != nil {
		hook(b, w)
	}
	return nil
}
