package link

import (
	"go.bug.st/serial"
)

// DefaultBaudRate is used when a serial URL does not specify one.
const DefaultBaudRate = 115200

// OpenSerial opens a serial port as a link, 8N1 with a read timeout.
func OpenSerial(name string, baud int) (*Link, error) {
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	port, err := serial.Open(name, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, err
	}
	l := New(port)
	l.Name = name
	if err := port.SetReadTimeout(l.Timeout); err != nil {
		port.Close()
		return nil, err
	}
	l.ReadTimeout = true
	return l, nil
}

// SerialPorts lists the serial ports present on the system.
func SerialPorts() ([]string, error) {
	return serial.GetPortsList()
}
