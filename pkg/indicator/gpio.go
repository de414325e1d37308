package indicator

import (
	"fmt"

	"github.com/golang/glog"
	"github.com/kidoman/embd"

	_ "github.com/kidoman/embd/host/all" // host drivers
)

// GPIO is an LED on a digital output pin.
type GPIO struct {
	Key string

	pin embd.DigitalPin
}

// OpenGPIO configures pin key (e.g. "GPIO_17" or 17) as an output.
func OpenGPIO(key interface{}) (*GPIO, error) {
	if err := embd.InitGPIO(); err != nil {
		return nil, fmt.Errorf("init gpio: %v", err)
	}
	pin, err := embd.NewDigitalPin(key)
	if err != nil {
		return nil, fmt.Errorf("gpio %v: %v", key, err)
	}
	if err = pin.SetDirection(embd.Out); err != nil {
		pin.Close()
		return nil, fmt.Errorf("gpio %v direction: %v", key, err)
	}
	return &GPIO{Key: fmt.Sprint(key), pin: pin}, nil
}

// Set implements Indicator.
func (g *GPIO) Set(on bool) {
	val := embd.Low
	if on {
		val = embd.High
	}
	if err := g.pin.Write(val); err != nil {
		glog.Warningf("gpio %s write: %v", g.Key, err)
	}
}

// Close releases the pin.
func (g *GPIO) Close() error {
	return g.pin.Close()
}
