package env

import (
	"fmt"
	"io"

	"github.com/kidoman/embd"

	_ "github.com/kidoman/embd/host/all" // host drivers

	"github.com/gpgreen/ahrs/pkg/ahrs"
	"github.com/gpgreen/ahrs/pkg/indicator"
	"github.com/gpgreen/ahrs/pkg/sensors/adxl345"
	"github.com/gpgreen/ahrs/pkg/sensors/bmp085"
	"github.com/gpgreen/ahrs/pkg/sensors/l3g4200d"
	"github.com/gpgreen/ahrs/pkg/sensors/sim"
)

// Simulated pressures at rest, in pascal.
const (
	SimStaticPressure  = 101325
	SimDynamicPressure = 101400
)

// SimDevices creates simulated devices seeded from seed.
func SimDevices(seed int64) *ahrs.Devices {
	return &ahrs.Devices{
		Static:        sim.NewPressure("static", seed, SimStaticPressure),
		Dynamic:       sim.NewPressure("dynamic", seed+1, SimDynamicPressure),
		Accelerometer: sim.NewAccelerometer(seed + 2),
		Gyroscope:     sim.NewGyroscope(seed + 3),
	}
}

// Hardware holds what OpenDevices opened.
type Hardware struct {
	Devices *ahrs.Devices
	closers []io.Closer
}

// Close releases buses and pins.
func (h *Hardware) Close() error {
	var firstErr error
	for i := len(h.closers) - 1; i >= 0; i-- {
		if err := h.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	h.closers = nil
	return firstErr
}

// OpenDevices opens the configured sensors. For i2c, buses are only opened
// here; the devices are probed by boot.
func (c *Config) OpenDevices() (*Hardware, error) {
	if c.Devices == DevicesSim {
		return &Hardware{Devices: SimDevices(c.SimSeed)}, nil
	}
	if err := embd.InitI2C(); err != nil {
		return nil, fmt.Errorf("init i2c: %v", err)
	}
	hw := &Hardware{closers: []io.Closer{closerFunc(embd.CloseI2C)}}
	bus := embd.NewI2CBus(c.I2CBus)
	pitot := bus
	hw.closers = append(hw.closers, bus)
	if c.PitotI2CBus != c.I2CBus {
		pitot = embd.NewI2CBus(c.PitotI2CBus)
		hw.closers = append(hw.closers, pitot)
	}
	hw.Devices = &ahrs.Devices{
		Static:        bmp085.New("static", bus),
		Dynamic:       bmp085.New("dynamic", pitot),
		Accelerometer: adxl345.New(bus),
		Gyroscope:     l3g4200d.New(bus),
	}
	return hw, nil
}

// OpenIndicators opens the status and fault lamps: GPIO pins when
// configured, glog otherwise.
func (c *Config) OpenIndicators() (status, fault indicator.Indicator, closers []io.Closer, err error) {
	open := func(name, key string) (indicator.Indicator, error) {
		if key == "" {
			return indicator.NewLog(name), nil
		}
		g, err := indicator.OpenGPIO(key)
		if err != nil {
			return nil, err
		}
		closers = append(closers, g)
		return g, nil
	}
	if status, err = open("status", c.StatusLED); err != nil {
		return
	}
	if fault, err = open("fault", c.FaultLED); err != nil {
		for _, cl := range closers {
			cl.Close()
		}
		closers = nil
	}
	return
}

type closerFunc func() error

func (f closerFunc) Close() error {
	return f()
}
