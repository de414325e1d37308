package ahrs

import (
	"context"
	"time"

	"github.com/golang/glog"

	"github.com/gpgreen/ahrs/pkg/sensors"
)

// Scheduler is the cooperative main loop.
type Scheduler struct {
	Context   *Context
	Ticks     *Ticks
	Transport Transport
	Telemetry *Telemetry
	Devices   *Devices
	Features  Features
	Watchdog  Watchdog
	// Now defaults to time.Now.
	Now func() time.Time

	last     time.Time
	pressure int
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// CycleTime converts d to tenths of a millisecond, saturated to 16 bits.
func CycleTime(d time.Duration) uint16 {
	tenths := d / (100 * time.Microsecond)
	switch {
	case tenths < 0:
		return 0
	case tenths > 0xFFFF:
		return 0xFFFF
	}
	return uint16(tenths)
}

func read(name string, dev sensors.Device) {
	if err := dev.Read(); err != nil {
		glog.Warningf("%s read: %v", name, err)
	}
}

// Step runs one loop iteration. It returns a fatal fault raised by a
// service handler.
func (s *Scheduler) Step() Fault {
	ctx := s.Context
	if s.last.IsZero() {
		s.last = s.now()
	}

	s.Watchdog.Refresh()

	if s.Transport.PollInterrupt() {
		s.Transport.DispatchPending()
		if f := ctx.TakeFault(); f != nil {
			if f.Fatal() {
				return f
			}
			glog.Warningf("%v", f)
		}
	}

	if s.Ticks.Take80() {
		now := s.now()
		gyro := s.Features.Gyroscope && ctx.Equipment.Enabled(EquipGyroscope)
		accel := s.Features.Accelerometer && ctx.Equipment.Enabled(EquipAccelerometer)
		if gyro {
			read("gyro", s.Devices.Gyroscope)
		}
		if accel {
			read("accelerometer", s.Devices.Accelerometer)
		}
		ctx.CycleTime = CycleTime(now.Sub(s.last))
		s.last = now
		if ctx.State() == StateActive {
			s.Telemetry.Transmit(StatusStart, StatusEnd)
			if gyro {
				s.Telemetry.Transmit(GyroStart, GyroEnd)
			}
			if accel {
				s.Telemetry.Transmit(AccelStart, AccelEnd)
			}
		}
	}

	if s.Ticks.Take20() {
		// one pressure device per tick
		n := s.pressure
		s.pressure = (s.pressure + 1) % 2
		if ctx.Equipment.Enabled(EquipStaticAir + n) {
			read("pressure", s.Devices.Pressure(n))
		}
		if ctx.State() == StateActive {
			if ctx.Equipment.Enabled(EquipStaticAir) {
				s.Telemetry.Transmit(StaticAirStart, StaticAirEnd)
			}
			if ctx.Equipment.Enabled(EquipDynamicAir) {
				s.Telemetry.Transmit(DynamicAirStart, DynamicAirEnd)
			}
		}
	}
	return nil
}

// Run steps until ctx is done or a fatal fault is raised, which is returned.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if f := s.Step(); f != nil {
			return f
		}
		if s.Ticks.Pending() || s.Transport.PollInterrupt() {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.Ticks.Wake():
		case <-s.Transport.Wake():
		}
	}
}
