package ahrs

import (
	"github.com/golang/glog"

	"github.com/gpgreen/ahrs/pkg/canaero"
	"github.com/gpgreen/ahrs/pkg/indicator"
	"github.com/gpgreen/ahrs/pkg/sensors"
	"github.com/gpgreen/ahrs/pkg/watchdog"
)

// ResetCounter updates the persisted reset counters once per boot.
type ResetCounter interface {
	UpdateOnBoot() (watchdog.Counters, watchdog.Cause, error)
}

// Boot brings the node from power-up to the listen state.
type Boot struct {
	Context  *Context
	Protocol Protocol
	Config   canaero.Config
	Devices  *Devices
	Features Features
	Watchdog Watchdog
	Resets   ResetCounter
	// BringUp opens the link below the protocol stack, optional.
	BringUp func() error
	Status  indicator.Indicator
	Fault   indicator.Indicator
}

func initDevice(name string, dev sensors.Device) error {
	if err := dev.Init(); err != nil {
		return err
	}
	glog.Infof("%s initialized.", name)
	if err := dev.SelfTest(); err != nil {
		return err
	}
	glog.Infof("%s self-test complete.", name)
	return nil
}

// Run executes the boot sequence. On success the node is in StateListen;
// otherwise the returned fault tells how to halt.
func (b *Boot) Run() Fault {
	ctx := b.Context
	ctx.SetState(StateInit)
	b.Status.Set(true)

	if b.Resets != nil {
		counters, cause, err := b.Resets.UpdateOnBoot()
		if err != nil {
			glog.Warningf("reset counters: %v", err)
		}
		ctx.Resets = counters
		glog.V(1).Infof("reset cause %s", cause)
	}

	b.Fault.Set(true)
	glog.Infof("%s", ModuleName)
	glog.Infof("Hardware: %d Software: %d", b.Config.HardwareRevision, b.Config.SoftwareRevision)
	b.Fault.Set(false)

	if b.BringUp != nil {
		if err := b.BringUp(); err != nil {
			return &PreCommsFault{Err: err}
		}
		glog.Info("link initialized.")
	}

	cfg := b.Config
	ctx.Filter = FilterHighPriorityOnly
	cfg.HighPriorityOnly = true
	if err := b.Protocol.Init(cfg); err != nil {
		return &PreCommsFault{Err: err}
	}
	glog.Info("canaero initialized.")
	if err := b.Protocol.SelfTest(); err != nil {
		return &PreCommsFault{Err: err}
	}
	glog.Info("canaero self-test complete.")

	b.Watchdog.Refresh()

	devs := b.Devices
	for _, p := range []struct {
		name string
		dev  sensors.Device
	}{{"static pressure", devs.Static}, {"dynamic pressure", devs.Dynamic}} {
		if err := initDevice(p.name, p.dev); err != nil {
			return &PostCommsFault{Code: FaultPressure, Err: err}
		}
	}
	ctx.Equipment.Set(EquipStaticAir, true)
	ctx.Equipment.Set(EquipDynamicAir, true)

	ctx.Equipment.Set(EquipAccelerometer, false)
	if b.Features.Accelerometer {
		if err := initDevice("accelerometer", devs.Accelerometer); err != nil {
			return &PostCommsFault{Code: FaultAccelerometer, Err: err}
		}
		ctx.Equipment.Set(EquipAccelerometer, true)
	}

	ctx.Equipment.Set(EquipGyroscope, false)
	if b.Features.Gyroscope {
		if err := initDevice("gyro", devs.Gyroscope); err != nil {
			return &PostCommsFault{Code: FaultGyroscope, Err: err}
		}
		ctx.Equipment.Set(EquipGyroscope, true)
	}

	glog.Infof("resets: %s", ctx.Resets)
	b.Status.Set(false)
	glog.Info("ioinit complete.")
	ctx.SetState(StateListen)
	return nil
}
