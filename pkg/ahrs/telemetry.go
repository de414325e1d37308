package ahrs

import (
	"github.com/golang/glog"

	"github.com/gpgreen/ahrs/pkg/canaero"
	"github.com/gpgreen/ahrs/pkg/sensors"
)

// Normal operation data identifiers.
const (
	IDCycleTime             = 0x100
	IDBodyLongitudinalAccel = 0x101
	IDBodyLateralAccel      = 0x102
	IDBodyNormalAccel       = 0x103
	IDBodyPitchRate         = 0x104
	IDBodyRollRate          = 0x105
	IDBodyYawRate           = 0x106
	IDStaticPressure        = 0x108
	IDTotalPressure         = 0x10A
)

// Catalog ranges, half open.
const (
	StatusStart, StatusEnd         = 0, 1
	AccelStart, AccelEnd           = 1, 4
	GyroStart, GyroEnd             = 4, 7
	StaticAirStart, StaticAirEnd   = 7, 8
	DynamicAirStart, DynamicAirEnd = 8, 9
	CatalogSize                    = 9
)

var telemetryNames = map[uint32]string{
	IDCycleTime:             "cycle time",
	IDBodyLongitudinalAccel: "body longitudinal acceleration",
	IDBodyLateralAccel:      "body lateral acceleration",
	IDBodyNormalAccel:       "body normal acceleration",
	IDBodyPitchRate:         "body pitch rate",
	IDBodyRollRate:          "body roll rate",
	IDBodyYawRate:           "body yaw rate",
	IDStaticPressure:        "static pressure",
	IDTotalPressure:         "total pressure",
}

// TelemetryName names a normal operation data identifier, empty when unknown.
func TelemetryName(id uint32) string {
	return telemetryNames[id]
}

// Telemetry owns the message catalog. Producers sample the context and the
// devices at transmit time.
type Telemetry struct {
	Transport Transport
	Catalog   [CatalogSize]canaero.MessageTemplate
}

func axisProducer(dev func() sensors.Device, axis int) canaero.Producer {
	return func(b []byte) {
		var v float32
		if d := dev(); d != nil {
			v = d.Value(axis)
		}
		canaero.PutFloat(b, v)
	}
}

// NewTelemetry builds the catalog over ctx and devs.
func NewTelemetry(t Transport, ctx *Context, devs *Devices) *Telemetry {
	accel := func() sensors.Device { return devs.Accelerometer }
	gyro := func() sensors.Device { return devs.Gyroscope }
	static := func() sensors.Device { return devs.Static }
	dynamic := func() sensors.Device { return devs.Dynamic }
	return &Telemetry{
		Transport: t,
		Catalog: [CatalogSize]canaero.MessageTemplate{
			{ID: IDCycleTime, Name: telemetryNames[IDCycleTime], Type: canaero.USHORT,
				Producer: func(b []byte) { canaero.PutUShort(b, ctx.CycleTime) }},
			{ID: IDBodyLongitudinalAccel, Name: telemetryNames[IDBodyLongitudinalAccel], Type: canaero.FLOAT,
				Producer: axisProducer(accel, sensors.AxisX)},
			{ID: IDBodyLateralAccel, Name: telemetryNames[IDBodyLateralAccel], Type: canaero.FLOAT,
				Producer: axisProducer(accel, sensors.AxisY)},
			{ID: IDBodyNormalAccel, Name: telemetryNames[IDBodyNormalAccel], Type: canaero.FLOAT,
				Producer: axisProducer(accel, sensors.AxisZ)},
			{ID: IDBodyPitchRate, Name: telemetryNames[IDBodyPitchRate], Type: canaero.FLOAT,
				Producer: axisProducer(gyro, sensors.AxisX)},
			{ID: IDBodyRollRate, Name: telemetryNames[IDBodyRollRate], Type: canaero.FLOAT,
				Producer: axisProducer(gyro, sensors.AxisY)},
			{ID: IDBodyYawRate, Name: telemetryNames[IDBodyYawRate], Type: canaero.FLOAT,
				Producer: axisProducer(gyro, sensors.AxisZ)},
			{ID: IDStaticPressure, Name: telemetryNames[IDStaticPressure], Type: canaero.FLOAT,
				Producer: axisProducer(static, 0)},
			{ID: IDTotalPressure, Name: telemetryNames[IDTotalPressure], Type: canaero.FLOAT,
				Producer: axisProducer(dynamic, 0)},
		},
	}
}

// Transmit sends catalog entries [start, end). A failed send is logged and
// the remaining entries are still sent.
func (t *Telemetry) Transmit(start, end int) {
	for i := start; i < end; i++ {
		if err := t.Transport.Send(t.Catalog[i].Message()); err != nil {
			glog.Warningf("telemetry %s: %v", t.Catalog[i].Name, err)
		}
	}
}
