package adxl345

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gpgreen/ahrs/pkg/sensors"
	"github.com/gpgreen/ahrs/pkg/sensors/sensortest"
)

func newBus(selfTestZ byte) *sensortest.Bus {
	bus := sensortest.NewBus()
	bus.Set(Address, regDevID, devID)
	// x=+256 LSB (1 g), y=-1, z=+10
	bus.Set(Address, regDataX0, 0x00, 0x01, 0xff, 0xff, 10, 0)
	bus.OnWrite = func(b *sensortest.Bus, w sensortest.Write) {
		if w.Reg != regDataFormat {
			return
		}
		z := byte(10)
		if w.Val&selfTestOn != 0 {
			z = selfTestZ
		}
		b.Set(Address, regDataX0+4, z, 0)
	}
	return bus
}

func TestInitReadSelfTest(t *testing.T) {
	bus := newBus(200)
	d := New(bus)
	require.NoError(t, d.Init())
	require.Equal(t, []sensortest.Write{
		{Addr: Address, Reg: regBWRate, Val: rate100Hz},
		{Addr: Address, Reg: regDataFormat, Val: fullRes},
		{Addr: Address, Reg: regPowerCtl, Val: measure},
	}, bus.Writes())

	require.NoError(t, d.Read())
	require.InDelta(t, 0.9984, d.Value(sensors.AxisX), 1e-4)
	require.InDelta(t, -0.0039, d.Value(sensors.AxisY), 1e-6)
	require.Equal(t, float32(0), d.Value(5))

	require.NoError(t, d.SelfTest())
	writes := bus.Writes()
	require.Equal(t, byte(fullRes), writes[len(writes)-1].Val)
}

func TestSelfTestFails(t *testing.T) {
	d := New(newBus(20))
	require.NoError(t, d.Init())
	err := d.SelfTest()
	require.True(t, errors.Is(err, sensors.ErrSelfTest))
}

func TestInitWrongDevice(t *testing.T) {
	bus := sensortest.NewBus()
	require.Error(t, New(bus).Init())
	bus.Err = errors.New("nack")
	require.Error(t, New(bus).Init())
}
