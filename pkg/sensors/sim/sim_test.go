package sim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gpgreen/ahrs/pkg/sensors"
)

func TestDevice(t *testing.T) {
	d := NewPressure("static", 1, 101325)
	require.Equal(t, ErrNotInitialized, d.Read())
	require.Equal(t, ErrNotInitialized, d.SelfTest())
	require.NoError(t, d.Init())
	require.NoError(t, d.SelfTest())
	require.Equal(t, float32(101325), d.Value(0))
	for i := 0; i < 100; i++ {
		require.NoError(t, d.Read())
		require.InDelta(t, 101325, d.Value(0), 3.01)
	}
	require.Equal(t, 100, d.Reads())
	require.Equal(t, float32(0), d.Value(7))
}

func TestDeviceFailures(t *testing.T) {
	d := NewGyroscope(1)
	d.InitErr = errors.New("no ack")
	require.EqualError(t, d.Init(), "no ack")

	d = NewAccelerometer(1)
	d.SelfTestErr = errors.New("z out of range")
	require.NoError(t, d.Init())
	err := d.SelfTest()
	require.Error(t, err)
	require.True(t, errors.Is(err, sensors.ErrSelfTest))
	require.Equal(t, "accelerometer: self-test failed: z out of range", err.Error())
}
