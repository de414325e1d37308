package bmp085

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gpgreen/ahrs/pkg/sensors/sensortest"
)

func TestInitChipID(t *testing.T) {
	bus := sensortest.NewBus()
	d := New("static", bus)
	require.Error(t, d.Init())
	require.Error(t, d.Read())

	bus.Set(Address, regChipID, chipID)
	require.NoError(t, d.Init())
	require.Equal(t, float32(0), d.Value(0))
	require.Equal(t, float32(0), d.Value(1))
}
