package env

import (
	"context"
	"io/ioutil"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gpgreen/ahrs/pkg/ahrs"
	"github.com/gpgreen/ahrs/pkg/can"
	"github.com/gpgreen/ahrs/pkg/can/link"
	"github.com/gpgreen/ahrs/pkg/framework"
	"github.com/gpgreen/ahrs/pkg/watchdog"
)

func TestConfigLoadFile(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "ahrs.yaml")
	require.NoError(t, ioutil.WriteFile(fn, []byte(`
bus: mqtt://broker:1883/ahrs/
node_id: 5
bit_rate: 500000
tx_wait: 50ms
features:
  gyroscope: false
watchdog_timeout: 2s
`), 0644))

	conf := Default()
	require.NoError(t, conf.LoadFile(fn))
	require.NoError(t, conf.Validate())
	require.Equal(t, "mqtt://broker:1883/ahrs/", conf.BusURL)
	require.Equal(t, ahrs.Features{Accelerometer: true}, conf.Features)
	require.Equal(t, 2*time.Second, conf.WatchdogTimeout)

	cfg := conf.CANaero()
	require.Equal(t, uint8(5), cfg.NodeID)
	require.Equal(t, uint32(500000), cfg.BitRate)
	require.Equal(t, 50*time.Millisecond, cfg.TxWait)
	require.True(t, cfg.HighPriorityOnly)

	require.Error(t, conf.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")))
	require.NoError(t, ioutil.WriteFile(fn, []byte("node_id: [1]"), 0644))
	require.Error(t, Default().LoadFile(fn))
}

func TestConfigValidate(t *testing.T) {
	testCases := []struct {
		name   string
		modify func(*Config)
		valid  bool
	}{
		{"default", func(*Config) {}, true},
		{"node id 0", func(c *Config) { c.NodeID = 0 }, false},
		{"bit rate", func(c *Config) { c.BitRate = 9600 }, false},
		{"channel", func(c *Config) { c.ServiceChannel = 36 }, false},
		{"devices", func(c *Config) { c.Devices = "spi" }, false},
		{"i2c", func(c *Config) { c.Devices = DevicesI2C }, true},
		{"no watchdog", func(c *Config) { c.WatchdogTimeout = 0 }, true},
		{"negative watchdog", func(c *Config) { c.WatchdogTimeout = -time.Second }, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			conf := Default()
			tc.modify(conf)
			if tc.valid {
				require.NoError(t, conf.Validate())
			} else {
				require.Error(t, conf.Validate())
			}
		})
	}
}

func TestFlagValues(t *testing.T) {
	var n8 uint8
	require.NoError(t, uint8Value{&n8}.Set("12"))
	require.Equal(t, uint8(12), n8)
	require.Equal(t, "12", uint8Value{&n8}.String())
	require.Error(t, uint8Value{&n8}.Set("x"))

	var n32 uint32
	require.NoError(t, uint32Value{&n32}.Set("1000000"))
	require.Equal(t, uint32(1000000), n32)
	require.Equal(t, "0", uint32Value{}.String())
}

func TestOpenBus(t *testing.T) {
	tr, err := OpenBus("loopback:", "test", time.Second)
	require.NoError(t, err)
	require.Empty(t, tr.Tasks)
	require.Nil(t, tr.BringUp)
	require.NoError(t, tr.Bus.Close())

	_, err = OpenBus("can0://", "test", time.Second)
	require.Error(t, err)
	_, err = OpenBus("serial:///dev/null?baud=fast", "test", time.Second)
	require.Error(t, err)
}

func freeAddr(t *testing.T) string {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	l.Close()
	return addr
}

func TestOpenBusWebsocket(t *testing.T) {
	addr := freeAddr(t)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	hub, err := OpenBus("ws-listen://"+addr+"/can", "test", time.Second)
	require.NoError(t, err)
	require.Len(t, hub.Tasks, 1)
	defer hub.Bus.Close()
	served := make(chan error, 1)
	go func() { served <- hub.Tasks[0].Run(ctx) }()

	var peer *Transport
	for peer == nil {
		if peer, err = OpenBus("ws://"+addr+"/can", "test", 2*time.Second); err != nil {
			select {
			case <-ctx.Done():
				t.Fatalf("hub not listening: %v", err)
			case <-time.After(20 * time.Millisecond):
			}
		}
	}
	defer peer.Bus.Close()
	go peer.Tasks[0].Run(ctx)
	require.NoError(t, peer.BringUp())

	f := can.MustFrame(0x100, 2, 7, 0, 1, 0, 125)
	require.NoError(t, peer.Bus.Send(ctx, f))
	got, err := hub.Bus.Receive(ctx)
	require.NoError(t, err)
	require.Equal(t, f, got)
	require.IsType(t, &link.Hub{}, hub.Bus)

	cancel()
	require.Equal(t, context.Canceled, <-served)
}

func TestSimDevices(t *testing.T) {
	devs := SimDevices(7)
	for _, dev := range []interface {
		Init() error
		Read() error
		Value(int) float32
	}{devs.Static, devs.Dynamic} {
		require.NoError(t, dev.Init())
		require.NoError(t, dev.Read())
		require.InDelta(t, SimStaticPressure, dev.Value(0), 200)
	}
}

func TestDaemon(t *testing.T) {
	conf := Default()
	conf.ResetsFile = filepath.Join(t.TempDir(), "resets.yaml")
	d, err := conf.NewDaemon()
	require.NoError(t, err)
	defer d.Close()

	names := []string{}
	for _, task := range d.Tasks() {
		names = append(names, nameOf(task))
	}
	require.Equal(t, []string{"ticks", "canaero", "watchdog", "node"}, names)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	for d.Node.Context.State() != ahrs.StateListen {
		select {
		case err := <-done:
			t.Fatalf("stopped before boot completed: %v", err)
		case <-time.After(5 * time.Millisecond):
		}
	}
	require.True(t, d.Node.Context.Equipment.Enabled(ahrs.EquipGyroscope))
	require.Equal(t, uint16(1), d.Node.Context.Resets.PowerOn)

	d.MarkExternalReset()
	cancel()
	require.NoError(t, <-done)

	st, err := d.Resets.Load()
	require.NoError(t, err)
	require.Equal(t, watchdog.CauseExternal, st.Pending)
	require.Equal(t, uint16(1), st.Counters.PowerOn)
}

func nameOf(r framework.Runnable) string {
	if named, ok := r.(framework.Named); ok {
		return named.Name()
	}
	return ""
}
