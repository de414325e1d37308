// Package env sets up the process environment of the node: configuration
// from flags, environment and a YAML file, bus and device opening, and the
// wiring of the node with its background tasks.
package env

import (
	"flag"
	"fmt"
	"io/ioutil"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gpgreen/ahrs/pkg/ahrs"
	"github.com/gpgreen/ahrs/pkg/canaero"
)

// Config is the node configuration.
type Config struct {
	// BusURL selects the CAN transport, see OpenBus.
	BusURL         string        `yaml:"bus"`
	NodeID         uint8         `yaml:"node_id"`
	ServiceChannel uint8         `yaml:"service_channel"`
	BitRate        uint32        `yaml:"bit_rate"`
	TxWait         time.Duration `yaml:"tx_wait"`

	// Devices is "sim" or "i2c".
	Devices string `yaml:"devices"`
	I2CBus  byte   `yaml:"i2c_bus"`
	// PitotI2CBus carries the dynamic pressure sensor, a second BMP085 at
	// the same address.
	PitotI2CBus byte `yaml:"pitot_i2c_bus"`
	// SimSeed seeds the simulated devices.
	SimSeed  int64         `yaml:"sim_seed"`
	Features ahrs.Features `yaml:"features"`

	// StatusLED and FaultLED are GPIO pin keys; empty logs the lamp instead.
	StatusLED string `yaml:"status_led"`
	FaultLED  string `yaml:"fault_led"`

	// WatchdogTimeout of 0 leaves the main loop and the halts unsupervised.
	WatchdogTimeout time.Duration `yaml:"watchdog_timeout"`
	// ResetsFile persists the reset counters; empty keeps them in memory.
	ResetsFile string `yaml:"resets_file"`
	// LinkTimeout bounds waiting for a byte link to synchronise at boot.
	LinkTimeout time.Duration `yaml:"link_timeout"`
}

// Device sources.
const (
	DevicesSim = "sim"
	DevicesI2C = "i2c"
)

var defaultConfig = Config{
	BusURL:          "loopback:",
	NodeID:          canaero.DefaultConfig().NodeID,
	ServiceChannel:  canaero.DefaultConfig().ServiceChannel,
	BitRate:         canaero.DefaultConfig().BitRate,
	TxWait:          canaero.DefaultConfig().TxWait,
	Devices:         DevicesSim,
	I2CBus:          1,
	PitotI2CBus:     2,
	SimSeed:         1,
	Features:        ahrs.Features{Accelerometer: true, Gyroscope: true},
	WatchdogTimeout: time.Second,
	LinkTimeout:     5 * time.Second,
}

var configFile string

func init() {
	if val := os.Getenv("AHRS_BUS_URL"); val != "" {
		defaultConfig.BusURL = val
	}
	if val := os.Getenv("AHRS_CONFIG"); val != "" {
		configFile = val
	}
}

// flagConfig receives the command line values, applied over the file.
var flagConfig = defaultConfig

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&configFile, "config", configFile, "YAML configuration file.")
	flag.StringVar(&flagConfig.BusURL, "bus", defaultConfig.BusURL,
		"CAN bus URL: loopback:, mqtt://host:1883/prefix/, serial:///dev/ttyUSB0?baud=115200, ws://host/path, ws-listen://:8080/can.")
	flag.Var(uint8Value{&flagConfig.NodeID}, "node-id", "CANaerospace node id.")
	flag.Var(uint8Value{&flagConfig.ServiceChannel}, "channel", "Node service channel.")
	flag.Var(uint32Value{&flagConfig.BitRate}, "bitrate", "CAN bit rate.")
	flag.DurationVar(&flagConfig.TxWait, "tx-wait", defaultConfig.TxWait, "Transmit buffer wait.")
	flag.StringVar(&flagConfig.Devices, "devices", defaultConfig.Devices, "Sensor devices: sim or i2c.")
	flag.Var(uint8Value{&flagConfig.I2CBus}, "i2c-bus", "I2C bus number.")
	flag.Var(uint8Value{&flagConfig.PitotI2CBus}, "pitot-i2c-bus", "I2C bus number of the dynamic pressure sensor.")
	flag.Int64Var(&flagConfig.SimSeed, "sim-seed", defaultConfig.SimSeed, "Seed of simulated devices.")
	flag.BoolVar(&flagConfig.Features.Accelerometer, "accel", defaultConfig.Features.Accelerometer, "Accelerometer fitted.")
	flag.BoolVar(&flagConfig.Features.Gyroscope, "gyro", defaultConfig.Features.Gyroscope, "Gyroscope fitted.")
	flag.StringVar(&flagConfig.StatusLED, "status-led", defaultConfig.StatusLED, "GPIO pin of the status LED.")
	flag.StringVar(&flagConfig.FaultLED, "fault-led", defaultConfig.FaultLED, "GPIO pin of the fault LED.")
	flag.DurationVar(&flagConfig.WatchdogTimeout, "watchdog", defaultConfig.WatchdogTimeout, "Watchdog timeout.")
	flag.StringVar(&flagConfig.ResetsFile, "resets", defaultConfig.ResetsFile, "Reset counters file.")
	flag.DurationVar(&flagConfig.LinkTimeout, "link-timeout", defaultConfig.LinkTimeout, "Byte link sync timeout.")
}

// flagFields maps flag names to the config fields they set.
var flagFields = map[string]func(dst, src *Config){
	"bus":           func(d, s *Config) { d.BusURL = s.BusURL },
	"node-id":       func(d, s *Config) { d.NodeID = s.NodeID },
	"channel":       func(d, s *Config) { d.ServiceChannel = s.ServiceChannel },
	"bitrate":       func(d, s *Config) { d.BitRate = s.BitRate },
	"tx-wait":       func(d, s *Config) { d.TxWait = s.TxWait },
	"devices":       func(d, s *Config) { d.Devices = s.Devices },
	"i2c-bus":       func(d, s *Config) { d.I2CBus = s.I2CBus },
	"pitot-i2c-bus": func(d, s *Config) { d.PitotI2CBus = s.PitotI2CBus },
	"sim-seed":      func(d, s *Config) { d.SimSeed = s.SimSeed },
	"accel":         func(d, s *Config) { d.Features.Accelerometer = s.Features.Accelerometer },
	"gyro":          func(d, s *Config) { d.Features.Gyroscope = s.Features.Gyroscope },
	"status-led":    func(d, s *Config) { d.StatusLED = s.StatusLED },
	"fault-led":     func(d, s *Config) { d.FaultLED = s.FaultLED },
	"watchdog":      func(d, s *Config) { d.WatchdogTimeout = s.WatchdogTimeout },
	"resets":        func(d, s *Config) { d.ResetsFile = s.ResetsFile },
	"link-timeout":  func(d, s *Config) { d.LinkTimeout = s.LinkTimeout },
}

// Default gets the default config.
func Default() *Config {
	conf := defaultConfig
	return &conf
}

// NewConfig builds the config from defaults, the environment, the
// configuration file and the flags set on the command line, in that order.
func NewConfig() (*Config, error) {
	conf := Default()
	if configFile != "" {
		if err := conf.LoadFile(configFile); err != nil {
			return nil, err
		}
	}
	flag.Visit(func(f *flag.Flag) {
		if apply := flagFields[f.Name]; apply != nil {
			apply(conf, &flagConfig)
		}
	})
	return conf, conf.Validate()
}

// LoadFile merges a YAML file into c.
func (c *Config) LoadFile(fn string) error {
	data, err := ioutil.ReadFile(fn)
	if err != nil {
		return err
	}
	if err = yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %v", fn, err)
	}
	return nil
}

// CANaero returns the protocol stack configuration.
func (c *Config) CANaero() canaero.Config {
	cfg := canaero.DefaultConfig()
	cfg.NodeID = c.NodeID
	cfg.ServiceChannel = c.ServiceChannel
	cfg.BitRate = c.BitRate
	cfg.TxWait = c.TxWait
	return cfg
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	cfg := c.CANaero()
	if err := cfg.Validate(); err != nil {
		return err
	}
	switch c.Devices {
	case DevicesSim, DevicesI2C:
	default:
		return fmt.Errorf("unknown devices %q", c.Devices)
	}
	if c.WatchdogTimeout < 0 {
		return fmt.Errorf("negative watchdog timeout")
	}
	return nil
}

type uint8Value struct{ p *uint8 }

func (v uint8Value) String() string {
	if v.p == nil {
		return "0"
	}
	return fmt.Sprint(*v.p)
}

func (v uint8Value) Set(s string) error {
	var n uint8
	if _, err := fmt.Sscan(s, &n); err != nil {
		return err
	}
	*v.p = n
	return nil
}

type uint32Value struct{ p *uint32 }

func (v uint32Value) String() string {
	if v.p == nil {
		return "0"
	}
	return fmt.Sprint(*v.p)
}

func (v uint32Value) Set(s string) error {
	var n uint32
	if _, err := fmt.Sscan(s, &n); err != nil {
		return err
	}
	*v.p = n
	return nil
}
