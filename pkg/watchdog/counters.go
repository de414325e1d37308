package watchdog

import (
	"fmt"
	"io/ioutil"
	"os"

	"gopkg.in/yaml.v3"
)

// Cause is the reason of a restart.
type Cause string

// Restart causes.
const (
	CausePowerOn  Cause = "power-on"
	CauseExternal Cause = "external"
	CauseBrownOut Cause = "brown-out"
	CauseWatchdog Cause = "watchdog"
)

// Counters count restarts per cause.
type Counters struct {
	PowerOn  uint16 `yaml:"power_on"`
	External uint16 `yaml:"external"`
	BrownOut uint16 `yaml:"brown_out"`
	Watchdog uint16 `yaml:"watchdog"`
}

// Count increments the counter of cause.
func (c *Counters) Count(cause Cause) {
	switch cause {
	case CauseExternal:
		c.External++
	case CauseBrownOut:
		c.BrownOut++
	case CauseWatchdog:
		c.Watchdog++
	default:
		c.PowerOn++
	}
}

// PowerOnExternal returns the power-on and external restart counts.
func (c Counters) PowerOnExternal() (uint16, uint16) {
	return c.PowerOn, c.External
}

// BrownOutWatchdog returns the brown-out and watchdog restart counts.
func (c Counters) BrownOutWatchdog() (uint16, uint16) {
	return c.BrownOut, c.Watchdog
}

func (c Counters) String() string {
	return fmt.Sprintf("power-on=%d external=%d brown-out=%d watchdog=%d",
		c.PowerOn, c.External, c.BrownOut, c.Watchdog)
}

// State is what the Store persists.
type State struct {
	Counters Counters `yaml:"counters"`
	// Pending is the cause recorded for the next start.
	Pending Cause `yaml:"pending,omitempty"`
}

// Store persists State as YAML. A missing file is an empty state.
type Store struct {
	Path string
}

// Load reads the state.
func (s *Store) Load() (st State, err error) {
	data, err := ioutil.ReadFile(s.Path)
	if os.IsNotExist(err) {
		return st, nil
	}
	if err != nil {
		return st, err
	}
	if err = yaml.Unmarshal(data, &st); err != nil {
		return st, fmt.Errorf("parse %s: %v", s.Path, err)
	}
	return st, nil
}

// Save writes the state.
func (s *Store) Save(st State) error {
	data, err := yaml.Marshal(&st)
	if err != nil {
		return err
	}
	return ioutil.WriteFile(s.Path, data, 0644)
}

// Mark records the cause of the next start.
func (s *Store) Mark(cause Cause) error {
	st, err := s.Load()
	if err != nil {
		return err
	}
	st.Pending = cause
	return s.Save(st)
}

// UpdateOnBoot counts this start against the recorded cause, power-on when
// none was recorded, and clears the record.
func (s *Store) UpdateOnBoot() (Counters, Cause, error) {
	st, err := s.Load()
	if err != nil {
		return st.Counters, CausePowerOn, err
	}
	cause := st.Pending
	if cause == "" {
		cause = CausePowerOn
	}
	st.Counters.Count(cause)
	st.Pending = ""
	return st.Counters, cause, s.Save(st)
}
