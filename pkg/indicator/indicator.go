// Package indicator drives status lamps.
package indicator

import (
	"sync"

	"github.com/golang/glog"
)

// Indicator is a lamp that can be switched on or off.
type Indicator interface {
	Set(on bool)
}

// Func is the func form of Indicator.
type Func func(on bool)

// Set implements Indicator.
func (f Func) Set(on bool) {
	f(on)
}

// Log reports lamp changes through glog at verbosity 1.
type Log struct {
	Name string

	lock sync.Mutex
	on   bool
	set  bool
}

// NewLog creates a logging indicator.
func NewLog(name string) *Log {
	return &Log{Name: name}
}

// Set implements Indicator. Only changes are logged.
func (l *Log) Set(on bool) {
	l.lock.Lock()
	changed := !l.set || l.on != on
	l.on, l.set = on, true
	l.lock.Unlock()
	if changed && bool(glog.V(1)) {
		state := "off"
		if on {
			state = "on"
		}
		glog.Infof("%s %s", l.Name, state)
	}
}

// On reports the last state set.
func (l *Log) On() bool {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.on
}

// Multi drives several indicators together.
type Multi []Indicator

// Set implements Indicator.
func (m Multi) Set(on bool) {
	for _, ind := range m {
		if ind != nil {
			ind.Set(on)
		}
	}
}
