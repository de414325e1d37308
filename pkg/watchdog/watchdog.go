// Package watchdog supervises the main loop and keeps restart statistics.
package watchdog

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
)

// ErrExpired is returned by Run when the watchdog was not refreshed in time.
var ErrExpired = errors.New("watchdog expired")

// Watchdog must be refreshed within Timeout, otherwise it records the
// watchdog cause in Store and calls OnExpire.
type Watchdog struct {
	Timeout  time.Duration
	Store    *Store
	OnExpire func()

	last atomic.Int64
}

// New creates a watchdog.
func New(timeout time.Duration, store *Store) *Watchdog {
	w := &Watchdog{Timeout: timeout, Store: store}
	w.Refresh()
	return w
}

// Refresh restarts the timeout.
func (w *Watchdog) Refresh() {
	w.last.Store(time.Now().UnixNano())
}

// Expired reports whether the timeout elapsed since the last refresh.
func (w *Watchdog) Expired(now time.Time) bool {
	return now.Sub(time.Unix(0, w.last.Load())) > w.Timeout
}

// Run checks the deadline until ctx is done.
func (w *Watchdog) Run(ctx context.Context) error {
	w.Refresh()
	ticker := time.NewTicker(w.Timeout / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if !w.Expired(now) {
				continue
			}
			glog.Errorf("watchdog expired, not refreshed for %v", now.Sub(time.Unix(0, w.last.Load())))
			if w.Store != nil {
				if err := w.Store.Mark(CauseWatchdog); err != nil {
					glog.Errorf("watchdog: record cause: %v", err)
				}
			}
			if w.OnExpire != nil {
				w.OnExpire()
			}
			return ErrExpired
		}
	}
}
