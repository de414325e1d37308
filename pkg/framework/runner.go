package framework

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/golang/glog"
)

// ErrForcedExit is returned by Wait after a second stop signal.
var ErrForcedExit = errors.New("forced exit")

// Runner runs a group of Runnables. The first task to fail stops the
// others; Wait collects every failure.
type Runner struct {
	Context context.Context

	cancel  context.CancelFunc
	count   int
	errCh   chan error
	exitCh  chan struct{}
	exitOne sync.Once
}

// NewRunner creates a runner with a default background context.
func NewRunner() *Runner {
	return NewRunnerWith(context.Background())
}

// NewRunnerWith creates a runner derived from ctx.
func NewRunnerWith(ctx context.Context) *Runner {
	r := &Runner{errCh: make(chan error), exitCh: make(chan struct{})}
	r.Context, r.cancel = context.WithCancel(ctx)
	return r
}

// HandleSignals stops the group on SIGINT or SIGTERM. onStop, if set, runs
// once before the group is stopped.
func (r *Runner) HandleSignals(onStop func()) *Runner {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
		case <-r.Context.Done():
			signal.Stop(sigCh)
			return
		}
		glog.Info("stop requested")
		if onStop != nil {
			onStop()
		}
		r.cancel()
		<-sigCh
		glog.Error("stop requested again, force exit")
		r.exitOne.Do(func() { close(r.exitCh) })
	}()
	return r
}

// Go starts tasks in the group.
func (r *Runner) Go(tasks ...Runnable) *Runner {
	for _, task := range tasks {
		name := nameOf(task, r.count)
		r.count++
		glog.V(4).Infof("start task %s", name)
		go func(task Runnable, name string) {
			err := task.Run(r.Context)
			glog.V(4).Infof("task %s stopped: %v", name, err)
			if err != nil && !errors.Is(err, context.Canceled) {
				glog.Errorf("task %s failed: %v", name, err)
				r.cancel()
				err = &TaskError{Task: name, Err: err}
			} else {
				err = nil
			}
			r.errCh <- err
		}(task, name)
	}
	return r
}

// Stop cancels the group.
func (r *Runner) Stop() {
	r.cancel()
}

// Wait waits for every task and aggregates their failures.
func (r *Runner) Wait() error {
	var errs AggregatedError
	for n := 0; n < r.count; n++ {
		select {
		case <-r.exitCh:
			return ErrForcedExit
		case err := <-r.errCh:
			errs.Add(err)
		}
	}
	r.count = 0
	r.cancel()
	return errs.Aggregate()
}

// RunWithContextCancel runs fn which does not accept a context. onCancel is
// called only when ctx is done first; fn must then return.
func RunWithContextCancel(ctx context.Context, onCancel func(), fn func() error) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- fn()
	}()
	select {
	case <-ctx.Done():
		if onCancel != nil {
			onCancel()
		}
		<-errCh
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// RunWithContextCloser runs fn and closes closer on cancel or when fn
// returns, whichever comes first.
func RunWithContextCloser(ctx context.Context, closer io.Closer, fn func() error) error {
	var once sync.Once
	closeOnce := func() {
		once.Do(func() {
			if err := closer.Close(); err != nil {
				glog.Warningf("close: %v", err)
			}
		})
	}
	defer closeOnce()
	return RunWithContextCancel(ctx, closeOnce, fn)
}
