package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/gpgreen/ahrs/pkg/can"
	"github.com/gpgreen/ahrs/pkg/cli/cmds/aero"
	"github.com/gpgreen/ahrs/pkg/env"
	"github.com/gpgreen/ahrs/pkg/framework"
)

var (
	busURL      = env.Default().BusURL
	linkTimeout = 5 * time.Second
	errorsOnly  bool
)

func init() {
	flag.StringVar(&busURL, "bus", busURL, "CAN bus URL.")
	flag.DurationVar(&linkTimeout, "link-timeout", linkTimeout, "Byte link sync timeout.")
	flag.BoolVar(&errorsOnly, "errors", errorsOnly, "Only dump error frames and emergency events.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	t, err := env.OpenBus(busURL, env.ClientID(0)+"-dump", linkTimeout)
	if err != nil {
		log.Fatalln(err)
	}
	defer t.Bus.Close()

	dump := framework.RunFunc(func(ctx context.Context) error {
		if t.BringUp != nil {
			if err := t.BringUp(); err != nil {
				return err
			}
		}
		filter := can.FrameFilter(func(can.Frame) bool { return true })
		if errorsOnly {
			filter = can.Or(can.ErrorsOnly(), can.ByRange(0, 127))
		}
		for {
			f, err := t.Bus.Receive(ctx)
			if err != nil {
				return err
			}
			if filter.Accept(f) {
				log.Printf("%03x: %s", f.ID, aero.Describe(f))
			}
		}
	})

	runner := framework.NewRunner().HandleSignals(nil).Go(t.Tasks...).Go(framework.NamedRun("dump", dump))
	if err := runner.Wait(); err != nil {
		log.Fatalln(err)
	}
}
