package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"

	"github.com/golang/glog"

	"github.com/gpgreen/ahrs/pkg/env"
	"github.com/gpgreen/ahrs/pkg/framework"
)

func init() {
	env.SetupFlags()
}

func main() {
	flag.Parse()
	defer glog.Flush()

	conf, err := env.NewConfig()
	if err != nil {
		glog.Exitf("config: %v", err)
	}
	d, err := conf.NewDaemon()
	if err != nil {
		glog.Exitf("setup: %v", err)
	}
	defer d.Close()

	runner := framework.NewRunnerWith(context.Background()).
		HandleSignals(d.MarkExternalReset).
		Go(d.Tasks()...)
	if err := runner.Wait(); err != nil {
		glog.Errorf("%v", err)
		glog.Flush()
		d.Close()
		glog.Exit("node stopped")
	}
}
