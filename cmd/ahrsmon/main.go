package main

import (
	"github.com/gpgreen/ahrs/pkg/cli/sh"

	_ "github.com/gpgreen/ahrs/pkg/cli/cmds/aero"
)

//go-build: CGO_ENABLED=0

func main() {
	sh.Main()
}
