package main

import (
	"flag"

	"github.com/robotalks/fpsensor.go/pkg/cli/sh"
	"github.com/robotalks/fpsensor.go/pkg/sensor"
	"github.com/robotalks/fpsensor.go/pkg/sim"
	"github.com/robotalks/fpsensor.go/pkg/transport"

	_ "github.com/robotalks/fpsensor.go/pkg/cli/cmds/fp"
)

//go-build: CGO_ENABLED=0

var simulate bool

func init() {
	sensor.SetupFlags()
	flag.BoolVar(&simulate, "sim", simulate, "Use a simulated sensor.")
}

func main() {
	sh.Main(func(conf *sensor.Config) transport.Opener {
		if simulate {
			return sim.NewDemo(transport.Baud9600)
		}
		return nil
	})
}
