package main

//go-build: CGO_ENABLED=0

import (
	"flag"

	"github.com/golang/glog"

	"github.com/robotalks/openbci.go/pkg/config"
	"github.com/robotalks/openbci.go/pkg/framework"
	"github.com/robotalks/openbci.go/pkg/recorder"
)

func main() {
	flags := config.SetupFlags(flag.CommandLine)
	flag.Parse()
	defer glog.Flush()

	conf, err := flags.Resolve()
	if err != nil {
		glog.Exit(err)
	}
	runner := framework.NewRunner().HandleSignals()
	if err = runner.Go(framework.NamedRun("record "+conf.Device, recorder.New(conf))).Wait(); err != nil {
		glog.Exit(err)
	}
}
