package main

import (
	"os"

	"github.com/gpmf-dataflow/dataflow/internal/app"
	"github.com/gpmf-dataflow/dataflow/internal/extract"
	"github.com/gpmf-dataflow/dataflow/internal/metrics"
)

func main() {
	app.Init() // init config and logs

	metrics.Init() // prometheus textfile, optional
	extract.Init() // pipeline settings

	if err := extract.Run(); err != nil {
		app.Logger.Error().Err(err).Send()
		os.Exit(1)
	}
}
