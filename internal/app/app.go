package app

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"time"
)

var Version = "0.3.0"

var ConfigPath string

// Inputs are the videos or directories given after the flags.
var Inputs []string

func Init() {
	var confs flagConfig
	var version bool

	flag.Var(&confs, "config", "config (path to file, raw YAML or key.sub=value), support multiple")
	flag.BoolVar(&version, "version", false, "Print the version of the application and exit")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] video.MP4|dir ...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if version {
		fmt.Printf("dataflow version %s%s %s/%s\n", Version, revision(), runtime.GOOS, runtime.GOARCH)
		os.Exit(0)
	}

	Inputs = flag.Args()

	initConfig(confs)
	initLogger()

	platform := fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)
	Logger.Info().Str("version", Version).Str("platform", platform).Msg("dataflow")
	Logger.Debug().Str("version", runtime.Version()).Msg("build")

	if ConfigPath != "" {
		Logger.Info().Str("path", ConfigPath).Msg("config")
	}
}

func revision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}

	var rev string
	var ts time.Time
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			rev = setting.Value
			if len(rev) > 7 {
				rev = rev[:7]
			}
		case "vcs.time":
			ts, _ = time.Parse(time.RFC3339, setting.Value)
		}
	}

	if rev == "" {
		return ""
	}
	return " (" + rev + ") " + ts.Local().String()
}
