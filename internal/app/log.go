package app

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

func GetLogger(module string) zerolog.Logger {
	if s, ok := modules[module]; ok {
		lvl, err := zerolog.ParseLevel(s)
		if err == nil {
			return Logger.Level(lvl)
		}
		Logger.Warn().Err(err).Caller().Send()
	}

	return Logger
}

// initLogger support:
// - output: stderr, stdout
// - format: empty (autodetect color support), color, json, text
// - time:   empty (disable timestamp), UNIXMS, UNIXMICRO, UNIXNANO
// - level:  disabled, trace, debug, info, warn, error...
func initLogger() {
	var cfg struct {
		Mod map[string]string `yaml:"log"`
	}

	cfg.Mod = modules // defaults

	LoadConfig(&cfg)

	Logger = NewLogger(modules)
}

// NewLogger builds the process logger from the `log` config section.
func NewLogger(mod map[string]string) zerolog.Logger {
	var writer io.Writer = os.Stderr
	if mod["output"] == "stdout" {
		writer = os.Stdout
	}

	timeFormat := mod["time"]

	if format := mod["format"]; format != "json" {
		console := &zerolog.ConsoleWriter{Out: writer}

		switch format {
		case "text":
			console.NoColor = true
		case "color":
			console.NoColor = false // useless, but anyway
		default:
			// autodetection if output support color
			if f, ok := writer.(*os.File); ok {
				console.NoColor = !isatty.IsTerminal(f.Fd())
			}
		}

		if timeFormat != "" {
			console.TimeFormat = "15:04:05.000"
		} else {
			console.PartsOrder = []string{
				zerolog.LevelFieldName,
				zerolog.CallerFieldName,
				zerolog.MessageFieldName,
			}
		}

		writer = console
	}

	lvl, err := zerolog.ParseLevel(mod["level"])
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	logger := zerolog.New(writer).Level(lvl)

	if timeFormat != "" {
		zerolog.TimeFieldFormat = timeFormat
		logger = logger.With().Timestamp().Logger()
	}

	return logger
}

var Logger = zerolog.Nop()

// modules log levels
var modules = map[string]string{
	"format": "",
	"level":  "info",
	"output": "stderr",
	"time":   zerolog.TimeFormatUnixMs,
}
