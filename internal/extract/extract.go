package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gpmf-dataflow/dataflow/internal/app"
	"github.com/gpmf-dataflow/dataflow/internal/metrics"
	"github.com/gpmf-dataflow/dataflow/pkg/telemetry"
	"github.com/gpmf-dataflow/dataflow/pkg/yaml"
	"github.com/rs/zerolog"
)

type Config struct {
	PayloadDuration float64 `yaml:"payload_duration"`
	Workers         int     `yaml:"workers"`
	Anchor          string  `yaml:"anchor"`

	// meters between consecutive fixes
	LastMeasLimit float64 `yaml:"last_meas_limit"`
	DOPLimit      float64 `yaml:"dop_limit"`
	// percent of outliers a track may have
	BadTrackLimit float64 `yaml:"bad_track_limit"`
	// meters between consecutive interpolated rows
	GapLimit float64 `yaml:"gap_limit"`
	Strict   bool    `yaml:"strict"`

	IMU     bool              `yaml:"imu"`
	Aliases telemetry.Aliases `yaml:"aliases"`
}

func DefaultConfig() Config {
	return Config{
		PayloadDuration: telemetry.PayloadDuration,
		LastMeasLimit:   10,
		DOPLimit:        5,
		BadTrackLimit:   20,
		GapLimit:        50,
	}
}

func Init() {
	var cfg struct {
		Mod Config `yaml:"extract"`
	}

	cfg.Mod = DefaultConfig()

	app.LoadConfig(&cfg)

	log = app.GetLogger("extract")

	e, err := NewExtractor(cfg.Mod, log)
	if err != nil {
		log.Warn().Err(err).Msg("[extract] fallback to keep anchor policy")
		cfg.Mod.Anchor = ""
		e, _ = NewExtractor(cfg.Mod, log)
	}
	e.Metrics = metrics.Default

	extractor = e
}

// Run processes every video of app.Inputs and prints one YAML report per
// video to stdout.
func Run() error {
	videos, err := expandInputs(app.Inputs)
	if err != nil {
		return err
	}
	if len(videos) == 0 {
		return errors.New("extract: no videos to process")
	}

	var errs []error

	for i, path := range videos {
		ts := time.Now()

		report, err := extractor.Process(path)

		result := "error"
		var quality float64
		if report != nil {
			quality = report.Quality
			if report.Passed {
				result = "passed"
			} else {
				result = "failed"
			}
			report.Elapsed = time.Since(ts).Round(time.Millisecond).String()

			if b, err := yaml.Encode(report, 2); err == nil {
				if i > 0 {
					_, _ = os.Stdout.WriteString("---\n")
				}
				_, _ = os.Stdout.Write(b)
			}
		}
		extractor.Metrics.ObserveVideo(filepath.Base(path), result, quality, time.Since(ts).Seconds())

		if err != nil {
			log.Error().Err(err).Str("video", path).Msg("[extract] process")
			errs = append(errs, err)
		}
	}

	metrics.Flush()

	return errors.Join(errs...)
}

// Extract aggregates the telemetry of a video and splits its position fixes
// by distance from the previous fix. It returns the retained data with
// distances and the outliers.
func Extract(path string, distanceLimit float64) (data, outliers *telemetry.Capture, err error) {
	return extractor.Extract(path, distanceLimit)
}

var log zerolog.Logger
var extractor, _ = NewExtractor(DefaultConfig(), zerolog.Nop())

// expandInputs replaces directories with the videos inside them.
func expandInputs(inputs []string) ([]string, error) {
	var videos []string
	for _, input := range inputs {
		fi, err := os.Stat(input)
		if err != nil {
			return nil, err
		}
		if !fi.IsDir() {
			videos = append(videos, input)
			continue
		}

		items, err := listVideos(input)
		if err != nil {
			return nil, err
		}
		videos = append(videos, items...)
	}
	return videos, nil
}

// listVideos returns the MP4 files of dir in name order. Subdirectories
// are not visited.
func listVideos(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var videos []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".mp4") {
			continue
		}
		videos = append(videos, filepath.Join(dir, entry.Name()))
	}
	return videos, nil
}

func formatSamples(stats telemetry.Stats) map[string]string {
	samples := make(map[string]string, len(stats.Samples))
	for kind, n := range stats.Samples {
		samples[kind.String()] = humanize.Comma(int64(n))
	}
	return samples
}

func droppedSamples(stats telemetry.Stats) map[string]int {
	var dropped map[string]int
	for kind, n := range stats.Dropped {
		if n == 0 {
			continue
		}
		if dropped == nil {
			dropped = map[string]int{}
		}
		dropped[kind.String()] = n
	}
	return dropped
}

func fileSize(path string) string {
	fi, err := os.Stat(path)
	if err != nil {
		return ""
	}
	return humanize.Bytes(uint64(fi.Size()))
}

func formatStart(start float64) string {
	return telemetry.Time(start).Format(time.RFC3339Nano)
}

func sourceError(path string, err error) error {
	return fmt.Errorf("extract: %s: %w", filepath.Base(path), err)
}
