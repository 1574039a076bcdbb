package metrics

import (
	"fmt"

	"github.com/gpmf-dataflow/dataflow/internal/app"
	"github.com/gpmf-dataflow/dataflow/pkg/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

func Init() {
	var cfg struct {
		Mod struct {
			Textfile string `yaml:"textfile"`
		} `yaml:"metrics"`
	}

	app.LoadConfig(&cfg)

	log = app.GetLogger("metrics")
	textfile = cfg.Mod.Textfile

	registry = prometheus.NewRegistry()

	var err error
	if Default, err = NewCollector(registry); err != nil {
		log.Error().Err(err).Caller().Send()
	}
}

// Flush writes all metrics to the textfile, if one is configured, in the
// node exporter textfile collector format.
func Flush() {
	if textfile == "" || registry == nil {
		return
	}

	if err := prometheus.WriteToTextfile(textfile, registry); err != nil {
		log.Warn().Err(err).Msg("[metrics] write textfile")
		return
	}

	log.Debug().Str("path", textfile).Msg("[metrics] textfile")
}

// Default is nil until Init. All Collector methods accept a nil receiver.
var Default *Collector

var log zerolog.Logger
var textfile string
var registry *prometheus.Registry

type Collector struct {
	Videos    *prometheus.CounterVec
	Payloads  prometheus.Counter
	Malformed prometheus.Counter
	Samples   *prometheus.CounterVec
	Dropped   *prometheus.CounterVec
	Outliers  *prometheus.CounterVec
	Quality   *prometheus.GaugeVec
	Duration  prometheus.Histogram
}

// NewCollector registers the pipeline metrics on reg, defaulting to the
// global registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	videos, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dataflow_videos_total",
		Help: "Processed videos, labeled by result: passed, failed or error.",
	}, []string{"result"}))
	if err != nil {
		return nil, err
	}

	payloads, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dataflow_payloads_total",
		Help: "Decoded GPMF payloads.",
	}))
	if err != nil {
		return nil, err
	}

	malformed, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dataflow_malformed_nodes_total",
		Help: "GPMF elements whose size exceeds the remaining bytes.",
	}))
	if err != nil {
		return nil, err
	}

	samples, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dataflow_samples_total",
		Help: "Aggregated sensor samples, labeled by sensor kind.",
	}, []string{"kind"}))
	if err != nil {
		return nil, err
	}

	dropped, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dataflow_dropped_samples_total",
		Help: "Sensor samples with fewer components than their record, labeled by sensor kind.",
	}, []string{"kind"}))
	if err != nil {
		return nil, err
	}

	outliers, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dataflow_outliers_total",
		Help: "Rejected position fixes, labeled by filter.",
	}, []string{"filter"}))
	if err != nil {
		return nil, err
	}

	quality, err := register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dataflow_quality_percent",
		Help: "Share of retained position fixes of the last processed video.",
	}, []string{"video"}))
	if err != nil {
		return nil, err
	}

	duration, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "dataflow_extract_duration_seconds",
		Help:    "Time to extract and filter one video.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}))
	if err != nil {
		return nil, err
	}

	return &Collector{
		Videos:    videos,
		Payloads:  payloads,
		Malformed: malformed,
		Samples:   samples,
		Dropped:   dropped,
		Outliers:  outliers,
		Quality:   quality,
		Duration:  duration,
	}, nil
}

func (c *Collector) ObserveStats(stats telemetry.Stats) {
	if c == nil {
		return
	}
	c.Payloads.Add(float64(stats.Payloads - stats.Skipped))
	c.Malformed.Add(float64(stats.Malformed))
	for kind, n := range stats.Samples {
		c.Samples.WithLabelValues(kind.String()).Add(float64(n))
	}
	for kind, n := range stats.Dropped {
		c.Dropped.WithLabelValues(kind.String()).Add(float64(n))
	}
}

func (c *Collector) ObserveOutliers(filter string, n int) {
	if c == nil {
		return
	}
	c.Outliers.WithLabelValues(filter).Add(float64(n))
}

func (c *Collector) ObserveVideo(video, result string, quality float64, seconds float64) {
	if c == nil {
		return
	}
	c.Videos.WithLabelValues(result).Inc()
	c.Quality.WithLabelValues(video).Set(quality)
	c.Duration.Observe(seconds)
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			return c, fmt.Errorf("metrics: collector already registered with incompatible type: %w", err)
		}
		return c, err
	}
	return c, nil
}
