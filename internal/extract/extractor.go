package extract

import (
	"github.com/dustin/go-humanize"
	"github.com/gpmf-dataflow/dataflow/internal/metrics"
	"github.com/gpmf-dataflow/dataflow/pkg/outlier"
	"github.com/gpmf-dataflow/dataflow/pkg/telemetry"
	"github.com/rs/zerolog"
)

const (
	FilterDistance  = "distance_filter"
	FilterPrecision = "precision_filter"
)

type Extractor struct {
	Config     Config
	Source     telemetry.Source
	Aggregator *telemetry.Aggregator
	Filter     *outlier.Filter
	// Metrics may be nil
	Metrics *metrics.Collector
	Log     zerolog.Logger
}

func NewExtractor(cfg Config, log zerolog.Logger) (*Extractor, error) {
	policy, err := telemetry.ParsePolicy(cfg.Anchor)
	if err != nil {
		return nil, err
	}

	agg := telemetry.NewAggregator(log)
	agg.Policy = policy
	if cfg.PayloadDuration > 0 {
		agg.Duration = cfg.PayloadDuration
	}
	if cfg.Workers > 0 {
		agg.Workers = cfg.Workers
	}

	return &Extractor{
		Config:     cfg,
		Source:     &FileSource{Log: log},
		Aggregator: agg,
		Filter:     outlier.NewFilter(log),
		Log:        log,
	}, nil
}

func (e *Extractor) Extract(path string, distanceLimit float64) (data, outliers *telemetry.Capture, err error) {
	data, _, err = e.aggregate(path)
	if err != nil {
		return nil, nil, err
	}

	data, outliers = e.Filter.Distance(data, distanceLimit)
	return
}

func (e *Extractor) aggregate(path string) (*telemetry.Capture, telemetry.Stats, error) {
	payloads, err := e.Source.Payloads(path)
	if err != nil {
		return nil, telemetry.Stats{}, sourceError(path, err)
	}

	capture, stats, err := e.Aggregator.Aggregate(payloads)
	if err != nil {
		return nil, stats, sourceError(path, err)
	}

	e.Metrics.ObserveStats(stats)

	return capture, stats, nil
}

type Report struct {
	Video     string            `yaml:"video"`
	ID        string            `yaml:"id"`
	Size      string            `yaml:"size,omitempty"`
	Start     string            `yaml:"start"`
	Payloads  int               `yaml:"payloads"`
	Skipped   int               `yaml:"skipped,omitempty"`
	Malformed int               `yaml:"malformed,omitempty"`
	Samples   map[string]string `yaml:"samples"`
	Dropped   map[string]int    `yaml:"dropped,omitempty"`

	Retained int            `yaml:"retained"`
	Outliers map[string]int `yaml:"outliers"`
	Quality  float64        `yaml:"quality"`
	Limit    float64        `yaml:"limit"`
	Passed   bool           `yaml:"passed"`

	Rows         int  `yaml:"rows"`
	OutlierRows  int  `yaml:"outlier_rows"`
	GapsVerified bool `yaml:"gaps_verified"`

	DOPMean    float64 `yaml:"dop_mean"`
	DOPStdDev  float64 `yaml:"dop_stddev"`
	DistMedian float64 `yaml:"dist_median"`
	DistP95    float64 `yaml:"dist_p95"`
	Distance   string  `yaml:"distance"`

	Elapsed string `yaml:"elapsed,omitempty"`
}

// Process runs the whole pipeline on one video: aggregation, distance and
// precision filters, quality verdict, interpolation by position and gap
// verification. In strict mode a failed check returns the report so far
// together with the error.
func (e *Extractor) Process(path string) (*Report, error) {
	capture, stats, err := e.aggregate(path)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Video:     path,
		ID:        capture.ID.String(),
		Size:      fileSize(path),
		Start:     formatStart(capture.Start),
		Payloads:  stats.Payloads,
		Skipped:   stats.Skipped,
		Malformed: stats.Malformed,
		Samples:   formatSamples(stats),
		Dropped:   droppedSamples(stats),
	}

	retained, distOut := e.Filter.Distance(capture, e.Config.LastMeasLimit)
	retained, dopOut := e.Filter.Precision(retained, e.Config.DOPLimit)

	report.Retained = retained.Position.Len()
	report.Outliers = map[string]int{
		FilterDistance:  distOut.Position.Len(),
		FilterPrecision: dopOut.Position.Len(),
	}
	for filter, n := range report.Outliers {
		e.Metrics.ObserveOutliers(filter, n)
	}

	outliers := telemetry.MergeCaptures(distOut, dopOut)

	verdict, err := e.Filter.CheckQuality(report.Retained, outliers.Position.Len(), e.Config.BadTrackLimit, e.Config.Strict)
	report.Quality, report.Limit, report.Passed = verdict.Quality, verdict.Limit, verdict.Passed
	if err != nil {
		return report, sourceError(path, err)
	}

	opts := telemetry.InterpOptions{IMU: e.Config.IMU, Aliases: e.Config.Aliases}

	rows, err := telemetry.Interpolate(retained, "position", opts)
	if err != nil {
		return report, sourceError(path, err)
	}
	report.Rows = len(rows)

	outlierRows, err := e.Filter.Adjust(distOut, dopOut, opts)
	if err != nil {
		return report, sourceError(path, err)
	}
	report.OutlierRows = len(outlierRows)

	report.GapsVerified, err = e.Filter.VerifyGaps(rows, e.Config.GapLimit, opts.Aliases, e.Config.Strict)
	if err != nil {
		report.Passed = false
		return report, sourceError(path, err)
	}
	report.Passed = report.Passed && report.GapsVerified

	summary := outlier.Summarize(retained)
	report.DOPMean = summary.DOPMean
	report.DOPStdDev = summary.DOPStdDev
	report.DistMedian = summary.DistMedian
	report.DistP95 = summary.DistP95
	report.Distance = humanize.SIWithDigits(summary.Distance, 2, "m")

	e.Log.Info().Str("video", path).Stringer("id", capture.ID).Float64("quality", report.Quality).
		Bool("passed", report.Passed).Msg("[extract] processed")

	return report, nil
}
