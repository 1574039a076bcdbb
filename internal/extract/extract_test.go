package extract

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gpmf-dataflow/dataflow/internal/metrics"
	"github.com/gpmf-dataflow/dataflow/pkg/gpmf"
	"github.com/gpmf-dataflow/dataflow/pkg/iso"
	"github.com/gpmf-dataflow/dataflow/pkg/outlier"
	"github.com/gpmf-dataflow/dataflow/pkg/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var fixTime = time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)

// payload builds a GPMF payload with one GPS5 row per latitude, given in
// 1e-7 degrees.
func payload(fix bool, lats ...float64) telemetry.Payload {
	w := gpmf.NewWriter(1024)
	w.StartNode(gpmf.KeyDevice)
	w.WriteNumeric(gpmf.KeyDeviceID, gpmf.TypeUint32, []float64{1})

	var gpsf float64
	if fix {
		gpsf = 3
	}

	w.StartNode(gpmf.KeyStream)
	w.WriteNumeric(telemetry.KeyGPSFix, gpmf.TypeUint32, []float64{gpsf})
	w.WriteTime(telemetry.KeyGPSTime, fixTime)
	w.WriteNumeric(telemetry.KeyGPSDOP, gpmf.TypeUint16, []float64{150})
	w.WriteNumeric(gpmf.KeyScale, gpmf.TypeInt32, []float64{10000000}, []float64{10000000}, []float64{1000}, []float64{1000}, []float64{100})
	rows := make([][]float64, len(lats))
	for i, lat := range lats {
		rows[i] = []float64{lat, 100000000, 50000, 2000, 210}
	}
	w.WriteNumeric(telemetry.KeyGPS5, gpmf.TypeInt32, rows...)
	w.EndNode()

	w.StartNode(gpmf.KeyStream)
	w.WriteNumeric(telemetry.KeyOrient, gpmf.TypeInt16, []float64{32767, 0, 0, 0}, []float64{32767, 0, 0, 0})
	w.EndNode()

	w.EndNode()
	return telemetry.Payload{Data: w.Bytes()}
}

type memorySource map[string][]telemetry.Payload

func (s memorySource) Payloads(path string) ([]telemetry.Payload, error) {
	payloads, ok := s[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return payloads, nil
}

func newTestExtractor(t *testing.T, cfg Config) *Extractor {
	e, err := NewExtractor(cfg, zerolog.Nop())
	require.Nil(t, err)

	e.Source = memorySource{
		// the fifth fix jumps about 11 km north
		"jump.MP4": {
			payload(true, 450000000, 450000100, 450000200),
			payload(true, 450000300, 451000000, 450000400),
		},
		"nofix.MP4": {
			payload(false, 450000000),
			payload(false, 450000100),
		},
	}

	return e
}

func TestExtract(t *testing.T) {
	e := newTestExtractor(t, DefaultConfig())

	data, outliers, err := e.Extract("jump.MP4", 10)
	require.Nil(t, err)
	require.Equal(t, 5, data.Position.Len())
	require.Equal(t, 1, outliers.Position.Len())
	require.Equal(t, data.ID, outliers.ID)
	require.Equal(t, float64(fixTime.Unix()), data.Start)

	_, pos := outliers.Position.At(0)
	require.InDelta(t, 45.1, pos.Lat, 1e-9)
	require.Equal(t, telemetry.DistanceFilter, pos.Rejected)

	// frame index continues across payloads
	_, cam := data.Camera.At(3)
	require.Equal(t, 3, cam.FrameIdx)

	// without limit everything is kept
	data, outliers, err = e.Extract("jump.MP4", 0)
	require.Nil(t, err)
	require.Equal(t, 6, data.Position.Len())
	require.Equal(t, 0, outliers.Position.Len())
}

func TestExtractErrors(t *testing.T) {
	e := newTestExtractor(t, DefaultConfig())

	_, _, err := e.Extract("nofix.MP4", 10)
	require.True(t, errors.Is(err, telemetry.ErrNoFix))

	_, _, err = e.Extract("missing.MP4", 10)
	require.True(t, errors.Is(err, os.ErrNotExist))
}

func TestNewExtractor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Anchor = "drop"
	cfg.Workers = 3
	cfg.PayloadDuration = 1.001

	e, err := NewExtractor(cfg, zerolog.Nop())
	require.Nil(t, err)
	require.Equal(t, telemetry.AnchorDrop, e.Aggregator.Policy)
	require.Equal(t, 3, e.Aggregator.Workers)
	require.Equal(t, 1.001, e.Aggregator.Duration)

	cfg.Anchor = "first"
	_, err = NewExtractor(cfg, zerolog.Nop())
	require.NotNil(t, err)
}

func TestProcess(t *testing.T) {
	e := newTestExtractor(t, DefaultConfig())

	reg := prometheus.NewRegistry()
	collector, err := metrics.NewCollector(reg)
	require.Nil(t, err)
	e.Metrics = collector

	report, err := e.Process("jump.MP4")
	require.Nil(t, err)

	require.Equal(t, "jump.MP4", report.Video)
	require.Equal(t, "2023-05-01T12:00:00Z", report.Start)
	require.Equal(t, 2, report.Payloads)
	require.Equal(t, "6", report.Samples["position"])
	require.Equal(t, "4", report.Samples["camera"])
	require.Nil(t, report.Dropped)

	require.Equal(t, 5, report.Retained)
	require.Equal(t, map[string]int{FilterDistance: 1, FilterPrecision: 0}, report.Outliers)
	require.Equal(t, 83.33, report.Quality)
	require.Equal(t, 80.0, report.Limit)
	require.True(t, report.Passed)

	require.Equal(t, 5, report.Rows)
	require.Equal(t, 1, report.OutlierRows)
	require.True(t, report.GapsVerified)
	require.Equal(t, 1.5, report.DOPMean)

	require.Equal(t, 1.0, testutil.ToFloat64(collector.Outliers.WithLabelValues(FilterDistance)))
	require.Equal(t, 2.0, testutil.ToFloat64(collector.Payloads))
	require.Equal(t, 6.0, testutil.ToFloat64(collector.Samples.WithLabelValues("position")))
}

func TestProcessStrict(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BadTrackLimit = 10
	cfg.Strict = true

	report, err := newTestExtractor(t, cfg).Process("jump.MP4")
	require.True(t, errors.Is(err, outlier.ErrQualityExceedsLimit))
	require.NotNil(t, report)
	require.False(t, report.Passed)
	require.Equal(t, 90.0, report.Limit)

	cfg = DefaultConfig()
	cfg.GapLimit = 1
	cfg.Strict = true

	_, err = newTestExtractor(t, cfg).Process("jump.MP4")
	require.True(t, errors.Is(err, outlier.ErrGapExceedsLimit))
}

func TestProcessGaps(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GapLimit = 1

	report, err := newTestExtractor(t, cfg).Process("jump.MP4")
	require.Nil(t, err)
	require.False(t, report.GapsVerified)
	require.False(t, report.Passed)
}

func TestListVideos(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"GX010002.MP4", "GX010001.mp4", "notes.txt"} {
		require.Nil(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}
	require.Nil(t, os.Mkdir(filepath.Join(dir, "sub.MP4"), 0755))

	videos, err := listVideos(dir)
	require.Nil(t, err)
	require.Equal(t, []string{
		filepath.Join(dir, "GX010001.mp4"),
		filepath.Join(dir, "GX010002.MP4"),
	}, videos)

	single := filepath.Join(dir, "notes.txt")
	videos, err = expandInputs([]string{single, dir})
	require.Nil(t, err)
	require.Len(t, videos, 3)
	require.Equal(t, single, videos[0])

	_, err = expandInputs([]string{filepath.Join(dir, "missing")})
	require.NotNil(t, err)
}

func TestFileSource(t *testing.T) {
	s := &FileSource{Log: zerolog.Nop()}

	_, err := s.Payloads(filepath.Join(t.TempDir(), "missing.MP4"))
	require.True(t, errors.Is(err, os.ErrNotExist))

	path := filepath.Join(t.TempDir(), "empty.MP4")
	require.Nil(t, os.WriteFile(path, []byte("free"), 0644))

	_, err = s.Payloads(path)
	require.True(t, errors.Is(err, iso.ErrNoTrack))
}
