package telemetry

import (
	"time"

	"github.com/gpmf-dataflow/dataflow/pkg/gpmf"
)

// Stamped is one sample with its synthetic timestamp.
type Stamped struct {
	Tsmp   float64
	Values []float64
}

// Assign spreads samples evenly over one payload: sample i of n gets
// start + i*duration/n. Payload sample rates are assumed constant.
func Assign(samples [][]float64, start, duration float64) []Stamped {
	n := len(samples)
	if n == 0 {
		return nil
	}

	interval := duration / float64(n)
	stamped := make([]Stamped, n)
	for i, values := range samples {
		stamped[i] = Stamped{Tsmp: start + float64(i)*interval, Values: values}
	}
	return stamped
}

// gps9Epoch is the origin of the GPS9 day counter.
var gps9Epoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// Anchor returns the capture start (Unix seconds) from a payload whose
// position stream reports a valid fix: the fix UTC time minus the payload
// offset. The offset is hints[0] milliseconds or, without hints,
// index*duration seconds.
func Anchor(streams []*gpmf.Stream, hints []float64, index int, duration float64) (float64, bool) {
	utc, ok := fixTime(streams)
	if !ok {
		return 0, false
	}

	offset := float64(index) * duration
	if len(hints) > 0 {
		offset = hints[0] / 1000
	}

	return unixSeconds(utc) - offset, true
}

func fixTime(streams []*gpmf.Stream) (time.Time, bool) {
	if s := gpmf.FindStream(streams, KeyGPSFix); s != nil {
		if fix, ok := s.Float(KeyGPSFix); !ok || fix <= 0 {
			return time.Time{}, false
		}
		return s.Time(KeyGPSTime)
	}

	// HERO11+ GPS9 carries fix and time per sample:
	// lat, lon, alt, speed2D, speed3D, days, secs, DOP, fix
	if s := gpmf.FindStream(streams, KeyGPS9); s != nil {
		for _, row := range s.WithMeasure(KeyGPS9).Measures() {
			if len(row) < 9 || row[8] <= 0 {
				continue
			}
			days := time.Duration(row[5]) * 24 * time.Hour
			secs := time.Duration(row[6] * float64(time.Second))
			return gps9Epoch.Add(days + secs), true
		}
	}

	return time.Time{}, false
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// Time converts a synthetic timestamp back to UTC time.
func Time(ts float64) time.Time {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC()
}
