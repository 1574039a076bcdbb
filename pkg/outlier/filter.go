package outlier

import (
	"fmt"

	"github.com/gpmf-dataflow/dataflow/pkg/telemetry"
	"github.com/rs/zerolog"
)

type Filter struct {
	Log zerolog.Logger
}

func NewFilter(log zerolog.Logger) *Filter {
	return &Filter{Log: log}
}

// split copies c twice with empty position series: one for retained and
// one for rejected records.
func split(c *telemetry.Capture) (retained, outliers *telemetry.Capture) {
	retained = c.Clone()
	retained.Position = telemetry.Series[telemetry.Position]{}
	outliers = c.Clone()
	outliers.Position = telemetry.Series[telemetry.Position]{}
	return
}

// Distance stores on every fix its distance from the previous retained fix.
// With limit > 0 a fix farther than limit, or at exactly the same place, is
// moved to outliers and the reference point stays where it was.
func (f *Filter) Distance(c *telemetry.Capture, limit float64) (retained, outliers *telemetry.Capture) {
	retained, outliers = split(c)

	var last telemetry.Position
	for i, ts := range c.Position.Keys() {
		_, pos := c.Position.At(i)

		if i == 0 {
			pos.Dist = FirstDistance
			retained.Position.Set(ts, pos)
			last = pos
			continue
		}

		pos.Dist = distance(last, pos)

		if limit > 0 && (pos.Dist > limit || pos.Dist == 0) {
			f.Log.Warn().Int("idx", i).Float64("dist", pos.Dist).Float64("limit", limit).
				Msg("[outlier] position is null or too far from the last one")
			pos.Rejected |= telemetry.DistanceFilter
			outliers.Position.Set(ts, pos)
			continue
		}

		retained.Position.Set(ts, pos)
		last = pos
	}

	return
}

// Precision moves fixes with DOP above limit or without a valid fix to
// outliers.
func (f *Filter) Precision(c *telemetry.Capture, limit float64) (retained, outliers *telemetry.Capture) {
	retained, outliers = split(c)

	for i, ts := range c.Position.Keys() {
		_, pos := c.Position.At(i)

		if pos.DOP > limit || !pos.Fix {
			f.Log.Debug().Float64("tsmp", ts).Float64("dop", pos.DOP).Bool("fix", pos.Fix).
				Msg("[outlier] imprecise position")
			pos.Rejected |= telemetry.PrecisionFilter
			outliers.Position.Set(ts, pos)
			continue
		}

		retained.Position.Set(ts, pos)
	}

	if n := outliers.Position.Len(); n > 0 {
		f.Log.Warn().Int("count", n).Float64("dop_limit", limit).Msg("[outlier] imprecise positions removed")
	}

	return
}

type Verdict struct {
	Passed  bool
	Quality float64
	Limit   float64
}

// CheckQuality rates the retained share of a track in percent. The track
// passes when quality is strictly above 100 - badTrackLimit. In strict mode
// a failure also returns a *QualityError.
func (f *Filter) CheckQuality(retained, outliers int, badTrackLimit float64, strict bool) (Verdict, error) {
	v := Verdict{Quality: 100, Limit: 100 - badTrackLimit}
	if outliers > 0 {
		v.Quality = round2(100 * float64(retained) / float64(retained+outliers))
	}

	if v.Passed = v.Quality > v.Limit; v.Passed {
		f.Log.Info().Float64("quality", v.Quality).Float64("limit", v.Limit).Msg("[outlier] track approved")
		return v, nil
	}

	f.Log.Warn().Float64("quality", v.Quality).Float64("limit", v.Limit).Msg("[outlier] track reproved")
	if strict {
		return v, &QualityError{Quality: v.Quality, Limit: v.Limit}
	}
	return v, nil
}

// VerifyGaps checks that consecutive interpolated rows are at most limit
// meters apart and stores each distance in the dist_last_meas field. In
// strict mode the first gap returns a *GapError. An empty track fails.
func (f *Filter) VerifyGaps(rows []telemetry.Row, limit float64, aliases telemetry.Aliases, strict bool) (bool, error) {
	if len(rows) == 0 {
		return false, nil
	}

	latName := aliases.Name(telemetry.FieldLatitude)
	lngName := aliases.Name(telemetry.FieldLongitude)
	distName := aliases.Name(telemetry.FieldDistLastMeas)

	verified := true

	var lastLat, lastLng float64
	for i, row := range rows {
		lat, ok1 := row.Float(latName)
		lng, ok2 := row.Float(lngName)
		if !ok1 || !ok2 {
			return false, fmt.Errorf("outlier: row %d has no %s/%s", i, latName, lngName)
		}

		if i > 0 {
			dist := Meters(lastLat, lastLng, lat, lng)
			row[distName] = dist

			if dist > limit {
				if strict {
					return false, &GapError{Row: i, Gap: dist, Limit: limit}
				}
				f.Log.Warn().Int("row", i).Float64("gap", dist).Float64("limit", limit).
					Msg("[outlier] GNSS gap exceeds limit")
				verified = false
			}
		}

		lastLat, lastLng = lat, lng
	}

	return verified, nil
}

// Adjust merges two outlier sets, b winning on equal timestamps, recomputes
// distances without a limit and flattens the result like Interpolate.
func (f *Filter) Adjust(a, b *telemetry.Capture, opts telemetry.InterpOptions) ([]telemetry.Row, error) {
	merged := telemetry.MergeCaptures(a, b)
	merged, _ = f.Distance(merged, 0)
	return telemetry.Interpolate(merged, "position", opts)
}
