// Package outlier rejects implausible position fixes from a capture and
// rates the share of the track that survived.
package outlier

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/s2"
	"github.com/gpmf-dataflow/dataflow/pkg/telemetry"
)

var (
	ErrGapExceedsLimit     = errors.New("outlier: GNSS gap exceeds limit")
	ErrQualityExceedsLimit = errors.New("outlier: quality percentage exceeds limit")
)

// GapError reports two consecutive rows farther apart than the gap limit.
type GapError struct {
	Row   int
	Gap   float64
	Limit float64
}

func (e *GapError) Error() string {
	return fmt.Sprintf("outlier: GNSS gap of %.2fm at row %d exceeds %.2fm", e.Gap, e.Row, e.Limit)
}

func (e *GapError) Unwrap() error {
	return ErrGapExceedsLimit
}

// QualityError reports a track whose quality is not above Limit.
type QualityError struct {
	Quality float64
	Limit   float64
}

func (e *QualityError) Error() string {
	return fmt.Sprintf("outlier: quality %.2f%% is not above %.2f%%", e.Quality, e.Limit)
}

func (e *QualityError) Unwrap() error {
	return ErrQualityExceedsLimit
}

// FirstDistance is stored on the first fix of a track, which has no
// predecessor.
const FirstDistance = 0.001

// earthRadius is the IUGG mean radius in meters.
const earthRadius = 6371008.8

// Meters returns the great-circle distance between two points in degrees.
func Meters(lat1, lng1, lat2, lng2 float64) float64 {
	a := s2.LatLngFromDegrees(lat1, lng1)
	b := s2.LatLngFromDegrees(lat2, lng2)
	return math.Abs(a.Distance(b).Radians()) * earthRadius
}

func distance(a, b telemetry.Position) float64 {
	return Meters(a.Lat, a.Lng, b.Lat, b.Lng)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
