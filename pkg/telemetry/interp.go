package telemetry

import (
	"fmt"
	"math"
	"strings"
)

// Canonical field names of an interpolated row.
const (
	FieldTsmp         = "tsmp"
	FieldDatetime     = "datetime"
	FieldLatitude     = "latitude"
	FieldLongitude    = "longitude"
	FieldAltitude     = "altitude"
	FieldSpeed        = "speed"
	FieldSpeed2D      = "speed2D"
	FieldSpeed3D      = "speed3D"
	FieldDistLastMeas = "dist_last_meas"
	FieldDistance     = "distance"
	FieldFreqGNSS     = "freq_gnss"
	FieldDOP          = "gnss_DOP"
	FieldFix          = "gnss_fix"
	FieldFPS          = "FPS"
	FieldFrameIdx     = "frame_idx"
	FieldFrameTime    = "frame_time"
	FieldFrameTimeSec = "frame_time_sec"

	FieldGyroZ    = "zGyr"
	FieldGyroX    = "xGyr"
	FieldGyroY    = "yGyr"
	FieldGyroFreq = "freq_gyr"
	FieldTempC    = "tempC"
	FieldAccelZ   = "zAcc"
	FieldAccelX   = "xAcc"
	FieldAccelY   = "yAcc"
	FieldAccFreq  = "freq_acc"
)

var PositionFields = []string{
	FieldTsmp, FieldDatetime, FieldLatitude, FieldLongitude, FieldAltitude,
	FieldSpeed, FieldSpeed2D, FieldSpeed3D, FieldDistLastMeas, FieldDistance,
	FieldFreqGNSS, FieldDOP, FieldFix, FieldFPS, FieldFrameIdx, FieldFrameTime,
	FieldFrameTimeSec,
}

var IMUFields = []string{
	FieldGyroZ, FieldGyroX, FieldGyroY, FieldGyroFreq, FieldTempC,
	FieldAccelZ, FieldAccelX, FieldAccelY, FieldAccFreq,
}

// Aliases renames canonical fields on output. Missing entries keep the
// canonical name.
type Aliases map[string]string

func (a Aliases) Name(field string) string {
	if name, ok := a[field]; ok && name != "" {
		return name
	}
	return field
}

// Row is one interpolated record keyed by (aliased) field name.
type Row map[string]any

func (r Row) Float(name string) (float64, bool) {
	f, ok := r[name].(float64)
	return f, ok
}

type InterpOptions struct {
	IMU     bool
	Aliases Aliases
}

// Columns lists the output field names in order.
func (o InterpOptions) Columns() []string {
	fields := PositionFields
	if o.IMU {
		fields = append(fields[:len(fields):len(fields)], IMUFields...)
	}

	columns := make([]string, len(fields))
	for i, field := range fields {
		columns[i] = o.Aliases.Name(field)
	}
	return columns
}

func isPositionDomain(domain string) bool {
	return strings.EqualFold(domain, "position") || strings.EqualFold(domain, "gnss")
}

// Interpolate flattens the capture at the sampling rate of domain. Only the
// position domain is supported: one row per position record, joined with
// the closest camera (and optionally gyro and accel) record.
func Interpolate(c *Capture, domain string, opts InterpOptions) ([]Row, error) {
	if !isPositionDomain(domain) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDomain, domain)
	}

	name := opts.Aliases.Name
	rows := make([]Row, 0, c.Position.Len())

	var distance float64
	for i, ts := range c.Position.keys {
		pos := c.Position.vals[i]
		distance += pos.Dist

		sec := ts - c.Start

		row := Row{
			name(FieldTsmp):         ts,
			name(FieldDatetime):     Time(ts),
			name(FieldLatitude):     pos.Lat,
			name(FieldLongitude):    pos.Lng,
			name(FieldAltitude):     pos.Alt,
			name(FieldSpeed):        round2(pos.Speed2D * 3.6),
			name(FieldSpeed2D):      pos.Speed2D,
			name(FieldSpeed3D):      pos.Speed3D,
			name(FieldDistLastMeas): pos.Dist,
			name(FieldDistance):     distance,
			name(FieldFreqGNSS):     pos.Freq,
			name(FieldDOP):          pos.DOP,
			name(FieldFix):          pos.Fix,
			name(FieldFPS):          nil,
			name(FieldFrameIdx):     nil,
			name(FieldFrameTime):    FormatFrameTime(sec),
			name(FieldFrameTimeSec): round2(sec),
		}

		if _, cam, ok := c.Camera.Closest(ts); ok {
			row[name(FieldFPS)] = cam.FPS
			row[name(FieldFrameIdx)] = cam.FrameIdx
		}

		if opts.IMU {
			interpIMU(row, c, ts, name)
		}

		rows = append(rows, row)
	}

	return rows, nil
}

func interpIMU(row Row, c *Capture, ts float64, name func(string) string) {
	for _, field := range IMUFields {
		row[name(field)] = nil
	}

	if _, gyro, ok := c.Gyro.Closest(ts); ok {
		row[name(FieldGyroZ)] = gyro.Z
		row[name(FieldGyroX)] = gyro.X
		row[name(FieldGyroY)] = gyro.Y
		row[name(FieldGyroFreq)] = gyro.Freq
		if gyro.TempC != nil {
			row[name(FieldTempC)] = *gyro.TempC
		}
	}

	if _, acc, ok := c.Accel.Closest(ts); ok {
		row[name(FieldAccelZ)] = acc.Z
		row[name(FieldAccelX)] = acc.X
		row[name(FieldAccelY)] = acc.Y
		row[name(FieldAccFreq)] = acc.Freq
	}
}

// FormatFrameTime renders seconds from the capture start as "12.34s" or,
// from one minute on, "2m 5.50s".
func FormatFrameTime(sec float64) string {
	if sec < 60 {
		return fmt.Sprintf("%.2fs", sec)
	}
	minutes := math.Floor(sec / 60)
	return fmt.Sprintf("%.0fm %.2fs", minutes, sec-minutes*60)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
