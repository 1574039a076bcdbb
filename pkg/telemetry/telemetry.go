// Package telemetry rebuilds per sensor time series from decoded GPMF
// payloads. Payloads carry no per sample time, so each sample gets a
// synthetic timestamp from the capture anchor, the payload index and the
// nominal payload duration.
package telemetry

import (
	"errors"
)

// PayloadDuration is the average GPMF payload duration in seconds.
// https://github.com/gopro/gpmf-parser/issues/90#issuecomment-615874494
const PayloadDuration = 1.04

const (
	KeyGPS5    = "GPS5"
	KeyGPS9    = "GPS9"
	KeyGPSFix  = "GPSF"
	KeyGPSTime = "GPSU"
	KeyGPSDOP  = "GPSP"
	KeyAccel   = "ACCL"
	KeyGyro    = "GYRO"
	KeyTemp    = "TMPC"
	KeyOrient  = "CORI"
	KeyShutter = "SHUT"
)

type Kind byte

const (
	KindPosition Kind = iota + 1
	KindAccel
	KindGyro
	KindCamera
)

var Kinds = []Kind{KindPosition, KindAccel, KindGyro, KindCamera}

func (k Kind) String() string {
	switch k {
	case KindPosition:
		return "position"
	case KindAccel:
		return "acceleration"
	case KindGyro:
		return "angular_rate"
	case KindCamera:
		return "camera"
	}
	return "unknown"
}

var (
	ErrNoFix             = errors.New("telemetry: no payload with a valid position fix")
	ErrUnknownKind       = errors.New("telemetry: unknown sensor kind")
	ErrUnsupportedDomain = errors.New("telemetry: unsupported frequency domain")
)

// Payload is one demuxed GPMF sample. Hints are the payload time offsets in
// milliseconds from the start of the video, Hints[0] being its start.
type Payload struct {
	Data  []byte
	Hints []float64
}

// Source hands out the payloads of a recording in capture order.
type Source interface {
	Payloads(path string) ([]Payload, error)
}
