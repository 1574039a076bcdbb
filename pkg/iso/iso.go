// Package iso reads the sample table of ISO BMFF (MP4) files and extracts
// the samples of one track, such as the `gpmd` telemetry track of camera
// recordings.
package iso

import (
	"errors"
)

var ErrNoTrack = errors.New("iso: no such track")

// Sample is one track sample. Start and End are milliseconds from the
// start of the track.
type Sample struct {
	Offset int64
	Size   uint32
	Start  float64
	End    float64
	Data   []byte
}

// FindTrack returns the first track whose sample entry is format.
func FindTrack(tracks []*Track, format string) *Track {
	for _, track := range tracks {
		if track.Format == format {
			return track
		}
	}
	return nil
}
