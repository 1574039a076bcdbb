package extract

import (
	"os"

	"github.com/dustin/go-humanize"
	"github.com/gpmf-dataflow/dataflow/pkg/iso"
	"github.com/gpmf-dataflow/dataflow/pkg/telemetry"
	"github.com/rs/zerolog"
)

// TrackFormat is the sample entry format of the GPMF metadata track.
const TrackFormat = "gpmd"

// FileSource reads the GPMF track of an MP4 file. Each sample becomes one
// payload with its start and end time in milliseconds as hints.
type FileSource struct {
	Log zerolog.Logger
}

func (s *FileSource) Payloads(path string) ([]telemetry.Payload, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	samples, err := iso.ReadTrack(f, fi.Size(), TrackFormat)
	if err != nil {
		return nil, err
	}

	payloads := make([]telemetry.Payload, len(samples))
	for i, sample := range samples {
		payloads[i] = telemetry.Payload{
			Data:  sample.Data,
			Hints: []float64{sample.Start, sample.End},
		}
	}

	s.Log.Debug().Str("path", path).Str("size", humanize.Bytes(uint64(fi.Size()))).
		Int("payloads", len(payloads)).Msg("[extract] demux")

	return payloads, nil
}
