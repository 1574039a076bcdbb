package telemetry

import (
	"fmt"
	"runtime"

	"github.com/google/uuid"
	"github.com/gpmf-dataflow/dataflow/pkg/gpmf"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Capture is the per sensor time series of one recording. Start is the
// anchor: the Unix time of the first sample of the capture.
type Capture struct {
	ID    uuid.UUID
	Start float64

	Position Series[Position]
	Accel    Series[Accel]
	Gyro     Series[Gyro]
	Camera   Series[Camera]
}

func NewCapture(start float64) *Capture {
	return &Capture{ID: uuid.New(), Start: start}
}

// Clone returns a deep copy that keeps the capture ID.
func (c *Capture) Clone() *Capture {
	return &Capture{
		ID:       c.ID,
		Start:    c.Start,
		Position: c.Position.Clone(),
		Accel:    c.Accel.Clone(),
		Gyro:     c.Gyro.Clone(),
		Camera:   c.Camera.Clone(),
	}
}

func (c *Capture) Fragment(kind Kind) Fragment {
	switch kind {
	case KindPosition:
		return &c.Position
	case KindAccel:
		return &c.Accel
	case KindGyro:
		return &c.Gyro
	case KindCamera:
		return &c.Camera
	}
	return nil
}

func (c *Capture) merge(chunk *Chunk) {
	c.Position.Update(&chunk.Position)
	c.Accel.Update(&chunk.Accel)
	c.Gyro.Update(&chunk.Gyro)
	c.Camera.Update(&chunk.Camera)
}

// MergeCaptures unions the position series of a and b, b winning on equal
// timestamps. Anchor, IMU and camera series come from a.
func MergeCaptures(a, b *Capture) *Capture {
	res := a.Clone()
	if b != nil {
		res.Position.Update(&b.Position)
	}
	return res
}

// Policy decides what happens to payloads recorded before the first fix.
type Policy byte

const (
	// AnchorKeep keys earlier payloads to the anchor like any other.
	AnchorKeep Policy = iota
	// AnchorDrop skips them. Later payload indices are unchanged.
	AnchorDrop
)

func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "keep":
		return AnchorKeep, nil
	case "drop":
		return AnchorDrop, nil
	}
	return 0, fmt.Errorf("telemetry: unknown anchor policy %q", s)
}

func (p Policy) String() string {
	if p == AnchorDrop {
		return "drop"
	}
	return "keep"
}

type Stats struct {
	Payloads  int
	Skipped   int
	Malformed int
	// Devices is the largest device count seen in one payload.
	Devices int
	Samples map[Kind]int
	// Dropped counts samples with fewer components than their record.
	Dropped map[Kind]int
}

type Aggregator struct {
	Duration float64
	Workers  int
	Policy   Policy
	Log      zerolog.Logger
}

func NewAggregator(log zerolog.Logger) *Aggregator {
	return &Aggregator{
		Duration: PayloadDuration,
		Workers:  runtime.NumCPU(),
		Log:      log,
	}
}

type decoded struct {
	streams []*gpmf.Stream
	devices int
	errs    []error
}

func decodePayload(data []byte) (d decoded) {
	nodes, _ := gpmf.Decode(data)
	d.errs = gpmf.Errors(nodes)

	devices := gpmf.Devices(nodes)
	if d.devices = len(devices); d.devices == 0 {
		return
	}

	d.streams = gpmf.DeviceStreams(nodes, devices[0].ID)
	return
}

func (a *Aggregator) decode(payloads []Payload) ([]decoded, error) {
	res := make([]decoded, len(payloads))

	var g errgroup.Group
	if a.Workers > 0 {
		g.SetLimit(a.Workers)
	}
	for i := range payloads {
		i := i
		g.Go(func() error {
			res[i] = decodePayload(payloads[i].Data)
			return nil
		})
	}

	return res, g.Wait()
}

func (a *Aggregator) duration() float64 {
	if a.Duration > 0 {
		return a.Duration
	}
	return PayloadDuration
}

// Aggregate decodes payloads concurrently, then folds them in capture order
// into one Capture. It fails with ErrNoFix when no payload has a position fix.
func (a *Aggregator) Aggregate(payloads []Payload) (*Capture, Stats, error) {
	stats := Stats{Payloads: len(payloads), Samples: map[Kind]int{}, Dropped: map[Kind]int{}}
	duration := a.duration()

	items, err := a.decode(payloads)
	if err != nil {
		return nil, stats, err
	}

	for i, item := range items {
		for _, err := range item.errs {
			a.Log.Warn().Err(err).Int("payload", i).Msg("[telemetry] malformed node")
		}
		stats.Malformed += len(item.errs)
		stats.Devices = max(stats.Devices, item.devices)
	}

	if stats.Devices > 1 {
		a.Log.Warn().Int("devices", stats.Devices).Msg("[telemetry] only the first device is used")
	}

	first := -1
	var start float64
	for i, item := range items {
		if anchor, ok := Anchor(item.streams, payloads[i].Hints, i, duration); ok {
			first, start = i, anchor
			break
		}
	}
	if first < 0 {
		return nil, stats, ErrNoFix
	}

	if first > 0 {
		a.Log.Debug().Int("payload", first).Stringer("policy", a.Policy).Msg("[telemetry] late fix")
	}

	capture := NewCapture(start)

	next := 0
	for i, item := range items {
		if i < first && a.Policy == AnchorDrop {
			stats.Skipped++
			continue
		}

		chunk := NewChunk(i, item.streams, start+float64(i)*duration, duration)
		for kind, n := range chunk.Dropped {
			if n == 0 {
				continue
			}
			a.Log.Warn().Int("payload", i).Stringer("kind", kind).Int("count", n).
				Msg("[telemetry] samples too short for record")
			stats.Dropped[kind] += n
		}
		next = chunk.Rebase(next)
		capture.merge(chunk)
	}

	for _, kind := range Kinds {
		stats.Samples[kind] = capture.Fragment(kind).Len()
	}

	a.Log.Debug().Stringer("id", capture.ID).Float64("start", start).
		Int("payloads", len(payloads)).Msg("[telemetry] aggregated")

	return capture, stats, nil
}
