package telemetry

import (
	"github.com/gpmf-dataflow/dataflow/pkg/gpmf"
)

// SelectStream picks the stream that feeds kind and sets its measure key.
// It returns nil when the payload has no such stream.
func SelectStream(kind Kind, streams []*gpmf.Stream) *gpmf.Stream {
	var keys []string
	switch kind {
	case KindPosition:
		keys = []string{KeyGPS5, KeyGPS9}
	case KindAccel:
		keys = []string{KeyAccel}
	case KindGyro:
		keys = []string{KeyGyro}
	case KindCamera:
		keys = []string{KeyOrient, KeyShutter}
	}

	for _, key := range keys {
		if s := gpmf.FindStream(streams, key); s != nil {
			return s.WithMeasure(key)
		}
	}
	return nil
}

// Project maps the rescaled samples of s into records of kind, stamped from
// start over duration. A nil stream gives an empty fragment. Samples with
// fewer components than the record needs are skipped and counted in dropped.
func Project(kind Kind, s *gpmf.Stream, start, duration float64) (Fragment, int, error) {
	switch kind {
	case KindPosition:
		res, dropped := projectPosition(s, start, duration)
		return &res, dropped, nil
	case KindAccel:
		res, dropped := projectAccel(s, start, duration)
		return &res, dropped, nil
	case KindGyro:
		res, dropped := projectGyro(s, start, duration)
		return &res, dropped, nil
	case KindCamera:
		res := projectCamera(s, start, duration)
		return &res, 0, nil
	}
	return nil, 0, ErrUnknownKind
}

func projectPosition(s *gpmf.Stream, start, duration float64) (res Series[Position], dropped int) {
	if s == nil {
		return
	}

	stamped := Assign(s.Measures(), start, duration)
	freq := float64(len(stamped)) / duration

	if s.MeasureKey == KeyGPS9 {
		// lat, lon, alt, speed2D, speed3D, days, secs, DOP, fix
		for _, st := range stamped {
			v := st.Values
			if len(v) < 9 {
				dropped++
				continue
			}
			res.Set(st.Tsmp, Position{
				Lat: v[0], Lng: v[1], Alt: v[2], Speed2D: v[3], Speed3D: v[4],
				DOP: v[7], Fix: v[8] > 0, Freq: freq,
			})
		}
		return
	}

	dop, _ := s.Float(KeyGPSDOP)
	fix, _ := s.Float(KeyGPSFix)

	for _, st := range stamped {
		v := st.Values
		if len(v) < 5 {
			dropped++
			continue
		}
		res.Set(st.Tsmp, Position{
			Lat: v[0], Lng: v[1], Alt: v[2], Speed2D: v[3], Speed3D: v[4],
			DOP: dop / 100, Fix: fix > 0, Freq: freq,
		})
	}
	return
}

// IMU tuples are stored z, x, y.
func projectAccel(s *gpmf.Stream, start, duration float64) (res Series[Accel], dropped int) {
	stamped := Assign(s.Measures(), start, duration)
	freq := float64(len(stamped)) / duration

	for _, st := range stamped {
		v := st.Values
		if len(v) < 3 {
			dropped++
			continue
		}
		res.Set(st.Tsmp, Accel{Z: v[0], X: v[1], Y: v[2], Freq: freq})
	}
	return
}

func projectGyro(s *gpmf.Stream, start, duration float64) (res Series[Gyro], dropped int) {
	stamped := Assign(s.Measures(), start, duration)
	freq := float64(len(stamped)) / duration

	if len(stamped) == 0 {
		return
	}

	temp, hasTemp := s.Float(KeyTemp)

	for _, st := range stamped {
		v := st.Values
		if len(v) < 3 {
			dropped++
			continue
		}
		gyro := Gyro{Z: v[0], X: v[1], Y: v[2], Freq: freq}
		if hasTemp {
			t := temp
			gyro.TempC = &t
		}
		res.Set(st.Tsmp, gyro)
	}
	return
}

func projectCamera(s *gpmf.Stream, start, duration float64) (res Series[Camera]) {
	stamped := Assign(s.Measures(), start, duration)
	fps := float64(len(stamped)) / duration

	for i, st := range stamped {
		res.Set(st.Tsmp, Camera{FrameIdx: i, FPS: fps})
	}
	return
}

// Chunk holds the fragments projected from one payload. Dropped counts the
// samples per kind that were too short for their record.
type Chunk struct {
	Index    int
	Position Series[Position]
	Accel    Series[Accel]
	Gyro     Series[Gyro]
	Camera   Series[Camera]
	Dropped  map[Kind]int
}

// NewChunk projects every sensor kind of one payload's streams.
func NewChunk(index int, streams []*gpmf.Stream, start, duration float64) *Chunk {
	c := &Chunk{Index: index, Dropped: map[Kind]int{}}

	var n int
	c.Position, n = projectPosition(SelectStream(KindPosition, streams), start, duration)
	c.Dropped[KindPosition] = n
	c.Accel, n = projectAccel(SelectStream(KindAccel, streams), start, duration)
	c.Dropped[KindAccel] = n
	c.Gyro, n = projectGyro(SelectStream(KindGyro, streams), start, duration)
	c.Dropped[KindGyro] = n
	c.Camera = projectCamera(SelectStream(KindCamera, streams), start, duration)

	return c
}

// Rebase shifts payload local frame indices by next and returns the index
// the following payload starts from. An empty camera fragment keeps next.
func (c *Chunk) Rebase(next int) int {
	n := len(c.Camera.vals)
	if n == 0 {
		return next
	}
	for i := range c.Camera.vals {
		c.Camera.vals[i].FrameIdx += next
	}
	return c.Camera.vals[n-1].FrameIdx + 1
}
