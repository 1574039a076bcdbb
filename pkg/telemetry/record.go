package telemetry

// Record is a semantic measurement stored in a Series.
type Record interface {
	Kind() Kind
}

// Reason marks why a position record was rejected.
type Reason byte

const (
	DistanceFilter Reason = 1 << iota
	PrecisionFilter
)

func (r Reason) String() string {
	switch r {
	case 0:
		return ""
	case DistanceFilter:
		return "distance_filter"
	case PrecisionFilter:
		return "precision_filter"
	}
	return "distance_filter,precision_filter"
}

type Position struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Alt     float64 `json:"alt"`
	Speed2D float64 `json:"speed2D"`
	Speed3D float64 `json:"speed3D"`
	DOP     float64 `json:"DOP"`
	Fix     bool    `json:"fix"`
	Freq    float64 `json:"freq"`

	// Dist is the distance in meters from the previous retained fix,
	// filled by the distance filter.
	Dist     float64 `json:"dist_last_meas"`
	Rejected Reason  `json:"-"`
}

func (Position) Kind() Kind { return KindPosition }

type Accel struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Z    float64 `json:"z"`
	Freq float64 `json:"freq"`
}

func (Accel) Kind() Kind { return KindAccel }

type Gyro struct {
	X     float64  `json:"x"`
	Y     float64  `json:"y"`
	Z     float64  `json:"z"`
	Freq  float64  `json:"freq"`
	TempC *float64 `json:"tempC,omitempty"`
}

func (Gyro) Kind() Kind { return KindGyro }

type Camera struct {
	FrameIdx int     `json:"frameIdx"`
	FPS      float64 `json:"FPS"`
}

func (Camera) Kind() Kind { return KindCamera }
