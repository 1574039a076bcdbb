package outlier

import (
	"sort"

	"github.com/gpmf-dataflow/dataflow/pkg/telemetry"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes the position series of a capture.
type Summary struct {
	Count int

	DOPMean   float64
	DOPStdDev float64

	// distances between consecutive fixes, meters
	DistMedian float64
	DistP95    float64
	DistMax    float64
	Distance   float64
}

func Summarize(c *telemetry.Capture) Summary {
	n := c.Position.Len()
	s := Summary{Count: n}
	if n == 0 {
		return s
	}

	dops := make([]float64, n)
	dists := make([]float64, n)
	for i := 0; i < n; i++ {
		_, pos := c.Position.At(i)
		dops[i] = pos.DOP
		dists[i] = pos.Dist
	}

	if n > 1 {
		s.DOPMean, s.DOPStdDev = stat.MeanStdDev(dops, nil)
	} else {
		s.DOPMean = dops[0]
	}

	s.Distance = floats.Sum(dists)
	s.DistMax = floats.Max(dists)

	sort.Float64s(dists)
	s.DistMedian = stat.Quantile(0.5, stat.Empirical, dists, nil)
	s.DistP95 = stat.Quantile(0.95, stat.Empirical, dists, nil)

	return s
}
