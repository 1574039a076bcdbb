package gpmf

// Rescale divides every sample component by its scale. One scale value
// applies to all axes; a vector applies per axis. Axes without a scale and
// zero scales are left as is. The input is not modified.
func Rescale(samples [][]float64, scal []float64) [][]float64 {
	res := make([][]float64, len(samples))

	for i, sample := range samples {
		row := make([]float64, len(sample))
		for j, v := range sample {
			row[j] = v * reciprocal(scal, j)
		}
		res[i] = row
	}

	return res
}

func reciprocal(scal []float64, axis int) float64 {
	var s float64
	switch {
	case len(scal) == 0:
		return 1
	case len(scal) == 1:
		s = scal[0]
	case axis < len(scal):
		s = scal[axis]
	default:
		return 1
	}
	if s == 0 {
		return 1
	}
	return 1 / s
}
