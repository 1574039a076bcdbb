package telemetry

import (
	"sort"
)

// Series is an ordered mapping from timestamp (Unix seconds) to record.
// Keys are kept sorted; Set on an existing key replaces the record.
// The zero value is an empty series.
type Series[R Record] struct {
	keys []float64
	vals []R
}

func (s *Series[R]) Kind() Kind {
	var r R
	return r.Kind()
}

func (s *Series[R]) Len() int {
	return len(s.keys)
}

func (s *Series[R]) Keys() []float64 {
	return s.keys
}

func (s *Series[R]) At(i int) (float64, R) {
	return s.keys[i], s.vals[i]
}

func (s *Series[R]) search(ts float64) int {
	return sort.SearchFloat64s(s.keys, ts)
}

func (s *Series[R]) Get(ts float64) (R, bool) {
	if i := s.search(ts); i < len(s.keys) && s.keys[i] == ts {
		return s.vals[i], true
	}
	var r R
	return r, false
}

func (s *Series[R]) Set(ts float64, r R) {
	n := len(s.keys)

	// common case: timestamps arrive in order
	if n == 0 || s.keys[n-1] < ts {
		s.keys = append(s.keys, ts)
		s.vals = append(s.vals, r)
		return
	}

	i := s.search(ts)
	if s.keys[i] == ts {
		s.vals[i] = r
		return
	}

	var zero R
	s.keys = append(s.keys, 0)
	s.vals = append(s.vals, zero)
	copy(s.keys[i+1:], s.keys[i:])
	copy(s.vals[i+1:], s.vals[i:])
	s.keys[i] = ts
	s.vals[i] = r
}

func (s *Series[R]) Delete(ts float64) bool {
	i := s.search(ts)
	if i == len(s.keys) || s.keys[i] != ts {
		return false
	}
	s.keys = append(s.keys[:i], s.keys[i+1:]...)
	s.vals = append(s.vals[:i], s.vals[i+1:]...)
	return true
}

// Update sets every record of other into s.
func (s *Series[R]) Update(other *Series[R]) {
	for i, ts := range other.keys {
		s.Set(ts, other.vals[i])
	}
}

// Closest returns the record with the timestamp nearest to ts.
// On a tie the earlier record wins.
func (s *Series[R]) Closest(ts float64) (float64, R, bool) {
	n := len(s.keys)
	if n == 0 {
		var r R
		return 0, r, false
	}

	i := s.search(ts)
	switch {
	case i == 0:
	case i == n:
		i = n - 1
	case ts-s.keys[i-1] <= s.keys[i]-ts:
		i--
	}

	return s.keys[i], s.vals[i], true
}

func (s *Series[R]) Clone() Series[R] {
	return Series[R]{
		keys: append([]float64(nil), s.keys...),
		vals: append([]R(nil), s.vals...),
	}
}

// Fragment is a projected Series of any kind.
type Fragment interface {
	Kind() Kind
	Len() int
}

// MergeSeries returns a sorted union of a and b. Records of b replace
// records of a with the same timestamp.
func MergeSeries[R Record](a, b Series[R]) Series[R] {
	res := a.Clone()
	res.Update(&b)
	return res
}
