package gpmf

import (
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

type Kind byte

const (
	KindBytes Kind = iota
	KindNumeric
	KindText
	KindTime
	KindFloat // 8-byte fallback for untyped leaves
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindText:
		return "text"
	case KindTime:
		return "time"
	case KindFloat:
		return "float"
	}
	return "bytes"
}

// Value is a decoded leaf. Numeric values are stored as repeat rows of
// struct components, so a GPS5 element with repeat 18 is 18 rows of 5.
type Value struct {
	Kind    Kind
	Samples [][]float64
	Strings []string
	Time    time.Time
	Bytes   []byte
}

// Float returns the first component of the first row.
func (v Value) Float() (float64, bool) {
	if len(v.Samples) == 0 || len(v.Samples[0]) == 0 {
		return 0, false
	}
	return v.Samples[0][0], true
}

// Floats returns all components of all rows in order.
func (v Value) Floats() []float64 {
	var f []float64
	for _, row := range v.Samples {
		f = append(f, row...)
	}
	return f
}

func (v Value) Text() string {
	switch len(v.Strings) {
	case 0:
		return ""
	case 1:
		return v.Strings[0]
	}
	return strings.Join(v.Strings, ",")
}

func (v Value) String() string {
	switch v.Kind {
	case KindNumeric, KindFloat:
		s := make([]string, 0, len(v.Samples))
		for _, f := range v.Floats() {
			s = append(s, strconv.FormatFloat(f, 'f', -1, 64))
		}
		return strings.Join(s, ",")
	case KindText:
		return v.Text()
	case KindTime:
		return v.Time.Format(time.RFC3339Nano)
	}
	return hex.EncodeToString(v.Bytes)
}
