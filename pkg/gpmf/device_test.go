package gpmf

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDevices(t *testing.T) {
	w := NewWriter(512)
	w.StartNode("DEVC")
	w.WriteNumeric("DVID", TypeUint32, []float64{1})
	w.WriteText("DVNM", "HERO9 Black")
	w.StartNode("STRM")
	w.WriteText("STNM", "Accelerometer")
	w.WriteNumeric("SCAL", TypeInt16, []float64{100})
	w.WriteNumeric("ACCL", TypeInt16, []float64{980, 10, -20}, []float64{990, 0, 0})
	w.EndNode()
	w.StartNode("STRM")
	w.WriteNumeric("GPSF", TypeUint32, []float64{3})
	w.WriteNumeric("GPSP", TypeUint16, []float64{250})
	w.WriteNumeric("GPSP", TypeUint16, []float64{120})
	w.EndNode()
	w.EndNode()
	w.StartNode("DEVC")
	w.WriteFourCC("DVID", "HLMT")
	w.WriteText("DVNM", "Helmet")
	w.StartNode("STRM")
	w.WriteNumeric("ACCL", TypeInt16, []float64{1, 2, 3})
	w.EndNode()
	w.EndNode()

	nodes, err := Decode(w.Bytes())
	require.Nil(t, err)

	devices := Devices(nodes)
	require.Equal(t, []Device{{ID: "1", Name: "HERO9 Black"}, {ID: "HLMT", Name: "Helmet"}}, devices)

	streams := DeviceStreams(nodes, "1")
	require.Len(t, streams, 2)
	require.Equal(t, "Accelerometer", streams[0].Text("STNM"))

	// later duplicate wins
	dop, ok := streams[1].Float("GPSP")
	require.True(t, ok)
	require.Equal(t, 120.0, dop)
	require.Equal(t, []string{"GPSF", "GPSP"}, streams[1].Keys())

	require.Equal(t, streams[1], FindStream(streams, "GPSF"))
	require.Nil(t, FindStream(streams, "GYRO"))

	other := DeviceStreams(nodes, "HLMT")
	require.Len(t, other, 1)
	require.Empty(t, DeviceStreams(nodes, "2"))
}

func TestStreamMeasures(t *testing.T) {
	w := NewWriter(128)
	w.WriteNumeric("SCAL", TypeInt32, []float64{10}, []float64{100}, []float64{1000})
	w.WriteNumeric("GPS5", TypeInt32, []float64{10, 200, 3000}, []float64{-20, 400, 6000})

	nodes, err := Decode(w.Bytes())
	require.Nil(t, err)

	s := NewStream(nodes)
	require.Nil(t, s.Measures()) // no measure key

	m := s.WithMeasure("GPS5").Measures()
	require.Equal(t, [][]float64{{1, 2, 3}, {-2, 4, 6}}, m)

	// source samples are untouched
	require.Equal(t, [][]float64{{10, 200, 3000}, {-20, 400, 6000}}, s.Samples("GPS5"))

	require.Nil(t, s.WithMeasure("ACCL").Measures())
}
