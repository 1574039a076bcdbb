package iso

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

type movie struct {
	b     []byte
	start []int
}

func (m *movie) StartAtom(name string) {
	m.start = append(m.start, len(m.b))
	m.b = append(m.b, 0, 0, 0, 0)
	m.b = append(m.b, name...)
}

func (m *movie) EndAtom() {
	n := len(m.start) - 1

	i := m.start[n]
	binary.BigEndian.PutUint32(m.b[i:], uint32(len(m.b)-i))

	m.start = m.start[:n]
}

func (m *movie) WriteUint32(v ...uint32) {
	for _, u := range v {
		m.b = binary.BigEndian.AppendUint32(m.b, u)
	}
}

func (m *movie) WriteUint64(v uint64) {
	m.b = binary.BigEndian.AppendUint64(m.b, v)
}

func (m *movie) WriteString(s string) {
	m.b = append(m.b, s...)
}

type testTrack struct {
	format    string
	timescale uint32
	times     []TimeRun
	chunks    []ChunkRun
	sizes     []uint32
	offsets   []uint64
	co64      bool
}

func (m *movie) WriteTrack(t testTrack) {
	m.StartAtom(MoovTrak)
	m.StartAtom(MoovTrakMdia)

	m.StartAtom(MoovTrakMdiaMdhd)
	m.WriteUint32(0, 0, 0, t.timescale, 0)
	m.EndAtom()

	m.StartAtom(MoovTrakMdiaHdlr)
	m.WriteUint32(0, 0)
	m.WriteString("meta")
	m.EndAtom()

	m.StartAtom(MoovTrakMdiaMinf)
	m.StartAtom(MoovTrakMdiaMinfStbl)

	m.StartAtom(MoovTrakMdiaMinfStblStsd)
	m.WriteUint32(0, 1)
	m.StartAtom(t.format)
	m.WriteUint32(0, 1)
	m.EndAtom()
	m.EndAtom()

	m.StartAtom(MoovTrakMdiaMinfStblStts)
	m.WriteUint32(0, uint32(len(t.times)))
	for _, run := range t.times {
		m.WriteUint32(run.Count, run.Delta)
	}
	m.EndAtom()

	m.StartAtom(MoovTrakMdiaMinfStblStsc)
	m.WriteUint32(0, uint32(len(t.chunks)))
	for _, run := range t.chunks {
		m.WriteUint32(run.FirstChunk, run.Samples, 1)
	}
	m.EndAtom()

	m.StartAtom(MoovTrakMdiaMinfStblStsz)
	m.WriteUint32(0, 0, uint32(len(t.sizes)))
	m.WriteUint32(t.sizes...)
	m.EndAtom()

	if t.co64 {
		m.StartAtom(MoovTrakMdiaMinfStblCo64)
		m.WriteUint32(0, uint32(len(t.offsets)))
		for _, offset := range t.offsets {
			m.WriteUint64(offset)
		}
	} else {
		m.StartAtom(MoovTrakMdiaMinfStblStco)
		m.WriteUint32(0, uint32(len(t.offsets)))
		for _, offset := range t.offsets {
			m.WriteUint32(uint32(offset))
		}
	}
	m.EndAtom()

	m.EndAtom() // stbl
	m.EndAtom() // minf
	m.EndAtom() // mdia
	m.EndAtom() // trak
}

// testFile holds five telemetry samples in three chunks, interleaved with
// video data, and a video track in front of the telemetry track.
func testFile(co64 bool) []byte {
	m := &movie{}
	m.StartAtom(Ftyp)
	m.WriteString("mp41")
	m.EndAtom()

	m.StartAtom(Mdat)
	chunk1 := uint64(len(m.b))
	m.WriteString("AAAABBBBBB")
	m.WriteString("video")
	chunk2 := uint64(len(m.b))
	m.WriteString("CCCDD")
	m.WriteString("video")
	chunk3 := uint64(len(m.b))
	m.WriteString("E")
	m.EndAtom()

	m.StartAtom(Moov)
	m.WriteTrack(testTrack{
		format: "avc1", timescale: 30000,
		times:  []TimeRun{{Count: 1, Delta: 1001}},
		chunks: []ChunkRun{{FirstChunk: 1, Samples: 1}},
		sizes:  []uint32{5}, offsets: []uint64{chunk1 + 10},
	})
	m.WriteTrack(testTrack{
		format: "gpmd", timescale: 1000,
		times:  []TimeRun{{Count: 4, Delta: 1001}, {Count: 1, Delta: 500}},
		chunks: []ChunkRun{{FirstChunk: 1, Samples: 2}, {FirstChunk: 3, Samples: 1}},
		sizes:  []uint32{4, 6, 3, 2, 1}, offsets: []uint64{chunk1, chunk2, chunk3},
		co64: co64,
	})
	m.EndAtom()

	return m.b
}

func TestReadTrack(t *testing.T) {
	for _, co64 := range []bool{false, true} {
		b := testFile(co64)

		samples, err := ReadTrack(bytes.NewReader(b), int64(len(b)), "gpmd")
		require.Nil(t, err)
		require.Len(t, samples, 5)

		var data []string
		for _, sample := range samples {
			data = append(data, string(sample.Data))
		}
		require.Equal(t, []string{"AAAA", "BBBBBB", "CCC", "DD", "E"}, data)

		require.Equal(t, 0.0, samples[0].Start)
		require.Equal(t, 1001.0, samples[0].End)
		require.Equal(t, 3003.0, samples[3].Start)
		require.Equal(t, 4004.0, samples[4].Start)
		require.Equal(t, 4504.0, samples[4].End)
	}
}

func TestReadTrackVideo(t *testing.T) {
	b := testFile(false)

	samples, err := ReadTrack(bytes.NewReader(b), int64(len(b)), "avc1")
	require.Nil(t, err)
	require.Len(t, samples, 1)
	require.Equal(t, "video", string(samples[0].Data))
	require.InDelta(t, 33.366, samples[0].End, 1e-3)
}

func TestReadTrackMissing(t *testing.T) {
	b := testFile(false)

	_, err := ReadTrack(bytes.NewReader(b), int64(len(b)), "tmcd")
	require.True(t, errors.Is(err, ErrNoTrack))

	// no moov at all
	m := &movie{}
	m.StartAtom(Ftyp)
	m.WriteString("mp41")
	m.EndAtom()
	_, err = ReadTrack(bytes.NewReader(m.b), int64(len(m.b)), "gpmd")
	require.True(t, errors.Is(err, ErrNoTrack))
}

func TestReadTrackTruncated(t *testing.T) {
	b := testFile(false)
	b = b[:len(b)-4]

	_, err := ReadTrack(bytes.NewReader(b), int64(len(b)), "gpmd")
	require.NotNil(t, err)
	require.False(t, errors.Is(err, ErrNoTrack))

	// 64-bit size near the int64 limit
	for _, name := range []string{Moov, "free"} {
		m := &movie{}
		m.StartAtom(Ftyp)
		m.WriteString("mp41")
		m.EndAtom()
		m.WriteUint32(1)
		m.WriteString(name)
		m.WriteUint64(0x7FFFFFFFFFFFFFF0)
		m.WriteString("data")

		require.NotPanics(t, func() {
			_, err = ReadTrack(bytes.NewReader(m.b), int64(len(m.b)), "gpmd")
		})
		require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	}
}

func TestReadTrackHostile(t *testing.T) {
	largeSize := func(name string, size uint64) []byte {
		m := &movie{}
		m.WriteUint32(1)
		m.WriteString(name)
		m.WriteUint64(size)
		return m.b
	}

	badOffset := func(offset uint64, co64 bool) []byte {
		m := &movie{}
		m.StartAtom(Moov)
		m.WriteTrack(testTrack{
			format: "gpmd", timescale: 1000,
			times:  []TimeRun{{Count: 1, Delta: 1000}},
			chunks: []ChunkRun{{FirstChunk: 1, Samples: 1}},
			sizes:  []uint32{0xFFFFFFFF}, offsets: []uint64{offset},
			co64: co64,
		})
		m.EndAtom()
		return m.b
	}

	tests := []struct {
		name string
		b    []byte
	}{
		{"empty", nil},
		{"short header", []byte("moo")},
		{"size below header", []byte{0, 0, 0, 4, 'm', 'o', 'o', 'v'}},
		{"missing largesize", []byte{0, 0, 0, 1, 'm', 'o', 'o', 'v'}},
		{"largesize max", largeSize(Moov, 0xFFFFFFFFFFFFFFFF)},
		{"largesize overflow", largeSize("free", 0x7FFFFFFFFFFFFFFF)},
		{"largesize below header", largeSize(Moov, 8)},
		{"oversized box", []byte{0x7F, 0xFF, 0xFF, 0xFF, 'm', 'o', 'o', 'v'}},
		{"sample past end", badOffset(8, false)},
		{"negative sample offset", badOffset(0xFFFFFFFFFFFFFFFF, true)},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var err error
			require.NotPanics(t, func() {
				_, err = ReadTrack(bytes.NewReader(test.b), int64(len(test.b)), "gpmd")
			})
			require.NotNil(t, err)
		})
	}

	require.NotPanics(t, func() {
		_, _ = DecodeTracks(largeSize(MoovTrak, 0xFFFFFFFFFFFFFFFF))
	})
}

func TestDecodeTracks(t *testing.T) {
	m := &movie{}
	m.WriteTrack(testTrack{format: "gpmd", timescale: 90000})

	tracks, err := DecodeTracks(m.b)
	require.Nil(t, err)
	require.Len(t, tracks, 1)
	require.Equal(t, "gpmd", tracks[0].Format)
	require.Equal(t, "meta", tracks[0].Handler)
	require.Equal(t, uint32(90000), tracks[0].Timescale)
	require.Empty(t, tracks[0].Samples())

	_, err = DecodeTracks(m.b[:len(m.b)-1])
	require.NotNil(t, err)
}
