package iso

import (
	"encoding/binary"
	"io"

	"github.com/gpmf-dataflow/dataflow/pkg/bits"
)

const (
	Ftyp                     = "ftyp"
	Moov                     = "moov"
	MoovTrak                 = "trak"
	MoovTrakMdia             = "mdia"
	MoovTrakMdiaMdhd         = "mdhd"
	MoovTrakMdiaHdlr         = "hdlr"
	MoovTrakMdiaMinf         = "minf"
	MoovTrakMdiaMinfStbl     = "stbl"
	MoovTrakMdiaMinfStblStsd = "stsd"
	MoovTrakMdiaMinfStblStts = "stts"
	MoovTrakMdiaMinfStblStsc = "stsc"
	MoovTrakMdiaMinfStblStsz = "stsz"
	MoovTrakMdiaMinfStblStco = "stco"
	MoovTrakMdiaMinfStblCo64 = "co64"
	Mdat                     = "mdat"
)

// Track is the sample table of one `trak` box.
type Track struct {
	Format    string
	Handler   string
	Timescale uint32

	Times   []TimeRun
	Chunks  []ChunkRun
	Sizes   []uint32
	Offsets []uint64
}

// TimeRun is one stts entry: Count samples lasting Delta each.
type TimeRun struct {
	Count uint32
	Delta uint32
}

// ChunkRun is one stsc entry: chunks from FirstChunk (1-based) on hold
// Samples samples each.
type ChunkRun struct {
	FirstChunk uint32
	Samples    uint32
}

// DecodeTracks returns the tracks of a `moov` box payload.
func DecodeTracks(b []byte) ([]*Track, error) {
	var tracks []*Track

	err := walkAtoms(b, func(name string, data []byte) error {
		if name != MoovTrak {
			return nil
		}

		track := &Track{}
		if err := track.decode(data); err != nil {
			return err
		}

		tracks = append(tracks, track)
		return nil
	})

	return tracks, err
}

// walkAtoms calls fn for every box of one level.
func walkAtoms(b []byte, fn func(name string, data []byte) error) error {
	for len(b) >= 8 {
		size := uint64(binary.BigEndian.Uint32(b))
		name := string(b[4:8])
		header := uint64(8)

		switch size {
		case 0: // up to the end
			size = uint64(len(b))
		case 1: // 64-bit size
			if len(b) < 16 {
				return io.ErrUnexpectedEOF
			}
			size = binary.BigEndian.Uint64(b[8:])
			header = 16
		}

		if size < header || uint64(len(b)) < size {
			return io.ErrUnexpectedEOF
		}

		if err := fn(name, b[header:size]); err != nil {
			return err
		}

		b = b[size:]
	}

	return nil
}

func (t *Track) decode(b []byte) error {
	return walkAtoms(b, func(name string, data []byte) error {
		switch name {
		case MoovTrakMdia, MoovTrakMdiaMinf, MoovTrakMdiaMinfStbl:
			return t.decode(data)
		}

		rd := bits.NewReader(data)

		version := rd.ReadByte()
		_ = rd.ReadUint24() // flags

		switch name {
		case MoovTrakMdiaMdhd:
			if version == 1 {
				rd.Skip(16) // create and modify time
			} else {
				rd.Skip(8)
			}
			t.Timescale = rd.ReadUint32()

		case MoovTrakMdiaHdlr:
			rd.Skip(4) // pre defined
			t.Handler = string(rd.ReadBytes(4))

		case MoovTrakMdiaMinfStblStsd:
			if entries := rd.ReadUint32(); entries > 0 {
				rd.Skip(4) // entry size
				t.Format = string(rd.ReadBytes(4))
			}

		case MoovTrakMdiaMinfStblStts:
			count := rd.ReadUint32()
			for i := uint32(0); i < count && !rd.EOF; i++ {
				t.Times = append(t.Times, TimeRun{Count: rd.ReadUint32(), Delta: rd.ReadUint32()})
			}

		case MoovTrakMdiaMinfStblStsc:
			count := rd.ReadUint32()
			for i := uint32(0); i < count && !rd.EOF; i++ {
				run := ChunkRun{FirstChunk: rd.ReadUint32(), Samples: rd.ReadUint32()}
				_ = rd.ReadUint32() // sample description index
				t.Chunks = append(t.Chunks, run)
			}

		case MoovTrakMdiaMinfStblStsz:
			size := rd.ReadUint32()
			count := rd.ReadUint32()
			if size != 0 {
				if uint64(count)*8 > uint64(len(data)) {
					// a constant size table is tiny, this is a damaged count
					return io.ErrUnexpectedEOF
				}
				t.Sizes = make([]uint32, count)
				for i := range t.Sizes {
					t.Sizes[i] = size
				}
				break
			}
			for i := uint32(0); i < count && !rd.EOF; i++ {
				t.Sizes = append(t.Sizes, rd.ReadUint32())
			}

		case MoovTrakMdiaMinfStblStco:
			count := rd.ReadUint32()
			for i := uint32(0); i < count && !rd.EOF; i++ {
				t.Offsets = append(t.Offsets, uint64(rd.ReadUint32()))
			}

		case MoovTrakMdiaMinfStblCo64:
			count := rd.ReadUint32()
			for i := uint32(0); i < count && !rd.EOF; i++ {
				t.Offsets = append(t.Offsets, rd.ReadUint64())
			}

		default:
			return nil
		}

		if rd.EOF {
			return io.ErrUnexpectedEOF
		}
		return nil
	})
}

// Samples lays the sample sizes out over the chunks and converts the
// decode times to milliseconds. Data is not read.
func (t *Track) Samples() []*Sample {
	samples := make([]*Sample, 0, len(t.Sizes))

	for i, run := range t.Chunks {
		last := uint32(len(t.Offsets))
		if i+1 < len(t.Chunks) {
			last = min(last, t.Chunks[i+1].FirstChunk-1)
		}

		for chunk := run.FirstChunk; chunk >= 1 && chunk <= last; chunk++ {
			offset := t.Offsets[chunk-1]
			for j := uint32(0); j < run.Samples && len(samples) < len(t.Sizes); j++ {
				size := t.Sizes[len(samples)]
				samples = append(samples, &Sample{Offset: int64(offset), Size: size})
				offset += uint64(size)
			}
		}
	}

	if t.Timescale == 0 {
		return samples
	}

	scale := 1000 / float64(t.Timescale)

	var ts uint64
	var n int
	for _, run := range t.Times {
		for j := uint32(0); j < run.Count && n < len(samples); j++ {
			samples[n].Start = float64(ts) * scale
			ts += uint64(run.Delta)
			samples[n].End = float64(ts) * scale
			n++
		}
	}

	return samples
}
