package bits

import (
	"encoding/binary"
	"math"
)

// Reader reads big-endian values from a byte slice. Reading past the end
// never panics: it returns zero values and raises EOF.
type Reader struct {
	EOF bool // if end of buffer raised during reading

	buf []byte // total buf
	pos int    // current pos in buf
}

func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

//goland:noinspection GoStandardMethods
func (r *Reader) ReadByte() byte {
	if r.pos >= len(r.buf) {
		r.EOF = true
		return 0
	}

	b := r.buf[r.pos]
	r.pos++
	return b
}

func (r *Reader) ReadUint16() uint16 {
	if b := r.ReadBytes(2); b != nil {
		return binary.BigEndian.Uint16(b)
	}
	return 0
}

func (r *Reader) ReadUint24() uint32 {
	if b := r.ReadBytes(3); b != nil {
		return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
	}
	return 0
}

func (r *Reader) ReadUint32() uint32 {
	if b := r.ReadBytes(4); b != nil {
		return binary.BigEndian.Uint32(b)
	}
	return 0
}

func (r *Reader) ReadUint64() uint64 {
	if b := r.ReadBytes(8); b != nil {
		return binary.BigEndian.Uint64(b)
	}
	return 0
}

func (r *Reader) ReadInt8() int8 {
	return int8(r.ReadByte())
}

func (r *Reader) ReadInt16() int16 {
	return int16(r.ReadUint16())
}

func (r *Reader) ReadInt32() int32 {
	return int32(r.ReadUint32())
}

func (r *Reader) ReadInt64() int64 {
	return int64(r.ReadUint64())
}

func (r *Reader) ReadFloat32() float32 {
	return math.Float32frombits(r.ReadUint32())
}

func (r *Reader) ReadFloat64() float64 {
	return math.Float64frombits(r.ReadUint64())
}

// ReadBytes returns a sub slice of the buffer (not a copy) or nil on EOF.
func (r *Reader) ReadBytes(n int) (b []byte) {
	if n < 0 || r.pos+n > len(r.buf) {
		r.EOF = true
		return nil
	}

	b = r.buf[r.pos : r.pos+n]
	r.pos += n
	return
}

func (r *Reader) Skip(n int) {
	if n < 0 || r.pos+n > len(r.buf) {
		r.EOF = true
		r.pos = len(r.buf)
		return
	}
	r.pos += n
}

func (r *Reader) Left() []byte {
	return r.buf[r.pos:]
}

func (r *Reader) Len() int {
	return len(r.buf) - r.pos
}

func (r *Reader) Pos() int {
	return r.pos
}
