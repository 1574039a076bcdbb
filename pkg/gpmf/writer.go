package gpmf

import (
	"encoding/binary"
	"errors"
	"math"
	"time"
)

// ErrTooLarge is set on a Writer when an element does not fit its header:
// struct size is one byte and repeat two, so text is limited to 255 bytes,
// a numeric row to 255 bytes, 65535 rows per element and containers to
// 65535 words of data.
var ErrTooLarge = errors.New("gpmf: element too large")

// Writer builds GPMF buffers. Containers are opened with StartNode and
// their header is patched on EndNode, so they can be nested freely.
// An element that does not fit is skipped and Err is set.
type Writer struct {
	Err error

	b     []byte
	start []int
}

func NewWriter(size int) *Writer {
	return &Writer{b: make([]byte, 0, size)}
}

func (w *Writer) Bytes() []byte {
	return w.b
}

func (w *Writer) StartNode(key string) {
	w.start = append(w.start, len(w.b))
	w.writeHeader(key, TypeNested, 4, 0)
}

func (w *Writer) EndNode() {
	n := len(w.start) - 1

	i := w.start[n]
	size := len(w.b) - i - headerSize
	if size/4 > math.MaxUint16 {
		// the container is dropped with everything inside it
		w.Err = ErrTooLarge
		w.b = w.b[:i]
		w.start = w.start[:n]
		return
	}
	// container data is always 4-byte aligned, so repeat counts words
	binary.BigEndian.PutUint16(w.b[i+6:], uint16(size/4))

	w.start = w.start[:n]
}

// WriteLeaf writes a raw element and pads it to 4 bytes.
func (w *Writer) WriteLeaf(key string, typ, size byte, repeat uint16, data []byte) {
	w.writeHeader(key, typ, size, repeat)
	w.b = append(w.b, data...)
	w.b = append(w.b, make([]byte, padding(len(data)))...)
}

func (w *Writer) WriteText(key, s string) {
	if len(s) > math.MaxUint8 {
		w.Err = ErrTooLarge
		return
	}
	w.WriteLeaf(key, TypeChar, byte(len(s)), 1, []byte(s))
}

func (w *Writer) WriteFourCC(key, s string) {
	w.WriteLeaf(key, TypeFourCC, 4, 1, []byte(s))
}

func (w *Writer) WriteTime(key string, ts time.Time) {
	s := ts.UTC().Format(dateLayout)
	w.WriteLeaf(key, TypeUTCDate, dateByteSize, 1, []byte(s))
}

// WriteNumeric writes rows of equal length as elements of type typ.
func (w *Writer) WriteNumeric(key string, typ byte, rows ...[]float64) {
	n := typeSize(typ)
	if n == 0 || len(rows) == 0 {
		return
	}

	size := n * len(rows[0])
	if size > math.MaxUint8 || len(rows) > math.MaxUint16 {
		w.Err = ErrTooLarge
		return
	}
	data := make([]byte, 0, size*len(rows))
	for _, row := range rows {
		for _, v := range row {
			data = appendNumber(data, typ, v)
		}
	}

	w.WriteLeaf(key, typ, byte(size), uint16(len(rows)), data)
}

func (w *Writer) writeHeader(key string, typ, size byte, repeat uint16) {
	var k [4]byte
	copy(k[:], key)
	w.b = append(w.b, k[:]...)
	w.b = append(w.b, typ, size, byte(repeat>>8), byte(repeat))
}

func appendNumber(b []byte, typ byte, v float64) []byte {
	switch typ {
	case TypeInt8, TypeUint8:
		return append(b, byte(int64(v)))
	case TypeInt16, TypeUint16:
		return binary.BigEndian.AppendUint16(b, uint16(int64(v)))
	case TypeInt32, TypeUint32:
		return binary.BigEndian.AppendUint32(b, uint32(int64(v)))
	case TypeInt64, TypeUint64:
		return binary.BigEndian.AppendUint64(b, uint64(int64(v)))
	case TypeFloat32:
		return binary.BigEndian.AppendUint32(b, math.Float32bits(float32(v)))
	case TypeFloat64:
		return binary.BigEndian.AppendUint64(b, math.Float64bits(v))
	case TypeQ15:
		return binary.BigEndian.AppendUint32(b, uint32(int32(v*(1<<16))))
	case TypeQ31:
		return binary.BigEndian.AppendUint64(b, uint64(int64(v*(1<<32))))
	}
	return b
}
