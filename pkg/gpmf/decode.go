package gpmf

import (
	"encoding/binary"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gpmf-dataflow/dataflow/pkg/bits"
)

type Node struct {
	Key    string
	Type   byte
	Size   byte
	Repeat uint16
	Raw    []byte

	Children []*Node // only for TypeNested
	Value    Value   // only for leaves

	Err error // *MalformedError when the node could not be read whole
}

func (n *Node) Nested() bool {
	return n.Type == TypeNested && n.Err == nil
}

// Decode returns all elements of b in stream order. Duplicate keys are kept.
// A malformed element ends the decode of its level: it is returned with Err
// set, previously decoded siblings are kept, and all such errors are joined
// into the returned error.
func Decode(b []byte) ([]*Node, error) {
	var errs []error
	nodes := decodeLevel(b, 0, &errs)
	return nodes, errors.Join(errs...)
}

func decodeLevel(b []byte, offset int, errs *[]error) []*Node {
	var nodes []*Node
	var layout string // last TYPE on this level, for complex elements

	rd := bits.NewReader(b)

	for rd.Len() > 0 {
		pos := rd.Pos()

		if rd.Len() < headerSize {
			err := &MalformedError{Offset: offset + pos, Need: headerSize, Have: rd.Len()}
			nodes = append(nodes, &Node{Raw: rd.Left(), Err: err})
			*errs = append(*errs, err)
			break
		}

		node := &Node{
			Key:    string(rd.ReadBytes(4)),
			Type:   rd.ReadByte(),
			Size:   rd.ReadByte(),
			Repeat: rd.ReadUint16(),
		}

		size := int(node.Size) * int(node.Repeat)
		if size > rd.Len() {
			node.Raw = rd.Left()
			node.Err = &MalformedError{Key: node.Key, Offset: offset + pos, Need: size, Have: rd.Len()}
			nodes = append(nodes, node)
			*errs = append(*errs, node.Err)
			break
		}

		node.Raw = rd.ReadBytes(size)

		// last element may come without padding
		rd.Skip(min(padding(size), rd.Len()))

		if node.Type == TypeNested {
			node.Children = decodeLevel(node.Raw, offset+pos+headerSize, errs)
		} else {
			node.Value = decodeValue(node.Type, node.Size, node.Raw, layout)
			if node.Key == KeyType {
				layout = node.Value.Text()
			}
		}

		nodes = append(nodes, node)
	}

	return nodes
}

func padding(size int) int {
	return (4 - size%4) % 4
}

func decodeValue(typ, size byte, raw []byte, layout string) Value {
	switch typ {
	case TypeChar:
		return Value{Kind: KindText, Strings: splitText(raw, int(size))}

	case TypeFourCC:
		if len(raw)%4 == 0 {
			return Value{Kind: KindText, Strings: splitText(raw, 4)}
		}

	case TypeUTCDate:
		if v, ok := decodeDate(raw, int(size)); ok {
			return v
		}

	case TypeGUID:
		return Value{Kind: KindBytes, Bytes: raw}

	case TypeComplex:
		if types, ok := expandLayout(layout, int(size)); ok {
			if v, ok := decodeStruct(raw, int(size), types); ok {
				return v
			}
		}

	default:
		if n := typeSize(typ); n > 0 && size > 0 && int(size)%n == 0 {
			types := strings.Repeat(string(typ), int(size)/n)
			if v, ok := decodeStruct(raw, int(size), types); ok {
				return v
			}
		}
	}

	return fallback(raw)
}

// fallback is used for untyped or unknown leaves: text if the bytes are
// valid UTF-8, else a big-endian float64 if there are exactly 8 bytes,
// else the raw bytes as is.
func fallback(raw []byte) Value {
	if utf8.Valid(raw) {
		return Value{Kind: KindText, Strings: []string{string(raw)}}
	}
	if len(raw) == 8 {
		f := math.Float64frombits(binary.BigEndian.Uint64(raw))
		return Value{Kind: KindFloat, Samples: [][]float64{{f}}}
	}
	return Value{Kind: KindBytes, Bytes: raw}
}

func splitText(raw []byte, size int) []string {
	if size <= 0 {
		return nil
	}
	var s []string
	for i := 0; i+size <= len(raw); i += size {
		s = append(s, strings.TrimRight(string(raw[i:i+size]), "\x00"))
	}
	return s
}

func decodeDate(raw []byte, size int) (Value, bool) {
	if size != dateByteSize || len(raw) < dateByteSize {
		return Value{}, false
	}
	ts, err := time.ParseInLocation(dateLayout, string(raw[:dateByteSize]), time.UTC)
	if err != nil {
		return Value{}, false
	}
	return Value{Kind: KindTime, Time: ts}, true
}

// decodeStruct reads rows of numeric elements, one type char per component.
func decodeStruct(raw []byte, size int, types string) (Value, bool) {
	n := 0
	for i := 0; i < len(types); i++ {
		ts := typeSize(types[i])
		if ts == 0 {
			return Value{}, false
		}
		n += ts
	}
	if n == 0 || n != size || len(raw)%size != 0 {
		return Value{}, false
	}

	rd := bits.NewReader(raw)
	rows := make([][]float64, 0, len(raw)/size)

	for rd.Len() >= size {
		row := make([]float64, len(types))
		for i := 0; i < len(types); i++ {
			row[i] = readNumber(rd, types[i])
		}
		rows = append(rows, row)
	}

	return Value{Kind: KindNumeric, Samples: rows}, !rd.EOF
}

func readNumber(rd *bits.Reader, typ byte) float64 {
	switch typ {
	case TypeInt8:
		return float64(rd.ReadInt8())
	case TypeUint8:
		return float64(rd.ReadByte())
	case TypeInt16:
		return float64(rd.ReadInt16())
	case TypeUint16:
		return float64(rd.ReadUint16())
	case TypeInt32:
		return float64(rd.ReadInt32())
	case TypeUint32:
		return float64(rd.ReadUint32())
	case TypeInt64:
		return float64(rd.ReadInt64())
	case TypeUint64:
		return float64(rd.ReadUint64())
	case TypeFloat32:
		return float64(rd.ReadFloat32())
	case TypeFloat64:
		return rd.ReadFloat64()
	case TypeQ15:
		return float64(rd.ReadInt32()) / (1 << 16)
	case TypeQ31:
		return float64(rd.ReadInt64()) / (1 << 32)
	}
	return 0
}

// expandLayout turns a TYPE value like "f[3]s" into "fffs". Every
// component takes at least one byte, so a layout longer than size fails.
func expandLayout(layout string, size int) (string, bool) {
	var sb strings.Builder
	for i := 0; i < len(layout); i++ {
		c := layout[i]
		if c == 0 {
			break
		}
		if c != '[' {
			if sb.Len() >= size {
				return "", false
			}
			sb.WriteByte(c)
			continue
		}
		j := strings.IndexByte(layout[i:], ']')
		if j < 0 || sb.Len() == 0 {
			return "", false
		}
		n, err := strconv.Atoi(layout[i+1 : i+j])
		if err != nil || n < 1 || n-1 > size-sb.Len() {
			return "", false
		}
		last := sb.String()[sb.Len()-1:]
		sb.WriteString(strings.Repeat(last, n-1))
		i += j
	}
	return sb.String(), sb.Len() > 0
}

// Walk visits nodes depth first until fn returns false.
func Walk(nodes []*Node, fn func(node *Node) bool) bool {
	for _, node := range nodes {
		if !fn(node) {
			return false
		}
		if node.Children != nil && !Walk(node.Children, fn) {
			return false
		}
	}
	return true
}

// Errors collects the errors of all malformed nodes.
func Errors(nodes []*Node) (errs []error) {
	Walk(nodes, func(node *Node) bool {
		if node.Err != nil {
			errs = append(errs, node.Err)
		}
		return true
	})
	return
}
