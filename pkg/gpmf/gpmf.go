// Package gpmf decodes the GoPro Metadata Format: a big-endian, recursive
// key-length-value stream carried in the `gpmd` track of camera recordings.
//
// Every element starts with an 8-byte header:
//
//	key[4] type[1] size[1] repeat[2]
//
// followed by size*repeat bytes of data, padded to a 4-byte boundary.
// Type 0 marks a container whose data is a sequence of elements.
package gpmf

import (
	"errors"
	"fmt"
)

const (
	KeyDevice     = "DEVC"
	KeyDeviceID   = "DVID"
	KeyDeviceName = "DVNM"
	KeyStream     = "STRM"
	KeyStreamName = "STNM"
	KeyScale      = "SCAL"
	KeyType       = "TYPE"
	KeyUnits      = "SIUN"
)

const (
	TypeNested   = 0
	TypeInt8     = 'b'
	TypeUint8    = 'B'
	TypeChar     = 'c'
	TypeFloat64  = 'd'
	TypeFloat32  = 'f'
	TypeFourCC   = 'F'
	TypeGUID     = 'G'
	TypeInt64    = 'j'
	TypeUint64   = 'J'
	TypeInt32    = 'l'
	TypeUint32   = 'L'
	TypeQ15      = 'q'
	TypeQ31      = 'Q'
	TypeInt16    = 's'
	TypeUint16   = 'S'
	TypeUTCDate  = 'U'
	TypeComplex  = '?'
	headerSize   = 8
	dateLayout   = "060102150405.000"
	dateByteSize = 16
)

// typeSize returns the byte size of one element of a numeric type
// or 0 for non numeric types.
func typeSize(typ byte) int {
	switch typ {
	case TypeInt8, TypeUint8:
		return 1
	case TypeInt16, TypeUint16:
		return 2
	case TypeFloat32, TypeInt32, TypeUint32, TypeQ15:
		return 4
	case TypeFloat64, TypeInt64, TypeUint64, TypeQ31:
		return 8
	}
	return 0
}

var ErrMalformedStream = errors.New("gpmf: malformed stream")

// MalformedError reports an element whose declared length does not fit
// in the bytes left in its parent.
type MalformedError struct {
	Key    string
	Offset int // from the start of the decoded buffer
	Need   int
	Have   int
}

func (e *MalformedError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("gpmf: malformed stream at %d: need %d bytes, have %d", e.Offset, e.Need, e.Have)
	}
	return fmt.Sprintf("gpmf: malformed stream at %d (%s): need %d bytes, have %d", e.Offset, e.Key, e.Need, e.Have)
}

func (e *MalformedError) Unwrap() error {
	return ErrMalformedStream
}
