// Package nctype defines the closed set of element types supported by
// the NetCDF classic format: the header tag, on-disk width, fill value
// and typed slice codec for each.
package nctype

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Type identifies one of the six element types of the classic format.
// The numeric value is the tag stored in file headers.
type Type int32

const (
	Byte   Type = iota + 1 // NC_BYTE, 8-bit signed integer
	Char                   // NC_CHAR, 8-bit character
	Short                  // NC_SHORT, 16-bit signed integer
	Int                    // NC_INT, 32-bit signed integer
	Float                  // NC_FLOAT, 32-bit IEEE float
	Double                 // NC_DOUBLE, 64-bit IEEE float
)

// ErrUnknownTag is returned when a header carries a type tag outside
// the fixed enumeration.
var ErrUnknownTag = errors.New("unknown type tag")

// Default fill values, as defined by the NetCDF C library.
const (
	FillByte   int8    = -127
	FillChar   byte    = 0
	FillShort  int16   = -32767
	FillInt    int32   = -2147483647
	FillFloat  float32 = 9.9692099683868690e+36
	FillDouble float64 = 9.9692099683868690e+36
)

var names = [...]string{"", "NC_BYTE", "NC_CHAR", "NC_SHORT", "NC_INT", "NC_FLOAT", "NC_DOUBLE"}
var sizes = [...]int{0, 1, 1, 2, 4, 4, 8}

// FromTag converts a header tag to a Type.
func FromTag(tag int32) (Type, error) {
	t := Type(tag)
	if !t.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrUnknownTag, tag)
	}
	return t, nil
}

// Valid reports whether t is one of the six defined types.
func (t Type) Valid() bool { return t >= Byte && t <= Double }

// Size returns the on-disk width of one element in bytes.
func (t Type) Size() int {
	if !t.Valid() {
		return 0
	}
	return sizes[t]
}

// String returns the NetCDF C API name of the type ("NC_BYTE", ...).
func (t Type) String() string {
	if !t.Valid() {
		return fmt.Sprintf("<%d>", int32(t))
	}
	return names[t]
}

// FillBytes returns the big-endian encoding of one fill element.
func (t Type) FillBytes() []byte {
	switch t {
	case Byte:
		v := FillByte
		return []byte{byte(v)}
	case Char:
		return []byte{FillChar}
	case Short:
		return []byte{0x80, 0x01}
	case Int:
		return []byte{0x80, 0x00, 0x00, 0x01}
	case Float:
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, math.Float32bits(FillFloat))
		return b
	case Double:
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, math.Float64bits(FillDouble))
		return b
	}
	return nil
}

// FillRegion returns regionSize bytes of the type's fill pattern.
// regionSize includes any trailing alignment padding, which is filled
// with the same pattern so single-byte and two-byte regions never
// expose stray zero bytes as data.
func (t Type) FillRegion(regionSize int64) []byte {
	pattern := t.FillBytes()
	buf := make([]byte, regionSize)
	for i := range buf {
		buf[i] = pattern[i%len(pattern)]
	}
	return buf
}

// FromValues maps a Go value to its Type and element count. Valid
// dynamic types are []int8, []byte, string, []int16, []int32,
// []float32 and []float64.
func FromValues(v interface{}) (Type, int, error) {
	switch s := v.(type) {
	case []int8:
		return Byte, len(s), nil
	case []byte:
		return Char, len(s), nil
	case string:
		return Char, len(s), nil
	case []int16:
		return Short, len(s), nil
	case []int32:
		return Int, len(s), nil
	case []float32:
		return Float, len(s), nil
	case []float64:
		return Double, len(s), nil
	}
	return 0, 0, fmt.Errorf("unsupported value type %T", v)
}

// Append encodes the typed slice v in big-endian order onto dst.
func Append(dst []byte, v interface{}) ([]byte, error) {
	switch s := v.(type) {
	case []int8:
		for _, e := range s {
			dst = append(dst, byte(e))
		}
	case []byte:
		dst = append(dst, s...)
	case string:
		dst = append(dst, s...)
	case []int16:
		for _, e := range s {
			dst = binary.BigEndian.AppendUint16(dst, uint16(e))
		}
	case []int32:
		for _, e := range s {
			dst = binary.BigEndian.AppendUint32(dst, uint32(e))
		}
	case []float32:
		for _, e := range s {
			dst = binary.BigEndian.AppendUint32(dst, math.Float32bits(e))
		}
	case []float64:
		for _, e := range s {
			dst = binary.BigEndian.AppendUint64(dst, math.Float64bits(e))
		}
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
	return dst, nil
}

// Decode converts n big-endian elements of type t from raw into the
// corresponding typed slice ([]int8, []byte, []int16, []int32,
// []float32 or []float64).
func Decode(t Type, raw []byte, n int) (interface{}, error) {
	if want := n * t.Size(); len(raw) < want {
		return nil, fmt.Errorf("decoding %s: need %d bytes, have %d", t, want, len(raw))
	}
	switch t {
	case Byte:
		out := make([]int8, n)
		for i := range out {
			out[i] = int8(raw[i])
		}
		return out, nil
	case Char:
		out := make([]byte, n)
		copy(out, raw[:n])
		return out, nil
	case Short:
		out := make([]int16, n)
		for i := range out {
			out[i] = int16(binary.BigEndian.Uint16(raw[2*i:]))
		}
		return out, nil
	case Int:
		out := make([]int32, n)
		for i := range out {
			out[i] = int32(binary.BigEndian.Uint32(raw[4*i:]))
		}
		return out, nil
	case Float:
		out := make([]float32, n)
		for i := range out {
			out[i] = math.Float32frombits(binary.BigEndian.Uint32(raw[4*i:]))
		}
		return out, nil
	case Double:
		out := make([]float64, n)
		for i := range out {
			out[i] = math.Float64frombits(binary.BigEndian.Uint64(raw[8*i:]))
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownTag, int32(t))
}

// Slice returns v[lo:hi] preserving the dynamic slice type.
func Slice(v interface{}, lo, hi int) (interface{}, error) {
	switch s := v.(type) {
	case []int8:
		return s[lo:hi], nil
	case []byte:
		return s[lo:hi], nil
	case string:
		return s[lo:hi], nil
	case []int16:
		return s[lo:hi], nil
	case []int32:
		return s[lo:hi], nil
	case []float32:
		return s[lo:hi], nil
	case []float64:
		return s[lo:hi], nil
	}
	return nil, fmt.Errorf("unsupported value type %T", v)
}
