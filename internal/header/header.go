// Package header encodes and decodes the metadata block that leads a
// NetCDF classic file: magic and version, record count, dimension
// list, global attributes and variable list.
package header

import (
	"errors"

	"github.com/ncio/go-netcdf3/internal/binary"
	"github.com/ncio/go-netcdf3/internal/nctype"
)

// Format versions, stored in the byte following the "CDF" magic.
const (
	VersionClassic     = 1 // 32-bit variable begin offsets
	Version64BitOffset = 2 // 64-bit variable begin offsets
)

// List tags. An empty list is encoded as eight zero bytes (absent).
const (
	tagDimension = 0x0A
	tagVariable  = 0x0B
	tagAttribute = 0x0C
)

// Streaming is the reserved numrecs value meaning the record count is
// indeterminate and must be derived from the file length.
const Streaming = 0xFFFFFFFF

// Errors reported while decoding a header.
var (
	ErrNotCDF    = errors.New("not a NetCDF classic file")
	ErrMalformed = errors.New("malformed header")
)

// Dimension is a dimension as represented in the header. Length 0
// marks the record dimension.
type Dimension struct {
	Name   string
	Length int64
}

// Attribute is a global or variable attribute as represented in the
// header. Values holds one of []int8, []byte, []int16, []int32,
// []float32 or []float64 according to Type.
type Attribute struct {
	Name   string
	Type   nctype.Type
	Values interface{}
}

// Variable is a variable as represented in the header. VSize and Begin
// are computed by the layout planner on the write path and trusted as
// stored on the read path.
type Variable struct {
	Name   string
	DimIDs []int
	Attrs  []Attribute
	Type   nctype.Type
	VSize  int64
	Begin  int64
}

// Header is the decoded metadata block of one file.
type Header struct {
	Version byte
	// NumRecs is the record count stored in the header, or -1 when the
	// file carries the streaming sentinel.
	NumRecs     int64
	Dims        []Dimension
	GlobalAttrs []Attribute
	Vars        []Variable
}

// Wide reports whether variable begin offsets occupy 8 bytes.
func (h *Header) Wide() bool { return h.Version == Version64BitOffset }

// RecordDim returns the index of the record dimension, or -1.
func (h *Header) RecordDim() int {
	for i, d := range h.Dims {
		if d.Length == 0 {
			return i
		}
	}
	return -1
}

// IsRecord reports whether v's outermost dimension is the record
// dimension.
func (h *Header) IsRecord(v *Variable) bool {
	return len(v.DimIDs) > 0 && h.Dims[v.DimIDs[0]].Length == 0
}

// Size returns the encoded size of the header in bytes, before any
// reserved padding.
func (h *Header) Size() int64 {
	var n int64 = 4 + 4 // magic+version, numrecs
	n += 8              // dimension list tag and count
	for _, d := range h.Dims {
		n += nameSize(d.Name) + 4
	}
	n += attrsSize(h.GlobalAttrs)
	n += 8 // variable list tag and count
	for i := range h.Vars {
		v := &h.Vars[i]
		n += nameSize(v.Name)
		n += 4 + 4*int64(len(v.DimIDs))
		n += attrsSize(v.Attrs)
		n += 4 + 4 // type tag, vsize
		if h.Wide() {
			n += 8
		} else {
			n += 4
		}
	}
	return n
}

func nameSize(name string) int64 {
	return 4 + binary.Pad4(int64(len(name)))
}

func attrsSize(attrs []Attribute) int64 {
	var n int64 = 8 // tag and count
	for _, a := range attrs {
		n += nameSize(a.Name)
		n += 4 + 4 // type tag, element count
		n += binary.Pad4(int64(valueCount(a.Values)) * int64(a.Type.Size()))
	}
	return n
}

func valueCount(v interface{}) int {
	_, n, err := nctype.FromValues(v)
	if err != nil {
		return 0
	}
	return n
}
