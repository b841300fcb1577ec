// Package layout computes the physical placement of variable data in a
// NetCDF classic file: header size, per-variable begin offsets and
// slab sizes, and the stride of the interleaved record region. The
// plan is a pure function of the frozen schema, so encoding the same
// schema twice yields identical offsets.
package layout

import (
	"errors"
	"fmt"
	"math"

	"github.com/ncio/go-netcdf3/internal/binary"
	"github.com/ncio/go-netcdf3/internal/header"
)

// ErrClassicOverflow is returned when a layout does not fit in the
// 32-bit begin offsets of the classic (CDF-1) variant.
var ErrClassicOverflow = errors.New("layout exceeds classic format offset range")

// Plan describes the computed placement for one dataset.
type Plan struct {
	// HeaderSize is the byte size of the encoded header including any
	// reserved minimum and alignment padding. The fixed region starts
	// here.
	HeaderSize int64
	// RecordStart is the offset of the record region, immediately
	// after the last fixed variable.
	RecordStart int64
	// RecordStride is the number of bytes one full record occupies:
	// the sum of all record variables' slab sizes.
	RecordStride int64
	// NumRecVars is the number of record variables.
	NumRecVars int
}

// Compute assigns VSize and Begin to every variable of h and returns
// the resulting plan. reserve, when positive, is a minimum header size
// to pad up to, allowing the schema to be rewritten in place later.
//
// Fixed variables are placed sequentially in declaration order right
// after the header; record variables follow, interleaved within each
// record in declaration order. Slab sizes are always rounded up to a
// multiple of 4, including a sole record variable; readers trust
// stored offsets, so files produced without that padding still read
// correctly.
func Compute(h *header.Header, reserve int64) (*Plan, error) {
	size := h.Size()
	if reserve > size {
		size = reserve
	}
	p := &Plan{HeaderSize: binary.Pad4(size)}

	offset := p.HeaderSize
	for i := range h.Vars {
		v := &h.Vars[i]
		if h.IsRecord(v) {
			p.NumRecVars++
			continue
		}
		v.VSize = slabSize(h, v)
		v.Begin = offset
		offset += v.VSize
	}
	p.RecordStart = offset
	for i := range h.Vars {
		v := &h.Vars[i]
		if !h.IsRecord(v) {
			continue
		}
		v.VSize = slabSize(h, v)
		v.Begin = offset
		offset += v.VSize
		p.RecordStride += v.VSize
	}

	if !h.Wide() {
		for i := range h.Vars {
			if h.Vars[i].Begin > math.MaxInt32 {
				return nil, fmt.Errorf("%w: variable %q begins at %d", ErrClassicOverflow, h.Vars[i].Name, h.Vars[i].Begin)
			}
		}
	}
	return p, nil
}

// slabSize returns the padded byte size of one slab: the whole
// variable for a fixed variable, one record's worth for a record
// variable.
func slabSize(h *header.Header, v *header.Variable) int64 {
	n := int64(v.Type.Size())
	for i, id := range v.DimIDs {
		if i == 0 && h.Dims[id].Length == 0 {
			continue
		}
		n *= h.Dims[id].Length
	}
	return binary.Pad4(n)
}

// SlabElements returns the number of elements in one slab of v.
func SlabElements(h *header.Header, v *header.Variable) int64 {
	var n int64 = 1
	for i, id := range v.DimIDs {
		if i == 0 && h.Dims[id].Length == 0 {
			continue
		}
		n *= h.Dims[id].Length
	}
	return n
}

// Records derives the readable record count of a file from its stored
// header and byte length. The stored count wins unless it is the
// streaming sentinel or the file is too short to hold it, in which
// case the count is floor(available record bytes / stride): a trailing
// partial record is treated as absent rather than as corruption.
func Records(h *header.Header, fileSize int64) int64 {
	stride := int64(0)
	start := int64(math.MaxInt64)
	for i := range h.Vars {
		v := &h.Vars[i]
		if !h.IsRecord(v) {
			continue
		}
		stride += v.VSize
		if v.Begin < start {
			start = v.Begin
		}
	}
	if stride == 0 {
		return 0
	}
	avail := fileSize - start
	if avail < 0 {
		avail = 0
	}
	fromLen := avail / stride
	if h.NumRecs >= 0 && h.NumRecs < fromLen {
		return h.NumRecs
	}
	return fromLen
}

// RecordStride returns the stride of the record region as stored in a
// decoded header.
func RecordStride(h *header.Header) int64 {
	var stride int64
	for i := range h.Vars {
		if h.IsRecord(&h.Vars[i]) {
			stride += h.Vars[i].VSize
		}
	}
	return stride
}
