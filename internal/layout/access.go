package layout

import (
	"errors"
	"fmt"
)

// ErrRange is returned when a read or write addresses indices outside
// a variable's declared dimensions.
var ErrRange = errors.New("index out of range")

// Run is one contiguous byte range of a variable's data.
type Run struct {
	Offset int64
	Bytes  int64
}

// Access translates index ranges over one variable into byte ranges.
// For a record variable the outermost stride is the file-level record
// stride, so consecutive records skip the other record variables'
// interleaved slabs.
type Access struct {
	// Shape is the variable's extent per dimension, with the record
	// dimension replaced by the current record count.
	Shape []int64

	begin   int64
	elem    int64
	strides []int64 // byte distance between consecutive indices, per dimension
}

// NewAccess builds the addressing for a variable with the given begin
// offset, element width, shape and record stride. recordStride is
// ignored for non-record variables (record false).
func NewAccess(begin int64, elemSize int64, shape []int64, record bool, recordStride int64) *Access {
	a := &Access{
		Shape:   shape,
		begin:   begin,
		elem:    elemSize,
		strides: make([]int64, len(shape)),
	}
	stride := elemSize
	for i := len(shape) - 1; i >= 0; i-- {
		a.strides[i] = stride
		stride *= shape[i]
	}
	if record && len(shape) > 0 {
		a.strides[0] = recordStride
	}
	return a
}

// NumElements returns the total element count of the variable's
// current extent.
func (a *Access) NumElements() int64 {
	n := int64(1)
	for _, s := range a.Shape {
		n *= s
	}
	return n
}

// Check validates a hyperslab selection against the variable's shape.
// start and count must have one entry per dimension; a scalar variable
// takes empty slices.
func (a *Access) Check(start, count []int64) error {
	if len(start) != len(a.Shape) || len(count) != len(a.Shape) {
		return fmt.Errorf("%w: got %d/%d indices for %d dimensions", ErrRange, len(start), len(count), len(a.Shape))
	}
	for i := range start {
		if start[i] < 0 || count[i] < 0 || start[i]+count[i] > a.Shape[i] {
			return fmt.Errorf("%w: dimension %d: [%d,%d) outside [0,%d)", ErrRange, i, start[i], start[i]+count[i], a.Shape[i])
		}
	}
	return nil
}

// Ranges returns the contiguous byte runs covering the hyperslab
// [start, start+count) in row-major order. The selection must have
// been validated with Check.
func (a *Access) Ranges(start, count []int64) []Run {
	if len(a.Shape) == 0 {
		return []Run{{Offset: a.begin, Bytes: a.elem}}
	}

	last := len(a.Shape) - 1

	// A one-dimensional record variable has no contiguous dimension:
	// consecutive records are separated by the record stride, so every
	// element is its own run.
	if a.strides[last] != a.elem {
		if count[0] == 0 {
			return nil
		}
		runs := make([]Run, 0, count[0])
		for i := int64(0); i < count[0]; i++ {
			runs = append(runs, Run{Offset: a.begin + (start[0]+i)*a.strides[0], Bytes: a.elem})
		}
		return runs
	}

	// The innermost dimension is contiguous on disk, so each run
	// covers count[last] elements; outer dimensions are walked with an
	// odometer.
	runBytes := count[last] * a.elem
	if runBytes == 0 {
		return nil
	}
	numRuns := int64(1)
	for i := 0; i < last; i++ {
		numRuns *= count[i]
	}
	runs := make([]Run, 0, numRuns)
	idx := make([]int64, last)
	for r := int64(0); r < numRuns; r++ {
		offset := a.begin + start[last]*a.elem
		for i := 0; i < last; i++ {
			offset += (start[i] + idx[i]) * a.strides[i]
		}
		runs = append(runs, Run{Offset: offset, Bytes: runBytes})
		for i := last - 1; i >= 0; i-- {
			idx[i]++
			if idx[i] < count[i] {
				break
			}
			idx[i] = 0
		}
	}
	return runs
}
