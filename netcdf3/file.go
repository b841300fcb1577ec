package netcdf3

import (
	"fmt"
	"io"
	"os"

	binpkg "github.com/ncio/go-netcdf3/internal/binary"
	"github.com/ncio/go-netcdf3/internal/header"
	"github.com/ncio/go-netcdf3/internal/layout"
	"github.com/ncio/go-netcdf3/internal/nctype"
)

// File reads a NetCDF classic file. The header is decoded and
// validated once at open time; data reads seek directly into the data
// section using offsets recorded in the header.
type File struct {
	r      io.ReaderAt
	closer io.Closer

	hdr     *header.Header
	ds      *Dataset
	numRecs int64
	stride  int64
}

// Open opens a NetCDF file for reading.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("opening file: %w", err)
	}
	file, err := NewFile(f, info.Size())
	if err != nil {
		f.Close()
		return nil, err
	}
	file.closer = f
	return file, nil
}

// NewFile reads a NetCDF file from an arbitrary reader. size is the
// total byte length of the underlying data; it settles the record
// count when the header was written in streaming mode.
func NewFile(r io.ReaderAt, size int64) (*File, error) {
	hdr, err := header.Read(binpkg.NewReader(r))
	if err != nil {
		return nil, err
	}
	return &File{
		r:       r,
		hdr:     hdr,
		ds:      fromHeader(hdr),
		numRecs: layout.Records(hdr, size),
		stride:  layout.RecordStride(hdr),
	}, nil
}

// Close closes the underlying file, if File owns one.
func (f *File) Close() error {
	if f.closer == nil {
		return nil
	}
	c := f.closer
	f.closer = nil
	return c.Close()
}

// Version reports the format variant the file was written with.
func (f *File) Version() Version { return Version(f.hdr.Version) }

// NumRecords returns the number of complete records in the file.
func (f *File) NumRecords() int64 { return f.numRecs }

// Dimensions lists the file's dimensions in declaration order.
func (f *File) Dimensions() []*Dimension { return f.ds.Dimensions() }

// Dim returns the named dimension, or nil.
func (f *File) Dim(name string) *Dimension { return f.ds.Dim(name) }

// UnlimitedDim returns the record dimension, or nil if the file has
// none.
func (f *File) UnlimitedDim() *Dimension { return f.ds.UnlimitedDim() }

// GlobalAttributes lists the file's global attributes in declaration
// order.
func (f *File) GlobalAttributes() []*Attribute { return f.ds.GlobalAttributes() }

// GlobalAttr returns the named global attribute, or nil.
func (f *File) GlobalAttr(name string) *Attribute { return f.ds.GlobalAttr(name) }

// Variables lists the file's variables in declaration order.
func (f *File) Variables() []*Variable { return f.ds.Variables() }

// Var returns the named variable, or nil.
func (f *File) Var(name string) *Variable { return f.ds.Var(name) }

// VarAttr returns an attribute of the named variable, or nil if either
// does not exist.
func (f *File) VarAttr(varName, attrName string) *Attribute {
	v := f.ds.Var(varName)
	if v == nil {
		return nil
	}
	return v.Attr(attrName)
}

// Shape returns the current extent of the named variable, outermost
// dimension first. For a record variable the outermost extent is the
// file's record count. A scalar has an empty shape.
func (f *File) Shape(name string) ([]int64, error) {
	i, hv := f.findVar(name)
	if hv == nil {
		return nil, fmt.Errorf("%w: variable %q", ErrNotFound, name)
	}
	return f.shape(i), nil
}

func (f *File) shape(i int) []int64 {
	v := f.ds.vars[i]
	shape := make([]int64, len(v.dimIDs))
	for j, id := range v.dimIDs {
		d := f.ds.dims[id]
		if d.IsRecord() {
			shape[j] = f.numRecs
		} else {
			shape[j] = int64(d.Len())
		}
	}
	return shape
}

// ReadVariable reads a variable's full extent and returns the typed
// slice matching its type in row-major order. A record variable yields
// all complete records.
func (f *File) ReadVariable(name string) (interface{}, error) {
	shape, err := f.Shape(name)
	if err != nil {
		return nil, err
	}
	start := make([]int64, len(shape))
	return f.ReadSlice(name, start, shape)
}

// ReadSlice reads a hyperslab of the named variable: count[i] elements
// starting at start[i] along each dimension, outermost first. The
// requested region must lie inside the variable's current extent.
func (f *File) ReadSlice(name string, start, count []int64) (interface{}, error) {
	i, hv := f.findVar(name)
	if hv == nil {
		return nil, fmt.Errorf("%w: variable %q", ErrNotFound, name)
	}
	v := f.ds.vars[i]

	acc := layout.NewAccess(hv.Begin, int64(hv.Type.Size()), f.shape(i), v.IsRecord(), f.stride)
	if err := acc.Check(start, count); err != nil {
		return nil, fmt.Errorf("variable %q: %w", name, err)
	}

	total := int64(1)
	for _, c := range count {
		total *= c
	}
	raw := make([]byte, total*int64(hv.Type.Size()))
	pos := int64(0)
	for _, run := range acc.Ranges(start, count) {
		if _, err := f.r.ReadAt(raw[pos:pos+run.Bytes], run.Offset); err != nil {
			return nil, fmt.Errorf("reading variable %q: %w", name, err)
		}
		pos += run.Bytes
	}
	return nctype.Decode(hv.Type, raw, int(total))
}

func (f *File) findVar(name string) (int, *header.Variable) {
	for i := range f.hdr.Vars {
		if f.hdr.Vars[i].Name == name {
			return i, &f.hdr.Vars[i]
		}
	}
	return -1, nil
}
