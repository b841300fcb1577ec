package netcdf3

import (
	"fmt"
	"os"

	binpkg "github.com/ncio/go-netcdf3/internal/binary"
	"github.com/ncio/go-netcdf3/internal/header"
	"github.com/ncio/go-netcdf3/internal/layout"
	"github.com/ncio/go-netcdf3/internal/nctype"
)

// Writer creates a NetCDF classic file. It moves through two phases:
// a definition phase, during which dimensions, attributes and
// variables are declared, and a data phase entered by EndDef or by the
// first data write, after which the schema is frozen and only data may
// be written. Close fills every declared-but-unwritten region with the
// type's fill value, so a finished file never exposes garbage bytes.
type Writer struct {
	path    string
	file    *os.File
	writer  *binpkg.Writer
	ds      *Dataset
	version Version
	reserve int64

	hdr     *header.Header
	plan    *layout.Plan
	numRecs int64
	written map[string]bool  // fixed variables assigned in full
	covered map[string]int64 // per record variable, records populated from record 0
	frozen  bool
	closed  bool
}

// Create creates a NetCDF file at the given path, truncating any
// existing file, and returns a Writer in its definition phase.
func Create(path string, opts ...FileOption) (*Writer, error) {
	options := defaultFileOptions()
	for _, opt := range opts {
		opt(options)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}

	return &Writer{
		path:    path,
		file:    f,
		writer:  binpkg.NewWriter(f),
		ds:      newDataset(),
		version: options.version,
		reserve: options.reserve,
		written: make(map[string]bool),
		covered: make(map[string]int64),
	}, nil
}

// Path returns the file path.
func (w *Writer) Path() string { return w.path }

// Dataset returns the dataset being built.
func (w *Writer) Dataset() *Dataset { return w.ds }

// NumRecords returns the number of records written so far.
func (w *Writer) NumRecords() int64 { return w.numRecs }

// AddDimension declares a dimension. Usable only before the schema is
// frozen.
func (w *Writer) AddDimension(name string, size DimSize) error {
	if err := w.definable(); err != nil {
		return err
	}
	return w.ds.addDimension(name, size)
}

// AddGlobalAttribute attaches an attribute to the dataset. The element
// type is inferred from the value: []int8, []byte or string, []int16,
// []int32, []float32 or []float64.
func (w *Writer) AddGlobalAttribute(name string, values interface{}) error {
	if err := w.definable(); err != nil {
		return err
	}
	return w.ds.addGlobalAttribute(name, values)
}

// AddVariable declares a variable over the named dimensions, outermost
// first. No dimensions declares a scalar. The record dimension may
// appear only first.
func (w *Writer) AddVariable(name string, typ DataType, dims ...string) error {
	if err := w.definable(); err != nil {
		return err
	}
	return w.ds.addVariable(name, typ, dims)
}

// AddVariableAttribute attaches an attribute to a declared variable.
func (w *Writer) AddVariableAttribute(varName, attrName string, values interface{}) error {
	if err := w.definable(); err != nil {
		return err
	}
	return w.ds.addVariableAttribute(varName, attrName, values)
}

func (w *Writer) definable() error {
	if w.closed {
		return ErrClosed
	}
	if w.frozen {
		return ErrSchemaFrozen
	}
	return nil
}

// EndDef freezes the schema: the layout planner assigns every
// variable's offset and the header is written. Further definition
// calls fail with ErrSchemaFrozen. EndDef is implied by the first data
// write.
func (w *Writer) EndDef() error {
	if w.closed {
		return ErrClosed
	}
	if w.frozen {
		return nil
	}

	hdr := w.ds.toHeader(w.version, w.numRecs)
	plan, err := layout.Compute(hdr, w.reserve)
	if err != nil {
		return err
	}
	if err := w.writeHeader(hdr, plan); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	w.hdr = hdr
	w.plan = plan
	w.frozen = true
	return nil
}

func (w *Writer) writeHeader(hdr *header.Header, plan *layout.Plan) error {
	bw := w.writer.At(0)
	if err := hdr.Write(bw); err != nil {
		return err
	}
	// Reserved space up to the planned header size is zero padding.
	return bw.WriteZeros(int(plan.HeaderSize - bw.Pos()))
}

// WriteVariable writes a variable's full extent in one pass. The value
// must be the typed slice matching the variable's type, in row-major
// order. For a fixed variable the length must equal the product of its
// dimension sizes; for a record variable it must be a whole number of
// records, which extends the record count as needed.
func (w *Writer) WriteVariable(name string, values interface{}) error {
	if err := w.EndDef(); err != nil {
		return err
	}
	i, hv := w.findVar(name)
	if hv == nil {
		return fmt.Errorf("%w: variable %q", ErrNotFound, name)
	}
	v := w.ds.vars[i]
	typ, n, err := nctype.FromValues(values)
	if err != nil {
		return fmt.Errorf("variable %q: %w", name, err)
	}
	if typ != v.typ {
		return fmt.Errorf("variable %q: %w: have %s values, want %s", name, ErrSchema, typ, v.typ)
	}

	slab := v.slabLen()
	if !v.IsRecord() {
		if int64(n) != slab {
			return fmt.Errorf("variable %q: %w: %d values for extent %d", name, ErrRange, n, slab)
		}
		if err := w.writeSlab(hv, hv.Begin, values, 0, n); err != nil {
			return err
		}
		w.written[name] = true
		return nil
	}

	if slab == 0 || int64(n)%slab != 0 {
		return fmt.Errorf("variable %q: %w: %d values is not a whole number of records of %d", name, ErrRange, n, slab)
	}
	recs := int64(n) / slab
	for rec := int64(0); rec < recs; rec++ {
		offset := hv.Begin + rec*w.plan.RecordStride
		if err := w.writeSlab(hv, offset, values, int(rec*slab), int((rec+1)*slab)); err != nil {
			return err
		}
	}
	if recs > w.numRecs {
		w.numRecs = recs
	}
	if recs > w.covered[name] {
		w.covered[name] = recs
	}
	return nil
}

// AppendRecord appends one record: a mapping from record-variable name
// to one slab of values. Record variables missing from the mapping get
// their fill value for this record. Appending is the only mutation
// permitted after the schema is frozen.
func (w *Writer) AppendRecord(slabs map[string]interface{}) error {
	if err := w.EndDef(); err != nil {
		return err
	}
	if w.plan.NumRecVars == 0 {
		return fmt.Errorf("%w: dataset has no record variables", ErrSchema)
	}
	for name := range slabs {
		i, hv := w.findVar(name)
		if hv == nil {
			return fmt.Errorf("%w: variable %q", ErrNotFound, name)
		}
		if !w.ds.vars[i].IsRecord() {
			return fmt.Errorf("variable %q: %w: not a record variable", name, ErrSchema)
		}
	}

	rec := w.numRecs
	for i := range w.hdr.Vars {
		hv := &w.hdr.Vars[i]
		if !w.hdr.IsRecord(hv) {
			continue
		}
		v := w.ds.vars[i]
		// Earlier whole-variable writes may have covered fewer records
		// than the dataset holds; fill the gap so the file is complete
		// up to and including this record.
		for back := w.covered[v.name]; back < rec; back++ {
			if err := w.fillAt(hv.Begin+back*w.plan.RecordStride, hv.Type, hv.VSize); err != nil {
				return err
			}
		}
		offset := hv.Begin + rec*w.plan.RecordStride
		values, ok := slabs[v.name]
		if !ok {
			if err := w.fillAt(offset, hv.Type, hv.VSize); err != nil {
				return err
			}
			w.covered[v.name] = rec + 1
			continue
		}
		typ, n, err := nctype.FromValues(values)
		if err != nil {
			return fmt.Errorf("variable %q: %w", v.name, err)
		}
		if typ != v.typ {
			return fmt.Errorf("variable %q: %w: have %s values, want %s", v.name, ErrSchema, typ, v.typ)
		}
		if int64(n) != v.slabLen() {
			return fmt.Errorf("variable %q: %w: %d values for record of %d", v.name, ErrRange, n, v.slabLen())
		}
		if err := w.writeSlab(hv, offset, values, 0, n); err != nil {
			return err
		}
		w.covered[v.name] = rec + 1
	}
	w.numRecs = rec + 1
	return nil
}

func (w *Writer) findVar(name string) (int, *header.Variable) {
	if w.hdr == nil {
		return -1, nil
	}
	for i := range w.hdr.Vars {
		if w.hdr.Vars[i].Name == name {
			return i, &w.hdr.Vars[i]
		}
	}
	return -1, nil
}

// writeSlab encodes values[lo:hi] at the given offset and pads the
// slab out to its planned size with the type's fill pattern.
func (w *Writer) writeSlab(hv *header.Variable, offset int64, values interface{}, lo, hi int) error {
	part, err := nctype.Slice(values, lo, hi)
	if err != nil {
		return err
	}
	buf, err := nctype.Append(nil, part)
	if err != nil {
		return err
	}
	if pad := hv.VSize - int64(len(buf)); pad > 0 {
		buf = append(buf, hv.Type.FillRegion(pad)...)
	}
	if err := w.writer.At(offset).WriteBytes(buf); err != nil {
		return fmt.Errorf("writing variable %q: %w", hv.Name, err)
	}
	return nil
}

func (w *Writer) fillAt(offset int64, typ DataType, size int64) error {
	return w.writer.At(offset).WriteBytes(typ.FillRegion(size))
}

// Close finalizes and closes the file: the schema is frozen if it was
// not already, every declared-but-unwritten region is filled with its
// type's fill value, the stored record count is patched, and the file
// is flushed. Close is safe to call more than once.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	err := w.finalize()
	if cerr := w.file.Close(); err == nil {
		err = cerr
	}
	return err
}

func (w *Writer) finalize() error {
	if !w.frozen {
		hdr := w.ds.toHeader(w.version, w.numRecs)
		plan, err := layout.Compute(hdr, w.reserve)
		if err != nil {
			return err
		}
		if err := w.writeHeader(hdr, plan); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
		w.hdr = hdr
		w.plan = plan
		w.frozen = true
	}

	for i := range w.hdr.Vars {
		hv := &w.hdr.Vars[i]
		if !w.hdr.IsRecord(hv) {
			if w.written[hv.Name] {
				continue
			}
			if err := w.fillAt(hv.Begin, hv.Type, hv.VSize); err != nil {
				return err
			}
			continue
		}
		// A record variable may hold fewer records than the dataset;
		// its remaining slabs get the fill pattern.
		for rec := w.covered[hv.Name]; rec < w.numRecs; rec++ {
			if err := w.fillAt(hv.Begin+rec*w.plan.RecordStride, hv.Type, hv.VSize); err != nil {
				return err
			}
		}
	}

	if err := header.PutNumRecs(w.file, w.numRecs); err != nil {
		return fmt.Errorf("writing record count: %w", err)
	}
	return w.file.Sync()
}
