package netcdf3

import (
	"fmt"
	"unicode"

	"github.com/ncio/go-netcdf3/internal/header"
	"github.com/ncio/go-netcdf3/internal/nctype"
)

// DimSize is the declared extent of a dimension: either Fixed(n) or
// Unlimited. At most one dimension per dataset may be Unlimited; it
// becomes the record dimension and its true extent is the number of
// records written.
type DimSize struct {
	n         int64
	unlimited bool
}

// Fixed returns a fixed dimension size of n elements.
func Fixed(n int) DimSize { return DimSize{n: int64(n)} }

// Unlimited is the size of the record dimension.
var Unlimited = DimSize{unlimited: true}

// IsUnlimited reports whether the size is the unlimited one.
func (s DimSize) IsUnlimited() bool { return s.unlimited }

// Len returns the fixed extent, or 0 for Unlimited.
func (s DimSize) Len() int { return int(s.n) }

// Dimension is a named extent that variables reference by ordered
// index.
type Dimension struct {
	name string
	size DimSize
}

// Name returns the dimension's name.
func (d *Dimension) Name() string { return d.name }

// Size returns the declared size.
func (d *Dimension) Size() DimSize { return d.size }

// Len returns the fixed extent, or 0 for the record dimension.
func (d *Dimension) Len() int { return d.size.Len() }

// IsRecord reports whether this is the record dimension.
func (d *Dimension) IsRecord() bool { return d.size.IsUnlimited() }

// Attribute is a named, typed list of scalars attached to the dataset
// or to one variable. Character attributes hold a byte sequence.
type Attribute struct {
	name   string
	typ    DataType
	values interface{}
}

// Name returns the attribute's name.
func (a *Attribute) Name() string { return a.name }

// Type returns the attribute's element type.
func (a *Attribute) Type() DataType { return a.typ }

// Len returns the number of elements.
func (a *Attribute) Len() int {
	_, n, _ := nctype.FromValues(a.values)
	return n
}

// Values returns the typed value slice: []int8, []byte, []int16,
// []int32, []float32 or []float64 according to Type. Callers must not
// modify the returned slice.
func (a *Attribute) Values() interface{} { return a.values }

// String renders a character attribute as text and any other type via
// the %v verb.
func (a *Attribute) String() string {
	if b, ok := a.values.([]byte); ok {
		return string(b)
	}
	return fmt.Sprintf("%v", a.values)
}

// Variable is a named, typed array over an ordered list of dimension
// references (outermost first). A variable whose first dimension is
// the record dimension is a record variable; one with no dimensions is
// scalar.
type Variable struct {
	name   string
	typ    DataType
	dimIDs []int
	attrs  []*Attribute
	ds     *Dataset
}

// Name returns the variable's name.
func (v *Variable) Name() string { return v.name }

// Type returns the variable's element type.
func (v *Variable) Type() DataType { return v.typ }

// Dimensions returns the referenced dimensions, outermost first.
func (v *Variable) Dimensions() []*Dimension {
	dims := make([]*Dimension, len(v.dimIDs))
	for i, id := range v.dimIDs {
		dims[i] = v.ds.dims[id]
	}
	return dims
}

// IsRecord reports whether the variable's outermost dimension is the
// record dimension.
func (v *Variable) IsRecord() bool {
	return len(v.dimIDs) > 0 && v.ds.dims[v.dimIDs[0]].IsRecord()
}

// Attributes returns the variable's attributes in declaration order.
func (v *Variable) Attributes() []*Attribute { return v.attrs }

// Attr returns the named attribute, or nil.
func (v *Variable) Attr(name string) *Attribute {
	for _, a := range v.attrs {
		if a.name == name {
			return a
		}
	}
	return nil
}

// slabLen returns the number of elements in one slab: the whole
// variable for a fixed variable, one record's worth otherwise.
func (v *Variable) slabLen() int64 {
	n := int64(1)
	for i, id := range v.dimIDs {
		d := v.ds.dims[id]
		if i == 0 && d.IsRecord() {
			continue
		}
		n *= int64(d.Len())
	}
	return n
}

// Dataset is the in-memory description of one file: ordered
// dimensions, global attributes and variables. Variable declaration
// order determines physical placement of fixed-region data.
type Dataset struct {
	dims  []*Dimension
	attrs []*Attribute
	vars  []*Variable
}

func newDataset() *Dataset { return &Dataset{} }

// Dimensions returns the dimensions in declaration order.
func (ds *Dataset) Dimensions() []*Dimension { return ds.dims }

// Dim returns the named dimension, or nil.
func (ds *Dataset) Dim(name string) *Dimension {
	for _, d := range ds.dims {
		if d.name == name {
			return d
		}
	}
	return nil
}

// UnlimitedDim returns the record dimension, or nil.
func (ds *Dataset) UnlimitedDim() *Dimension {
	for _, d := range ds.dims {
		if d.IsRecord() {
			return d
		}
	}
	return nil
}

// GlobalAttributes returns the global attributes in declaration order.
func (ds *Dataset) GlobalAttributes() []*Attribute { return ds.attrs }

// GlobalAttr returns the named global attribute, or nil.
func (ds *Dataset) GlobalAttr(name string) *Attribute {
	for _, a := range ds.attrs {
		if a.name == name {
			return a
		}
	}
	return nil
}

// Variables returns the variables in declaration order.
func (ds *Dataset) Variables() []*Variable { return ds.vars }

// Var returns the named variable, or nil.
func (ds *Dataset) Var(name string) *Variable {
	for _, v := range ds.vars {
		if v.name == name {
			return v
		}
	}
	return nil
}

func (ds *Dataset) addDimension(name string, size DimSize) error {
	if err := checkName(name); err != nil {
		return err
	}
	if ds.Dim(name) != nil {
		return fmt.Errorf("%w: duplicate dimension name %q", ErrSchema, name)
	}
	if size.IsUnlimited() {
		if u := ds.UnlimitedDim(); u != nil {
			return fmt.Errorf("%w: dimension %q: unlimited dimension %q already declared", ErrSchema, name, u.name)
		}
	} else if size.Len() < 1 {
		return fmt.Errorf("%w: dimension %q: fixed size must be at least 1", ErrSchema, name)
	}
	ds.dims = append(ds.dims, &Dimension{name: name, size: size})
	return nil
}

func (ds *Dataset) addGlobalAttribute(name string, values interface{}) error {
	a, err := newAttribute(name, values)
	if err != nil {
		return err
	}
	if ds.GlobalAttr(name) != nil {
		return fmt.Errorf("%w: duplicate global attribute name %q", ErrSchema, name)
	}
	ds.attrs = append(ds.attrs, a)
	return nil
}

func (ds *Dataset) addVariable(name string, typ DataType, dimNames []string) error {
	if err := checkName(name); err != nil {
		return err
	}
	if !typ.Valid() {
		return fmt.Errorf("%w: variable %q: invalid data type", ErrSchema, name)
	}
	if ds.Var(name) != nil {
		return fmt.Errorf("%w: duplicate variable name %q", ErrSchema, name)
	}
	dimIDs := make([]int, len(dimNames))
	for i, dn := range dimNames {
		id := -1
		for j, d := range ds.dims {
			if d.name == dn {
				id = j
				break
			}
		}
		if id < 0 {
			return fmt.Errorf("%w: variable %q: undefined dimension %q", ErrSchema, name, dn)
		}
		if ds.dims[id].IsRecord() && i > 0 {
			return fmt.Errorf("%w: variable %q: record dimension %q must be outermost", ErrSchema, name, dn)
		}
		dimIDs[i] = id
	}
	ds.vars = append(ds.vars, &Variable{name: name, typ: typ, dimIDs: dimIDs, ds: ds})
	return nil
}

func (ds *Dataset) addVariableAttribute(varName, attrName string, values interface{}) error {
	v := ds.Var(varName)
	if v == nil {
		return fmt.Errorf("%w: variable %q", ErrNotFound, varName)
	}
	a, err := newAttribute(attrName, values)
	if err != nil {
		return err
	}
	if v.Attr(attrName) != nil {
		return fmt.Errorf("%w: variable %q: duplicate attribute name %q", ErrSchema, varName, attrName)
	}
	v.attrs = append(v.attrs, a)
	return nil
}

// newAttribute validates the name and value and canonicalizes string
// values to []byte.
func newAttribute(name string, values interface{}) (*Attribute, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	typ, _, err := nctype.FromValues(values)
	if err != nil {
		return nil, fmt.Errorf("%w: attribute %q: %v", ErrSchema, name, err)
	}
	if s, ok := values.(string); ok {
		values = []byte(s)
	}
	return &Attribute{name: name, typ: typ, values: values}, nil
}

// checkName enforces the classic-format naming rules: non-empty, the
// first character alphanumeric or underscore, the rest printable and
// free of '/'.
func checkName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrSchema)
	}
	for i, r := range name {
		if i == 0 {
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
				return fmt.Errorf("%w: name %q: invalid leading character", ErrSchema, name)
			}
			continue
		}
		if r == '/' || !unicode.IsPrint(r) {
			return fmt.Errorf("%w: name %q: invalid character at %d", ErrSchema, name, i)
		}
	}
	return nil
}

// toHeader converts the dataset to its header representation. VSize
// and Begin are left for the layout planner.
func (ds *Dataset) toHeader(version Version, numRecs int64) *header.Header {
	h := &header.Header{Version: byte(version), NumRecs: numRecs}
	h.Dims = make([]header.Dimension, len(ds.dims))
	for i, d := range ds.dims {
		h.Dims[i] = header.Dimension{Name: d.name, Length: int64(d.Len())}
	}
	h.GlobalAttrs = toHeaderAttrs(ds.attrs)
	h.Vars = make([]header.Variable, len(ds.vars))
	for i, v := range ds.vars {
		h.Vars[i] = header.Variable{
			Name:   v.name,
			DimIDs: append([]int(nil), v.dimIDs...),
			Attrs:  toHeaderAttrs(v.attrs),
			Type:   v.typ,
		}
	}
	return h
}

func toHeaderAttrs(attrs []*Attribute) []header.Attribute {
	out := make([]header.Attribute, len(attrs))
	for i, a := range attrs {
		out[i] = header.Attribute{Name: a.name, Type: a.typ, Values: a.values}
	}
	return out
}

// fromHeader reconstructs the immutable dataset model from a decoded
// header.
func fromHeader(h *header.Header) *Dataset {
	ds := newDataset()
	for _, d := range h.Dims {
		size := Fixed(int(d.Length))
		if d.Length == 0 {
			size = Unlimited
		}
		ds.dims = append(ds.dims, &Dimension{name: d.Name, size: size})
	}
	ds.attrs = fromHeaderAttrs(h.GlobalAttrs)
	for i := range h.Vars {
		hv := &h.Vars[i]
		ds.vars = append(ds.vars, &Variable{
			name:   hv.Name,
			typ:    hv.Type,
			dimIDs: append([]int(nil), hv.DimIDs...),
			attrs:  fromHeaderAttrs(hv.Attrs),
			ds:     ds,
		})
	}
	return ds
}

func fromHeaderAttrs(attrs []header.Attribute) []*Attribute {
	out := make([]*Attribute, len(attrs))
	for i := range attrs {
		out[i] = &Attribute{name: attrs[i].Name, typ: attrs[i].Type, values: attrs[i].Values}
	}
	return out
}
