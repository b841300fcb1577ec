package header

import (
	"errors"
	"fmt"
	"io"

	"github.com/ncio/go-netcdf3/internal/binary"
	"github.com/ncio/go-netcdf3/internal/nctype"
)

// maxListLen bounds every list count read from a header. A count above
// it on a well-formed file is implausible and treated as corruption
// before any large allocation happens.
const maxListLen = 1 << 20

// Read decodes a header from the start of r, validating structure as
// it goes: magic and version, list tags, dimension references, name
// uniqueness and the single-record-dimension rule. Stored begin
// offsets are trusted as-is; they are not required to be monotonic.
func Read(r *binary.Reader) (*Header, error) {
	magic, err := r.ReadBytes(4)
	if err != nil {
		return nil, wrap(err, 0)
	}
	if string(magic[:3]) != "CDF" {
		return nil, fmt.Errorf("%w: bad magic %q", ErrNotCDF, magic[:3])
	}
	h := &Header{Version: magic[3]}
	if h.Version != VersionClassic && h.Version != Version64BitOffset {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrNotCDF, h.Version)
	}

	numRecs, err := r.ReadUint32()
	if err != nil {
		return nil, wrap(err, r.Pos())
	}
	if numRecs == Streaming {
		h.NumRecs = -1
	} else {
		h.NumRecs = int64(numRecs)
	}

	if h.Dims, err = readDims(r); err != nil {
		return nil, err
	}
	if h.GlobalAttrs, err = readAttrs(r); err != nil {
		return nil, err
	}
	if h.Vars, err = readVars(r, h); err != nil {
		return nil, err
	}

	if err := validate(h); err != nil {
		return nil, err
	}
	return h, nil
}

// wrap converts a raw read error into a decode error. Truncated input
// surfaces as io.EOF or io.ErrUnexpectedEOF and means the header is
// malformed; anything else is a genuine I/O failure and propagates.
func wrap(err error, offset int64) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: truncated at offset %d", ErrMalformed, offset)
	}
	return err
}

// readListHeader reads a list tag and element count. An absent list is
// encoded as tag 0, count 0.
func readListHeader(r *binary.Reader, wantTag int32) (int, error) {
	pos := r.Pos()
	tag, err := r.ReadInt32()
	if err != nil {
		return 0, wrap(err, pos)
	}
	count, err := r.ReadInt32()
	if err != nil {
		return 0, wrap(err, r.Pos())
	}
	if tag == 0 && count == 0 {
		return 0, nil
	}
	if tag != wantTag {
		return 0, fmt.Errorf("%w: offset %d: expected list tag 0x%02X, found 0x%02X", ErrMalformed, pos, wantTag, tag)
	}
	if count < 0 || count > maxListLen {
		return 0, fmt.Errorf("%w: offset %d: implausible list count %d", ErrMalformed, pos, count)
	}
	return int(count), nil
}

func readName(r *binary.Reader) (string, error) {
	pos := r.Pos()
	n, err := r.ReadInt32()
	if err != nil {
		return "", wrap(err, pos)
	}
	if n < 0 || n > maxListLen {
		return "", fmt.Errorf("%w: offset %d: implausible name length %d", ErrMalformed, pos, n)
	}
	buf, err := r.ReadBytes(int(n))
	if err != nil {
		return "", wrap(err, r.Pos())
	}
	r.Align()
	return string(buf), nil
}

func readDims(r *binary.Reader) ([]Dimension, error) {
	count, err := readListHeader(r, tagDimension)
	if err != nil || count == 0 {
		return nil, err
	}
	dims := make([]Dimension, 0, count)
	for i := 0; i < count; i++ {
		name, err := readName(r)
		if err != nil {
			return nil, err
		}
		pos := r.Pos()
		length, err := r.ReadInt32()
		if err != nil {
			return nil, wrap(err, pos)
		}
		if length < 0 {
			return nil, fmt.Errorf("%w: offset %d: negative length for dimension %q", ErrMalformed, pos, name)
		}
		dims = append(dims, Dimension{Name: name, Length: int64(length)})
	}
	return dims, nil
}

func readAttrs(r *binary.Reader) ([]Attribute, error) {
	count, err := readListHeader(r, tagAttribute)
	if err != nil || count == 0 {
		return nil, err
	}
	attrs := make([]Attribute, 0, count)
	for i := 0; i < count; i++ {
		name, err := readName(r)
		if err != nil {
			return nil, err
		}
		pos := r.Pos()
		tag, err := r.ReadInt32()
		if err != nil {
			return nil, wrap(err, pos)
		}
		typ, err := nctype.FromTag(tag)
		if err != nil {
			return nil, fmt.Errorf("offset %d: attribute %q: %w", pos, name, err)
		}
		n, err := r.ReadInt32()
		if err != nil {
			return nil, wrap(err, r.Pos())
		}
		if n < 0 || n > maxListLen {
			return nil, fmt.Errorf("%w: offset %d: implausible value count %d for attribute %q", ErrMalformed, r.Pos(), n, name)
		}
		raw, err := r.ReadBytes(int(binary.Pad4(int64(n) * int64(typ.Size()))))
		if err != nil {
			return nil, wrap(err, r.Pos())
		}
		values, err := nctype.Decode(typ, raw, int(n))
		if err != nil {
			return nil, fmt.Errorf("%w: attribute %q: %v", ErrMalformed, name, err)
		}
		attrs = append(attrs, Attribute{Name: name, Type: typ, Values: values})
	}
	return attrs, nil
}

func readVars(r *binary.Reader, h *Header) ([]Variable, error) {
	count, err := readListHeader(r, tagVariable)
	if err != nil || count == 0 {
		return nil, err
	}
	vars := make([]Variable, 0, count)
	for i := 0; i < count; i++ {
		name, err := readName(r)
		if err != nil {
			return nil, err
		}
		pos := r.Pos()
		nd, err := r.ReadInt32()
		if err != nil {
			return nil, wrap(err, pos)
		}
		if nd < 0 || nd > maxListLen {
			return nil, fmt.Errorf("%w: offset %d: implausible dimension count %d for variable %q", ErrMalformed, pos, nd, name)
		}
		var dimIDs []int
		if nd > 0 {
			dimIDs = make([]int, nd)
		}
		for j := range dimIDs {
			pos = r.Pos()
			id, err := r.ReadInt32()
			if err != nil {
				return nil, wrap(err, pos)
			}
			if id < 0 || int(id) >= len(h.Dims) {
				return nil, fmt.Errorf("%w: offset %d: variable %q: dimension index %d out of range [0,%d)", ErrMalformed, pos, name, id, len(h.Dims))
			}
			dimIDs[j] = int(id)
		}
		attrs, err := readAttrs(r)
		if err != nil {
			return nil, fmt.Errorf("variable %q: %w", name, err)
		}
		pos = r.Pos()
		tag, err := r.ReadInt32()
		if err != nil {
			return nil, wrap(err, pos)
		}
		typ, err := nctype.FromTag(tag)
		if err != nil {
			return nil, fmt.Errorf("offset %d: variable %q: %w", pos, name, err)
		}
		vsizeRaw, err := r.ReadUint32()
		if err != nil {
			return nil, wrap(err, r.Pos())
		}
		begin, err := r.ReadOffset(h.Wide())
		if err != nil {
			return nil, wrap(err, r.Pos())
		}
		v := Variable{
			Name:   name,
			DimIDs: dimIDs,
			Attrs:  attrs,
			Type:   typ,
			Begin:  begin,
		}
		if vsizeRaw == Streaming {
			// Clamped by a writer whose slab exceeded 2^31-4 bytes;
			// recompute from the dimensions.
			v.VSize = computeVSize(h, &v)
		} else {
			v.VSize = int64(vsizeRaw)
		}
		vars = append(vars, v)
	}
	return vars, nil
}

// computeVSize derives one slab's padded byte size from the variable's
// non-record dimensions.
func computeVSize(h *Header, v *Variable) int64 {
	n := int64(v.Type.Size())
	for i, id := range v.DimIDs {
		if i == 0 && h.Dims[id].Length == 0 {
			continue
		}
		n *= h.Dims[id].Length
	}
	return binary.Pad4(n)
}

func validate(h *Header) error {
	record := -1
	dimNames := make(map[string]bool, len(h.Dims))
	for i, d := range h.Dims {
		if dimNames[d.Name] {
			return fmt.Errorf("%w: duplicate dimension name %q", ErrMalformed, d.Name)
		}
		dimNames[d.Name] = true
		if d.Length == 0 {
			if record >= 0 {
				return fmt.Errorf("%w: more than one unlimited dimension (%q and %q)", ErrMalformed, h.Dims[record].Name, d.Name)
			}
			record = i
		}
	}
	if err := checkAttrNames(h.GlobalAttrs, "global"); err != nil {
		return err
	}
	varNames := make(map[string]bool, len(h.Vars))
	for i := range h.Vars {
		v := &h.Vars[i]
		if varNames[v.Name] {
			return fmt.Errorf("%w: duplicate variable name %q", ErrMalformed, v.Name)
		}
		varNames[v.Name] = true
		if err := checkAttrNames(v.Attrs, v.Name); err != nil {
			return err
		}
		for j, id := range v.DimIDs {
			if j > 0 && h.Dims[id].Length == 0 {
				return fmt.Errorf("%w: variable %q: record dimension %q is not outermost", ErrMalformed, v.Name, h.Dims[id].Name)
			}
		}
	}
	return nil
}

func checkAttrNames(attrs []Attribute, scope string) error {
	seen := make(map[string]bool, len(attrs))
	for _, a := range attrs {
		if seen[a.Name] {
			return fmt.Errorf("%w: duplicate attribute name %q (%s)", ErrMalformed, a.Name, scope)
		}
		seen[a.Name] = true
	}
	return nil
}
