package header

import (
	"fmt"
	"io"
	"math"

	"github.com/ncio/go-netcdf3/internal/binary"
	"github.com/ncio/go-netcdf3/internal/nctype"
)

// numRecsOffset is the position of the record count in every header.
const numRecsOffset = 4

// Write encodes the header at the start of w. Variable VSize and Begin
// fields must have been assigned by the layout planner beforehand.
func (h *Header) Write(w *binary.Writer) error {
	if err := w.WriteBytes([]byte{'C', 'D', 'F', h.Version}); err != nil {
		return err
	}
	if err := w.WriteUint32(encodeNumRecs(h.NumRecs)); err != nil {
		return err
	}
	if err := writeDims(w, h.Dims); err != nil {
		return err
	}
	if err := writeAttrs(w, h.GlobalAttrs); err != nil {
		return err
	}
	return writeVars(w, h)
}

// PutNumRecs patches the record count of an already-written header.
func PutNumRecs(w io.WriterAt, numRecs int64) error {
	return binary.NewWriter(w).At(numRecsOffset).WriteUint32(encodeNumRecs(numRecs))
}

// encodeNumRecs clamps a record count to the streaming sentinel when
// it cannot be represented in 32 bits.
func encodeNumRecs(n int64) uint32 {
	if n < 0 || n >= Streaming {
		return Streaming
	}
	return uint32(n)
}

func writeListHeader(w *binary.Writer, tag int32, count int) error {
	if count == 0 {
		return w.WriteZeros(8) // absent
	}
	if err := w.WriteInt32(tag); err != nil {
		return err
	}
	return w.WriteInt32(int32(count))
}

func writeName(w *binary.Writer, name string) error {
	if err := w.WriteInt32(int32(len(name))); err != nil {
		return err
	}
	if err := w.WriteBytes([]byte(name)); err != nil {
		return err
	}
	return w.WritePadding()
}

func writeDims(w *binary.Writer, dims []Dimension) error {
	if err := writeListHeader(w, tagDimension, len(dims)); err != nil {
		return err
	}
	for _, d := range dims {
		if err := writeName(w, d.Name); err != nil {
			return err
		}
		if err := w.WriteInt32(int32(d.Length)); err != nil {
			return err
		}
	}
	return nil
}

func writeAttrs(w *binary.Writer, attrs []Attribute) error {
	if err := writeListHeader(w, tagAttribute, len(attrs)); err != nil {
		return err
	}
	for _, a := range attrs {
		if err := writeName(w, a.Name); err != nil {
			return err
		}
		if err := w.WriteInt32(int32(a.Type)); err != nil {
			return err
		}
		n := valueCount(a.Values)
		if err := w.WriteInt32(int32(n)); err != nil {
			return err
		}
		raw, err := nctype.Append(nil, a.Values)
		if err != nil {
			return fmt.Errorf("encoding attribute %q: %w", a.Name, err)
		}
		if err := w.WriteBytes(raw); err != nil {
			return err
		}
		if err := w.WritePadding(); err != nil {
			return err
		}
	}
	return nil
}

func writeVars(w *binary.Writer, h *Header) error {
	if err := writeListHeader(w, tagVariable, len(h.Vars)); err != nil {
		return err
	}
	for i := range h.Vars {
		v := &h.Vars[i]
		if err := writeName(w, v.Name); err != nil {
			return err
		}
		if err := w.WriteInt32(int32(len(v.DimIDs))); err != nil {
			return err
		}
		for _, id := range v.DimIDs {
			if err := w.WriteInt32(int32(id)); err != nil {
				return err
			}
		}
		if err := writeAttrs(w, v.Attrs); err != nil {
			return err
		}
		if err := w.WriteInt32(int32(v.Type)); err != nil {
			return err
		}
		// vsize is a signed 32-bit field; slabs beyond its range are
		// stored as the sentinel and recomputed by readers.
		vsize := uint32(v.VSize)
		if v.VSize > math.MaxInt32-3 {
			vsize = Streaming
		}
		if err := w.WriteUint32(vsize); err != nil {
			return err
		}
		if err := w.WriteOffset(v.Begin, h.Wide()); err != nil {
			return err
		}
	}
	return nil
}
