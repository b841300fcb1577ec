// Package binary provides low-level binary I/O for NetCDF classic file
// parsing and writing. The classic format is big-endian throughout.
package binary

import (
	"encoding/binary"
	"io"
)

// Pad4 rounds n up to the nearest multiple of 4.
func Pad4(n int64) int64 { return (n + 3) &^ 3 }

// Padding returns the number of bytes needed to bring n up to the next
// multiple of 4.
func Padding(n int64) int64 { return Pad4(n) - n }

// Reader provides positioned reads of big-endian values.
type Reader struct {
	r   io.ReaderAt
	pos int64
}

// NewReader creates a reader positioned at the start of r.
func NewReader(r io.ReaderAt) *Reader {
	return &Reader{r: r}
}

// At returns a new reader positioned at the given offset.
// The new reader shares the underlying io.ReaderAt but has independent position.
func (r *Reader) At(offset int64) *Reader {
	return &Reader{r: r.r, pos: offset}
}

// Pos returns the current read position.
func (r *Reader) Pos() int64 {
	return r.pos
}

// ReadBytes reads exactly n bytes from the current position.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := r.r.ReadAt(buf, r.pos); err != nil {
		return nil, err
	}
	r.pos += int64(n)
	return buf, nil
}

// ReadUint8 reads an unsigned 8-bit integer.
func (r *Reader) ReadUint8() (uint8, error) {
	buf, err := r.ReadBytes(1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

// ReadUint32 reads a big-endian unsigned 32-bit integer.
func (r *Reader) ReadUint32() (uint32, error) {
	buf, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf), nil
}

// ReadInt32 reads a big-endian signed 32-bit integer.
func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

// ReadUint64 reads a big-endian unsigned 64-bit integer.
func (r *Reader) ReadUint64() (uint64, error) {
	buf, err := r.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf), nil
}

// ReadOffset reads a variable begin offset: 4 bytes wide when wide is
// false (classic), 8 bytes wide when true (64-bit offset).
func (r *Reader) ReadOffset(wide bool) (int64, error) {
	if wide {
		v, err := r.ReadUint64()
		return int64(v), err
	}
	v, err := r.ReadUint32()
	return int64(v), err
}

// Skip advances the position by n bytes.
func (r *Reader) Skip(n int64) {
	r.pos += n
}

// Align advances the position to the next multiple of 4.
func (r *Reader) Align() {
	r.pos = Pad4(r.pos)
}

// Peek reads n bytes without advancing the position.
func (r *Reader) Peek(n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := r.r.ReadAt(buf, r.pos); err != nil {
		return nil, err
	}
	return buf, nil
}
