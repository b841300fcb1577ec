package binary

import (
	"encoding/binary"
	"io"
)

// Writer provides positioned writes of big-endian values.
type Writer struct {
	w   io.WriterAt
	pos int64
}

// NewWriter creates a writer positioned at the start of w.
func NewWriter(w io.WriterAt) *Writer {
	return &Writer{w: w}
}

// At returns a new writer positioned at the given offset.
// The new writer shares the underlying io.WriterAt but has independent position.
func (w *Writer) At(offset int64) *Writer {
	return &Writer{w: w.w, pos: offset}
}

// Pos returns the current write position.
func (w *Writer) Pos() int64 {
	return w.pos
}

// WriteBytes writes the given bytes at the current position.
func (w *Writer) WriteBytes(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	n, err := w.w.WriteAt(data, w.pos)
	w.pos += int64(n)
	return err
}

// WriteUint8 writes an unsigned 8-bit integer.
func (w *Writer) WriteUint8(v uint8) error {
	return w.WriteBytes([]byte{v})
}

// WriteUint32 writes a big-endian unsigned 32-bit integer.
func (w *Writer) WriteUint32(v uint32) error {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, v)
	return w.WriteBytes(buf)
}

// WriteInt32 writes a big-endian signed 32-bit integer.
func (w *Writer) WriteInt32(v int32) error {
	return w.WriteUint32(uint32(v))
}

// WriteUint64 writes a big-endian unsigned 64-bit integer.
func (w *Writer) WriteUint64(v uint64) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return w.WriteBytes(buf)
}

// WriteOffset writes a variable begin offset: 4 bytes wide when wide is
// false (classic), 8 bytes wide when true (64-bit offset).
func (w *Writer) WriteOffset(v int64, wide bool) error {
	if wide {
		return w.WriteUint64(uint64(v))
	}
	return w.WriteUint32(uint32(v))
}

// WritePadding writes zero bytes up to the next multiple of 4.
func (w *Writer) WritePadding() error {
	return w.WriteZeros(int(Padding(w.pos)))
}

// WriteZeros writes n zero bytes.
func (w *Writer) WriteZeros(n int) error {
	if n <= 0 {
		return nil
	}
	return w.WriteBytes(make([]byte, n))
}

// Skip advances the position by n bytes without writing.
func (w *Writer) Skip(n int64) {
	w.pos += n
}
