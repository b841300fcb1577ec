package binary

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempFile(t *testing.T) *os.File {
	t.Helper()
	f, err := os.Create(filepath.Join(t.TempDir(), "scratch.bin"))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestPad4(t *testing.T) {
	cases := []struct{ in, want int64 }{
		{0, 0}, {1, 4}, {2, 4}, {3, 4}, {4, 4}, {5, 8}, {15, 16}, {16, 16},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Pad4(c.in), "Pad4(%d)", c.in)
		assert.Equal(t, c.want-c.in, Padding(c.in), "Padding(%d)", c.in)
	}
}

func TestRoundTrip(t *testing.T) {
	f := tempFile(t)

	w := NewWriter(f)
	require.NoError(t, w.WriteBytes([]byte("CDF")))
	require.NoError(t, w.WriteUint8(2))
	require.NoError(t, w.WriteUint32(0xDEADBEEF))
	require.NoError(t, w.WriteInt32(-7))
	require.NoError(t, w.WriteUint64(1<<40))
	require.NoError(t, w.WriteOffset(123456, false))
	require.NoError(t, w.WriteOffset(1<<33, true))
	require.EqualValues(t, 3+1+4+4+8+4+8, w.Pos())

	r := NewReader(f)
	magic, err := r.ReadBytes(3)
	require.NoError(t, err)
	assert.Equal(t, []byte("CDF"), magic)

	v8, err := r.ReadUint8()
	require.NoError(t, err)
	assert.EqualValues(t, 2, v8)

	v32, err := r.ReadUint32()
	require.NoError(t, err)
	assert.EqualValues(t, 0xDEADBEEF, v32)

	i32, err := r.ReadInt32()
	require.NoError(t, err)
	assert.EqualValues(t, -7, i32)

	v64, err := r.ReadUint64()
	require.NoError(t, err)
	assert.EqualValues(t, 1<<40, v64)

	narrow, err := r.ReadOffset(false)
	require.NoError(t, err)
	assert.EqualValues(t, 123456, narrow)

	wide, err := r.ReadOffset(true)
	require.NoError(t, err)
	assert.EqualValues(t, 1<<33, wide)
}

func TestBigEndianLayout(t *testing.T) {
	f := tempFile(t)

	w := NewWriter(f)
	require.NoError(t, w.WriteUint32(0x0102_0304))

	var buf [4]byte
	_, err := f.ReadAt(buf[:], 0)
	require.NoError(t, err)
	assert.Equal(t, [4]byte{1, 2, 3, 4}, buf)
}

func TestWriterAtAndPadding(t *testing.T) {
	f := tempFile(t)

	w := NewWriter(f)
	require.NoError(t, w.WriteBytes([]byte{0xFF}))
	require.NoError(t, w.WritePadding())
	assert.EqualValues(t, 4, w.Pos())

	// A repositioned writer shares the destination but not the cursor.
	other := w.At(8)
	require.NoError(t, other.WriteZeros(4))
	assert.EqualValues(t, 4, w.Pos())
	assert.EqualValues(t, 12, other.Pos())

	r := NewReader(f)
	got, err := r.ReadBytes(4)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0, 0, 0}, got)
}

func TestReaderAtSkipAlignPeek(t *testing.T) {
	f := tempFile(t)
	w := NewWriter(f)
	require.NoError(t, w.WriteBytes([]byte{0, 1, 2, 3, 4, 5, 6, 7}))

	r := NewReader(f).At(1)
	r.Skip(1)
	r.Align()
	assert.EqualValues(t, 4, r.Pos())

	peeked, err := r.Peek(2)
	require.NoError(t, err)
	assert.Equal(t, []byte{4, 5}, peeked)
	assert.EqualValues(t, 4, r.Pos())

	got, err := r.ReadBytes(2)
	require.NoError(t, err)
	assert.Equal(t, []byte{4, 5}, got)
	assert.EqualValues(t, 6, r.Pos())
}

func TestReadPastEnd(t *testing.T) {
	f := tempFile(t)
	w := NewWriter(f)
	require.NoError(t, w.WriteBytes([]byte{1, 2}))

	r := NewReader(f)
	_, err := r.ReadBytes(8)
	assert.Error(t, err)
}
