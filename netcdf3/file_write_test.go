package netcdf3

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func tempPath(t *testing.T, name string) string {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "netcdf3-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })
	return filepath.Join(tmpDir, name)
}

// defineWeather declares the schema used by most round-trip tests:
// two fixed dimensions, one record dimension, a coordinate variable,
// a fixed 2D grid and a record 3D grid.
func defineWeather(t *testing.T, w *Writer) {
	t.Helper()
	steps := []error{
		w.AddGlobalAttribute("title", "surface analysis"),
		w.AddGlobalAttribute("levels", []int16{850, 500}),
		w.AddDimension("lat", Fixed(3)),
		w.AddDimension("lon", Fixed(5)),
		w.AddDimension("time", Unlimited),
		w.AddVariable("lat", Float, "lat"),
		w.AddVariableAttribute("lat", "units", "degrees_north"),
		w.AddVariable("elevation", Short, "lat", "lon"),
		w.AddVariable("time", Float, "time"),
		w.AddVariable("temp", Double, "time", "lat", "lon"),
		w.AddVariableAttribute("temp", "units", "Celsius"),
	}
	for _, err := range steps {
		if err != nil {
			t.Fatalf("definition failed: %v", err)
		}
	}
}

func TestCreateRoundTrip(t *testing.T) {
	for _, version := range []Version{Classic, Offset64Bit} {
		t.Run(version.String(), func(t *testing.T) {
			path := tempPath(t, "weather.nc")

			w, err := Create(path, WithVersion(version))
			if err != nil {
				t.Fatalf("Create failed: %v", err)
			}
			defineWeather(t, w)

			lat := []float32{-10, 0, 10}
			elevation := make([]int16, 15)
			for i := range elevation {
				elevation[i] = int16(i * 100)
			}
			times := []float32{0, 6}
			temp := make([]float64, 30)
			for i := range temp {
				temp[i] = float64(i) / 2
			}
			if err := w.WriteVariable("lat", lat); err != nil {
				t.Fatalf("WriteVariable(lat) failed: %v", err)
			}
			if err := w.WriteVariable("elevation", elevation); err != nil {
				t.Fatalf("WriteVariable(elevation) failed: %v", err)
			}
			if err := w.WriteVariable("time", times); err != nil {
				t.Fatalf("WriteVariable(time) failed: %v", err)
			}
			if err := w.WriteVariable("temp", temp); err != nil {
				t.Fatalf("WriteVariable(temp) failed: %v", err)
			}
			if w.NumRecords() != 2 {
				t.Errorf("NumRecords: got %d, want 2", w.NumRecords())
			}
			if err := w.Close(); err != nil {
				t.Fatalf("Close failed: %v", err)
			}

			f, err := Open(path)
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			defer f.Close()

			if f.Version() != version {
				t.Errorf("Version: got %v, want %v", f.Version(), version)
			}
			if f.NumRecords() != 2 {
				t.Errorf("NumRecords: got %d, want 2", f.NumRecords())
			}
			if got := f.GlobalAttr("title").String(); got != "surface analysis" {
				t.Errorf("title attribute: got %q", got)
			}
			if got := f.GlobalAttr("levels").Values(); !reflect.DeepEqual(got, []int16{850, 500}) {
				t.Errorf("levels attribute: got %v", got)
			}
			if got := f.VarAttr("temp", "units").String(); got != "Celsius" {
				t.Errorf("temp:units attribute: got %q", got)
			}

			ud := f.UnlimitedDim()
			if ud == nil || ud.Name() != "time" {
				t.Fatalf("UnlimitedDim: got %v", ud)
			}

			for name, want := range map[string]interface{}{
				"lat":       lat,
				"elevation": elevation,
				"time":      times,
				"temp":      temp,
			} {
				got, err := f.ReadVariable(name)
				if err != nil {
					t.Fatalf("ReadVariable(%s) failed: %v", name, err)
				}
				if !reflect.DeepEqual(got, want) {
					t.Errorf("ReadVariable(%s): got %v, want %v", name, got, want)
				}
			}
		})
	}
}

func TestDeterministicLayout(t *testing.T) {
	// Encoding the same schema and data twice must produce identical
	// bytes.
	write := func(path string) {
		w, err := Create(path)
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		defineWeather(t, w)
		if err := w.WriteVariable("lat", []float32{1, 2, 3}); err != nil {
			t.Fatalf("WriteVariable failed: %v", err)
		}
		if err := w.AppendRecord(map[string]interface{}{"time": []float32{0}}); err != nil {
			t.Fatalf("AppendRecord failed: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}

	p1 := tempPath(t, "a.nc")
	p2 := tempPath(t, "b.nc")
	write(p1)
	write(p2)

	b1, err := os.ReadFile(p1)
	if err != nil {
		t.Fatal(err)
	}
	b2, err := os.ReadFile(p2)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(b1, b2) {
		t.Error("two encodings of the same dataset differ")
	}
}

func TestUnwrittenVariablesReadAsFill(t *testing.T) {
	path := tempPath(t, "fill.nc")
	w, err := Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defineWeather(t, w)
	// Two records exist, but only time is ever assigned.
	if err := w.WriteVariable("time", []float32{0, 6}); err != nil {
		t.Fatalf("WriteVariable failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()

	lat, err := f.ReadVariable("lat")
	if err != nil {
		t.Fatalf("ReadVariable(lat) failed: %v", err)
	}
	for i, v := range lat.([]float32) {
		if v != FillFloat {
			t.Errorf("lat[%d]: got %v, want fill", i, v)
		}
	}
	elevation, err := f.ReadVariable("elevation")
	if err != nil {
		t.Fatalf("ReadVariable(elevation) failed: %v", err)
	}
	for i, v := range elevation.([]int16) {
		if v != FillShort {
			t.Errorf("elevation[%d]: got %v, want fill", i, v)
		}
	}
	temp, err := f.ReadVariable("temp")
	if err != nil {
		t.Fatalf("ReadVariable(temp) failed: %v", err)
	}
	if n := len(temp.([]float64)); n != 30 {
		t.Fatalf("temp length: got %d, want 30", n)
	}
	for i, v := range temp.([]float64) {
		if v != FillDouble {
			t.Errorf("temp[%d]: got %v, want fill", i, v)
		}
	}
}

func TestShortRecordVariableFilledOnClose(t *testing.T) {
	path := tempPath(t, "short.nc")
	w, err := Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defineWeather(t, w)

	// time covers one record, temp covers two: closing must fill
	// time's second record, not leave a hole of zero bytes.
	if err := w.WriteVariable("time", []float32{0}); err != nil {
		t.Fatalf("WriteVariable(time) failed: %v", err)
	}
	if err := w.WriteVariable("temp", make([]float64, 30)); err != nil {
		t.Fatalf("WriteVariable(temp) failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()

	if f.NumRecords() != 2 {
		t.Fatalf("NumRecords: got %d, want 2", f.NumRecords())
	}
	times, err := f.ReadVariable("time")
	if err != nil {
		t.Fatalf("ReadVariable(time) failed: %v", err)
	}
	got := times.([]float32)
	if got[0] != 0 {
		t.Errorf("time[0]: got %v, want 0", got[0])
	}
	if got[1] != FillFloat {
		t.Errorf("time[1]: got %v, want fill", got[1])
	}
}

func TestAppendBackfillsShortVariable(t *testing.T) {
	path := tempPath(t, "backfill.nc")
	w, err := Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defineWeather(t, w)

	// temp reaches two records while time covers none; the append
	// then writes record 2 and must fill time's records 0 and 1.
	if err := w.WriteVariable("temp", make([]float64, 30)); err != nil {
		t.Fatalf("WriteVariable(temp) failed: %v", err)
	}
	if err := w.AppendRecord(map[string]interface{}{
		"time": []float32{12},
		"temp": make([]float64, 15),
	}); err != nil {
		t.Fatalf("AppendRecord failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()

	times, err := f.ReadVariable("time")
	if err != nil {
		t.Fatalf("ReadVariable(time) failed: %v", err)
	}
	want := []float32{FillFloat, FillFloat, 12}
	if !reflect.DeepEqual(times, want) {
		t.Errorf("time: got %v, want %v", times, want)
	}
}

func TestAppendRecord(t *testing.T) {
	path := tempPath(t, "append.nc")
	w, err := Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defineWeather(t, w)

	rec0 := make([]float64, 15)
	for i := range rec0 {
		rec0[i] = float64(i)
	}
	if err := w.AppendRecord(map[string]interface{}{
		"time": []float32{0},
		"temp": rec0,
	}); err != nil {
		t.Fatalf("AppendRecord failed: %v", err)
	}
	// The second record omits temp, which must come back as fill.
	if err := w.AppendRecord(map[string]interface{}{
		"time": []float32{6},
	}); err != nil {
		t.Fatalf("AppendRecord failed: %v", err)
	}
	if w.NumRecords() != 2 {
		t.Errorf("NumRecords: got %d, want 2", w.NumRecords())
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()

	times, err := f.ReadVariable("time")
	if err != nil {
		t.Fatalf("ReadVariable(time) failed: %v", err)
	}
	if !reflect.DeepEqual(times, []float32{0, 6}) {
		t.Errorf("time: got %v", times)
	}

	temp, err := f.ReadVariable("temp")
	if err != nil {
		t.Fatalf("ReadVariable(temp) failed: %v", err)
	}
	got := temp.([]float64)
	for i := 0; i < 15; i++ {
		if got[i] != rec0[i] {
			t.Errorf("temp[%d]: got %v, want %v", i, got[i], rec0[i])
		}
	}
	for i := 15; i < 30; i++ {
		if got[i] != FillDouble {
			t.Errorf("temp[%d]: got %v, want fill", i, got[i])
		}
	}
}

func TestAppendRecordErrors(t *testing.T) {
	path := tempPath(t, "append-errors.nc")
	w, err := Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer w.Close()
	defineWeather(t, w)

	if err := w.AppendRecord(map[string]interface{}{"nope": []float32{0}}); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown variable: got %v, want ErrNotFound", err)
	}
	if err := w.AppendRecord(map[string]interface{}{"lat": []float32{0}}); !errors.Is(err, ErrSchema) {
		t.Errorf("fixed variable in record: got %v, want ErrSchema", err)
	}
	if err := w.AppendRecord(map[string]interface{}{"time": []float32{0, 1}}); !errors.Is(err, ErrRange) {
		t.Errorf("oversized slab: got %v, want ErrRange", err)
	}
	if err := w.AppendRecord(map[string]interface{}{"time": []float64{0}}); !errors.Is(err, ErrSchema) {
		t.Errorf("mistyped slab: got %v, want ErrSchema", err)
	}
	if w.NumRecords() != 0 {
		t.Errorf("failed appends must not grow the record count, got %d", w.NumRecords())
	}
}

func TestWriteVariableErrors(t *testing.T) {
	path := tempPath(t, "write-errors.nc")
	w, err := Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer w.Close()
	defineWeather(t, w)

	if err := w.WriteVariable("nope", []float32{1}); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown variable: got %v, want ErrNotFound", err)
	}
	if err := w.WriteVariable("lat", []float64{1, 2, 3}); !errors.Is(err, ErrSchema) {
		t.Errorf("mistyped values: got %v, want ErrSchema", err)
	}
	if err := w.WriteVariable("lat", []float32{1, 2}); !errors.Is(err, ErrRange) {
		t.Errorf("short values: got %v, want ErrRange", err)
	}
	// Record data must arrive in whole records.
	if err := w.WriteVariable("temp", make([]float64, 20)); !errors.Is(err, ErrRange) {
		t.Errorf("partial record: got %v, want ErrRange", err)
	}
}

func TestSchemaFrozenAfterWrite(t *testing.T) {
	path := tempPath(t, "frozen.nc")
	w, err := Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer w.Close()
	defineWeather(t, w)

	if err := w.WriteVariable("lat", []float32{1, 2, 3}); err != nil {
		t.Fatalf("WriteVariable failed: %v", err)
	}

	if err := w.AddDimension("level", Fixed(4)); !errors.Is(err, ErrSchemaFrozen) {
		t.Errorf("AddDimension after write: got %v, want ErrSchemaFrozen", err)
	}
	if err := w.AddVariable("extra", Int); !errors.Is(err, ErrSchemaFrozen) {
		t.Errorf("AddVariable after write: got %v, want ErrSchemaFrozen", err)
	}
	if err := w.AddGlobalAttribute("late", "nope"); !errors.Is(err, ErrSchemaFrozen) {
		t.Errorf("AddGlobalAttribute after write: got %v, want ErrSchemaFrozen", err)
	}
	if err := w.AddVariableAttribute("lat", "late", "nope"); !errors.Is(err, ErrSchemaFrozen) {
		t.Errorf("AddVariableAttribute after write: got %v, want ErrSchemaFrozen", err)
	}

	// EndDef on a frozen writer is a no-op.
	if err := w.EndDef(); err != nil {
		t.Errorf("EndDef after freeze: got %v", err)
	}
}

func TestSchemaValidation(t *testing.T) {
	path := tempPath(t, "schema.nc")
	w, err := Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer w.Close()

	if err := w.AddDimension("x", Fixed(2)); err != nil {
		t.Fatalf("AddDimension failed: %v", err)
	}
	if err := w.AddDimension("t", Unlimited); err != nil {
		t.Fatalf("AddDimension failed: %v", err)
	}

	cases := []struct {
		name string
		err  error
	}{
		{"duplicate dimension", w.AddDimension("x", Fixed(3))},
		{"zero-length fixed dimension", w.AddDimension("bad", Fixed(0))},
		{"second unlimited dimension", w.AddDimension("t2", Unlimited)},
		{"empty dimension name", w.AddDimension("", Fixed(1))},
		{"bad name", w.AddDimension("a/b", Fixed(1))},
		{"undefined dimension reference", w.AddVariable("v", Int, "ghost")},
		{"record dimension not outermost", w.AddVariable("v", Int, "x", "t")},
		{"attribute on unknown variable", w.AddVariableAttribute("ghost", "a", "v")},
	}
	for _, c := range cases {
		if c.err == nil {
			t.Errorf("%s: expected error", c.name)
			continue
		}
		if c.name == "attribute on unknown variable" {
			if !errors.Is(c.err, ErrNotFound) && !errors.Is(c.err, ErrSchema) {
				t.Errorf("%s: got %v", c.name, c.err)
			}
			continue
		}
		if !errors.Is(c.err, ErrSchema) {
			t.Errorf("%s: got %v, want ErrSchema", c.name, c.err)
		}
	}

	if err := w.AddVariable("v", Int, "x"); err != nil {
		t.Fatalf("AddVariable failed: %v", err)
	}
	if err := w.AddVariable("v", Int, "x"); !errors.Is(err, ErrSchema) {
		t.Errorf("duplicate variable: got %v, want ErrSchema", err)
	}
}

func TestScalarRoundTrip(t *testing.T) {
	path := tempPath(t, "scalar.nc")
	w, err := Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := w.AddVariable("answer", Int); err != nil {
		t.Fatalf("AddVariable failed: %v", err)
	}
	if err := w.WriteVariable("answer", []int32{42}); err != nil {
		t.Fatalf("WriteVariable failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()

	shape, err := f.Shape("answer")
	if err != nil {
		t.Fatalf("Shape failed: %v", err)
	}
	if len(shape) != 0 {
		t.Errorf("scalar shape: got %v", shape)
	}
	got, err := f.ReadVariable("answer")
	if err != nil {
		t.Fatalf("ReadVariable failed: %v", err)
	}
	if !reflect.DeepEqual(got, []int32{42}) {
		t.Errorf("answer: got %v", got)
	}
}

func TestCharAndByteAttributesStayDistinct(t *testing.T) {
	path := tempPath(t, "attrs.nc")
	w, err := Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := w.AddGlobalAttribute("text", "abc"); err != nil {
		t.Fatalf("AddGlobalAttribute failed: %v", err)
	}
	if err := w.AddGlobalAttribute("bytes", []int8{97, 98, 99}); err != nil {
		t.Fatalf("AddGlobalAttribute failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()

	text := f.GlobalAttr("text")
	if text.Type() != Char {
		t.Errorf("text type: got %v, want Char", text.Type())
	}
	if !reflect.DeepEqual(text.Values(), []byte("abc")) {
		t.Errorf("text values: got %v", text.Values())
	}

	raw := f.GlobalAttr("bytes")
	if raw.Type() != Byte {
		t.Errorf("bytes type: got %v, want Byte", raw.Type())
	}
	if !reflect.DeepEqual(raw.Values(), []int8{97, 98, 99}) {
		t.Errorf("bytes values: got %v", raw.Values())
	}
}

func TestHeaderReserve(t *testing.T) {
	path := tempPath(t, "reserve.nc")
	w, err := Create(path, WithHeaderReserve(4096))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := w.AddDimension("x", Fixed(2)); err != nil {
		t.Fatalf("AddDimension failed: %v", err)
	}
	if err := w.AddVariable("v", Int, "x"); err != nil {
		t.Fatalf("AddVariable failed: %v", err)
	}
	if err := w.WriteVariable("v", []int32{1, 2}); err != nil {
		t.Fatalf("WriteVariable failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 4096+8 {
		t.Errorf("file size: got %d, want %d", info.Size(), 4096+8)
	}

	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()
	got, err := f.ReadVariable("v")
	if err != nil {
		t.Fatalf("ReadVariable failed: %v", err)
	}
	if !reflect.DeepEqual(got, []int32{1, 2}) {
		t.Errorf("v: got %v", got)
	}
}

func TestEmptyDataset(t *testing.T) {
	path := tempPath(t, "empty.nc")
	w, err := Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()

	if n := len(f.Dimensions()); n != 0 {
		t.Errorf("dimensions: got %d", n)
	}
	if n := len(f.Variables()); n != 0 {
		t.Errorf("variables: got %d", n)
	}
	if f.NumRecords() != 0 {
		t.Errorf("NumRecords: got %d", f.NumRecords())
	}
}

func TestCloseTwice(t *testing.T) {
	path := tempPath(t, "twice.nc")
	w, err := Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close: got %v", err)
	}
	if err := w.AddDimension("x", Fixed(1)); !errors.Is(err, ErrClosed) {
		t.Errorf("AddDimension after Close: got %v, want ErrClosed", err)
	}
}

func TestCharVariableFromString(t *testing.T) {
	path := tempPath(t, "chars.nc")
	w, err := Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := w.AddDimension("len", Fixed(5)); err != nil {
		t.Fatalf("AddDimension failed: %v", err)
	}
	if err := w.AddVariable("label", Char, "len"); err != nil {
		t.Fatalf("AddVariable failed: %v", err)
	}
	if err := w.WriteVariable("label", "hello"); err != nil {
		t.Fatalf("WriteVariable failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()
	got, err := f.ReadVariable("label")
	if err != nil {
		t.Fatalf("ReadVariable failed: %v", err)
	}
	if string(got.([]byte)) != "hello" {
		t.Errorf("label: got %q", got)
	}
}
