// Command ncgen generates reference NetCDF classic files and prints
// human-readable summaries of existing ones.
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ncio/go-netcdf3/netcdf3"
)

var logger *zap.Logger

var rootCmd = &cobra.Command{
	Use:           "ncgen",
	Short:         "Generate and inspect NetCDF classic files.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var outputDir string

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write a set of reference NetCDF files into --output-dir.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return err
		}
		for _, gen := range []struct {
			name  string
			build func(path string) error
		}{
			{"empty_data_set.nc", generateEmpty},
			{"temp_3D_classic.nc", func(p string) error { return generateTemperatures(p, netcdf3.Classic) }},
			{"temp_3D_64bit_offset.nc", func(p string) error { return generateTemperatures(p, netcdf3.Offset64Bit) }},
			{"empty_vars.nc", generateEmptyVars},
			{"scalar_vars.nc", generateScalarVars},
		} {
			path := filepath.Join(outputDir, gen.name)
			if err := gen.build(path); err != nil {
				return fmt.Errorf("%s: %w", gen.name, err)
			}
			logger.Info("wrote file", zap.String("path", path))
		}
		return nil
	},
}

var describeCmd = &cobra.Command{
	Use:   "describe <file>",
	Short: "Print the structure of a NetCDF file.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return describe(cmd, args[0])
	},
}

func main() {
	var err error
	logger, err = zap.NewDevelopment()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	generateCmd.Flags().StringVarP(&outputDir, "output-dir", "o", ".", "directory to write the generated files into")
	rootCmd.AddCommand(generateCmd, describeCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.Error("command failed", zap.Error(err))
		os.Exit(1)
	}
}

func generateEmpty(path string) error {
	w, err := netcdf3.Create(path)
	if err != nil {
		return err
	}
	return w.Close()
}

// generateTemperatures writes a small 3D time/latitude/longitude
// dataset with one temperature variable per element type.
func generateTemperatures(path string, version netcdf3.Version) error {
	latitude := []float32{0, 0.5, 1}
	longitude := []float32{0, 0.5, 1, 1.5, 2}
	// Hours since 1970-01-01 for 2020-01-01 12:00 and 2020-01-02 12:00.
	time := []float32{438300, 438324}

	n := len(time) * len(latitude) * len(longitude)
	temperature := make([]int32, n)
	for i := range temperature {
		temperature[i] = int32(i)
	}

	w, err := netcdf3.Create(path, netcdf3.WithVersion(version))
	if err != nil {
		return err
	}
	defer w.Close()

	comment := "NETCDF3_CLASSIC file"
	if version == netcdf3.Offset64Bit {
		comment = "NETCDF3_64BIT_OFFSET file"
	}
	if err := w.AddGlobalAttribute("comment", comment); err != nil {
		return err
	}

	if err := w.AddDimension("latitude", netcdf3.Fixed(len(latitude))); err != nil {
		return err
	}
	if err := w.AddDimension("longitude", netcdf3.Fixed(len(longitude))); err != nil {
		return err
	}
	if err := w.AddDimension("time", netcdf3.Unlimited); err != nil {
		return err
	}

	coords := []struct {
		name  string
		attrs map[string]string
	}{
		{"latitude", map[string]string{"standard_name": "latitude", "long_name": "LATITUDE", "units": "degrees_north", "axis": "Y"}},
		{"longitude", map[string]string{"standard_name": "longitude", "long_name": "LONGITUDE", "units": "degrees_east", "axis": "X"}},
		{"time", map[string]string{"standard_name": "time", "long_name": "TIME", "units": "hours since 1970-01-01 00:00:00", "calendar": "gregorian", "axis": "T"}},
	}
	for _, c := range coords {
		if err := w.AddVariable(c.name, netcdf3.Float, c.name); err != nil {
			return err
		}
		for _, k := range []string{"standard_name", "long_name", "units", "calendar", "axis"} {
			v, ok := c.attrs[k]
			if !ok {
				continue
			}
			if err := w.AddVariableAttribute(c.name, k, v); err != nil {
				return err
			}
		}
	}

	addTemp := func(name string, typ netcdf3.DataType) error {
		if err := w.AddVariable(name, typ, "time", "latitude", "longitude"); err != nil {
			return err
		}
		for k, v := range map[string]string{
			"standard_name": "air_temperature",
			"long_name":     "TEMPERATURE",
			"units":         "Celsius",
		} {
			if err := w.AddVariableAttribute(name, k, v); err != nil {
				return err
			}
		}
		return nil
	}
	for _, tv := range []struct {
		name string
		typ  netcdf3.DataType
	}{
		{"temperature_i8", netcdf3.Byte},
		{"temperature_u8", netcdf3.Char},
		{"temperature_i16", netcdf3.Short},
		{"temperature_i32", netcdf3.Int},
		{"temperature_f32", netcdf3.Float},
		{"temperature_f64", netcdf3.Double},
	} {
		if err := addTemp(tv.name, tv.typ); err != nil {
			return err
		}
	}

	if err := w.WriteVariable("latitude", latitude); err != nil {
		return err
	}
	if err := w.WriteVariable("longitude", longitude); err != nil {
		return err
	}
	if err := w.WriteVariable("time", time); err != nil {
		return err
	}

	i8 := make([]int8, n)
	u8 := make([]byte, n)
	i16 := make([]int16, n)
	f32 := make([]float32, n)
	f64 := make([]float64, n)
	for i, t := range temperature {
		i8[i] = int8(t)
		u8[i] = byte(t)
		i16[i] = int16(t)
		f32[i] = float32(t)
		f64[i] = float64(t)
	}
	for name, values := range map[string]interface{}{
		"temperature_i8":  i8,
		"temperature_u8":  u8,
		"temperature_i16": i16,
		"temperature_i32": temperature,
		"temperature_f32": f32,
		"temperature_f64": f64,
	} {
		if err := w.WriteVariable(name, values); err != nil {
			return err
		}
	}
	return w.Close()
}

// generateEmptyVars writes scalar variables that are never assigned,
// leaving each holding its type's fill value.
func generateEmptyVars(path string) error {
	w, err := netcdf3.Create(path)
	if err != nil {
		return err
	}
	defer w.Close()

	for _, v := range []struct {
		name string
		typ  netcdf3.DataType
	}{
		{"no_value_i8", netcdf3.Byte},
		{"no_value_u8", netcdf3.Char},
		{"no_value_i16", netcdf3.Short},
		{"no_value_i32", netcdf3.Int},
		{"no_value_f32", netcdf3.Float},
		{"no_value_f64", netcdf3.Double},
	} {
		if err := w.AddVariable(v.name, v.typ); err != nil {
			return err
		}
	}
	return w.Close()
}

func generateScalarVars(path string) error {
	w, err := netcdf3.Create(path)
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.AddDimension("scalar_dim", netcdf3.Fixed(1)); err != nil {
		return err
	}
	for _, v := range []struct {
		name   string
		typ    netcdf3.DataType
		values interface{}
	}{
		{"scalar_value_i8", netcdf3.Byte, []int8{42}},
		{"scalar_value_u8", netcdf3.Char, []byte{42}},
		{"scalar_value_i16", netcdf3.Short, []int16{42}},
		{"scalar_value_i32", netcdf3.Int, []int32{42}},
		{"scalar_value_f32", netcdf3.Float, []float32{42}},
		{"scalar_value_f64", netcdf3.Double, []float64{42}},
	} {
		if err := w.AddVariable(v.name, v.typ, "scalar_dim"); err != nil {
			return err
		}
		if err := w.WriteVariable(v.name, v.values); err != nil {
			return err
		}
	}
	return w.Close()
}

// cdlName maps an element type to its CDL keyword.
func cdlName(t netcdf3.DataType) string {
	return strings.ToLower(strings.TrimPrefix(t.String(), "NC_"))
}

func describe(cmd *cobra.Command, path string) error {
	f, err := netcdf3.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%s):\n", filepath.Base(path), f.Version())

	fmt.Fprintln(out, "dimensions:")
	for _, d := range f.Dimensions() {
		if d.IsRecord() {
			fmt.Fprintf(out, "\t%s = UNLIMITED ; // (%d currently)\n", d.Name(), f.NumRecords())
		} else {
			fmt.Fprintf(out, "\t%s = %d ;\n", d.Name(), d.Len())
		}
	}

	fmt.Fprintln(out, "variables:")
	for _, v := range f.Variables() {
		dims := make([]string, len(v.Dimensions()))
		for i, d := range v.Dimensions() {
			dims[i] = d.Name()
		}
		fmt.Fprintf(out, "\t%s %s(%s) ;\n", cdlName(v.Type()), v.Name(), strings.Join(dims, ", "))
		for _, a := range v.Attributes() {
			fmt.Fprintf(out, "\t\t%s:%s = %q ;\n", v.Name(), a.Name(), a.String())
		}
	}

	if attrs := f.GlobalAttributes(); len(attrs) > 0 {
		fmt.Fprintln(out, "global attributes:")
		for _, a := range attrs {
			fmt.Fprintf(out, "\t:%s = %q ;\n", a.Name(), a.String())
		}
	}
	return nil
}
