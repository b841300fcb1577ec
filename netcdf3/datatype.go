package netcdf3

import "github.com/ncio/go-netcdf3/internal/nctype"

// DataType identifies one of the six element types of the classic
// format. Its String method yields the NetCDF C API name ("NC_BYTE",
// "NC_CHAR", ...).
type DataType = nctype.Type

// The six supported element types.
const (
	Byte   DataType = nctype.Byte   // 8-bit signed integer
	Char   DataType = nctype.Char   // 8-bit character
	Short  DataType = nctype.Short  // 16-bit signed integer
	Int    DataType = nctype.Int    // 32-bit signed integer
	Float  DataType = nctype.Float  // 32-bit IEEE float
	Double DataType = nctype.Double // 64-bit IEEE float
)

// Default fill values: the value read back from positions never
// explicitly written.
const (
	FillByte   = nctype.FillByte
	FillChar   = nctype.FillChar
	FillShort  = nctype.FillShort
	FillInt    = nctype.FillInt
	FillFloat  = nctype.FillFloat
	FillDouble = nctype.FillDouble
)

// Version selects the on-disk variant: the two differ only in the
// byte width of variable begin offsets (4 vs 8 bytes).
type Version byte

const (
	// Classic is the CDF-1 variant with 32-bit offsets.
	Classic Version = 1
	// Offset64Bit is the CDF-2 variant with 64-bit offsets, for files
	// larger than ~2 GiB.
	Offset64Bit Version = 2
)

// String renders the version as "classic" or "64-bit offset".
func (v Version) String() string {
	switch v {
	case Classic:
		return "classic"
	case Offset64Bit:
		return "64-bit offset"
	}
	return "unknown"
}
