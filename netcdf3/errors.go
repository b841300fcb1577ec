// Package netcdf3 reads and writes NetCDF classic files: the CDF-1
// ("classic") and CDF-2 ("64-bit offset") binary variants.
package netcdf3

import (
	"errors"

	"github.com/ncio/go-netcdf3/internal/header"
	"github.com/ncio/go-netcdf3/internal/layout"
	"github.com/ncio/go-netcdf3/internal/nctype"
)

// Common errors
var (
	// ErrNotCDF reports a missing or unsupported magic number.
	ErrNotCDF = header.ErrNotCDF
	// ErrMalformedHeader reports structurally invalid header bytes:
	// bad list tags, out-of-range dimension references, duplicate
	// names, more than one unlimited dimension, or truncated input.
	ErrMalformedHeader = header.ErrMalformed
	// ErrUnknownType reports a type tag outside the six defined types.
	ErrUnknownType = nctype.ErrUnknownTag
	// ErrRange reports indices outside a variable's declared extent.
	ErrRange = layout.ErrRange
	// ErrTooLargeForClassic reports a layout whose offsets do not fit
	// the 32-bit begins of the classic variant.
	ErrTooLargeForClassic = layout.ErrClassicOverflow

	// ErrSchema reports an invalid definition: bad or duplicate name,
	// a second unlimited dimension, an unresolvable dimension
	// reference, or the record dimension used other than outermost.
	ErrSchema = errors.New("invalid schema")
	// ErrSchemaFrozen reports a definition attempted after the first
	// data write.
	ErrSchemaFrozen = errors.New("schema is frozen")
	// ErrNotFound reports a name that resolves to no dimension,
	// variable or attribute.
	ErrNotFound = errors.New("not found")
	// ErrClosed reports use of a closed file.
	ErrClosed = errors.New("file is closed")
)
