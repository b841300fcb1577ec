package netcdf3

// FileOption configures file creation.
type FileOption func(*fileOptions)

type fileOptions struct {
	version Version
	reserve int64
}

func defaultFileOptions() *fileOptions {
	return &fileOptions{version: Classic}
}

// WithVersion selects the on-disk variant. The default is Classic.
func WithVersion(v Version) FileOption {
	return func(o *fileOptions) {
		if v == Classic || v == Offset64Bit {
			o.version = v
		}
	}
}

// WithHeaderReserve pads the header with zero bytes up to at least n
// bytes, so the schema can later be rewritten in place without moving
// variable data.
func WithHeaderReserve(n int) FileOption {
	return func(o *fileOptions) {
		if n > 0 {
			o.reserve = int64(n)
		}
	}
}
