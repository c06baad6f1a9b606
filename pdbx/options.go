package pdbx

// DefaultMaxSize is the largest decoded pdbx file accepted by Decode
// unless WithMaxSize says otherwise.
const DefaultMaxSize int64 = 512 << 20

// Option configures reading or writing of pdbx files.
type Option func(*options)

type options struct {
	crc         bool // Enable CRC checking
	compression Compression
	maxSize     int64
}

func newOptions(opt []Option) options {
	o := options{maxSize: DefaultMaxSize}
	for _, fn := range opt {
		fn(&o)
	}
	return o
}

// WithCRC enables CRC checking when decoding pdbx files.
func WithCRC() Option {
	return func(o *options) {
		o.crc = true
	}
}

// WithCompression compresses written pdbx files.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithMaxSize limits the decompressed size of decoded pdbx files.
// Non-positive values keep DefaultMaxSize.
func WithMaxSize(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxSize = n
		}
	}
}
