package pdbx

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Compression selects the envelope of a written pdbx file.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionZstd
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionGzip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", int(c))
	}
}

// ParseCompression is the inverse of Compression.String.
func ParseCompression(s string) (Compression, error) {
	switch s {
	case "", "none":
		return CompressionNone, nil
	case "gzip":
		return CompressionGzip, nil
	case "zstd":
		return CompressionZstd, nil
	}
	return CompressionNone, fmt.Errorf("unknown compression %q", s)
}

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// detectCompression looks at the leading bytes of a pdbx file.
func detectCompression(head []byte) Compression {
	switch {
	case bytes.HasPrefix(head, gzipMagic):
		return CompressionGzip
	case bytes.HasPrefix(head, zstdMagic):
		return CompressionZstd
	default:
		return CompressionNone
	}
}

// readAll reads a pdbx file from r, decompressing it while reading. At most
// limit decoded bytes are accepted.
func readAll(r io.Reader, limit int64) ([]byte, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(zstdMagic))
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read pdbx data: %w", err)
	}

	c := detectCompression(head)
	var src io.Reader = br
	switch c {
	case CompressionGzip:
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		defer zr.Close()
		src = zr
	case CompressionZstd:
		zr, err := zstd.NewReader(br, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("create zstd reader: %w", err)
		}
		defer zr.Close()
		src = zr
	}

	data, err := io.ReadAll(io.LimitReader(src, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read %s pdbx data: %w", c, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: %s data larger than %d bytes", ErrTooLarge, c, limit)
	}
	return data, nil
}

func compress(w io.Writer, c Compression, data []byte) error {
	var wc io.WriteCloser
	switch c {
	case CompressionNone:
		_, err := w.Write(data)
		return err
	case CompressionGzip:
		wc = gzip.NewWriter(w)
	case CompressionZstd:
		enc, err := zstd.NewWriter(w)
		if err != nil {
			return fmt.Errorf("create zstd writer: %w", err)
		}
		wc = enc
	default:
		return fmt.Errorf("unsupported compression: %s", c)
	}
	if _, err := wc.Write(data); err != nil {
		_ = wc.Close()
		return fmt.Errorf("%s: %w", c, err)
	}
	return wc.Close()
}
