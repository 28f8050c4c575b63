// =================================================================
//
// Work of the U.S. Department of Defense, Defense Digital Service.
// Released as open source under the MIT License.  See LICENSE file.
//
// =================================================================

package archive

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"errors"
	"fmt"
	"io"

	"github.com/h2non/filetype"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies a whole-stream compression format.
type Compression string

const (
	CompressionNone  Compression = "none"
	CompressionGzip  Compression = "gzip"
	CompressionZstd  Compression = "zstd"
	CompressionLZ4   Compression = "lz4"
	CompressionBzip2 Compression = "bzip2"
)

var (
	lz4FrameMagic = []byte{0x04, 0x22, 0x4d, 0x18}
	zstdMagic     = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// DetectCompression inspects the leading bytes of data.
func DetectCompression(data []byte) Compression {
	switch {
	case filetype.Is(data, "gz"):
		return CompressionGzip
	case filetype.Is(data, "zst") || bytes.HasPrefix(data, zstdMagic):
		return CompressionZstd
	case filetype.Is(data, "bz2"):
		return CompressionBzip2
	case bytes.HasPrefix(data, lz4FrameMagic):
		return CompressionLZ4
	}
	return CompressionNone
}

// NewReader returns a reader that decompresses r according to c.
func NewReader(r io.Reader, c Compression) (io.ReadCloser, error) {
	switch c {
	case CompressionNone:
		return io.NopCloser(r), nil
	case CompressionGzip:
		gr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("error creating gzip reader: %w", err)
		}
		return gr, nil
	case CompressionZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("error creating zstd reader: %w", err)
		}
		return zr.IOReadCloser(), nil
	case CompressionLZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	case CompressionBzip2:
		return io.NopCloser(bzip2.NewReader(r)), nil
	}
	return nil, fmt.Errorf("unsupported compression %q", c)
}

// sniffLen covers the longest header filetype inspects.
const sniffLen = 262

// OpenStream returns a reader over the decompressed contents of r, detecting the compression from its leading bytes.
func OpenStream(r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReaderSize(r, sniffLen)
	head, err := br.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("error reading stream header: %w", err)
	}
	return NewReader(br, DetectCompression(head))
}
