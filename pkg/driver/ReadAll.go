// =================================================================
//
// Work of the U.S. Department of Defense, Defense Digital Service.
// Released as open source under the MIT License.  See LICENSE file.
//
// =================================================================

package driver

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// ReadAll reads size bytes from r following the streaming read policy and reports progress.
// A negative size means the length is unknown and r is read until EOF in one pass.
// The declared size only drives progress; the buffer grows with the bytes actually read,
// and a stream that is shorter or longer than size is an error.
func ReadAll(r io.Reader, size int64, options ReadOptions, progress ProgressSender) ([]byte, error) {
	options = options.Normalize()

	if err := progress.SendProgress(0.0); err != nil {
		return nil, err
	}

	if size < 0 {
		return io.ReadAll(r)
	}

	buf := &bytes.Buffer{}
	buf.Grow(int(min(size, options.Threshold)))

	if size < options.Threshold || size < int64(options.Chunks) {
		if err := readN(buf, r, size, size); err != nil {
			return nil, err
		}
	} else {
		chunks := int64(options.Chunks)
		blockSize := size / chunks
		for i := int64(0); i < chunks; i++ {
			n := blockSize
			// last chunk takes the remainder
			if i == chunks-1 {
				n = size - i*blockSize
			}
			if err := readN(buf, r, n, size); err != nil {
				return nil, err
			}
			if err := progress.SendProgress(float32(i+1) / float32(chunks)); err != nil {
				return nil, err
			}
		}
	}

	extra, err := io.CopyN(io.Discard, r, 1)
	if extra > 0 {
		return nil, fmt.Errorf("error reading stream: more than the declared %d bytes", size)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("error reading stream: %w", err)
	}

	return buf.Bytes(), nil
}

func readN(buf *bytes.Buffer, r io.Reader, n int64, size int64) error {
	if _, err := io.CopyN(buf, r, n); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return fmt.Errorf("error reading stream: %d of %d bytes read: %w", buf.Len(), size, err)
	}
	return nil
}
