// =================================================================
//
// Work of the U.S. Department of Defense, Defense Digital Service.
// Released as open source under the MIT License.  See LICENSE file.
//
// =================================================================

package s3fs

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var errNegativeOffset = errors.New("negative offset")

// ObjectReader reads an object of known size with one ranged GetObject request per Read or ReadAt.
// A Read never requests bytes past the end of the object.
type ObjectReader struct {
	ctx    context.Context
	client Client
	bucket string
	key    string
	offset int64
	size   int64
}

var (
	_ io.ReadSeeker = (*ObjectReader)(nil)
	_ io.ReaderAt   = (*ObjectReader)(nil)
)

func (r *ObjectReader) Size() int64 {
	return r.size
}

// ReadAt fills p with the bytes starting at off.  It does not move the offset used by Read.
func (r *ObjectReader) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errNegativeOffset
	}
	if off >= r.size {
		return 0, io.EOF
	}
	short := false
	if remaining := r.size - off; int64(len(p)) > remaining {
		p = p[:remaining]
		short = true
	}
	if len(p) == 0 {
		return 0, nil
	}
	getObjectOutput, err := r.client.GetObject(r.ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", off, off+int64(len(p))-1)),
	})
	if err != nil {
		return 0, fmt.Errorf("error getting range of object %q: %w", r.key, err)
	}
	defer getObjectOutput.Body.Close()
	n, err := io.ReadFull(getObjectOutput.Body, p)
	if err != nil {
		return n, fmt.Errorf("error reading range of object %q: %w", r.key, err)
	}
	if short {
		return n, io.EOF
	}
	return n, nil
}

func (r *ObjectReader) Read(p []byte) (int, error) {
	if r.offset >= r.size {
		return 0, io.EOF
	}
	if remaining := r.size - r.offset; int64(len(p)) > remaining {
		p = p[:remaining]
	}
	n, err := r.ReadAt(p, r.offset)
	r.offset += int64(n)
	if errors.Is(err, io.EOF) && n > 0 {
		err = nil
	}
	return n, err
}

func (r *ObjectReader) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		offset += r.offset
	case io.SeekEnd:
		offset += r.size
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	if offset < 0 {
		return 0, errNegativeOffset
	}
	r.offset = offset
	return r.offset, nil
}

func NewObjectReader(ctx context.Context, client Client, bucket string, key string, size int64) *ObjectReader {
	return &ObjectReader{
		ctx:    ctx,
		client: client,
		bucket: bucket,
		key:    key,
		size:   size,
	}
}
