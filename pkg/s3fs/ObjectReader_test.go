// =================================================================
//
// Work of the U.S. Department of Defense, Defense Digital Service.
// Released as open source under the MIT License.  See LICENSE file.
//
// =================================================================

package s3fs_test

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deptofdefense/evfs/pkg/s3fs"
)

func TestObjectReader(t *testing.T) {
	client := &fakeClient{objects: map[string][]byte{"key": []byte("0123456789")}}
	r := s3fs.NewObjectReader(context.Background(), client, "bucket", "key", 10)

	p := make([]byte, 4)
	n, err := r.Read(p)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte("0123"), p)

	offset, err := r.Seek(-2, io.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(8), offset)
	n, err = r.Read(p)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []byte("89"), p[:n])
	_, err = r.Read(p)
	assert.Equal(t, io.EOF, err)

	n, err = r.ReadAt(p, 7)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []byte("789"), p[:n])

	_, err = r.Seek(-1, io.SeekStart)
	assert.Error(t, err)

	data, err := io.ReadAll(io.NewSectionReader(r, 2, 5))
	require.NoError(t, err)
	assert.Equal(t, []byte("23456"), data)
	assert.Equal(t, []string{"bytes=0-3", "bytes=8-9", "bytes=7-9"}, client.ranges[:3])
}
