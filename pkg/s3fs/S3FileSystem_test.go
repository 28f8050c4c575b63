// =================================================================
//
// Work of the U.S. Department of Defense, Defense Digital Service.
// Released as open source under the MIT License.  See LICENSE file.
//
// =================================================================

package s3fs_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deptofdefense/evfs/pkg/driver"
	"github.com/deptofdefense/evfs/pkg/s3fs"
)

// fakeClient serves objects of a single bucket from memory and records ranged reads.
type fakeClient struct {
	objects map[string][]byte
	mu      sync.Mutex
	ranges  []string
}

func (c *fakeClient) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	data, ok := c.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{ContentLength: int64(len(data))}, nil
}

func (c *fakeClient) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := c.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	var start, end int
	if _, err := fmt.Sscanf(aws.ToString(params.Range), "bytes=%d-%d", &start, &end); err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.ranges = append(c.ranges, aws.ToString(params.Range))
	c.mu.Unlock()
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data[start : end+1]))}, nil
}

func (c *fakeClient) ListObjects(ctx context.Context, params *s3.ListObjectsInput, optFns ...func(*s3.Options)) (*s3.ListObjectsOutput, error) {
	output := &s3.ListObjectsOutput{}
	for key := range c.objects {
		if strings.HasPrefix(key, aws.ToString(params.Prefix)) {
			output.Contents = append(output.Contents, types.Object{Key: aws.String(key)})
		}
	}
	return output, nil
}

func TestParse(t *testing.T) {
	bucket, prefix, err := s3fs.Parse("s3://bucket/some/prefix/")
	require.NoError(t, err)
	assert.Equal(t, "bucket", bucket)
	assert.Equal(t, "some/prefix", prefix)

	bucket, prefix, err = s3fs.Parse("s3://bucket")
	require.NoError(t, err)
	assert.Equal(t, "bucket", bucket)
	assert.Empty(t, prefix)

	_, _, err = s3fs.Parse("s3://")
	assert.Error(t, err)
	_, _, err = s3fs.Parse("http://bucket")
	assert.Error(t, err)
}

func TestS3FileSystem(t *testing.T) {
	ctx := context.Background()
	big := bytes.Repeat([]byte("s3"), 50)
	client := &fakeClient{objects: map[string][]byte{
		"data/hello.txt":        []byte("hi\n"),
		"data/nested/big.bin":   big,
		"other/not-visible.txt": []byte("x"),
	}}
	template := s3fs.New(client, driver.ReadOptions{Threshold: 10, Chunks: 4})

	assert.NoError(t, template.CanMount("/s3", "s3://bucket/data"))
	assert.ErrorIs(t, template.CanMount("/s3", "/tmp"), driver.ErrUnsupportedMount)

	d, err := template.NewFromSource("s3://bucket/data")
	require.NoError(t, err)

	assert.Equal(t, driver.EntryTypeFile, d.HasEntry(ctx, "hello.txt"))
	assert.Equal(t, driver.EntryTypeDirectory, d.HasEntry(ctx, "nested"))
	assert.Equal(t, driver.EntryTypeDirectory, d.HasEntry(ctx, ""))
	assert.Equal(t, driver.EntryTypeNotFound, d.HasEntry(ctx, "not-visible.txt"))

	data, err := d.LoadFile(ctx, "hello.txt", driver.Discard)
	require.NoError(t, err)
	assert.Equal(t, []byte("hi\n"), data)

	fractions := []float32{}
	data, err = d.LoadFile(ctx, "nested/big.bin", driver.ProgressFunc(func(f float32) error {
		fractions = append(fractions, f)
		return nil
	}))
	require.NoError(t, err)
	assert.Equal(t, big, data)
	assert.Equal(t, []float32{0, 0.25, 0.5, 0.75, 1}, fractions)
	assert.Contains(t, client.ranges, "bytes=75-99")

	_, err = d.LoadFile(ctx, "missing.txt", driver.Discard)
	assert.ErrorIs(t, err, driver.ErrFile)
	assert.ErrorIs(t, err, fs.ErrNotExist)

	assert.True(t, d.SupportsFileExt("x.zip"))
	_, err = d.NewFromBlob(nil)
	assert.ErrorIs(t, err, driver.ErrBlobUnsupported)
}
