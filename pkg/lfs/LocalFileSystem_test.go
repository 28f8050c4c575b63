// =================================================================
//
// Work of the U.S. Department of Defense, Defense Digital Service.
// Released as open source under the MIT License.  See LICENSE file.
//
// =================================================================

package lfs_test

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deptofdefense/evfs/pkg/driver"
	"github.com/deptofdefense/evfs/pkg/lfs"
)

func newMemFs(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/root/subdir", 0755))
	require.NoError(t, afero.WriteFile(fs, "/root/hello.txt", []byte("hi\n"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/root/subdir/a.txt", []byte("a"), 0644))
	return fs
}

func TestCanMount(t *testing.T) {
	template := lfs.New(newMemFs(t), driver.DefaultReadOptions())

	assert.NoError(t, template.CanMount("/test", ""))
	assert.NoError(t, template.CanMount("/test", "/root"))
	assert.ErrorIs(t, template.CanMount("/test", "/root/hello.txt"), driver.ErrUnsupportedMount)
	assert.ErrorIs(t, template.CanMount("/test", "/missing"), driver.ErrFile)
}

func TestLocalFileSystem(t *testing.T) {
	ctx := context.Background()
	template := lfs.New(newMemFs(t), driver.DefaultReadOptions())

	d, err := template.NewFromSource("/root")
	require.NoError(t, err)
	assert.Equal(t, "/root", d.(*lfs.LocalFileSystem).Root())

	assert.Equal(t, driver.EntryTypeFile, d.HasEntry(ctx, "hello.txt"))
	assert.Equal(t, driver.EntryTypeDirectory, d.HasEntry(ctx, "subdir"))
	assert.Equal(t, driver.EntryTypeDirectory, d.HasEntry(ctx, ""))
	assert.Equal(t, driver.EntryTypeNotFound, d.HasEntry(ctx, "nope.txt"))
	assert.Equal(t, driver.EntryTypeNotFound, template.HasEntry(ctx, "hello.txt"))

	fractions := []float32{}
	data, err := d.LoadFile(ctx, "subdir/a.txt", driver.ProgressFunc(func(f float32) error {
		fractions = append(fractions, f)
		return nil
	}))
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), data)
	assert.Equal(t, []float32{0}, fractions)

	_, err = d.LoadFile(ctx, "nope.txt", driver.Discard)
	assert.ErrorIs(t, err, driver.ErrFile)

	_, err = d.LoadFile(ctx, "subdir", driver.Discard)
	assert.ErrorIs(t, err, driver.ErrNotFile)

	assert.True(t, d.SupportsFileExt("anything.bin"))
	assert.False(t, d.CanDecompress([]byte("PK\x03\x04")))

	_, err = d.NewFromBlob([]byte("x"))
	assert.ErrorIs(t, err, driver.ErrBlobUnsupported)
}

func TestLoadFileChunked(t *testing.T) {
	fs := newMemFs(t)
	content := make([]byte, 1000)
	for i := range content {
		content[i] = byte(i)
	}
	require.NoError(t, afero.WriteFile(fs, "/root/big.bin", content, 0644))

	template := lfs.New(fs, driver.ReadOptions{Threshold: 100, Chunks: 10})
	d, err := template.NewFromSource("/root")
	require.NoError(t, err)

	fractions := []float32{}
	data, err := d.LoadFile(context.Background(), "big.bin", driver.ProgressFunc(func(f float32) error {
		fractions = append(fractions, f)
		return nil
	}))
	require.NoError(t, err)
	assert.Equal(t, content, data)
	require.Len(t, fractions, 11)
	assert.Equal(t, float32(0), fractions[0])
	assert.InDelta(t, 1.0, fractions[10], 1e-6)
	for i := 1; i < len(fractions); i++ {
		assert.GreaterOrEqual(t, fractions[i], fractions[i-1])
	}
}
