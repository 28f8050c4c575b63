// =================================================================
//
// Work of the U.S. Department of Defense, Defense Digital Service.
// Released as open source under the MIT License.  See LICENSE file.
//
// =================================================================

package mount_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deptofdefense/evfs/pkg/driver"
	"github.com/deptofdefense/evfs/pkg/mount"
)

func TestLookup(t *testing.T) {
	mounts := []mount.Mount{
		{Target: "/", Source: "root"},
		{Target: "/data", Source: "data-1"},
		{Target: "/data/archive.zip", Source: "zip"},
		{Target: "/data", Source: "data-2"},
	}

	testCases := []struct {
		name   string
		path   string
		source string
		suffix string
		ok     bool
	}{
		{name: "Root", path: "/readme.txt", source: "root", suffix: "readme.txt", ok: true},
		{name: "RootItself", path: "/", source: "root", suffix: "", ok: true},
		{name: "Overlay", path: "/data/file.txt", source: "data-2", suffix: "file.txt", ok: true},
		{name: "Nested", path: "/data/dir/file.txt", source: "data-2", suffix: "dir/file.txt", ok: true},
		{name: "FullPath", path: "/data/archive.zip", source: "zip", suffix: "", ok: true},
		{name: "Longest", path: "/data/archive.zip/a/b.txt", source: "zip", suffix: "a/b.txt", ok: true},
		{name: "SimilarName", path: "/database/x", source: "root", suffix: "database/x", ok: true},
		{name: "TrailingSlash", path: "/data/", source: "data-2", suffix: "", ok: true},
		{name: "Relative", path: "data/file.txt", ok: false},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			m, suffix, ok := mount.Lookup(mounts, testCase.path)
			require.Equal(t, testCase.ok, ok)
			if ok {
				assert.Equal(t, testCase.source, m.Source)
				assert.Equal(t, testCase.suffix, suffix)
			}
		})
	}

	t.Run("NoMount", func(t *testing.T) {
		_, _, ok := mount.Lookup(mounts[1:2], "/other/file.txt")
		assert.False(t, ok)
		_, _, ok = mount.Lookup(nil, "/")
		assert.False(t, ok)
	})
}

func TestCleanTarget(t *testing.T) {
	target, err := mount.CleanTarget("/data/")
	require.NoError(t, err)
	assert.Equal(t, "/data", target)

	target, err = mount.CleanTarget("//")
	require.NoError(t, err)
	assert.Equal(t, "/", target)

	_, err = mount.CleanTarget("data")
	assert.ErrorIs(t, err, driver.ErrInvalidRootPath)
	_, err = mount.CleanTarget("")
	assert.ErrorIs(t, err, driver.ErrInvalidRootPath)
}

func TestCanonicalize(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)

	source, err := mount.Canonicalize("")
	require.NoError(t, err)
	assert.Equal(t, wd, source)

	source, err = mount.Canonicalize("https://example.com/files")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/files", source)

	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "real"), 0o755))
	require.NoError(t, os.Symlink(filepath.Join(dir, "real"), filepath.Join(dir, "link")))
	expected, err := filepath.EvalSymlinks(filepath.Join(dir, "real"))
	require.NoError(t, err)
	source, err = mount.Canonicalize(filepath.Join(dir, "link"))
	require.NoError(t, err)
	assert.Equal(t, expected, source)

	_, err = mount.Canonicalize(filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, driver.ErrFile)
}

func TestTable(t *testing.T) {
	table := mount.NewTable()
	table.Add(mount.Mount{Target: "/a", Source: "a"})
	snapshot := table.Snapshot()
	table.Add(mount.Mount{Target: "/b", Source: "b"})
	assert.Len(t, snapshot, 1)
	assert.Equal(t, 2, table.Len())
	assert.Equal(t, "/b", table.Snapshot()[1].Target)
}
