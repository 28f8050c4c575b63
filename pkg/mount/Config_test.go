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

	"github.com/deptofdefense/evfs/pkg/mount"
)

func TestParsePairs(t *testing.T) {
	configs, err := mount.ParsePairs(`[["/data", "/srv/data"], ["/remote", "https://example.com/files"]]`)
	require.NoError(t, err)
	assert.Equal(t, []mount.Config{
		{Target: "/data", Source: "/srv/data"},
		{Target: "/remote", Source: "https://example.com/files"},
	}, configs)

	configs, err = mount.ParsePairs("")
	require.NoError(t, err)
	assert.Empty(t, configs)

	_, err = mount.ParsePairs(`{"/data": "/srv/data"}`)
	assert.Error(t, err)
}

func TestParseConfig(t *testing.T) {
	expected := []mount.Config{
		{Target: "/", Source: ""},
		{Target: "/bucket", Source: "s3://bucket/prefix"},
	}

	testCases := []struct {
		format string
		data   string
	}{
		{
			format: mount.FormatJSON,
			data:   `{"mounts": [{"target": "/", "source": ""}, {"target": "/bucket", "source": "s3://bucket/prefix"}]}`,
		},
		{
			format: mount.FormatTOML,
			data: `
[[mounts]]
target = "/"
source = ""

[[mounts]]
target = "/bucket"
source = "s3://bucket/prefix"
`,
		},
		{
			format: mount.FormatYAML,
			data: `
mounts:
  - target: /
    source: ""
  - target: /bucket
    source: s3://bucket/prefix
`,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.format, func(t *testing.T) {
			configs, err := mount.ParseConfig([]byte(testCase.data), testCase.format)
			require.NoError(t, err)
			assert.Equal(t, expected, configs)
		})
	}

	_, err := mount.ParseConfig([]byte(`{"mounts": [{"source": "/srv"}]}`), mount.FormatJSON)
	assert.Error(t, err)
	_, err = mount.ParseConfig([]byte("mounts = ["), mount.FormatTOML)
	assert.Error(t, err)
	_, err = mount.ParseConfig([]byte("{}"), "ini")
	assert.Error(t, err)
}

func TestReadConfigFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "mounts.YML")
	require.NoError(t, os.WriteFile(p, []byte("mounts:\n  - target: /data\n    source: /srv/data\n"), 0o600))
	configs, err := mount.ReadConfigFile(p)
	require.NoError(t, err)
	assert.Equal(t, []mount.Config{{Target: "/data", Source: "/srv/data"}}, configs)

	_, err = mount.ReadConfigFile(filepath.Join(t.TempDir(), "mounts.ini"))
	assert.Error(t, err)
	_, err = mount.ReadConfigFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
