// =================================================================
//
// Work of the U.S. Department of Defense, Defense Digital Service.
// Released as open source under the MIT License.  See LICENSE file.
//
// =================================================================

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deptofdefense/evfs/pkg/log"
)

func newViper(t *testing.T, initFlags func(cmd *cobra.Command), args ...string) *viper.Viper {
	cmd := &cobra.Command{Use: "test"}
	initFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	v, err := initViper(cmd)
	require.NoError(t, err)
	return v
}

func loadFlags(cmd *cobra.Command) {
	initLoadFlags(cmd.Flags())
}

func serveFlags(cmd *cobra.Command) {
	initServeFlags(cmd.Flags())
}

func TestCheckConfig(t *testing.T) {
	assert.NoError(t, checkConfig(newViper(t, loadFlags)))
	assert.Error(t, checkConfig(newViper(t, loadFlags, "--mounts", "{}")))
	assert.Error(t, checkConfig(newViper(t, loadFlags, "--mounts-file", "mounts.ini")))
	assert.Error(t, checkConfig(newViper(t, loadFlags, "--workers", "0")))
	assert.Error(t, checkConfig(newViper(t, loadFlags, "--stream-chunks", "0")))
	assert.Error(t, checkConfig(newViper(t, loadFlags, "--log-level", "loud")))

	assert.NoError(t, checkServeConfig(newViper(t, serveFlags)))
	assert.Error(t, checkServeConfig(newViper(t, serveFlags, "--server-cert", "server.crt")))
	assert.Error(t, checkServeConfig(newViper(t, serveFlags, "--timeout-read", "1s")))
	assert.Error(t, checkServeConfig(newViper(t, serveFlags, "--tls-min-version", "1.0")))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("b"), 0o600))
	mountsFile := filepath.Join(dir, "mounts.toml")
	require.NoError(t, os.WriteFile(mountsFile, []byte("[[mounts]]\ntarget = \"/first\"\nsource = \""+dir+"\"\n"), 0o600))

	v := newViper(t, loadFlags,
		"--mounts-file", mountsFile,
		"--mounts", `[["/second", "`+dir+`"]]`,
	)
	require.NoError(t, checkConfig(v))

	configs, err := initMounts(v)
	require.NoError(t, err)
	require.Len(t, configs, 2)
	assert.Equal(t, "/first", configs[0].Target)
	assert.Equal(t, "/second", configs[1].Target)

	e, err := initEvfs(v, log.NewNopLogger())
	require.NoError(t, err)
	defer func() { _ = e.Close() }()
	assert.Len(t, e.Mounts(), 2)
	assert.Len(t, e.Drivers(), 5)

	results, err := loadFiles(context.Background(), e, log.NewNopLogger(), []string{"/first/a.txt", "/second/b.txt", "/first/b.txt"}, 2)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("a"), []byte("b"), []byte("b")}, results)

	_, err = loadFiles(context.Background(), e, log.NewNopLogger(), []string{"/first/a.txt", "/missing/c.txt"}, 1)
	assert.Error(t, err)
}

func TestS3Driver(t *testing.T) {
	v := newViper(t, loadFlags, "--mounts", `[["/bucket", "s3://bucket/prefix"]]`, "--aws-region", "us-east-1")
	configs, err := initMounts(v)
	require.NoError(t, err)
	drivers, err := initDrivers(v, configs)
	require.NoError(t, err)
	require.Len(t, drivers, 6)
	assert.Equal(t, "s3", drivers[5].Name())
}
