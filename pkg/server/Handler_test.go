// =================================================================
//
// Work of the U.S. Department of Defense, Defense Digital Service.
// Released as open source under the MIT License.  See LICENSE file.
//
// =================================================================

package server_test

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deptofdefense/evfs/pkg/driver"
	"github.com/deptofdefense/evfs/pkg/evfs"
	"github.com/deptofdefense/evfs/pkg/lfs"
	"github.com/deptofdefense/evfs/pkg/server"
	"github.com/deptofdefense/evfs/pkg/template"
	"github.com/deptofdefense/evfs/pkg/zipfs"
)

func TestCheckPath(t *testing.T) {
	assert.True(t, server.CheckPath("/"))
	assert.True(t, server.CheckPath("/data/bundle.zip/readme.md"))
	assert.False(t, server.CheckPath("/data/../etc/passwd"))
	assert.False(t, server.CheckPath("/data/./file"))
	assert.False(t, server.CheckPath("/data//file"))
	assert.False(t, server.CheckPath("data/file"))

	assert.Equal(t, "/a/", server.CleanPath("a/"))
	assert.Equal(t, "/a", server.TrimTrailingForwardSlash("/a/"))
	assert.Equal(t, "/", server.TrimTrailingForwardSlash("/"))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/html; charset=utf-8", server.ContentType("/index.html", []byte("x")))
	assert.Equal(t, "image/png", server.ContentType("/image", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}))
	assert.Empty(t, server.ContentType("/unknown", []byte("plain")))
}

func TestHandler(t *testing.T) {
	dir := t.TempDir()
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	w, err := zw.Create("docs/readme.md")
	require.NoError(t, err)
	_, err = w.Write([]byte("# evfs"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bundle.zip"), buf.Bytes(), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hello.txt"), []byte("hi\n"), 0o644))

	options := driver.DefaultReadOptions()
	e, err := evfs.New(&evfs.Config{
		Drivers: []driver.Driver{
			lfs.New(afero.NewOsFs(), options),
			zipfs.New(afero.NewOsFs(), options),
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = e.Close()
	})
	require.NoError(t, e.Mount("/data", dir))

	index, err := template.DefaultMountIndex()
	require.NoError(t, err)
	s := httptest.NewServer(server.NewHandler(e, nil, index, "1.0.0"))
	t.Cleanup(s.Close)

	get := func(p string) (int, http.Header, string) {
		resp, err := http.Get(s.URL + p)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, resp.Header, string(body)
	}

	testCases := []struct {
		name   string
		path   string
		status int
		body   string
	}{
		{name: "File", path: "/data/hello.txt", status: http.StatusOK, body: "hi\n"},
		{name: "Archive", path: "/data/bundle.zip/docs/readme.md", status: http.StatusOK, body: "# evfs"},
		{name: "Missing", path: "/data/missing.txt", status: http.StatusNotFound},
		{name: "Directory", path: "/data/bundle.zip/docs", status: http.StatusNotFound},
		{name: "NoMount", path: "/other/file", status: http.StatusNotFound},
		{name: "Unsupported", path: "/data/hello.txt/inner", status: http.StatusUnsupportedMediaType},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			status, _, body := get(testCase.path)
			assert.Equal(t, testCase.status, status)
			if testCase.status == http.StatusOK {
				assert.Equal(t, testCase.body, body)
			}
		})
	}

	t.Run("Index", func(t *testing.T) {
		status, header, body := get("/")
		assert.Equal(t, http.StatusOK, status)
		assert.Contains(t, header.Get("Content-Type"), "text/html")
		source, err := filepath.EvalSymlinks(dir)
		require.NoError(t, err)
		assert.Contains(t, body, source)
	})

	t.Run("Download", func(t *testing.T) {
		status, header, _ := get("/data/hello.txt?download")
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, `attachment; filename="hello.txt"`, header.Get("Content-Disposition"))
	})

	t.Run("Method", func(t *testing.T) {
		resp, err := http.Post(s.URL+"/data/hello.txt", "text/plain", nil)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})
}
