// =================================================================
//
// Work of the U.S. Department of Defense, Defense Digital Service.
// Released as open source under the MIT License.  See LICENSE file.
//
// =================================================================

package server

import (
	"bytes"
	"errors"
	"io/fs"
	"net/http"
	"time"

	"github.com/deptofdefense/evfs/pkg/driver"
	"github.com/deptofdefense/evfs/pkg/evfs"
	"github.com/deptofdefense/evfs/pkg/log"
	"github.com/deptofdefense/evfs/pkg/template"
)

// Handler serves the files of an evfs over HTTP.  The root path renders the mount index, if any.
type Handler struct {
	fs      *evfs.Evfs
	logger  log.Logger
	index   template.Template
	version string
	started time.Time
}

// StatusCode returns the HTTP status code for an error returned by a load.
func StatusCode(err error) int {
	switch driver.KindOf(err) {
	case driver.KindInvalidMount, driver.KindPathNotFound, driver.KindNotFile:
		return http.StatusNotFound
	case driver.KindDecompressorNotFound:
		return http.StatusUnsupportedMediaType
	case driver.KindClosed:
		return http.StatusServiceUnavailable
	}
	if errors.Is(err, fs.ErrNotExist) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func (h *Handler) serveIndex(w http.ResponseWriter, r *http.Request) {
	entries := []template.MountEntry{}
	for _, m := range h.fs.Mounts() {
		entries = append(entries, template.MountEntry{
			Target: m.Target,
			Source: m.Source,
			Driver: m.Driver.Name(),
		})
	}
	buf := bytes.NewBuffer([]byte{})
	err := h.index.Execute(buf, map[string]interface{}{
		"Mounts":  entries,
		"Version": h.version,
	})
	if err != nil {
		_ = h.logger.Log("Error rendering mount index", map[string]interface{}{
			"error": err.Error(),
		})
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	ServeContent(w, r, "/index.html", buf.Bytes(), h.started, false)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	trimmedPath := TrimTrailingForwardSlash(CleanPath(r.URL.Path))

	if !CheckPath(trimmedPath) {
		_ = h.logger.Log("Invalid path", map[string]interface{}{
			"url":  r.URL.String(),
			"path": trimmedPath,
		})
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if trimmedPath == "/" && h.index != nil {
		h.serveIndex(w, r)
		return
	}

	handle := h.fs.LoadFileContext(r.Context(), trimmedPath)
	defer handle.Close()

	_ = h.logger.Log("Request", map[string]interface{}{
		"url":      r.URL.String(),
		"source":   r.RemoteAddr,
		"method":   r.Method,
		"path":     trimmedPath,
		"trace_id": handle.ID(),
	})

	data, err := handle.Wait(nil)
	if err != nil {
		code := StatusCode(err)
		_ = h.logger.Log("Error loading file", map[string]interface{}{
			"path":     trimmedPath,
			"trace_id": handle.ID(),
			"status":   code,
			"error":    err.Error(),
		})
		http.Error(w, http.StatusText(code), code)
		return
	}

	_, download := r.URL.Query()["download"]
	ServeContent(w, r, trimmedPath, data, h.started, download)
}

// NewHandler returns a handler loading files from fs.  If index is nil, the root path is loaded like any other path.
func NewHandler(fs *evfs.Evfs, logger log.Logger, index template.Template, version string) *Handler {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Handler{
		fs:      fs,
		logger:  logger,
		index:   index,
		version: version,
		started: time.Now(),
	}
}
