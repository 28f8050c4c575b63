// =================================================================
//
// Work of the U.S. Department of Defense, Defense Digital Service.
// Released as open source under the MIT License.  See LICENSE file.
//
// =================================================================

package server

import (
	"bytes"
	"fmt"
	"mime"
	"net/http"
	"path"
	"time"

	"github.com/h2non/filetype"
)

// ContentType returns the media type for the named content, by extension and then by magic number.
// It returns an empty string if neither is known, leaving the decision to http.ServeContent.
func ContentType(name string, content []byte) string {
	if t := mime.TypeByExtension(path.Ext(name)); len(t) > 0 {
		return t
	}
	if kind, err := filetype.Match(content); err == nil && kind != filetype.Unknown {
		return kind.MIME.Value
	}
	return ""
}

func ServeContent(w http.ResponseWriter, r *http.Request, p string, content []byte, modtime time.Time, download bool) {
	w.Header().Set("Cache-Control", "no-cache")
	if t := ContentType(p, content); len(t) > 0 {
		w.Header().Set("Content-Type", t)
	}
	if download {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", path.Base(p)))
	}
	http.ServeContent(w, r, path.Base(p), modtime, bytes.NewReader(content))
}
