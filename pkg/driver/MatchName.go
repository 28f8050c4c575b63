// =================================================================
//
// Work of the U.S. Department of Defense, Defense Digital Service.
// Released as open source under the MIT License.  See LICENSE file.
//
// =================================================================

package driver

import (
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ArchivePatterns match the names of the container formats the built-in archive drivers open.
var ArchivePatterns = []string{
	"*.zip",
	"*.tar",
	"*.tar.{gz,zst,lz4,bz2}",
	"*.{tgz,tzst,tbz2}",
	"*.cpio",
	"*.cpio.{gz,zst}",
}

// MatchName returns true if the base name of p matches any of the glob patterns.
// Matching is case-insensitive, so "*.zip" matches "BUNDLE.ZIP".
func MatchName(p string, patterns ...string) bool {
	name := strings.ToLower(path.Base(strings.TrimSuffix(p, "/")))
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}
