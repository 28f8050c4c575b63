// =================================================================
//
// Work of the U.S. Department of Defense, Defense Digital Service.
// Released as open source under the MIT License.  See LICENSE file.
//
// =================================================================

package server

import (
	"path"
	"strings"
)

// CheckPath returns true if the given path is ok, which means the path is absolute and contains no "." or ".." path elements.
func CheckPath(p string) bool {
	// If the path includes a "." or ".." element or repeated slashes, path.Clean will return a different string.
	return strings.HasPrefix(p, "/") && p == path.Clean(p)
}

// CleanPath returns the path with a leading forward slash.  It does not resolve "." or ".." elements.
func CleanPath(p string) string {
	if !strings.HasPrefix(p, "/") {
		return "/" + p
	}
	return p
}

// TrimTrailingForwardSlash removes a trailing forward slash from every path other than "/".
func TrimTrailingForwardSlash(p string) string {
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		return p[:len(p)-1]
	}
	return p
}
