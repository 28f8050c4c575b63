// =================================================================
//
// Work of the U.S. Department of Defense, Defense Digital Service.
// Released as open source under the MIT License.  See LICENSE file.
//
// =================================================================

package mount

import (
	"strings"
)

// parent strips the last segment of an absolute path, returning "/" for top level paths.
func parent(p string) string {
	i := strings.LastIndex(p, "/")
	if i <= 0 {
		return "/"
	}
	return p[:i]
}

// Suffix returns the part of p below target, without the separating slash.
func Suffix(p string, target string) string {
	return strings.TrimPrefix(strings.TrimPrefix(p, target), "/")
}

// Lookup returns the mount owning the virtual path p and the driver relative suffix.
// Prefixes of p are tried from the full path down to "/".  At each prefix the
// most recently added mount with an equal target wins.
func Lookup(mounts []Mount, p string) (Mount, string, bool) {
	if !strings.HasPrefix(p, "/") {
		return Mount{}, "", false
	}
	prefix := p
	for {
		for i := len(mounts) - 1; i >= 0; i-- {
			if mounts[i].Target == prefix {
				return mounts[i], Suffix(p, prefix), true
			}
		}
		if prefix == "/" {
			return Mount{}, "", false
		}
		prefix = parent(prefix)
	}
}
