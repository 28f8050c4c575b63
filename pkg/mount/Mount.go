// =================================================================
//
// Work of the U.S. Department of Defense, Defense Digital Service.
// Released as open source under the MIT License.  See LICENSE file.
//
// =================================================================

// Package mount provides the mount table of an evfs and the lookup of the mount owning a virtual path.
package mount

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/deptofdefense/evfs/pkg/driver"
)

// Mount binds a driver instance to a virtual target.
type Mount struct {
	Target string
	Source string
	Driver driver.Driver
}

func (m Mount) String() string {
	name := ""
	if m.Driver != nil {
		name = m.Driver.Name()
	}
	return fmt.Sprintf("%s -> %s (%s)", m.Target, m.Source, name)
}

// CleanTarget validates a mount target and trims trailing slashes from targets other than "/".
func CleanTarget(target string) (string, error) {
	if !strings.HasPrefix(target, "/") {
		return "", driver.NewError(driver.KindInvalidRootPath, target, nil)
	}
	if trimmed := strings.TrimRight(target, "/"); len(trimmed) > 0 {
		return trimmed, nil
	}
	return "/", nil
}

// IsURL returns true if the source names a remote location, such as https://example.com or s3://bucket.
func IsURL(source string) bool {
	return strings.Contains(source, "://")
}

// Canonicalize returns the canonical form of a mount source.
// The empty string is the working directory, URLs are returned as is, and
// local paths are made absolute with symbolic links resolved.
func Canonicalize(source string) (string, error) {
	if len(source) == 0 {
		wd, err := os.Getwd()
		if err != nil {
			return "", driver.NewFileError(source, fmt.Errorf("error getting working directory: %w", err))
		}
		return wd, nil
	}
	if IsURL(source) {
		return source, nil
	}
	abs, err := filepath.Abs(source)
	if err != nil {
		return "", driver.NewFileError(source, fmt.Errorf("error resolving absolute path: %w", err))
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", driver.NewFileError(source, fmt.Errorf("error resolving symbolic links: %w", err))
	}
	return resolved, nil
}
