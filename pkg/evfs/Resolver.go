// =================================================================
//
// Work of the U.S. Department of Defense, Defense Digital Service.
// Released as open source under the MIT License.  See LICENSE file.
//
// =================================================================

package evfs

import (
	"context"
	"strings"

	"github.com/deptofdefense/evfs/pkg/driver"
)

// FindEntry returns the longest prefix of suffix that the driver reports as a file.
// The suffix is probed first and then shorter prefixes, stripping one trailing segment at a time.
// The driver root is only probed when suffix is empty.
func FindEntry(ctx context.Context, d driver.Driver, suffix string) (string, error) {
	candidate := suffix
	for {
		switch d.HasEntry(ctx, candidate) {
		case driver.EntryTypeFile:
			return candidate, nil
		case driver.EntryTypeDirectory:
			return "", driver.NewError(driver.KindNotFile, candidate, nil)
		}
		i := strings.LastIndex(candidate, "/")
		if i <= 0 {
			return "", driver.NewError(driver.KindPathNotFound, suffix, nil)
		}
		candidate = candidate[:i]
	}
}

// FindDriver returns a driver bound to blob, which was read from name.
// Templates are tried in registration order.  A template qualifies if it supports the
// extension of name or recognizes the content of blob, and is skipped if it cannot be
// instantiated from a blob.
func FindDriver(name string, blob []byte, templates []driver.Driver) (driver.Driver, error) {
	for _, t := range templates {
		if !t.SupportsFileExt(name) && !t.CanDecompress(blob) {
			continue
		}
		d, err := t.NewFromBlob(blob)
		if err != nil {
			continue
		}
		return d, nil
	}
	return nil, driver.NewError(driver.KindDecompressorNotFound, name, nil)
}
