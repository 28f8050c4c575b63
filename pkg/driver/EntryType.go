// =================================================================
//
// Work of the U.S. Department of Defense, Defense Digital Service.
// Released as open source under the MIT License.  See LICENSE file.
//
// =================================================================

package driver

// EntryType classifies a path inside a driver's source.
type EntryType int

const (
	EntryTypeNotFound EntryType = iota
	EntryTypeFile
	EntryTypeDirectory
)

func (t EntryType) String() string {
	switch t {
	case EntryTypeFile:
		return "file"
	case EntryTypeDirectory:
		return "directory"
	}
	return "not found"
}
