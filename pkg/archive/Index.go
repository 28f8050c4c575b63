// =================================================================
//
// Work of the U.S. Department of Defense, Defense Digital Service.
// Released as open source under the MIT License.  See LICENSE file.
//
// =================================================================

// Package archive provides the in-memory entry index and decompression used by the stream archive drivers.
package archive

import (
	"path"
	"sort"
	"strings"

	"github.com/deptofdefense/evfs/pkg/driver"
)

// Index maps entry names of an unpacked archive to their contents.
// Directories are recorded when the archive lists them and implied by the names of nested files.
type Index struct {
	files map[string][]byte
	dirs  map[string]struct{}
}

// CleanName normalizes an archive entry name to a slash separated relative path without a trailing slash.
func CleanName(name string) string {
	name = strings.TrimPrefix(path.Clean("/"+name), "/")
	return name
}

func (idx *Index) addParents(name string) {
	for {
		name = path.Dir(name)
		if name == "." || name == "/" || len(name) == 0 {
			return
		}
		idx.dirs[name] = struct{}{}
	}
}

// AddFile records a regular file.  Later entries replace earlier ones with the same name.
func (idx *Index) AddFile(name string, data []byte) {
	if data == nil {
		data = []byte{}
	}
	idx.add(name, data)
}

// AddEntry records a regular file whose contents stay in the archive.
func (idx *Index) AddEntry(name string) {
	idx.add(name, nil)
}

func (idx *Index) add(name string, data []byte) {
	name = CleanName(name)
	if len(name) == 0 {
		return
	}
	idx.files[name] = data
	idx.addParents(name)
}

func (idx *Index) AddDir(name string) {
	name = CleanName(name)
	if len(name) == 0 {
		return
	}
	idx.dirs[name] = struct{}{}
	idx.addParents(name)
}

// Lookup classifies name.  The empty name is the archive root and always a directory.
func (idx *Index) Lookup(name string) driver.EntryType {
	name = CleanName(name)
	if len(name) == 0 {
		return driver.EntryTypeDirectory
	}
	if _, ok := idx.files[name]; ok {
		return driver.EntryTypeFile
	}
	if _, ok := idx.dirs[name]; ok {
		return driver.EntryTypeDirectory
	}
	return driver.EntryTypeNotFound
}

// File returns the contents of the named regular file.  It reports false for entries added without contents.
func (idx *Index) File(name string) ([]byte, bool) {
	data, ok := idx.files[CleanName(name)]
	return data, ok && data != nil
}

// Names returns the sorted names of all regular files.
func (idx *Index) Names() []string {
	names := make([]string, 0, len(idx.files))
	for name := range idx.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (idx *Index) Len() int {
	return len(idx.files)
}

func NewIndex() *Index {
	return &Index{
		files: map[string][]byte{},
		dirs:  map[string]struct{}{},
	}
}
