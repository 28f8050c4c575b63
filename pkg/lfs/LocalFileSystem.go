// =================================================================
//
// Work of the U.S. Department of Defense, Defense Digital Service.
// Released as open source under the MIT License.  See LICENSE file.
//
// =================================================================

// Package lfs provides the evfs driver for directories on the local file system.
package lfs

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/afero"

	"github.com/deptofdefense/evfs/pkg/driver"
)

const (
	DriverName = "local"
)

// LocalFileSystem reads files from a directory tree.
// The zero root of a template means the driver is not bound to a directory yet.
type LocalFileSystem struct {
	base    afero.Fs
	root    string
	fs      afero.Fs
	options driver.ReadOptions
}

var _ driver.Driver = (*LocalFileSystem)(nil)

func (lfs *LocalFileSystem) Name() string {
	return DriverName
}

// Root returns the directory the driver is bound to.
func (lfs *LocalFileSystem) Root() string {
	return lfs.root
}

// CanMount accepts the empty source, which denotes the current working directory, or any directory.
func (lfs *LocalFileSystem) CanMount(target string, source string) error {
	if len(source) == 0 {
		return nil
	}
	fi, err := lfs.base.Stat(source)
	if err != nil {
		return driver.NewFileError(source, err)
	}
	if !fi.IsDir() {
		return driver.NewUnsupportedMountError(source)
	}
	return nil
}

func (lfs *LocalFileSystem) NewFromSource(source string) (driver.Driver, error) {
	if len(source) == 0 {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("error getting working directory: %w", err)
		}
		source = wd
	}
	return &LocalFileSystem{
		base:    lfs.base,
		root:    source,
		fs:      afero.NewBasePathFs(afero.NewReadOnlyFs(lfs.base), source),
		options: lfs.options,
	}, nil
}

func (lfs *LocalFileSystem) NewFromBlob(blob []byte) (driver.Driver, error) {
	return nil, driver.ErrBlobUnsupported
}

func (lfs *LocalFileSystem) HasEntry(ctx context.Context, name string) driver.EntryType {
	if lfs.fs == nil {
		return driver.EntryTypeNotFound
	}
	fi, err := lfs.fs.Stat(name)
	if err != nil {
		return driver.EntryTypeNotFound
	}
	if fi.IsDir() {
		return driver.EntryTypeDirectory
	}
	return driver.EntryTypeFile
}

// SupportsFileExt returns true for every name, so the local driver acts as a fallback for directory-resident files.
func (lfs *LocalFileSystem) SupportsFileExt(name string) bool {
	return true
}

func (lfs *LocalFileSystem) CanDecompress(data []byte) bool {
	return false
}

func (lfs *LocalFileSystem) LoadFile(ctx context.Context, name string, progress driver.ProgressSender) ([]byte, error) {
	if lfs.fs == nil {
		return nil, driver.NewFileError(name, fmt.Errorf("driver is not bound to a directory"))
	}
	fi, err := lfs.fs.Stat(name)
	if err != nil {
		return nil, driver.NewFileError(name, err)
	}
	if fi.IsDir() {
		return nil, driver.NewError(driver.KindNotFile, name, nil)
	}
	f, err := lfs.fs.Open(name)
	if err != nil {
		return nil, driver.NewFileError(name, err)
	}
	defer f.Close()
	data, err := driver.ReadAll(f, fi.Size(), lfs.options, progress)
	if err != nil {
		return nil, driver.NewFileError(name, err)
	}
	return data, nil
}

// New returns a local file system template reading through base, usually afero.NewOsFs().
func New(base afero.Fs, options driver.ReadOptions) *LocalFileSystem {
	return &LocalFileSystem{
		base:    base,
		options: options.Normalize(),
	}
}
