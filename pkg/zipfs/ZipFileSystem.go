// =================================================================
//
// Work of the U.S. Department of Defense, Defense Digital Service.
// Released as open source under the MIT License.  See LICENSE file.
//
// =================================================================

// Package zipfs provides the evfs driver for zip archives, mounted from a file or nested inside another source.
package zipfs

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/h2non/filetype"
	"github.com/klauspost/compress/zip"
	"github.com/spf13/afero"

	"github.com/deptofdefense/evfs/pkg/archive"
	"github.com/deptofdefense/evfs/pkg/driver"
)

const (
	DriverName = "zip"
)

var (
	Patterns = []string{"*.zip"}
)

// ZipFileSystem reads entries from a zip archive.
// An instance is bound either to a file, which is re-opened for every call, or to an in-memory blob.
type ZipFileSystem struct {
	base     afero.Fs
	filename string
	reader   *zip.Reader
	options  driver.ReadOptions
}

var _ driver.Driver = (*ZipFileSystem)(nil)

func (zfs *ZipFileSystem) Name() string {
	return DriverName
}

// Filename returns the archive path of a file-backed instance.
func (zfs *ZipFileSystem) Filename() string {
	return zfs.filename
}

func (zfs *ZipFileSystem) CanMount(target string, source string) error {
	if len(source) == 0 {
		return driver.NewUnsupportedMountError(source)
	}
	fi, err := zfs.base.Stat(source)
	if err != nil {
		return driver.NewFileError(source, err)
	}
	if !fi.Mode().IsRegular() || !driver.MatchName(source, Patterns...) {
		return driver.NewUnsupportedMountError(source)
	}
	return nil
}

func (zfs *ZipFileSystem) NewFromSource(source string) (driver.Driver, error) {
	return &ZipFileSystem{
		base:     zfs.base,
		filename: source,
		options:  zfs.options,
	}, nil
}

func (zfs *ZipFileSystem) NewFromBlob(blob []byte) (driver.Driver, error) {
	r, err := zip.NewReader(bytes.NewReader(blob), int64(len(blob)))
	if err != nil {
		return nil, fmt.Errorf("error reading zip archive: %w", err)
	}
	return &ZipFileSystem{
		base:    zfs.base,
		reader:  r,
		options: zfs.options,
	}, nil
}

// open returns the archive reader and a function releasing it.
func (zfs *ZipFileSystem) open() (*zip.Reader, func(), error) {
	if zfs.reader != nil {
		return zfs.reader, func() {}, nil
	}
	if len(zfs.filename) == 0 {
		return nil, nil, fmt.Errorf("driver is not bound to an archive")
	}
	f, err := zfs.base.Open(zfs.filename)
	if err != nil {
		return nil, nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	r, err := zip.NewReader(f, fi.Size())
	if err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("error reading zip archive %q: %w", zfs.filename, err)
	}
	return r, func() { _ = f.Close() }, nil
}

func (zfs *ZipFileSystem) HasEntry(ctx context.Context, name string) driver.EntryType {
	r, release, err := zfs.open()
	if err != nil {
		return driver.EntryTypeNotFound
	}
	defer release()
	name = archive.CleanName(name)
	if len(name) == 0 {
		return driver.EntryTypeDirectory
	}
	entryType := driver.EntryTypeNotFound
	for _, f := range r.File {
		fileName := archive.CleanName(f.Name)
		if fileName == name {
			if strings.HasSuffix(f.Name, "/") || f.FileInfo().IsDir() {
				return driver.EntryTypeDirectory
			}
			return driver.EntryTypeFile
		}
		if strings.HasPrefix(fileName, name+"/") {
			entryType = driver.EntryTypeDirectory
		}
	}
	return entryType
}

func (zfs *ZipFileSystem) SupportsFileExt(name string) bool {
	return driver.MatchName(name, Patterns...)
}

func (zfs *ZipFileSystem) CanDecompress(data []byte) bool {
	return filetype.Is(data, "zip")
}

func (zfs *ZipFileSystem) LoadFile(ctx context.Context, name string, progress driver.ProgressSender) ([]byte, error) {
	r, release, err := zfs.open()
	if err != nil {
		return nil, driver.NewFileError(name, err)
	}
	defer release()
	name = archive.CleanName(name)
	for _, f := range r.File {
		if archive.CleanName(f.Name) != name || strings.HasSuffix(f.Name, "/") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, driver.NewFileError(name, err)
		}
		defer rc.Close()
		data, err := driver.ReadAll(rc, int64(f.UncompressedSize64), zfs.options, progress)
		if err != nil {
			return nil, driver.NewFileError(name, err)
		}
		return data, nil
	}
	return nil, driver.NewError(driver.KindPathNotFound, name, nil)
}

// New returns a zip template that opens archive files through base.
func New(base afero.Fs, options driver.ReadOptions) *ZipFileSystem {
	return &ZipFileSystem{
		base:    base,
		options: options.Normalize(),
	}
}
