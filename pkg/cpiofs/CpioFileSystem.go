// =================================================================
//
// Work of the U.S. Department of Defense, Defense Digital Service.
// Released as open source under the MIT License.  See LICENSE file.
//
// =================================================================

// Package cpiofs provides the evfs driver for SVR4 cpio archives such as initramfs images.
package cpiofs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sync"

	"github.com/cavaliergopher/cpio"
	"github.com/spf13/afero"

	"github.com/deptofdefense/evfs/pkg/archive"
	"github.com/deptofdefense/evfs/pkg/driver"
)

const (
	DriverName = "cpio"
)

var (
	Patterns = []string{"*.cpio", "*.cpio.gz", "*.cpio.zst"}
	magics   = [][]byte{[]byte("070701"), []byte("070702")}
)

const modeType = 0170000

// CpioFileSystem reads entries from a cpio archive.
// File-backed instances scan the entry headers once and stream the archive again for each file they load.
type CpioFileSystem struct {
	base     afero.Fs
	filename string
	index    *archive.Index
	scan     sync.Once
	scanErr  error
	options  driver.ReadOptions
}

var _ driver.Driver = (*CpioFileSystem)(nil)

func (cfs *CpioFileSystem) Name() string {
	return DriverName
}

func (cfs *CpioFileSystem) CanMount(target string, source string) error {
	if len(source) == 0 {
		return driver.NewUnsupportedMountError(source)
	}
	fi, err := cfs.base.Stat(source)
	if err != nil {
		return driver.NewFileError(source, err)
	}
	if !fi.Mode().IsRegular() || !driver.MatchName(source, Patterns...) {
		return driver.NewUnsupportedMountError(source)
	}
	return nil
}

func (cfs *CpioFileSystem) NewFromSource(source string) (driver.Driver, error) {
	return &CpioFileSystem{
		base:     cfs.base,
		filename: source,
		options:  cfs.options,
	}, nil
}

func (cfs *CpioFileSystem) NewFromBlob(blob []byte) (driver.Driver, error) {
	index, err := Unpack(blob)
	if err != nil {
		return nil, err
	}
	return &CpioFileSystem{
		base:    cfs.base,
		index:   index,
		options: cfs.options,
	}, nil
}

func (cfs *CpioFileSystem) openFile() (afero.File, error) {
	if len(cfs.filename) == 0 {
		return nil, fmt.Errorf("driver is not bound to an archive")
	}
	return cfs.base.Open(cfs.filename)
}

func (cfs *CpioFileSystem) entries() (*archive.Index, error) {
	cfs.scan.Do(func() {
		if cfs.index != nil {
			return
		}
		f, err := cfs.openFile()
		if err != nil {
			cfs.scanErr = err
			return
		}
		defer f.Close()
		cfs.index, cfs.scanErr = Scan(f)
	})
	return cfs.index, cfs.scanErr
}

func (cfs *CpioFileSystem) HasEntry(ctx context.Context, name string) driver.EntryType {
	index, err := cfs.entries()
	if err != nil {
		return driver.EntryTypeNotFound
	}
	return index.Lookup(name)
}

func (cfs *CpioFileSystem) SupportsFileExt(name string) bool {
	return driver.MatchName(name, Patterns...)
}

func (cfs *CpioFileSystem) CanDecompress(data []byte) bool {
	for _, magic := range magics {
		if bytes.HasPrefix(data, magic) {
			return true
		}
	}
	return false
}

func (cfs *CpioFileSystem) LoadFile(ctx context.Context, name string, progress driver.ProgressSender) ([]byte, error) {
	index, err := cfs.entries()
	if err != nil {
		return nil, driver.NewFileError(name, err)
	}
	if index.Lookup(name) != driver.EntryTypeFile {
		return nil, driver.NewError(driver.KindPathNotFound, name, nil)
	}
	data, ok := index.File(name)
	if !ok {
		f, err := cfs.openFile()
		if err != nil {
			return nil, driver.NewFileError(name, err)
		}
		defer f.Close()
		data, err = Extract(f, name)
		if err != nil {
			return nil, driver.NewFileError(name, err)
		}
	}
	out, err := driver.ReadAll(bytes.NewReader(data), int64(len(data)), cfs.options, progress)
	if err != nil {
		return nil, driver.NewFileError(name, err)
	}
	return out, nil
}

// walk calls fn for each directory and regular file of the cpio stream read from r.
// Regular files pass their body, which fn may leave unread.
func walk(r io.Reader, fn func(header *cpio.Header, body io.Reader) error) error {
	stream, err := archive.OpenStream(r)
	if err != nil {
		return err
	}
	defer stream.Close()
	cr := cpio.NewReader(stream)
	for {
		header, err := cr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("error reading cpio archive: %w", err)
		}
		switch header.Mode & modeType {
		case cpio.TypeDir:
			err = fn(header, nil)
		case cpio.TypeReg:
			err = fn(header, cr)
		}
		if err != nil {
			return err
		}
	}
}

// Unpack decompresses data if needed and indexes the regular files and directories of the cpio stream with their contents.
func Unpack(data []byte) (*archive.Index, error) {
	index := archive.NewIndex()
	err := walk(bytes.NewReader(data), func(header *cpio.Header, body io.Reader) error {
		if body == nil {
			index.AddDir(header.Name)
			return nil
		}
		contents, err := io.ReadAll(body)
		if err != nil {
			return fmt.Errorf("error reading %q from cpio archive: %w", header.Name, err)
		}
		index.AddFile(header.Name, contents)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return index, nil
}

// Scan indexes the names and types of the entries in the cpio stream read from r without reading file contents.
func Scan(r io.Reader) (*archive.Index, error) {
	index := archive.NewIndex()
	err := walk(r, func(header *cpio.Header, body io.Reader) error {
		if body == nil {
			index.AddDir(header.Name)
		} else {
			index.AddEntry(header.Name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return index, nil
}

// Extract returns the contents of the named regular file in the cpio stream read from r.
func Extract(r io.Reader, name string) ([]byte, error) {
	name = archive.CleanName(name)
	var contents []byte
	err := walk(r, func(header *cpio.Header, body io.Reader) error {
		if body == nil || archive.CleanName(header.Name) != name {
			return nil
		}
		data, err := io.ReadAll(body)
		if err != nil {
			return fmt.Errorf("error reading %q from cpio archive: %w", header.Name, err)
		}
		contents = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	if contents == nil {
		return nil, fmt.Errorf("error extracting %q from cpio archive: %w", name, fs.ErrNotExist)
	}
	return contents, nil
}

// New returns a cpio template that opens archive files through base.
func New(base afero.Fs, options driver.ReadOptions) *CpioFileSystem {
	return &CpioFileSystem{
		base:    base,
		options: options.Normalize(),
	}
}
