// =================================================================
//
// Work of the U.S. Department of Defense, Defense Digital Service.
// Released as open source under the MIT License.  See LICENSE file.
//
// =================================================================

// Package tarfs provides the evfs driver for tar archives, optionally compressed with gzip, zstd, lz4, or bzip2.
package tarfs

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sync"

	"github.com/h2non/filetype"
	"github.com/spf13/afero"

	"github.com/deptofdefense/evfs/pkg/archive"
	"github.com/deptofdefense/evfs/pkg/driver"
)

const (
	DriverName = "tar"
)

var (
	Patterns = []string{
		"*.tar",
		"*.tar.gz",
		"*.tgz",
		"*.tar.zst",
		"*.tzst",
		"*.tar.lz4",
		"*.tar.bz2",
		"*.tbz2",
	}
)

// TarFileSystem reads entries from a tar archive.
// A tar stream has no central directory.  File-backed instances scan the entry headers once
// and stream the archive again for each file they load, while blob-backed instances unpack
// the archive when created.
type TarFileSystem struct {
	base     afero.Fs
	filename string
	index    *archive.Index
	scan     sync.Once
	scanErr  error
	options  driver.ReadOptions
}

var _ driver.Driver = (*TarFileSystem)(nil)

func (tfs *TarFileSystem) Name() string {
	return DriverName
}

func (tfs *TarFileSystem) CanMount(target string, source string) error {
	if len(source) == 0 {
		return driver.NewUnsupportedMountError(source)
	}
	fi, err := tfs.base.Stat(source)
	if err != nil {
		return driver.NewFileError(source, err)
	}
	if !fi.Mode().IsRegular() || !driver.MatchName(source, Patterns...) {
		return driver.NewUnsupportedMountError(source)
	}
	return nil
}

func (tfs *TarFileSystem) NewFromSource(source string) (driver.Driver, error) {
	return &TarFileSystem{
		base:     tfs.base,
		filename: source,
		options:  tfs.options,
	}, nil
}

func (tfs *TarFileSystem) NewFromBlob(blob []byte) (driver.Driver, error) {
	index, err := Unpack(blob)
	if err != nil {
		return nil, err
	}
	return &TarFileSystem{
		base:    tfs.base,
		index:   index,
		options: tfs.options,
	}, nil
}

func (tfs *TarFileSystem) openFile() (afero.File, error) {
	if len(tfs.filename) == 0 {
		return nil, fmt.Errorf("driver is not bound to an archive")
	}
	return tfs.base.Open(tfs.filename)
}

// entries returns the entry index, scanning the headers of a file-backed archive on first use.
func (tfs *TarFileSystem) entries() (*archive.Index, error) {
	tfs.scan.Do(func() {
		if tfs.index != nil {
			return
		}
		f, err := tfs.openFile()
		if err != nil {
			tfs.scanErr = err
			return
		}
		defer f.Close()
		tfs.index, tfs.scanErr = Scan(f)
	})
	return tfs.index, tfs.scanErr
}

func (tfs *TarFileSystem) HasEntry(ctx context.Context, name string) driver.EntryType {
	index, err := tfs.entries()
	if err != nil {
		return driver.EntryTypeNotFound
	}
	return index.Lookup(name)
}

func (tfs *TarFileSystem) SupportsFileExt(name string) bool {
	return driver.MatchName(name, Patterns...)
}

// CanDecompress recognizes uncompressed tar streams by the ustar magic.
func (tfs *TarFileSystem) CanDecompress(data []byte) bool {
	return filetype.Is(data, "tar")
}

func (tfs *TarFileSystem) LoadFile(ctx context.Context, name string, progress driver.ProgressSender) ([]byte, error) {
	index, err := tfs.entries()
	if err != nil {
		return nil, driver.NewFileError(name, err)
	}
	if index.Lookup(name) != driver.EntryTypeFile {
		return nil, driver.NewError(driver.KindPathNotFound, name, nil)
	}
	data, ok := index.File(name)
	if !ok {
		f, err := tfs.openFile()
		if err != nil {
			return nil, driver.NewFileError(name, err)
		}
		defer f.Close()
		data, err = Extract(f, name)
		if err != nil {
			return nil, driver.NewFileError(name, err)
		}
	}
	out, err := driver.ReadAll(bytes.NewReader(data), int64(len(data)), tfs.options, progress)
	if err != nil {
		return nil, driver.NewFileError(name, err)
	}
	return out, nil
}

// walk calls fn for each directory and regular file of the tar stream read from r.
// Regular files pass their body, which fn may leave unread.
func walk(r io.Reader, fn func(header *tar.Header, body io.Reader) error) error {
	stream, err := archive.OpenStream(r)
	if err != nil {
		return err
	}
	defer stream.Close()
	tr := tar.NewReader(stream)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("error reading tar archive: %w", err)
		}
		switch header.Typeflag {
		case tar.TypeDir:
			err = fn(header, nil)
		case tar.TypeReg:
			err = fn(header, tr)
		}
		if err != nil {
			return err
		}
	}
}

// Unpack decompresses data if needed and indexes the regular files and directories of the tar stream with their contents.
func Unpack(data []byte) (*archive.Index, error) {
	index := archive.NewIndex()
	err := walk(bytes.NewReader(data), func(header *tar.Header, body io.Reader) error {
		if body == nil {
			index.AddDir(header.Name)
			return nil
		}
		contents, err := io.ReadAll(body)
		if err != nil {
			return fmt.Errorf("error reading %q from tar archive: %w", header.Name, err)
		}
		index.AddFile(header.Name, contents)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return index, nil
}

// Scan indexes the names and types of the entries in the tar stream read from r without reading file contents.
func Scan(r io.Reader) (*archive.Index, error) {
	index := archive.NewIndex()
	err := walk(r, func(header *tar.Header, body io.Reader) error {
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

// Extract returns the contents of the named regular file in the tar stream read from r.
// When the name repeats, the last entry wins.
func Extract(r io.Reader, name string) ([]byte, error) {
	name = archive.CleanName(name)
	var contents []byte
	err := walk(r, func(header *tar.Header, body io.Reader) error {
		if body == nil || archive.CleanName(header.Name) != name {
			return nil
		}
		data, err := io.ReadAll(body)
		if err != nil {
			return fmt.Errorf("error reading %q from tar archive: %w", header.Name, err)
		}
		contents = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	if contents == nil {
		return nil, fmt.Errorf("error extracting %q from tar archive: %w", name, fs.ErrNotExist)
	}
	return contents, nil
}

// New returns a tar template that opens archive files through base.
func New(base afero.Fs, options driver.ReadOptions) *TarFileSystem {
	return &TarFileSystem{
		base:    base,
		options: options.Normalize(),
	}
}
