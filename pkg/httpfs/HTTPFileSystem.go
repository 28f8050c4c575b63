// =================================================================
//
// Work of the U.S. Department of Defense, Defense Digital Service.
// Released as open source under the MIT License.  See LICENSE file.
//
// =================================================================

// Package httpfs provides the evfs driver for files served over HTTP or HTTPS.
package httpfs

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"strings"

	"github.com/deptofdefense/evfs/pkg/driver"
)

const (
	DriverName = "http"
)

var (
	Schemes = []string{"http://", "https://"}
)

// HTTPFileSystem reads files relative to a base URL.
type HTTPFileSystem struct {
	client  *http.Client
	url     string
	options driver.ReadOptions
}

var _ driver.Driver = (*HTTPFileSystem)(nil)

func (hfs *HTTPFileSystem) Name() string {
	return DriverName
}

// URL returns the base URL the driver is bound to.
func (hfs *HTTPFileSystem) URL() string {
	return hfs.url
}

// CanMount accepts sources with a recognized URL scheme.  It does not contact the server.
func (hfs *HTTPFileSystem) CanMount(target string, source string) error {
	for _, scheme := range Schemes {
		if strings.HasPrefix(strings.ToLower(source), scheme) {
			return nil
		}
	}
	return driver.NewUnsupportedMountError(source)
}

func (hfs *HTTPFileSystem) NewFromSource(source string) (driver.Driver, error) {
	if _, err := url.Parse(source); err != nil {
		return nil, fmt.Errorf("error parsing url %q: %w", source, err)
	}
	return &HTTPFileSystem{
		client:  hfs.client,
		url:     source,
		options: hfs.options,
	}, nil
}

func (hfs *HTTPFileSystem) NewFromBlob(blob []byte) (driver.Driver, error) {
	return nil, driver.ErrBlobUnsupported
}

// HasEntry returns EntryTypeFile without contacting the server, since probing is as expensive as a read.
func (hfs *HTTPFileSystem) HasEntry(ctx context.Context, name string) driver.EntryType {
	return driver.EntryTypeFile
}

func (hfs *HTTPFileSystem) SupportsFileExt(name string) bool {
	return driver.MatchName(name, driver.ArchivePatterns...)
}

func (hfs *HTTPFileSystem) CanDecompress(data []byte) bool {
	return false
}

// Join returns the URL of name relative to the base URL.
func (hfs *HTTPFileSystem) Join(name string) (string, error) {
	if len(name) == 0 {
		return hfs.url, nil
	}
	u, err := url.JoinPath(hfs.url, name)
	if err != nil {
		return "", fmt.Errorf("error joining url %q with %q: %w", hfs.url, name, err)
	}
	return u, nil
}

func (hfs *HTTPFileSystem) LoadFile(ctx context.Context, name string, progress driver.ProgressSender) ([]byte, error) {
	u, err := hfs.Join(name)
	if err != nil {
		return nil, driver.NewFileError(name, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, driver.NewFileError(name, fmt.Errorf("error creating request for %q: %w", u, err))
	}
	resp, err := hfs.client.Do(req)
	if err != nil {
		return nil, driver.NewFileError(name, fmt.Errorf("error requesting %q: %w", u, err))
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, driver.NewFileError(name, fmt.Errorf("error requesting %q: %w", u, fs.ErrNotExist))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, driver.NewFileError(name, fmt.Errorf("error requesting %q: unexpected status %s", u, resp.Status))
	}
	data, err := driver.ReadAll(resp.Body, resp.ContentLength, hfs.options, progress)
	if err != nil {
		return nil, driver.NewFileError(name, err)
	}
	return data, nil
}

// New returns an HTTP template using client, or http.DefaultClient if client is nil.
func New(client *http.Client, options driver.ReadOptions) *HTTPFileSystem {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFileSystem{
		client:  client,
		options: options.Normalize(),
	}
}
