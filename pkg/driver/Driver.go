// =================================================================
//
// Work of the U.S. Department of Defense, Defense Digital Service.
// Released as open source under the MIT License.  See LICENSE file.
//
// =================================================================

// Package driver defines the capability contract that every evfs backend satisfies,
// along with the messages, errors, and streaming read policy shared by drivers and the core.
package driver

import (
	"context"
)

// Driver is a backend that can mount a source and read whole files from it.
//
// A driver value in a registry is a template: it classifies sources and blobs and creates bound
// instances through NewFromSource and NewFromBlob.  Instances are immutable after construction
// and must be safe for concurrent use, since LoadFile may be called from several workers at once.
type Driver interface {
	// Name returns a short identifier for the driver, such as "local" or "zip".
	Name() string
	// CanMount returns nil if the driver can mount source at target.
	// It must not perform network I/O.
	CanMount(target string, source string) error
	// NewFromSource returns a new driver bound to the canonical source.
	// It must not open network connections or file handles.
	NewFromSource(source string) (Driver, error)
	// NewFromBlob returns a new driver bound to an in-memory container.
	// Drivers that cannot act as decompressors return ErrBlobUnsupported.
	NewFromBlob(blob []byte) (Driver, error)
	// HasEntry classifies a driver-relative path.  It must be cheaper than a full read.
	HasEntry(ctx context.Context, name string) EntryType
	// SupportsFileExt returns true if the driver recognizes the name as something it could mount or decompress.
	SupportsFileExt(name string) bool
	// CanDecompress returns true if the driver recognizes the leading bytes of data.
	CanDecompress(data []byte) bool
	// LoadFile reads the entire entry.  It emits Progress(0.0) before reading and non-decreasing
	// fractions afterwards, but never the terminal message.
	LoadFile(ctx context.Context, name string, progress ProgressSender) ([]byte, error)
}
