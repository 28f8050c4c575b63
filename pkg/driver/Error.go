// =================================================================
//
// Work of the U.S. Department of Defense, Defense Digital Service.
// Released as open source under the MIT License.  See LICENSE file.
//
// =================================================================

package driver

import (
	"errors"
	"fmt"
)

// Kind is the category of an evfs error.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidRootPath
	KindUnsupportedMount
	KindNoDriverSupport
	KindInvalidMount
	KindPathNotFound
	KindNotFile
	KindDecompressorNotFound
	KindFileError
	KindSendError
	KindClosed
)

var kindNames = map[Kind]string{
	KindUnknown:              "Unknown",
	KindInvalidRootPath:      "InvalidRootPath",
	KindUnsupportedMount:     "UnsupportedMount",
	KindNoDriverSupport:      "NoDriverSupport",
	KindInvalidMount:         "InvalidMount",
	KindPathNotFound:         "PathNotFound",
	KindNotFile:              "NotFile",
	KindDecompressorNotFound: "DecompressorNotFound",
	KindFileError:            "FileError",
	KindSendError:            "SendError",
	KindClosed:               "Closed",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is an evfs error of a given kind, optionally about a path and wrapping a cause.
type Error struct {
	Kind Kind
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := ""
	switch e.Kind {
	case KindInvalidRootPath:
		msg = fmt.Sprintf("the mount point %q is invalid, it has to start with a /", e.Path)
	case KindUnsupportedMount:
		msg = fmt.Sprintf("the mount %q is invalid for this driver", e.Path)
	case KindNoDriverSupport:
		msg = fmt.Sprintf("there is no driver that supports the mount %q", e.Path)
	case KindInvalidMount:
		msg = fmt.Sprintf("no mount for %q was found", e.Path)
	case KindPathNotFound:
		msg = fmt.Sprintf("the path %q is not found in mount", e.Path)
	case KindNotFile:
		msg = fmt.Sprintf("the path %q is a directory and not a file", e.Path)
	case KindDecompressorNotFound:
		msg = fmt.Sprintf("unable to find decompressor for %q", e.Path)
	case KindFileError:
		msg = fmt.Sprintf("error reading %q", e.Path)
	case KindSendError:
		msg = "error sending message, receiver is gone"
	case KindClosed:
		msg = "evfs is closed"
	default:
		msg = "unknown error"
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches a bare error of the same kind, so that errors.Is(err, ErrPathNotFound) holds for any PathNotFound error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Path != "" || t.Err != nil {
		return t == e
	}
	return t.Kind == e.Kind
}

var (
	ErrInvalidRootPath      = &Error{Kind: KindInvalidRootPath}
	ErrUnsupportedMount     = &Error{Kind: KindUnsupportedMount}
	ErrNoDriverSupport      = &Error{Kind: KindNoDriverSupport}
	ErrInvalidMount         = &Error{Kind: KindInvalidMount}
	ErrPathNotFound         = &Error{Kind: KindPathNotFound}
	ErrNotFile              = &Error{Kind: KindNotFile}
	ErrDecompressorNotFound = &Error{Kind: KindDecompressorNotFound}
	ErrFile                 = &Error{Kind: KindFileError}
	ErrSend                 = &Error{Kind: KindSendError}
	ErrClosed               = &Error{Kind: KindClosed}
)

// ErrBlobUnsupported is returned by NewFromBlob for drivers that only mount external sources.
var ErrBlobUnsupported = errors.New("driver cannot be instantiated from a blob")

func NewError(kind Kind, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Err: err}
}

func NewUnsupportedMountError(source string) *Error {
	return &Error{Kind: KindUnsupportedMount, Path: source}
}

// NewFileError wraps an I/O failure.  Errors that already carry a kind are returned as is.
func NewFileError(path string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: KindFileError, Path: path, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
