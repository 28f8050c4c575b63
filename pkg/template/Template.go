// =================================================================
//
// Work of the U.S. Department of Defense, Defense Digital Service.
// Released as open source under the MIT License.  See LICENSE file.
//
// =================================================================

// Package template provides the pages rendered by the evfs HTTP front, such as the mount index.
package template

import (
	"io"
)

// Template renders a page.  *html/template.Template satisfies it.
type Template interface {
	Execute(w io.Writer, data any) error
}
