// =================================================================
//
// Work of the U.S. Department of Defense, Defense Digital Service.
// Released as open source under the MIT License.  See LICENSE file.
//
// =================================================================

// Package log provides the structured logger used by evfs and its command line tool.
package log

// Logger writes a message with a set of structured fields.
type Logger interface {
	Debug(msg string, fields map[string]interface{}) error
	Log(msg string, fields map[string]interface{}) error
	Warn(msg string, fields map[string]interface{}) error
}
