// =================================================================
//
// Work of the U.S. Department of Defense, Defense Digital Service.
// Released as open source under the MIT License.  See LICENSE file.
//
// =================================================================

package log

type nopLogger struct{}

func (nopLogger) Debug(msg string, fields map[string]interface{}) error { return nil }
func (nopLogger) Log(msg string, fields map[string]interface{}) error   { return nil }
func (nopLogger) Warn(msg string, fields map[string]interface{}) error  { return nil }

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() Logger {
	return nopLogger{}
}
