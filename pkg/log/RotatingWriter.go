// =================================================================
//
// Work of the U.S. Department of Defense, Defense Digital Service.
// Released as open source under the MIT License.  See LICENSE file.
//
// =================================================================

package log

import (
	"io"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// RotationConfig configures a log file rotated by size.
type RotationConfig struct {
	Filename   string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

// NewRotatingWriter returns a writer for the configured log file.  The filename "-" is standard output.
func NewRotatingWriter(config RotationConfig) io.WriteCloser {
	if config.Filename == "-" || len(config.Filename) == 0 {
		return nopCloser{os.Stdout}
	}
	return &lumberjack.Logger{
		Filename:   config.Filename,
		MaxSize:    config.MaxSize,
		MaxBackups: config.MaxBackups,
		MaxAge:     config.MaxAge,
		Compress:   config.Compress,
	}
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error {
	return nil
}
