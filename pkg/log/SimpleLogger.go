// =================================================================
//
// Work of the U.S. Department of Defense, Defense Digital Service.
// Released as open source under the MIT License.  See LICENSE file.
//
// =================================================================

package log

import (
	"fmt"
	"io"
	stdlog "log"
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// SimpleLogger writes one JSON object per message.
type SimpleLogger struct {
	logger *zap.Logger
	level  zap.AtomicLevel
}

var _ Logger = (*SimpleLogger)(nil)

func toZapFields(fields map[string]interface{}) []zap.Field {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	zapFields := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		if err, ok := fields[k].(error); ok {
			zapFields = append(zapFields, zap.NamedError(k, err))
			continue
		}
		zapFields = append(zapFields, zap.Any(k, fields[k]))
	}
	return zapFields
}

func (s *SimpleLogger) Debug(msg string, fields map[string]interface{}) error {
	s.logger.Debug(msg, toZapFields(fields)...)
	return nil
}

func (s *SimpleLogger) Log(msg string, fields map[string]interface{}) error {
	s.logger.Info(msg, toZapFields(fields)...)
	return nil
}

func (s *SimpleLogger) Warn(msg string, fields map[string]interface{}) error {
	s.logger.Warn(msg, toZapFields(fields)...)
	return nil
}

// SetLevel changes the minimum level written, one of "debug", "info", or "warn".
func (s *SimpleLogger) SetLevel(level string) error {
	if err := s.level.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("error parsing log level %q: %w", level, err)
	}
	return nil
}

func (s *SimpleLogger) Sync() error {
	return s.logger.Sync()
}

// WrapStandardLogger returns a standard library logger writing through the simple logger.
func WrapStandardLogger(s *SimpleLogger) *stdlog.Logger {
	return zap.NewStdLog(s.logger)
}

func NewSimpleLogger(w io.Writer) *SimpleLogger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "ts"
	encoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(w), level)
	return &SimpleLogger{
		logger: zap.New(core),
		level:  level,
	}
}
