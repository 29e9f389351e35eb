// Package logging configures the process-wide structured logger,
// built directly on logrus rather than a framework-specific config
// type.
package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the logger.
type Options struct {
	// LogDir is where the rotated log file is written. Empty disables
	// the file sink and logs to stdout only.
	LogDir string
	// Level is a logrus level name ("debug", "info", "warn", "error").
	// Empty defaults to "info".
	Level string
}

// New builds a *logrus.Logger writing to stdout and, if LogDir is set,
// a rotating file sink.
func New(opts Options) (*logrus.Logger, error) {
	logger := logrus.New()

	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	out := io.Writer(os.Stdout)
	if opts.LogDir != "" {
		if err := os.MkdirAll(opts.LogDir, 0o755); err != nil {
			return nil, err
		}
		fileSink := &lumberjack.Logger{
			Filename:   filepath.Join(opts.LogDir, "app.log"),
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		}
		out = io.MultiWriter(os.Stdout, fileSink)
	}
	logger.SetOutput(out)

	return logger, nil
}

// WithOp returns an entry pre-populated with the operation name, the
// convention used by every package in this module (const op =
// "Type.Method").
func WithOp(logger *logrus.Logger, op string) *logrus.Entry {
	return logger.WithField("op", op)
}
