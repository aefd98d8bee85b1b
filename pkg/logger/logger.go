// Package logger builds the zap loggers used across parley.
package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger returns a console logger on stdout.
func NewLogger(debug bool) *zap.Logger {
	return NewWriterLogger(os.Stdout, debug, true)
}

// NewWriterLogger returns a console logger writing to w. Color level
// encoding is only useful when w is a terminal.
func NewWriterLogger(w io.Writer, debug bool, color bool) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	if color {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(w),
		level,
	)

	return zap.New(core, zap.AddCaller())
}

// NewFileLogger appends plain console lines to the file at path. The
// interactive client logs here so output does not interleave with the screen.
// The returned close function flushes and closes the file.
func NewFileLogger(path string, debug bool) (*zap.Logger, func() error, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, err
	}

	l := NewWriterLogger(f, debug, false)
	closeFn := func() error {
		_ = l.Sync()
		return f.Close()
	}
	return l, closeFn, nil
}
