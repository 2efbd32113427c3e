// Package logger provides opinionated logging for flowchat: colored console
// output for commands that own a plain terminal, and a rotating log file for
// the TUI, which owns the screen.
package logger

import (
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	maxLogSizeMB  = 5
	maxLogBackups = 3
	maxLogAgeDays = 14
)

// NewLogger returns a console logger on stderr, so stdout stays free for
// command output.
func NewLogger(debug bool) *zap.Logger {
	return newLogger(zapcore.AddSync(os.Stderr), debug, true)
}

// NewFileLogger returns a logger writing to a rotating file at path.
func NewFileLogger(path string, debug bool) (*zap.Logger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return zap.NewNop(), io.NopCloser(nil), err
	}

	writer := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxLogSizeMB,
		MaxBackups: maxLogBackups,
		MaxAge:     maxLogAgeDays,
		Compress:   true,
	}

	return newLogger(zapcore.AddSync(writer), debug, false), writer, nil
}

func newLogger(out zapcore.WriteSyncer, debug, color bool) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	if color {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	// Set log level
	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		out,
		level,
	)

	return zap.New(core, zap.AddCaller())
}
