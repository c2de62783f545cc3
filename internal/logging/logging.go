package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the application logger.
type Options struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string

	// Format is "console" for human-readable stderr output or "json".
	Format string

	// Path enables rotated file logging when set; otherwise logs go to
	// stderr so they never interleave with chat output on stdout.
	Path string

	// MaxSize is the maximum size in megabytes before rotation.
	MaxSize int

	// MaxBackups is the maximum number of old log files to retain.
	MaxBackups int

	// MaxAge is the maximum number of days to retain old log files.
	MaxAge int
}

// DefaultOptions returns default logger options.
func DefaultOptions() Options {
	return Options{
		Level:      "info",
		Format:     "console",
		MaxSize:    50, // megabytes
		MaxBackups: 5,
		MaxAge:     14, // days
	}
}

// New builds a zap logger from opts.
func New(opts Options) (*zap.Logger, error) {
	log, _, err := NewWithLevel(opts)
	return log, err
}

// NewWithLevel builds the logger and additionally returns its atomic level,
// so callers can adjust verbosity at runtime (config watch, signal handler).
func NewWithLevel(opts Options) (*zap.Logger, zap.AtomicLevel, error) {
	level, err := zapcore.ParseLevel(opts.Level)
	if err != nil {
		return nil, zap.AtomicLevel{}, fmt.Errorf("invalid log level %s: %w", opts.Level, err)
	}
	atom := zap.NewAtomicLevelAt(level)

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	if opts.Format == "console" {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	var sink zapcore.WriteSyncer
	if opts.Path != "" {
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   opts.Path,
			MaxSize:    opts.MaxSize,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAge,
			Compress:   true,
		})
	} else {
		sink = zapcore.AddSync(os.Stderr)
	}

	core := zapcore.NewCore(encoder, sink, atom)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), atom, nil
}
