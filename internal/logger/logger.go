// Package logger builds the zap loggers used by the extractor.
package logger

import (
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log is the process logger set up by Init. It is a no-op logger until Init
// is called.
var Log = zap.NewNop()

// FileConfig holds file logging configuration.
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// DefaultFileConfig returns default file logging settings.
func DefaultFileConfig(path string) FileConfig {
	return FileConfig{
		Path:       path,
		MaxSizeMB:  50,
		MaxBackups: 3,
		MaxAgeDays: 7,
		Compress:   true,
	}
}

// Options configure New.
type Options struct {
	Level string
	File  FileConfig
	// Console receives human-readable output. Nil disables it.
	Console io.Writer
	// Color enables colored level names on the console.
	Color bool
}

// Init sets Log to a logger writing to stderr and, when logFile is set, to a
// rotating file.
func Init(level string, logFile string) *zap.Logger {
	opts := Options{Level: level, Console: os.Stderr, Color: isTerminal(os.Stderr)}
	if logFile != "" {
		opts.File = DefaultFileConfig(logFile)
	}
	Log = New(opts)
	return Log
}

// New builds a logger from opts. With neither console nor file configured it
// returns a no-op logger.
func New(opts Options) *zap.Logger {
	lvl := ParseLevel(opts.Level)

	var cores []zapcore.Core

	if opts.Console != nil {
		levelEncoder := zapcore.CapitalLevelEncoder
		if opts.Color {
			levelEncoder = zapcore.CapitalColorLevelEncoder
		}
		consoleEncoder := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
			TimeKey:          "time",
			LevelKey:         "level",
			NameKey:          "logger",
			MessageKey:       "msg",
			EncodeTime:       zapcore.TimeEncoderOfLayout("15:04:05"),
			EncodeLevel:      levelEncoder,
			EncodeName:       zapcore.FullNameEncoder,
			EncodeDuration:   zapcore.StringDurationEncoder,
			ConsoleSeparator: " ",
		})
		cores = append(cores, zapcore.NewCore(consoleEncoder, zapcore.AddSync(opts.Console), lvl))
	}

	if opts.File.Path != "" {
		fileWriter := &lumberjack.Logger{
			Filename:   opts.File.Path,
			MaxSize:    opts.File.MaxSizeMB,
			MaxBackups: opts.File.MaxBackups,
			MaxAge:     opts.File.MaxAgeDays,
			Compress:   opts.File.Compress,
			LocalTime:  true,
		}

		// Files get JSON so reports can be grepped per run_id.
		fileEncoder := zapcore.NewJSONEncoder(zapcore.EncoderConfig{
			TimeKey:        "time",
			LevelKey:       "level",
			NameKey:        "logger",
			MessageKey:     "msg",
			CallerKey:      "caller",
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeLevel:    zapcore.CapitalLevelEncoder,
			EncodeName:     zapcore.FullNameEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
		})
		cores = append(cores, zapcore.NewCore(fileEncoder, zapcore.AddSync(fileWriter), lvl))
	}

	if len(cores) == 0 {
		return zap.NewNop()
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller())
}

// ParseLevel converts a level name to a zapcore.Level. Unknown names map to
// info.
func ParseLevel(level string) zapcore.Level {
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// Sync flushes any buffered log entries.
func Sync() {
	_ = Log.Sync()
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
