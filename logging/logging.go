// Package logging - Diagnostic logger construction.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config selects the level, encoding and destinations of diagnostic logs.
type Config struct {
	// Level is one of debug, info, warn, error.
	Level string
	// JSON switches the console output from human-readable to JSON lines.
	JSON bool
	// File, when set, also writes JSON lines to a rotated file.
	File string
	// MaxSizeMB is the size at which File is rotated.
	MaxSizeMB int
	// MaxBackups is the number of rotated files kept.
	MaxBackups int
}

// DefaultConfig logs info and above to stderr.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		MaxSizeMB:  100,
		MaxBackups: 3,
	}
}

// New builds a sugared logger writing to stderr and, optionally, a rotated file.
//
// Arguments:
//   - cfg: The logger configuration.
//
// Returns:
//   - *zap.SugaredLogger: The logger.
//   - io.Closer: Closes the log file, if any. Always non-nil.
//   - error: An error if the level is unknown.
func New(cfg Config) (*zap.SugaredLogger, io.Closer, error) {
	return newWithWriter(cfg, zapcore.Lock(os.Stderr))
}

func newWithWriter(cfg Config, console zapcore.WriteSyncer) (*zap.SugaredLogger, io.Closer, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return nil, nopCloser{}, errors.Wrapf(err, "log level %q", cfg.Level)
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var consoleEnc zapcore.Encoder
	if cfg.JSON {
		consoleEnc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		consoleEnc = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(consoleEnc, console, level)
	var closer io.Closer = nopCloser{}

	if cfg.File != "" {
		rotated := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			Compress:   true,
		}
		fileCore := zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(rotated),
			level,
		)
		core = zapcore.NewTee(core, fileCore)
		closer = rotated
	}

	return zap.New(core, zap.AddCaller()).Sugar(), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
