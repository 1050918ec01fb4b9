// Package audit - Append-only detection log.
package audit

import (
	"fmt"
	"image"
	"io"
	"os"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap/zapcore"
)

// DefaultPath is the audit log written next to the working directory.
const DefaultPath = "vehicle_detection.log"

// TimeLayout renders timestamps as "2024-05-01 13:45:12,345".
const TimeLayout = "2006-01-02 15:04:05,000"

// Recorder receives one entry per filtered detection.
type Recorder interface {
	Record(label string, confidence float32, topLeft, bottomRight image.Point) error
}

// Discard is a Recorder that drops every entry.
var Discard Recorder = discard{}

type discard struct{}

func (discard) Record(string, float32, image.Point, image.Point) error { return nil }

// LogWriteError reports an entry that could not be written. It never aborts
// a run.
type LogWriteError struct {
	Err error
}

func (e *LogWriteError) Error() string {
	return fmt.Sprintf("write audit entry: %v", e.Err)
}

func (e *LogWriteError) Unwrap() error { return e.Err }

// Logger writes one line per detection:
//
//	2024-05-01 13:45:12,345 - Detected car with confidence 0.91 at (10, 20), (50, 60)
type Logger struct {
	core     zapcore.Core
	clock    clock.Clock
	failures atomic.Int64

	closeOnce sync.Once
	closer    io.Closer
	closeErr  error
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:    "time",
		MessageKey: "message",
		EncodeTime: func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(t.Format(TimeLayout))
		},
		ConsoleSeparator: " - ",
		LineEnding:       zapcore.DefaultLineEnding,
	}
}

// New creates a logger writing to w.
//
// Arguments:
//   - w: The destination. It is not closed by Close.
//   - clk: The time source for entry timestamps. Nil uses the wall clock.
//
// Returns:
//   - *Logger: The audit logger.
func New(w io.Writer, clk clock.Clock) *Logger {
	if clk == nil {
		clk = clock.New()
	}
	ws := zapcore.Lock(zapcore.AddSync(w))
	return &Logger{
		core:  zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig()), ws, zapcore.InfoLevel),
		clock: clk,
	}
}

// Open creates or appends to the log file at path.
//
// Arguments:
//   - path: The log file. Existing entries are kept.
//   - clk: The time source for entry timestamps. Nil uses the wall clock.
//
// Returns:
//   - *Logger: The audit logger. Close it to release the file.
//   - error: An error if the file cannot be opened.
func Open(path string, clk clock.Clock) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "open audit log %s", path)
	}
	l := New(f, clk)
	l.closer = f
	return l, nil
}

// Message formats the entry text for one detection.
func Message(label string, confidence float32, topLeft, bottomRight image.Point) string {
	return fmt.Sprintf("Detected %s with confidence %.2f at (%d, %d), (%d, %d)",
		label, confidence, topLeft.X, topLeft.Y, bottomRight.X, bottomRight.Y)
}

// Record appends one entry. A failed write is counted and returned as a
// *LogWriteError.
func (l *Logger) Record(label string, confidence float32, topLeft, bottomRight image.Point) error {
	entry := zapcore.Entry{
		Level:   zapcore.InfoLevel,
		Time:    l.clock.Now(),
		Message: Message(label, confidence, topLeft, bottomRight),
	}
	if err := l.core.Write(entry, nil); err != nil {
		l.failures.Inc()
		return &LogWriteError{Err: err}
	}
	return nil
}

// Failures returns the number of entries that could not be written.
func (l *Logger) Failures() int64 {
	return l.failures.Load()
}

// Close syncs and closes the underlying file, if the logger owns one.
func (l *Logger) Close() error {
	l.closeOnce.Do(func() {
		if l.closer == nil {
			return
		}
		_ = l.core.Sync()
		l.closeErr = l.closer.Close()
	})
	return l.closeErr
}
