// Package logging builds the zerolog logger shared by all commands.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Options select where records go.
type Options struct {
	// Path is the log file. Records are appended; empty disables the file.
	Path string

	// Debug adds a human-readable writer on Console at debug level.
	Debug bool

	// Console receives debug output, usually stderr.
	Console io.Writer
}

func init() {
	zerolog.TimestampFieldName = "timestamp"
	zerolog.DurationFieldUnit = time.Millisecond
}

// New returns a logger and a function that releases its file. When the log
// file cannot be opened the logger still works for the console part and the
// open error is returned alongside it.
func New(opts Options) (zerolog.Logger, func() error, error) {
	var (
		writers []io.Writer
		closer  = func() error { return nil }
		openErr error
	)

	if opts.Path != "" {
		f, err := openLogFile(opts.Path)
		if err != nil {
			openErr = err
		} else {
			writers = append(writers, f)
			closer = f.Close
		}
	}

	level := zerolog.InfoLevel
	if opts.Debug && opts.Console != nil {
		level = zerolog.DebugLevel
		cw := zerolog.NewConsoleWriter()
		cw.Out = opts.Console
		cw.TimeFormat = time.TimeOnly
		cw.NoColor = true
		writers = append(writers, cw)
	}

	if len(writers) == 0 {
		return zerolog.Nop(), closer, openErr
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Int("pid", os.Getpid()).
		Logger()
	return logger, closer, openErr
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}
