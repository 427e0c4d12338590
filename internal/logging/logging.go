package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the process logger.
type Options struct {
	Level string
	// File enables a rotating log file next to the console output.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Output is the destination shared by the slog logger and the HTTP access
// log: the console and, when configured, a rotated file.
type Output struct {
	io.Writer
	file *lumberjack.Logger
}

// Close releases the log file, if any.
func (o *Output) Close() error {
	if o.file == nil {
		return nil
	}
	return o.file.Close()
}

// New builds a text slog logger writing to console and, when configured, to
// a lumberjack rotated file.
func New(console io.Writer, opts Options) (*slog.Logger, *Output, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	out := &Output{Writer: console}
	if opts.File != "" {
		out.file = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, 10),
			MaxBackups: orDefault(opts.MaxBackups, 3),
			MaxAge:     orDefault(opts.MaxAgeDays, 28),
			Compress:   true,
		}
		out.Writer = io.MultiWriter(console, out.file)
	}

	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})), out, nil
}

// ParseLevel maps debug, info, warn and error to slog levels. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

func orDefault(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
