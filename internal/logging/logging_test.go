package logging

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"INFO":    slog.LevelInfo,
		"debug":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestNewWritesConsoleAndFile(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "workplan.log")

	logger, out, err := New(&console, Options{Level: "debug", File: path})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	logger.Debug("otp issued", slog.Int64("user_id", 7))
	if _, err := io.WriteString(out, "[GIN] 200 | GET \"/api/me\"\n"); err != nil {
		t.Fatalf("write access line: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if !strings.Contains(console.String(), "otp issued") {
		t.Fatalf("console = %q", console.String())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "user_id=7") || !strings.Contains(string(data), "/api/me") {
		t.Fatalf("file = %q", data)
	}
}

func TestNewFiltersBelowLevel(t *testing.T) {
	var console bytes.Buffer
	logger, _, err := New(&console, Options{Level: "warn"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	logger.Info("hidden")
	if console.Len() != 0 {
		t.Fatalf("info logged at warn level: %q", console.String())
	}
}

func TestOutputCloseWithoutFile(t *testing.T) {
	_, out, err := New(io.Discard, Options{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
