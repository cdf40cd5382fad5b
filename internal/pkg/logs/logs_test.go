package logs

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    LogLevel
		wantErr bool
	}{
		{"", InfoLevel, false},
		{"DEBUG", DebugLevel, false},
		{" warning ", WarnLevel, false},
		{"error", ErrorLevel, false},
		{"loud", InfoLevel, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParseLevel(%q) error = nil, want error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseLevel(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestWriterLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(&buf, InfoLevel)

	ctx := l.SetLogID(context.Background(), "abc123")
	l.CtxInfo(ctx, "[test] hello %s", "world")
	l.Debug("hidden")

	out := buf.String()
	for _, want := range []string{"INFO ", "abc123 [test] hello world", "logs/logs_test.go:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output %q missing %q", out, want)
		}
	}
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line written at info level: %q", out)
	}
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(&buf, ErrorLevel)
	if got := l.GetLevel(); got != ErrorLevel {
		t.Fatalf("GetLevel() = %v, want %v", got, ErrorLevel)
	}

	l.SetLevel(DebugLevel)
	l.Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Fatalf("debug line missing after SetLevel: %q", buf.String())
	}
}

func TestNewLoggerFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "crawlwatch.log")
	l, err := NewLogger(Options{Level: "info", Output: "file", File: path})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	if got := l.GetLevel(); got != InfoLevel {
		t.Fatalf("GetLevel() = %v, want %v", got, InfoLevel)
	}

	if _, err = NewLogger(Options{Output: "file"}); err == nil {
		t.Fatalf("NewLogger(file without path) error = nil")
	}
	if _, err = NewLogger(Options{Output: "syslog"}); err == nil {
		t.Fatalf("NewLogger(syslog) error = nil")
	}
}

func TestTeeWriterStripsColor(t *testing.T) {
	var console, file bytes.Buffer
	w := &teeWriter{console: &console, file: &file}

	if _, err := w.Write([]byte("\x1b[32mINFO\x1b[0m ok\n")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if got := console.String(); got != "\x1b[32mINFO\x1b[0m ok\n" {
		t.Fatalf("console = %q", got)
	}
	if got := file.String(); got != "INFO ok\n" {
		t.Fatalf("file = %q", got)
	}
}

func TestCronAdapter(t *testing.T) {
	var buf bytes.Buffer
	cl := NewCronLogger(NewWriterLogger(&buf, DebugLevel))

	cl.Info("schedule", "entry", 3)
	cl.Error(errors.New("boom"), "panic", "job")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %q", lines)
	}
	if !strings.Contains(lines[0], "[cron] schedule entry=3") {
		t.Fatalf("info line = %q", lines[0])
	}
	if !strings.Contains(lines[1], "[cron] panic: boom job") {
		t.Fatalf("error line = %q", lines[1])
	}
}

func TestWithLogIDKeepsExisting(t *testing.T) {
	ctx := SetLogID(context.Background(), "fixed")
	if got := GetLogID(WithLogID(ctx)); got != "fixed" {
		t.Fatalf("GetLogID() = %q, want fixed", got)
	}
	if GetLogID(WithLogID(context.Background())) == "" {
		t.Fatalf("WithLogID() did not assign an id")
	}
}
