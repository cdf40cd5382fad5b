package logs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

const defaultMaxSizeMB = 100

func openWriter(opts Options, output string) (io.Writer, error) {
	switch output {
	case "stdout":
		return os.Stdout, nil
	case "file":
		return rotatingFile(opts)
	case "both":
		f, err := rotatingFile(opts)
		if err != nil {
			return nil, err
		}
		return &teeWriter{console: os.Stdout, file: f}, nil
	default:
		return nil, fmt.Errorf("unsupported log output: %s", output)
	}
}

// teeWriter copies every line to the console and, without color codes, to the file.
type teeWriter struct {
	console io.Writer
	file    io.Writer
}

func (w *teeWriter) Write(p []byte) (int, error) {
	if _, err := w.console.Write(p); err != nil {
		return 0, err
	}
	if _, err := w.file.Write(stripANSI(p)); err != nil {
		return 0, err
	}
	return len(p), nil
}

func rotatingFile(opts Options) (*lumberjack.Logger, error) {
	if strings.TrimSpace(opts.File) == "" {
		return nil, fmt.Errorf("logging.file is required when output includes file")
	}
	if dir := filepath.Dir(opts.File); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
	}
	size := opts.MaxSize
	if size <= 0 {
		size = defaultMaxSizeMB
	}
	return &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    size,
		MaxBackups: max(opts.MaxBackups, 0),
		MaxAge:     max(opts.MaxAge, 0),
		Compress:   opts.Compress,
	}, nil
}
