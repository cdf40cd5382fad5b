package logs

import (
	"context"
)

type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

func (l LogLevel) String() string {
	switch l {
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	case FatalLevel:
		return "fatal"
	default:
		return "unknown"
	}
}

// Logger is the printf-style logging surface used across crawlwatch.
type Logger interface {
	Debug(format string, v ...interface{})
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
	Fatal(format string, v ...interface{})

	CtxDebug(ctx context.Context, format string, v ...interface{})
	CtxInfo(ctx context.Context, format string, v ...interface{})
	CtxWarn(ctx context.Context, format string, v ...interface{})
	CtxError(ctx context.Context, format string, v ...interface{})
	CtxFatal(ctx context.Context, format string, v ...interface{})

	GetLevel() LogLevel
	SetLevel(level LogLevel)

	NewLogID() string
	GetLogID(ctx context.Context) string
	SetLogID(ctx context.Context, logID string) context.Context

	Flush()
}

// Options mirrors the logging section of the config file.
type Options struct {
	Level      string
	Format     string
	Output     string
	File       string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

var logger Logger = newLogrusLogger()

// SetLogger replaces the process logger. Not safe for concurrent use.
func SetLogger(l Logger) {
	if l == nil {
		return
	}
	logger = l
}

func DefaultLogger() Logger { return logger }

func SetLogLevel(level LogLevel) { logger.SetLevel(level) }

// Init builds a logger from opts and installs it globally.
func Init(opts Options) error {
	l, err := NewLogger(opts)
	if err != nil {
		return err
	}
	SetLogger(l)
	return nil
}

func Debug(format string, v ...interface{}) { logger.Debug(format, v...) }
func Info(format string, v ...interface{})  { logger.Info(format, v...) }
func Warn(format string, v ...interface{})  { logger.Warn(format, v...) }
func Error(format string, v ...interface{}) { logger.Error(format, v...) }
func Fatal(format string, v ...interface{}) { logger.Fatal(format, v...) }

func CtxDebug(ctx context.Context, format string, v ...interface{}) {
	logger.CtxDebug(ctx, format, v...)
}

func CtxInfo(ctx context.Context, format string, v ...interface{}) {
	logger.CtxInfo(ctx, format, v...)
}

func CtxWarn(ctx context.Context, format string, v ...interface{}) {
	logger.CtxWarn(ctx, format, v...)
}

func CtxError(ctx context.Context, format string, v ...interface{}) {
	logger.CtxError(ctx, format, v...)
}

func CtxFatal(ctx context.Context, format string, v ...interface{}) {
	logger.CtxFatal(ctx, format, v...)
}

func NewLogID() string { return logger.NewLogID() }

func GetLogID(ctx context.Context) string { return logger.GetLogID(ctx) }

func SetLogID(ctx context.Context, logID string) context.Context {
	return logger.SetLogID(ctx, logID)
}

// WithLogID returns ctx carrying a fresh log id unless one is already set.
func WithLogID(ctx context.Context) context.Context {
	if GetLogID(ctx) != "" {
		return ctx
	}
	return SetLogID(ctx, NewLogID())
}

func Flush() { logger.Flush() }
