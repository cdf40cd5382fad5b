package logs

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tgifai/crawlwatch/internal/consts"
)

type logrusLogger struct {
	log *logrus.Logger
}

var _ Logger = (*logrusLogger)(nil)

func newLogrusLogger() *logrusLogger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	log.SetFormatter(&lineFormatter{color: colorEnabled("stdout")})
	log.SetLevel(logrus.InfoLevel)
	return &logrusLogger{log: log}
}

// NewLogger builds a logrus-backed Logger from opts.
func NewLogger(opts Options) (Logger, error) {
	output := strings.ToLower(strings.TrimSpace(opts.Output))
	if output == "" {
		output = "stdout"
	}
	w, err := openWriter(opts, output)
	if err != nil {
		return nil, err
	}

	log := logrus.New()
	log.SetOutput(w)
	if strings.EqualFold(strings.TrimSpace(opts.Format), "json") {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&lineFormatter{color: colorEnabled(output)})
	}
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	log.SetLevel(toLogrus(lvl))
	return &logrusLogger{log: log}, nil
}

// NewWriterLogger logs plain lines to w. Used by tests and the CLI.
func NewWriterLogger(w io.Writer, level LogLevel) Logger {
	log := logrus.New()
	log.SetOutput(w)
	log.SetFormatter(&lineFormatter{})
	log.SetLevel(toLogrus(level))
	return &logrusLogger{log: log}
}

// ParseLevel accepts debug, info, warn/warning, error and fatal. Empty means info.
func ParseLevel(level string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return DebugLevel, nil
	case "", "info":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	default:
		return InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

func toLogrus(level LogLevel) logrus.Level {
	switch level {
	case DebugLevel:
		return logrus.DebugLevel
	case WarnLevel:
		return logrus.WarnLevel
	case ErrorLevel:
		return logrus.ErrorLevel
	case FatalLevel:
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}

func fromLogrus(level logrus.Level) LogLevel {
	switch level {
	case logrus.DebugLevel, logrus.TraceLevel:
		return DebugLevel
	case logrus.WarnLevel:
		return WarnLevel
	case logrus.ErrorLevel:
		return ErrorLevel
	case logrus.FatalLevel, logrus.PanicLevel:
		return FatalLevel
	default:
		return InfoLevel
	}
}

func (l *logrusLogger) GetLevel() LogLevel      { return fromLogrus(l.log.GetLevel()) }
func (l *logrusLogger) SetLevel(level LogLevel) { l.log.SetLevel(toLogrus(level)) }

func (l *logrusLogger) Debug(format string, v ...interface{}) { l.log.Debugf(format, v...) }
func (l *logrusLogger) Info(format string, v ...interface{})  { l.log.Infof(format, v...) }
func (l *logrusLogger) Warn(format string, v ...interface{})  { l.log.Warnf(format, v...) }
func (l *logrusLogger) Error(format string, v ...interface{}) { l.log.Errorf(format, v...) }
func (l *logrusLogger) Fatal(format string, v ...interface{}) { l.log.Fatalf(format, v...) }

func (l *logrusLogger) CtxDebug(ctx context.Context, format string, v ...interface{}) {
	l.entry(ctx).Debugf(format, v...)
}

func (l *logrusLogger) CtxInfo(ctx context.Context, format string, v ...interface{}) {
	l.entry(ctx).Infof(format, v...)
}

func (l *logrusLogger) CtxWarn(ctx context.Context, format string, v ...interface{}) {
	l.entry(ctx).Warnf(format, v...)
}

func (l *logrusLogger) CtxError(ctx context.Context, format string, v ...interface{}) {
	l.entry(ctx).Errorf(format, v...)
}

func (l *logrusLogger) CtxFatal(ctx context.Context, format string, v ...interface{}) {
	l.entry(ctx).Fatalf(format, v...)
}

func (l *logrusLogger) entry(ctx context.Context) *logrus.Entry {
	if ctx == nil {
		ctx = context.Background()
	}
	return l.log.WithContext(ctx)
}

func (l *logrusLogger) NewLogID() string { return uuid.NewString() }

func (l *logrusLogger) GetLogID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(consts.CtxKeyLogID).(string)
	return id
}

func (l *logrusLogger) SetLogID(ctx context.Context, logID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, consts.CtxKeyLogID, logID)
}

func (l *logrusLogger) Flush() {
	if c, ok := l.log.Out.(interface{ Sync() error }); ok {
		_ = c.Sync()
	}
}
