package logs

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"github.com/tgifai/crawlwatch/internal/consts"
)

const timeLayout = "2006-01-02 15:04:05,000"

// lineFormatter renders "LEVEL time file:line logid message".
type lineFormatter struct {
	color bool
}

func (f *lineFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	level := strings.ToUpper(entry.Level.String())
	if f.color {
		level = paintLevel(entry.Level, level)
	}

	logID := ""
	if entry.Context != nil {
		if id, ok := entry.Context.Value(consts.CtxKeyLogID).(string); ok {
			logID = id
		}
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s %s %s %s %s\n",
		level,
		entry.Time.Format(timeLayout),
		callerSite(),
		logID,
		entry.Message,
	)
	return buf.Bytes(), nil
}

// callerSite walks the stack to the first frame outside logrus and this package.
func callerSite() string {
	pcs := make([]uintptr, 16)
	n := runtime.Callers(4, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		fr, more := frames.Next()
		if !strings.Contains(fr.File, "sirupsen/logrus") && !isLogsFrame(fr.File) {
			return fmt.Sprintf("%s:%d", shortPath(fr.File), fr.Line)
		}
		if !more {
			return "???:0"
		}
	}
}

func isLogsFrame(file string) bool {
	return strings.Contains(file, "/internal/pkg/logs/") && !strings.HasSuffix(file, "_test.go")
}

// shortPath keeps the last directory and the file name.
func shortPath(full string) string {
	dir, file := filepath.Split(full)
	if dir == "" {
		return file
	}
	return filepath.Base(filepath.Clean(dir)) + "/" + file
}

var ansiRE = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func stripANSI(p []byte) []byte {
	return ansiRE.ReplaceAll(p, nil)
}

func colorEnabled(output string) bool {
	return output != "file" && !color.NoColor
}

var levelColors = map[logrus.Level]*color.Color{
	logrus.DebugLevel: color.New(color.FgCyan),
	logrus.InfoLevel:  color.New(color.FgGreen),
	logrus.WarnLevel:  color.New(color.FgYellow),
	logrus.ErrorLevel: color.New(color.FgRed),
	logrus.FatalLevel: color.New(color.FgRed, color.Bold),
	logrus.PanicLevel: color.New(color.FgRed, color.Bold),
}

func paintLevel(level logrus.Level, text string) string {
	if c, ok := levelColors[level]; ok {
		return c.Sprint(text)
	}
	return text
}
