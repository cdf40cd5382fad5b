package logs

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

type cronAdapter struct {
	l Logger
}

var _ cron.Logger = (*cronAdapter)(nil)

// NewCronLogger routes robfig/cron's key/value logging into l.
func NewCronLogger(l Logger) cron.Logger {
	return &cronAdapter{l: l}
}

func (a *cronAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.l.Debug("[cron] %s%s", msg, kvString(keysAndValues))
}

func (a *cronAdapter) Error(err error, msg string, keysAndValues ...interface{}) {
	a.l.Error("[cron] %s: %v%s", msg, err, kvString(keysAndValues))
}

func kvString(kv []interface{}) string {
	if len(kv) == 0 {
		return ""
	}
	var sb strings.Builder
	for i := 0; i < len(kv); i += 2 {
		sb.WriteByte(' ')
		if i+1 < len(kv) {
			fmt.Fprintf(&sb, "%v=%v", kv[i], kv[i+1])
		} else {
			fmt.Fprintf(&sb, "%v", kv[i])
		}
	}
	return sb.String()
}
