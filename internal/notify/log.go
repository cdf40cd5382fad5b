package notify

import (
	"context"

	"github.com/tgifai/crawlwatch/internal/pkg/logs"
)

// LogNotifier writes events to the diagnostic log.
type LogNotifier struct {
	id string
}

var _ Notifier = (*LogNotifier)(nil)

func NewLogNotifier(id string) *LogNotifier {
	return &LogNotifier{id: id}
}

func (n *LogNotifier) ID() string { return n.id }
func (n *LogNotifier) Type() Type { return Log }

func (n *LogNotifier) Notify(_ context.Context, ev Event) error {
	switch ev.Kind {
	case KindPhase:
		logs.Debug("[notify] run=%s domain=%s phase: %s", ev.RunID, ev.Domain, ev.Phase)
	case KindRunFailed:
		logs.Warn("[notify] run=%s domain=%s failed: %s", ev.RunID, ev.Domain, ev.Message)
	default:
		logs.Info("[notify] %s", Format(ev))
	}
	return nil
}
