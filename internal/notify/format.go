package notify

import (
	"fmt"
	"strings"
)

// Format renders an event as a short plain-text message.
func Format(ev Event) string {
	var sb strings.Builder
	switch ev.Kind {
	case KindJobRemoved:
		fmt.Fprintf(&sb, "One-time job %s ran and was removed", ev.JobID)
	case KindRunFinished:
		fmt.Fprintf(&sb, "Crawl of %s finished", orUnknown(ev.Domain))
	case KindRunFailed:
		fmt.Fprintf(&sb, "Crawl of %s failed", orUnknown(ev.Domain))
	case KindPhase:
		fmt.Fprintf(&sb, "[%s] %s", orUnknown(ev.Domain), ev.Phase)
	default:
		sb.WriteString(string(ev.Kind))
	}
	if ev.RunID != "" {
		fmt.Fprintf(&sb, " (run %s)", ev.RunID)
	}
	if ev.Message != "" {
		sb.WriteString("\n")
		sb.WriteString(ev.Message)
	}
	if s := ev.Summary; s != nil {
		fmt.Fprintf(&sb, "\nURLs: %d -> %d, added %d, removed %d, changed %d",
			s.PreviousTotal, s.CurrentTotal, s.Added, s.Removed, s.Changed)
	}
	return sb.String()
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
