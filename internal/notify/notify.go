// Package notify fans pipeline and scheduler events out to in-process
// subscribers and to configured notifiers.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/tgifai/crawlwatch/internal/compare"
)

type Kind string

const (
	KindJobRemoved  Kind = "job_removed"
	KindPhase       Kind = "phase"
	KindRunFinished Kind = "run_finished"
	KindRunFailed   Kind = "run_failed"
)

type Type string

const (
	Log      Type = "log"
	Telegram Type = "telegram"
)

var ErrNotifierNotFound = errors.New("notifier not found")

type Event struct {
	Kind    Kind             `json:"kind"`
	JobID   string           `json:"job_id,omitempty"`
	RunID   string           `json:"run_id,omitempty"`
	Domain  string           `json:"domain,omitempty"`
	Phase   string           `json:"phase,omitempty"`
	Message string           `json:"message,omitempty"`
	Summary *compare.Summary `json:"summary,omitempty"`
	Time    time.Time        `json:"time"`
}

// Notifier delivers events outside the process.
type Notifier interface {
	ID() string
	Type() Type
	Notify(ctx context.Context, ev Event) error
}
