// Package pipeline drives due and manual crawls through execution,
// analysis, comparison and reporting.
package pipeline

import (
	"errors"
	"time"

	"github.com/tgifai/crawlwatch/internal/analysis"
	"github.com/tgifai/crawlwatch/internal/compare"
	"github.com/tgifai/crawlwatch/internal/crawl"
)

var (
	ErrComparisonUnavailable = errors.New("comparison unavailable")
	ErrStopped               = errors.New("pipeline stopped")
	ErrLaneFull              = errors.New("lane is full")
)

type Source string

const (
	SourceSchedule Source = "schedule"
	SourceManual   Source = "manual"
)

type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Task is one queued crawl.
type Task struct {
	RunID     string         `json:"run_id"`
	JobID     string         `json:"job_id,omitempty"`
	Name      string         `json:"name,omitempty"`
	Source    Source         `json:"source"`
	Request   *crawl.Request `json:"request"`
	Submitted time.Time      `json:"submitted"`
}

func (t *Task) domain() string {
	if t.Request == nil {
		return "unknown"
	}
	return t.Request.Domain()
}

// Outcome is the record of a finished run. Optional stage failures land in
// Warnings; Error is set only when the crawl itself failed.
type Outcome struct {
	RunID      string           `json:"run_id"`
	JobID      string           `json:"job_id,omitempty"`
	Name       string           `json:"name,omitempty"`
	Source     Source           `json:"source"`
	Domain     string           `json:"domain"`
	Status     Status           `json:"status"`
	Error      string           `json:"error,omitempty"`
	Warnings   []string         `json:"warnings,omitempty"`
	OutputDir  string           `json:"output_dir,omitempty"`
	BaseName   string           `json:"base_name,omitempty"`
	Files      []string         `json:"files,omitempty"`
	Previous   string           `json:"previous,omitempty"`
	Summary    *compare.Summary `json:"summary,omitempty"`
	Analysis   *analysis.Stats  `json:"analysis,omitempty"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
}

func (o *Outcome) warn(err error) {
	o.Warnings = append(o.Warnings, err.Error())
}

func (o *Outcome) Duration() time.Duration {
	return o.FinishedAt.Sub(o.StartedAt)
}
