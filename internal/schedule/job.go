package schedule

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Frequency controls how often a job fires after its anchor.
type Frequency string

const (
	FrequencyOnce    Frequency = "once"
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FrequencyOnce, FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return f, nil
	case "":
		return FrequencyOnce, nil
	default:
		return "", fmt.Errorf("%w: unknown frequency %q", ErrValidation, s)
	}
}

type Status string

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
	StatusError     Status = "error"
)

// Job is the persisted record of a scheduled crawl.
type Job struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	Date      string    `json:"date"` // YYYY-MM-DD
	Time      string    `json:"time"` // HH:MM or HH:MM:SS
	Frequency Frequency `json:"frequency"`
	// CrawlConfig is passed through to the crawl executor untouched.
	CrawlConfig json.RawMessage `json:"crawl_config,omitempty"`
	Status      Status          `json:"status"`
	LastError   string          `json:"last_error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (j Job) clone() Job {
	if j.CrawlConfig != nil {
		j.CrawlConfig = append(json.RawMessage(nil), j.CrawlConfig...)
	}
	return j
}

// NewJob is the input of Scheduler.Add.
type NewJob struct {
	ID          string          `json:"id,omitempty"`
	Name        string          `json:"name,omitempty"`
	Date        string          `json:"date"`
	Time        string          `json:"time"`
	Frequency   string          `json:"frequency"`
	CrawlConfig json.RawMessage `json:"crawl_config,omitempty"`
}

// JobView joins a job with its live trigger.
type JobView struct {
	Job
	NextRun  *time.Time `json:"next_run"`
	IsActive bool       `json:"is_active"`
	Pattern  string     `json:"pattern,omitempty"`
}

// DueEvent is published when a job's trigger elapses.
type DueEvent struct {
	JobID       string          `json:"job_id"`
	Name        string          `json:"name,omitempty"`
	Frequency   Frequency       `json:"frequency"`
	CrawlConfig json.RawMessage `json:"crawl_config,omitempty"`
	FiredAt     time.Time       `json:"fired_at"`
}
