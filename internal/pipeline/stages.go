package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tgifai/crawlwatch/internal/analysis"
	"github.com/tgifai/crawlwatch/internal/compare"
	"github.com/tgifai/crawlwatch/internal/crawl"
	"github.com/tgifai/crawlwatch/internal/notify"
	"github.com/tgifai/crawlwatch/internal/pkg/logs"
	"github.com/tgifai/crawlwatch/internal/pkg/prometheus"
	"github.com/tgifai/crawlwatch/internal/report"
	"github.com/tgifai/crawlwatch/internal/snapshot"
)

// Run executes every stage of one task and returns its outcome. Only a
// failed preparation or crawl fails the run.
func (c *Coordinator) Run(ctx context.Context, task *Task) *Outcome {
	o := &Outcome{
		RunID:     task.RunID,
		JobID:     task.JobID,
		Name:      task.Name,
		Source:    task.Source,
		Domain:    task.domain(),
		StartedAt: c.opts.Now(),
	}
	prometheus.RunsInFlight.Inc()
	defer prometheus.RunsInFlight.Dec()

	progress := func(phase string) {
		logs.CtxDebug(ctx, "[pipeline] %s: %s", o.Domain, phase)
		c.publish(notify.Event{Kind: notify.KindPhase, JobID: o.JobID, RunID: o.RunID, Domain: o.Domain, Phase: phase})
	}

	if task.Request == nil {
		return c.fail(o, fmt.Errorf("crawl request is missing"))
	}
	progress("Preparing directories")
	if err := c.prepare(); err != nil {
		return c.fail(o, err)
	}

	progress("Starting crawl")
	res, err := c.opts.Executor.Execute(ctx, task.Request, progress)
	if err != nil {
		return c.fail(o, err)
	}
	o.OutputDir, o.BaseName, o.Domain = res.OutputDir, res.BaseName, res.Domain

	exported := crawl.ListFiles(res.OutputDir, ".xlsx", ".csv")
	logs.CtxInfo(ctx, "[pipeline] %s exported %d files", o.BaseName, len(exported))

	if c.opts.InternalAnalysis && task.Request.ProcessOptions.InternalAnalysis {
		progress("Analysing internal URLs")
		c.analyse(ctx, o)
	}
	if c.opts.Comparison && task.Request.ProcessOptions.Comparison {
		progress("Comparing with previous crawl")
		if err := c.compareRuns(ctx, o); err != nil {
			logs.CtxWarn(ctx, "[pipeline] %s: %v", o.BaseName, err)
			o.warn(err)
		}
	}

	o.Files = crawl.ListFiles(res.OutputDir, ".xlsx", ".pdf")
	o.Status = StatusSucceeded
	o.FinishedAt = c.opts.Now()
	progress("Done")
	return o
}

func (c *Coordinator) prepare() error {
	for _, dir := range []string{c.opts.OutputDir, c.opts.ConfigDir, c.opts.TempDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("prepare %s: %w", dir, err)
		}
	}
	return nil
}

func (c *Coordinator) analyse(ctx context.Context, o *Outcome) {
	res, err := analysis.Run(ctx, o.OutputDir, o.BaseName)
	if err != nil {
		logs.CtxWarn(ctx, "[pipeline] internal analysis of %s failed: %v", o.BaseName, err)
		o.warn(fmt.Errorf("internal analysis: %w", err))
		return
	}
	o.Analysis = &res.Stats
	if _, err := report.RenderAnalysis(ctx, o.OutputDir, o.BaseName, o.Domain, res.Stats); err != nil {
		logs.CtxWarn(ctx, "[pipeline] analysis report of %s failed: %v", o.BaseName, err)
		o.warn(fmt.Errorf("analysis report: %w", err))
	}
}

// compareRuns diffs this run against the latest earlier run of the same domain
// and hands the diff to the report sink.
func (c *Coordinator) compareRuns(ctx context.Context, o *Outcome) error {
	prev := crawl.FindPreviousRun(filepath.Dir(o.OutputDir), o.Domain, filepath.Base(o.OutputDir))
	if prev == nil {
		return fmt.Errorf("%w: no previous run of %s", ErrComparisonUnavailable, o.Domain)
	}
	o.Previous = prev.FolderName

	previous, _, err := snapshot.ReadDir(prev.Path)
	if err != nil {
		return fmt.Errorf("%w: previous run %s: %v", ErrComparisonUnavailable, prev.FolderName, err)
	}
	current, _, err := snapshot.ReadDir(o.OutputDir)
	if err != nil {
		return fmt.Errorf("%w: current run: %v", ErrComparisonUnavailable, err)
	}

	diff := compare.Compare(previous, current)
	o.Summary = &diff.Summary
	logs.CtxInfo(ctx, "[pipeline] %s vs %s: +%d -%d ~%d",
		o.BaseName, prev.FolderName, diff.Summary.Added, diff.Summary.Removed, diff.Summary.Changed)

	_, err = c.opts.Sink.Render(ctx, o.OutputDir, o.BaseName, &report.Comparison{
		Domain:       o.Domain,
		PreviousDate: crawl.FormatTimestamp(prev.Timestamp),
		CurrentDate:  crawl.FormatTimestamp(crawl.TimestampOf(o.BaseName)),
		Diff:         diff,
	})
	if err != nil {
		return fmt.Errorf("comparison report: %w", err)
	}
	return nil
}

func (c *Coordinator) fail(o *Outcome, err error) *Outcome {
	o.Status = StatusFailed
	o.Error = err.Error()
	o.FinishedAt = c.opts.Now()
	return o
}

// finish records the outcome and announces it.
func (c *Coordinator) finish(ctx context.Context, o *Outcome) {
	if o.FinishedAt.IsZero() {
		o.FinishedAt = c.opts.Now()
	}
	prometheus.Runs.WithLabelValues(string(o.Source), string(o.Status)).Inc()
	prometheus.RunDuration.WithLabelValues(string(o.Status)).Observe(o.Duration().Seconds())

	if err := c.opts.History.Append(o); err != nil {
		logs.CtxWarn(ctx, "[pipeline] history: %v", err)
	}

	ev := notify.Event{
		JobID:   o.JobID,
		RunID:   o.RunID,
		Domain:  o.Domain,
		Summary: o.Summary,
	}
	if o.Status == StatusFailed {
		ev.Kind = notify.KindRunFailed
		ev.Message = o.Error
		logs.CtxError(ctx, "[pipeline] run %s (%s) failed: %s", o.RunID, o.Domain, o.Error)
	} else {
		ev.Kind = notify.KindRunFinished
		ev.Message = strings.Join(o.Warnings, "\n")
		logs.CtxInfo(ctx, "[pipeline] run %s (%s) finished in %s, %d files, %d warnings",
			o.RunID, o.Domain, o.Duration().Round(time.Second), len(o.Files), len(o.Warnings))
	}
	c.publish(ev)
}

// IsComparisonUnavailable reports whether a warning came from a missing or
// unreadable export.
func IsComparisonUnavailable(err error) bool {
	return errors.Is(err, ErrComparisonUnavailable)
}
