package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tgifai/crawlwatch/internal/crawl"
	"github.com/tgifai/crawlwatch/internal/notify"
	"github.com/tgifai/crawlwatch/internal/pkg/logs"
	"github.com/tgifai/crawlwatch/internal/report"
	"github.com/tgifai/crawlwatch/internal/schedule"
)

type Options struct {
	Executor crawl.Executor
	Sink     report.Sink
	Bus      *notify.Bus
	History  *History

	ConfigDir string
	TempDir   string
	OutputDir string

	// MaxConcurrent bounds crawls across all domains.
	MaxConcurrent int
	// LaneBuffer is the number of queued runs per domain.
	LaneBuffer int

	// Comparison and InternalAnalysis gate the optional stages globally; a
	// request must also ask for them.
	Comparison       bool
	InternalAnalysis bool

	Now func() time.Time
}

// Coordinator serialises runs per domain and bounds global concurrency.
type Coordinator struct {
	opts Options

	lanes map[string]chan *Task
	mu    sync.Mutex
	sem   chan struct{}

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
	stopped bool
}

func NewCoordinator(opts Options) *Coordinator {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 3
	}
	if opts.LaneBuffer <= 0 {
		opts.LaneBuffer = 16
	}
	if opts.Sink == nil {
		opts.Sink = report.PDFSink{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Coordinator{
		opts:  opts,
		lanes: make(map[string]chan *Task),
		sem:   make(chan struct{}, opts.MaxConcurrent),
	}
}

// Start begins consuming due events. due may be nil when only manual
// submissions are expected.
func (c *Coordinator) Start(ctx context.Context, due <-chan schedule.DueEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return fmt.Errorf("pipeline already started")
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.started = true

	if due != nil {
		c.wg.Add(1)
		go c.consume(due)
	}
	return nil
}

func (c *Coordinator) consume(due <-chan schedule.DueEvent) {
	defer c.wg.Done()
	for {
		select {
		case <-c.ctx.Done():
			return
		case ev, ok := <-due:
			if !ok {
				return
			}
			ctx := logs.WithLogID(c.ctx)
			if _, err := c.SubmitDue(ctx, ev); err != nil {
				logs.CtxWarn(ctx, "[pipeline] job %s not queued: %v", ev.JobID, err)
			}
		}
	}
}

// SubmitDue turns a due event into a task. A crawl config that does not
// decode is recorded as a failed run.
func (c *Coordinator) SubmitDue(ctx context.Context, ev schedule.DueEvent) (*Task, error) {
	req, err := crawl.DecodeRequest(ev.CrawlConfig)
	task := &Task{
		RunID:     uuid.NewString(),
		JobID:     ev.JobID,
		Name:      ev.Name,
		Source:    SourceSchedule,
		Request:   req,
		Submitted: c.opts.Now(),
	}
	if err != nil {
		now := c.opts.Now()
		c.finish(ctx, &Outcome{
			RunID:      task.RunID,
			JobID:      task.JobID,
			Name:       task.Name,
			Source:     task.Source,
			Domain:     task.domain(),
			Status:     StatusFailed,
			Error:      err.Error(),
			StartedAt:  now,
			FinishedAt: now,
		})
		return nil, err
	}
	return task, c.enqueue(ctx, task)
}

// Submit queues a manual crawl.
func (c *Coordinator) Submit(ctx context.Context, req *crawl.Request) (*Task, error) {
	if req == nil {
		return nil, fmt.Errorf("crawl request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	task := &Task{
		RunID:     uuid.NewString(),
		Source:    SourceManual,
		Request:   req,
		Submitted: c.opts.Now(),
	}
	return task, c.enqueue(ctx, task)
}

// RunNow runs a manual crawl on the calling goroutine, bypassing the lanes.
// The outcome is recorded and announced like a queued run.
func (c *Coordinator) RunNow(ctx context.Context, req *crawl.Request) (*Outcome, error) {
	if req == nil {
		return nil, fmt.Errorf("crawl request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	task := &Task{
		RunID:     uuid.NewString(),
		Source:    SourceManual,
		Request:   req,
		Submitted: c.opts.Now(),
	}
	ctx = logs.SetLogID(ctx, task.RunID)
	o := c.Run(ctx, task)
	c.finish(ctx, o)
	return o, nil
}

func (c *Coordinator) enqueue(ctx context.Context, task *Task) error {
	lane, err := c.lane(task.domain())
	if err != nil {
		return err
	}
	select {
	case lane <- task:
		logs.CtxInfo(ctx, "[pipeline] run %s queued for %s (%s)", task.RunID, task.domain(), task.Source)
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrLaneFull, task.domain())
	}
}

func (c *Coordinator) lane(domain string) (chan *Task, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started || c.stopped {
		return nil, ErrStopped
	}
	if lane, ok := c.lanes[domain]; ok {
		return lane, nil
	}
	lane := make(chan *Task, c.opts.LaneBuffer)
	c.lanes[domain] = lane
	c.wg.Add(1)
	go c.processLane(domain, lane)
	return lane, nil
}

func (c *Coordinator) processLane(domain string, lane chan *Task) {
	defer c.wg.Done()
	for {
		select {
		case <-c.ctx.Done():
			return
		case task := <-lane:
			if err := c.acquire(); err != nil {
				return
			}
			ctx := logs.SetLogID(c.ctx, task.RunID)
			c.finish(ctx, c.Run(ctx, task))
			c.release()
		}
	}
}

func (c *Coordinator) acquire() error {
	select {
	case c.sem <- struct{}{}:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	}
}

func (c *Coordinator) release() {
	select {
	case <-c.sem:
	default:
	}
}

// Stop cancels running crawls and waits for the lanes to exit.
func (c *Coordinator) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.started || c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	c.cancel()
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// History returns the run history, nil when disabled.
func (c *Coordinator) History() *History { return c.opts.History }

func (c *Coordinator) publish(ev notify.Event) {
	if c.opts.Bus == nil {
		return
	}
	if ev.Time.IsZero() {
		ev.Time = c.opts.Now()
	}
	c.opts.Bus.Publish(ev)
}
