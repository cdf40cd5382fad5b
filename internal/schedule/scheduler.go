package schedule

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/tgifai/crawlwatch/internal/pkg/logs"
	"github.com/tgifai/crawlwatch/internal/pkg/prometheus"
)

const defaultDispatchBuffer = 64

type Options struct {
	// Location anchors are parsed in. Defaults to time.Local.
	Location *time.Location
	// Now is the clock used for validation and next-run reporting.
	Now func() time.Time
	// DispatchBuffer sizes the due-event channel.
	DispatchBuffer int
	// OnRemoved is called after a one-shot job deleted itself.
	OnRemoved func(job Job)
}

// Scheduler keeps exactly one live trigger per active job and publishes a
// DueEvent whenever a trigger elapses.
type Scheduler struct {
	store *Store
	opts  Options
	cron  *cron.Cron

	// mu serialises store mutations, trigger changes and fires.
	mu       sync.Mutex
	triggers map[string]trigger

	due     chan DueEvent
	stopped chan struct{}

	stateMu sync.Mutex
	started bool
	closed  bool
}

type trigger struct {
	entry   cron.EntryID
	pattern string
}

func NewScheduler(store *Store, opts Options) *Scheduler {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.DispatchBuffer <= 0 {
		opts.DispatchBuffer = defaultDispatchBuffer
	}
	cl := logs.NewCronLogger(logs.DefaultLogger())
	return &Scheduler{
		store: store,
		opts:  opts,
		cron: cron.New(
			cron.WithLocation(opts.Location),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl)),
		),
		triggers: make(map[string]trigger),
		due:      make(chan DueEvent, opts.DispatchBuffer),
		stopped:  make(chan struct{}),
	}
}

// Due delivers one event per elapsed trigger. Consumers must keep draining it.
func (s *Scheduler) Due() <-chan DueEvent {
	return s.due
}

func (s *Scheduler) Location() *time.Location { return s.opts.Location }

// Start loads the store and re-arms every active job in list order.
func (s *Scheduler) Start(ctx context.Context) error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.started {
		return errors.New("scheduler already started")
	}

	s.recover(ctx)
	s.cron.Start()
	s.started = true
	logs.CtxInfo(ctx, "[schedule] scheduler started (jobs=%d, live=%d, tz=%s)",
		s.store.Len(), s.liveCount(), s.opts.Location)
	return nil
}

func (s *Scheduler) recover(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.store.Load(ctx)
	for _, job := range s.store.List() {
		if job.Status != StatusActive {
			continue
		}
		if err := s.armLocked(job); err != nil {
			// Status stays active on disk until the next explicit mutation.
			logs.CtxWarn(ctx, "[schedule] recover job %s failed: %v", job.ID, err)
		}
	}
}

// Shutdown tears down every live trigger without touching the store.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.stateMu.Lock()
	if s.closed {
		s.stateMu.Unlock()
		return nil
	}
	s.closed = true
	wasStarted := s.started
	s.stateMu.Unlock()

	// Release fires blocked on a full due queue before waiting for them.
	close(s.stopped)

	var err error
	if wasStarted {
		select {
		case <-s.cron.Stop().Done():
		case <-ctx.Done():
			err = fmt.Errorf("wait for running triggers: %w", ctx.Err())
		}
	}

	s.mu.Lock()
	for id := range s.triggers {
		s.disarmLocked(id)
	}
	s.mu.Unlock()

	logs.CtxInfo(ctx, "[schedule] scheduler stopped")
	return err
}

// Validate reports whether Add would accept date and time, without side effects.
func (s *Scheduler) Validate(date, clock string) error {
	_, err := validateAt(date, clock, s.opts.Now(), s.opts.Location)
	return err
}

// Add stores a new active job and arms its trigger. A trigger failure keeps
// the job with status error and returns ErrTrigger. A failed write returns
// ErrPersistence, which IsWarning accepts.
func (s *Scheduler) Add(ctx context.Context, in NewJob) (JobView, error) {
	freq, err := ParseFrequency(in.Frequency)
	if err != nil {
		return JobView{}, err
	}
	if _, err := validateAt(in.Date, in.Time, s.opts.Now(), s.opts.Location); err != nil {
		return JobView{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = uuid.NewString()
	} else if _, exists := s.store.Get(id); exists {
		return JobView{}, fmt.Errorf("%w: job id %s already exists", ErrValidation, id)
	}

	job := Job{
		ID:          id,
		Name:        strings.TrimSpace(in.Name),
		Date:        strings.TrimSpace(in.Date),
		Time:        strings.TrimSpace(in.Time),
		Frequency:   freq,
		CrawlConfig: in.CrawlConfig,
		Status:      StatusActive,
		CreatedAt:   s.opts.Now(),
	}
	s.store.Append(job)

	var trigErr error
	if err := s.armLocked(job); err != nil {
		trigErr = err
		job, _ = s.store.Update(id, func(j *Job) {
			j.Status = StatusError
			j.LastError = err.Error()
		})
		logs.CtxWarn(ctx, "[schedule] job %s kept in error state: %v", id, err)
	}

	saveErr := s.saveLocked(ctx)
	view := s.viewLocked(job)
	if trigErr == nil {
		logs.CtxInfo(ctx, "[schedule] job %s added (%s, next=%s)", id, freq, formatNext(view.NextRun))
	}
	return view, errors.Join(trigErr, saveErr)
}

// Cancel removes the trigger and keeps the record as cancelled. Cancelling a
// cancelled job succeeds without changes.
func (s *Scheduler) Cancel(ctx context.Context, id string) (JobView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.store.Get(id)
	if !ok {
		return JobView{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.disarmLocked(id)
	if job.Status == StatusCancelled {
		return s.viewLocked(job), nil
	}

	job, _ = s.store.Update(id, func(j *Job) {
		j.Status = StatusCancelled
		j.LastError = ""
	})
	logs.CtxInfo(ctx, "[schedule] job %s cancelled", id)
	return s.viewLocked(job), s.saveLocked(ctx)
}

// Delete removes the record and its trigger.
func (s *Scheduler) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.disarmLocked(id)
	if !s.store.Remove(id) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	logs.CtxInfo(ctx, "[schedule] job %s deleted", id)
	return s.saveLocked(ctx)
}

func (s *Scheduler) UpdateName(ctx context.Context, id, name string) (JobView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.store.Update(id, func(j *Job) { j.Name = strings.TrimSpace(name) })
	if !ok {
		return JobView{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	logs.CtxInfo(ctx, "[schedule] job %s renamed to %q", id, job.Name)
	return s.viewLocked(job), s.saveLocked(ctx)
}

// UpdateFrequency rebuilds the trigger from the stored anchor with the new
// frequency. Active and errored jobs are re-armed; cancelled jobs only get
// the new frequency recorded.
func (s *Scheduler) UpdateFrequency(ctx context.Context, id, frequency string) (JobView, error) {
	freq, err := ParseFrequency(frequency)
	if err != nil {
		return JobView{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.store.Get(id)
	if !ok {
		return JobView{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.disarmLocked(id)
	job.Frequency = freq

	var trigErr error
	if job.Status != StatusCancelled {
		if trigErr = s.armLocked(job); trigErr != nil {
			job.Status = StatusError
			job.LastError = trigErr.Error()
			logs.CtxWarn(ctx, "[schedule] job %s frequency %s not armed: %v", id, freq, trigErr)
		} else {
			job.Status = StatusActive
			job.LastError = ""
		}
	}
	job, _ = s.store.Update(id, func(j *Job) {
		j.Frequency = job.Frequency
		j.Status = job.Status
		j.LastError = job.LastError
	})

	saveErr := s.saveLocked(ctx)
	view := s.viewLocked(job)
	logs.CtxInfo(ctx, "[schedule] job %s frequency -> %s (next=%s)", id, freq, formatNext(view.NextRun))
	return view, errors.Join(trigErr, saveErr)
}

// List returns every record in persisted order joined with its live trigger.
func (s *Scheduler) List() []JobView {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := s.store.List()
	out := make([]JobView, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, s.viewLocked(j))
	}
	return out
}

func (s *Scheduler) Get(id string) (JobView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.store.Get(id)
	if !ok {
		return JobView{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.viewLocked(job), nil
}

// fire runs on the cron goroutine when a job's trigger elapses.
func (s *Scheduler) fire(id string) {
	ctx := logs.WithLogID(context.Background())

	s.mu.Lock()
	job, ok := s.store.Get(id)
	if !ok || job.Status != StatusActive {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	prometheus.TriggerFires.WithLabelValues(string(job.Frequency)).Inc()
	logs.CtxInfo(ctx, "[schedule] job %s due (%s)", id, job.Frequency)
	dispatched := s.dispatch(ctx, DueEvent{
		JobID:       job.ID,
		Name:        job.Name,
		Frequency:   job.Frequency,
		CrawlConfig: job.CrawlConfig,
		FiredAt:     s.opts.Now(),
	})

	// An undispatched one-shot job stays in the store.
	if !dispatched || job.Frequency != FrequencyOnce {
		return
	}

	s.mu.Lock()
	s.disarmLocked(id)
	removed := s.store.Remove(id)
	if removed {
		_ = s.saveLocked(ctx)
	}
	s.mu.Unlock()

	if removed {
		logs.CtxInfo(ctx, "[schedule] one-shot job %s removed after firing", id)
		if s.opts.OnRemoved != nil {
			s.opts.OnRemoved(job)
		}
	}
}

func (s *Scheduler) dispatch(ctx context.Context, ev DueEvent) bool {
	select {
	case <-s.stopped:
		logs.CtxWarn(ctx, "[schedule] scheduler stopped, job %s not dispatched", ev.JobID)
		return false
	default:
	}
	select {
	case s.due <- ev:
		return true
	default:
	}
	logs.CtxWarn(ctx, "[schedule] due queue full, waiting to dispatch job %s", ev.JobID)
	select {
	case s.due <- ev:
		return true
	case <-s.stopped:
		logs.CtxWarn(ctx, "[schedule] scheduler stopped, job %s not dispatched", ev.JobID)
		return false
	}
}

func (s *Scheduler) armLocked(job Job) error {
	sched, pattern, err := buildSchedule(job, s.opts.Now(), s.opts.Location)
	if err != nil {
		return err
	}
	id := job.ID
	entry := s.cron.Schedule(sched, cron.FuncJob(func() { s.fire(id) }))
	s.triggers[id] = trigger{entry: entry, pattern: pattern}
	prometheus.LiveTriggers.Set(float64(len(s.triggers)))
	return nil
}

func (s *Scheduler) disarmLocked(id string) {
	t, ok := s.triggers[id]
	if !ok {
		return
	}
	s.cron.Remove(t.entry)
	delete(s.triggers, id)
	prometheus.LiveTriggers.Set(float64(len(s.triggers)))
}

func (s *Scheduler) saveLocked(ctx context.Context) error {
	if err := s.store.Save(); err != nil {
		prometheus.StoreWriteErrors.Inc()
		logs.CtxError(ctx, "[schedule] persist job store: %v", err)
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

func (s *Scheduler) viewLocked(job Job) JobView {
	v := JobView{Job: job}
	t, ok := s.triggers[job.ID]
	if !ok {
		return v
	}
	v.IsActive = true
	v.Pattern = t.pattern
	if e := s.cron.Entry(t.entry); e.Valid() {
		if next := e.Schedule.Next(s.opts.Now()); !next.IsZero() {
			v.NextRun = &next
		}
	}
	return v
}

func (s *Scheduler) liveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.triggers)
}

func formatNext(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.RFC3339)
}
