package schedule

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

var testNow = time.Date(2030, 1, 1, 8, 0, 0, 0, time.UTC)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func newTestScheduler(t *testing.T, path string, opts Options) (*Scheduler, *clock) {
	t.Helper()
	c := &clock{now: testNow}
	if opts.Now == nil {
		opts.Now = c.Now
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if path == "" {
		path = filepath.Join(t.TempDir(), "jobs.json")
	}
	s := NewScheduler(NewStore(path), opts)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s, c
}

func TestValidate(t *testing.T) {
	s, _ := newTestScheduler(t, "", Options{})

	tests := []struct {
		name    string
		date    string
		time    string
		wantErr bool
	}{
		{name: "future minute", date: "2030-01-01", time: "08:01", wantErr: false},
		{name: "future with seconds", date: "2030-01-02", time: "09:30:15", wantErr: false},
		{name: "exactly now", date: "2030-01-01", time: "08:00", wantErr: true},
		{name: "past", date: "2029-12-31", time: "23:59", wantErr: true},
		{name: "missing date", date: "", time: "10:00", wantErr: true},
		{name: "bad date", date: "01/02/2030", time: "10:00", wantErr: true},
		{name: "bad time", date: "2030-01-02", time: "25:00", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Validate(tt.date, tt.time)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate(%q, %q) error = %v, wantErr %v", tt.date, tt.time, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrValidation) {
				t.Fatalf("error %v is not ErrValidation", err)
			}

			_, addErr := s.Add(context.Background(), NewJob{Date: tt.date, Time: tt.time, Frequency: "once"})
			if (addErr != nil) != tt.wantErr {
				t.Fatalf("Add() disagrees with Validate(): add error = %v", addErr)
			}
		})
	}
}

func TestAddRejectsUnknownFrequency(t *testing.T) {
	s, _ := newTestScheduler(t, "", Options{})
	_, err := s.Add(context.Background(), NewJob{Date: "2030-01-02", Time: "10:00", Frequency: "hourly"})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("Add() error = %v, want ErrValidation", err)
	}
	if len(s.List()) != 0 {
		t.Fatalf("rejected job was stored")
	}
}

func TestOnceJobFiresAndRemovesItself(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.json")
	var removed []string
	s, _ := newTestScheduler(t, path, Options{OnRemoved: func(j Job) { removed = append(removed, j.ID) }})

	cfg := json.RawMessage(`{"mode":"url","url":"https://example.com"}`)
	view, err := s.Add(context.Background(), NewJob{
		Name: "nightly", Date: "2030-01-02", Time: "09:30", Frequency: "once", CrawlConfig: cfg,
	})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	want := time.Date(2030, 1, 2, 9, 30, 0, 0, time.UTC)
	if !view.IsActive || view.NextRun == nil || !view.NextRun.Equal(want) {
		t.Fatalf("view = %+v, want active with next run %s", view, want)
	}

	s.fire(view.ID)

	select {
	case ev := <-s.Due():
		if ev.JobID != view.ID || string(ev.CrawlConfig) != string(cfg) {
			t.Fatalf("due event = %+v", ev)
		}
	default:
		t.Fatalf("no due event published")
	}
	if got := s.List(); len(got) != 0 {
		t.Fatalf("List() after fire = %+v, want empty", got)
	}
	if len(removed) != 1 || removed[0] != view.ID {
		t.Fatalf("OnRemoved calls = %v", removed)
	}
	jobs, err := ReadJobs(path)
	if err != nil || len(jobs) != 0 {
		t.Fatalf("persisted jobs = %v, err = %v", jobs, err)
	}
}

func TestRecurringNextRun(t *testing.T) {
	// 2030-01-02 is a Wednesday.
	tests := []struct {
		freq  string
		check func(t *testing.T, next time.Time)
	}{
		{"daily", func(t *testing.T, next time.Time) {
			if want := time.Date(2030, 1, 1, 9, 30, 0, 0, time.UTC); !next.Equal(want) {
				t.Fatalf("next = %s, want %s", next, want)
			}
		}},
		{"weekly", func(t *testing.T, next time.Time) {
			if next.Weekday() != time.Wednesday || next.Hour() != 9 || next.Minute() != 30 {
				t.Fatalf("next = %s, want Wednesday 09:30", next)
			}
		}},
		{"monthly", func(t *testing.T, next time.Time) {
			if next.Day() != 2 || next.Hour() != 9 || next.Minute() != 30 || next.Second() != 0 {
				t.Fatalf("next = %s, want day 2 at 09:30:00", next)
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.freq, func(t *testing.T) {
			s, _ := newTestScheduler(t, "", Options{})
			view, err := s.Add(context.Background(), NewJob{Date: "2030-01-02", Time: "09:30:45", Frequency: tt.freq})
			if err != nil {
				t.Fatalf("Add() error = %v", err)
			}
			if view.NextRun == nil || !view.NextRun.After(testNow) {
				t.Fatalf("next run = %v, want after %s", view.NextRun, testNow)
			}
			tt.check(t, *view.NextRun)

			s.fire(view.ID)
			<-s.Due()
			if got, err := s.Get(view.ID); err != nil || !got.IsActive {
				t.Fatalf("recurring job after fire = %+v, err = %v", got, err)
			}
		})
	}
}

func TestMonthlySkipsShortMonths(t *testing.T) {
	job := Job{ID: "m", Date: "2030-01-31", Time: "10:00", Frequency: FrequencyMonthly}
	sched, _, err := buildSchedule(job, testNow, time.UTC)
	if err != nil {
		t.Fatalf("buildSchedule() error = %v", err)
	}
	next := sched.Next(time.Date(2030, 2, 1, 0, 0, 0, 0, time.UTC))
	if want := time.Date(2030, 3, 31, 10, 0, 0, 0, time.UTC); !next.Equal(want) {
		t.Fatalf("next = %s, want %s", next, want)
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	s, _ := newTestScheduler(t, "", Options{})
	view, err := s.Add(context.Background(), NewJob{Date: "2030-01-02", Time: "10:00", Frequency: "daily"})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	for i := 0; i < 2; i++ {
		got, err := s.Cancel(context.Background(), view.ID)
		if err != nil {
			t.Fatalf("Cancel() #%d error = %v", i+1, err)
		}
		if got.Status != StatusCancelled || got.IsActive || got.NextRun != nil {
			t.Fatalf("Cancel() #%d view = %+v", i+1, got)
		}
	}
	if list := s.List(); len(list) != 1 || list[0].Status != StatusCancelled {
		t.Fatalf("List() = %+v", list)
	}
	if _, err := s.Cancel(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Cancel(missing) error = %v, want ErrNotFound", err)
	}
}

func TestDeleteFreesTrigger(t *testing.T) {
	s, _ := newTestScheduler(t, "", Options{})
	view, err := s.Add(context.Background(), NewJob{Date: "2030-01-02", Time: "10:00", Frequency: "weekly"})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := s.Delete(context.Background(), view.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(s.List()) != 0 || len(s.triggers) != 0 || len(s.cron.Entries()) != 0 {
		t.Fatalf("job or trigger left after delete")
	}
	if err := s.Delete(context.Background(), view.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestUpdateName(t *testing.T) {
	s, _ := newTestScheduler(t, "", Options{})
	view, _ := s.Add(context.Background(), NewJob{Date: "2030-01-02", Time: "10:00", Frequency: "daily"})

	got, err := s.UpdateName(context.Background(), view.ID, "  homepage  ")
	if err != nil || got.Name != "homepage" || !got.IsActive {
		t.Fatalf("UpdateName() = %+v, %v", got, err)
	}
	if _, err := s.UpdateName(context.Background(), "nope", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("UpdateName(missing) error = %v", err)
	}
}

func TestUpdateFrequency(t *testing.T) {
	s, c := newTestScheduler(t, "", Options{})
	view, _ := s.Add(context.Background(), NewJob{Date: "2030-01-02", Time: "10:00", Frequency: "once"})

	got, err := s.UpdateFrequency(context.Background(), view.ID, "weekly")
	if err != nil {
		t.Fatalf("UpdateFrequency(weekly) error = %v", err)
	}
	if got.Frequency != FrequencyWeekly || got.NextRun == nil || got.NextRun.Weekday() != time.Wednesday {
		t.Fatalf("weekly view = %+v", got)
	}
	if len(s.triggers) != 1 {
		t.Fatalf("triggers = %d, want 1", len(s.triggers))
	}

	// Anchor passes: switching back to once cannot be armed.
	c.Set(time.Date(2030, 2, 1, 0, 0, 0, 0, time.UTC))
	got, err = s.UpdateFrequency(context.Background(), view.ID, "once")
	if !errors.Is(err, ErrTrigger) || IsWarning(err) {
		t.Fatalf("UpdateFrequency(once) error = %v, want ErrTrigger", err)
	}
	if got.Status != StatusError || got.IsActive {
		t.Fatalf("errored view = %+v", got)
	}

	// An errored job can be repaired.
	got, err = s.UpdateFrequency(context.Background(), view.ID, "monthly")
	if err != nil || got.Status != StatusActive || !got.IsActive {
		t.Fatalf("repair view = %+v, err = %v", got, err)
	}

	if _, err := s.Cancel(context.Background(), view.ID); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	got, err = s.UpdateFrequency(context.Background(), view.ID, "daily")
	if err != nil || got.IsActive || got.Status != StatusCancelled || got.Frequency != FrequencyDaily {
		t.Fatalf("cancelled view = %+v, err = %v", got, err)
	}
}

func TestAddTriggerFailureKeepsErroredJob(t *testing.T) {
	// The clock jumps past the anchor between validation and arming.
	calls := 0
	now := func() time.Time {
		calls++
		if calls == 1 {
			return testNow
		}
		return time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)
	}
	s, _ := newTestScheduler(t, "", Options{Now: now})

	view, err := s.Add(context.Background(), NewJob{Date: "2030-01-02", Time: "10:00", Frequency: "once"})
	if !errors.Is(err, ErrTrigger) {
		t.Fatalf("Add() error = %v, want ErrTrigger", err)
	}
	if view.Status != StatusError || view.IsActive || view.LastError == "" {
		t.Fatalf("view = %+v", view)
	}
	if list := s.List(); len(list) != 1 || list[0].Status != StatusError {
		t.Fatalf("List() = %+v", list)
	}
}

func TestPersistenceFailureIsWarning(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	s, _ := newTestScheduler(t, filepath.Join(blocker, "jobs.json"), Options{})

	view, err := s.Add(context.Background(), NewJob{Date: "2030-01-02", Time: "10:00", Frequency: "daily"})
	if !errors.Is(err, ErrPersistence) || !IsWarning(err) {
		t.Fatalf("Add() error = %v, want persistence warning", err)
	}
	if !view.IsActive {
		t.Fatalf("job not armed despite warning: %+v", view)
	}
	if len(s.List()) != 1 {
		t.Fatalf("job dropped from memory")
	}
}

func TestRestartRecoversActiveJobs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.json")
	jobs := []Job{
		{ID: "daily", Date: "2030-01-02", Time: "10:00", Frequency: FrequencyDaily, Status: StatusActive},
		{ID: "cancelled", Date: "2030-01-02", Time: "10:00", Frequency: FrequencyDaily, Status: StatusCancelled},
		{ID: "errored", Date: "2030-01-02", Time: "10:00", Frequency: FrequencyWeekly, Status: StatusError},
		{ID: "stale-once", Date: "2029-01-02", Time: "10:00", Frequency: FrequencyOnce, Status: StatusActive},
		{ID: "future-once", Date: "2030-03-01", Time: "12:00", Frequency: FrequencyOnce, Status: StatusActive},
	}
	seed := NewStore(path)
	for _, j := range jobs {
		seed.Append(j)
	}
	if err := seed.Save(); err != nil {
		t.Fatalf("seed Save() error = %v", err)
	}
	before, _ := os.ReadFile(path)

	s, _ := newTestScheduler(t, path, Options{})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	wantActive := map[string]bool{"daily": true, "future-once": true}
	list := s.List()
	if len(list) != len(jobs) {
		t.Fatalf("List() len = %d, want %d", len(list), len(jobs))
	}
	for i, v := range list {
		if v.ID != jobs[i].ID {
			t.Fatalf("List()[%d] = %s, want %s (order)", i, v.ID, jobs[i].ID)
		}
		if v.IsActive != wantActive[v.ID] {
			t.Fatalf("job %s IsActive = %v", v.ID, v.IsActive)
		}
		if v.Status != jobs[i].Status {
			t.Fatalf("job %s status changed to %s", v.ID, v.Status)
		}
	}

	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if len(s.triggers) != 0 {
		t.Fatalf("triggers left after shutdown: %d", len(s.triggers))
	}
	after, _ := os.ReadFile(path)
	if !bytes.Equal(before, after) {
		t.Fatalf("shutdown rewrote the store")
	}
}

func TestCorruptStoreStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, _ := newTestScheduler(t, path, Options{})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if len(s.List()) != 0 {
		t.Fatalf("List() not empty")
	}
	raw, _ := os.ReadFile(path)
	if string(raw) != "{not json" {
		t.Fatalf("corrupt file was modified: %q", raw)
	}
}

func TestFormatJobList(t *testing.T) {
	next := testNow.Add(90 * time.Minute)
	out := FormatJobList([]JobView{
		{Job: Job{ID: "a", Name: "home", Date: "2030-01-02", Time: "10:00", Frequency: FrequencyDaily, Status: StatusActive}, NextRun: &next, IsActive: true},
		{Job: Job{ID: "b", Date: "2030-01-02", Time: "10:00", Frequency: FrequencyOnce, Status: StatusError, LastError: "boom"}},
	}, testNow)
	for _, want := range []string{"ID", "home", "from now", "error: boom"} {
		if !bytes.Contains([]byte(out), []byte(want)) {
			t.Fatalf("FormatJobList() missing %q:\n%s", want, out)
		}
	}
	if FormatJobList(nil, testNow) != "No scheduled jobs.\n" {
		t.Fatalf("empty list output mismatch")
	}
}

// realClockJob adds a one-shot job a couple of seconds ahead on the wall clock.
func realClockJob(t *testing.T, s *Scheduler, at time.Time) JobView {
	t.Helper()
	view, err := s.Add(context.Background(), NewJob{
		Date: at.Format("2006-01-02"), Time: at.Format("15:04:05"), Frequency: "once",
	})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	return view
}

func TestTriggerFiresOnWallClock(t *testing.T) {
	s, _ := newTestScheduler(t, "", Options{Now: time.Now})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	view := realClockJob(t, s, time.Now().UTC().Add(2*time.Second).Truncate(time.Second))

	select {
	case ev := <-s.Due():
		if ev.JobID != view.ID {
			t.Fatalf("due event for %s, want %s", ev.JobID, view.ID)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("trigger did not fire")
	}

	deadline := time.Now().Add(time.Second)
	for len(s.List()) != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("one-shot job still listed after firing: %+v", s.List())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestShutdownReleasesBlockedDispatch(t *testing.T) {
	s, _ := newTestScheduler(t, "", Options{Now: time.Now, DispatchBuffer: 1})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	at := time.Now().UTC().Add(2 * time.Second).Truncate(time.Second)
	realClockJob(t, s, at)
	realClockJob(t, s, at)

	// Nobody drains Due(): one event fills the buffer, the other fire blocks.
	deadline := time.Now().Add(5 * time.Second)
	for len(s.due) < 1 {
		if time.Now().After(deadline) {
			t.Fatalf("triggers did not fire")
		}
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(200 * time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- s.Shutdown(context.Background()) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Shutdown() error = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("Shutdown() blocked behind a full due queue")
	}

	// The undispatched one-shot job is kept for the next start.
	if got := len(s.List()); got != 1 {
		t.Fatalf("List() len = %d, want 1", got)
	}
}
