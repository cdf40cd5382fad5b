package schedule

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bytedance/sonic"

	"github.com/tgifai/crawlwatch/internal/pkg/logs"
)

// Store keeps the ordered job list and rewrites the whole file on Save.
type Store struct {
	path string
	jobs []Job
	mu   sync.RWMutex
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

// Load replaces the in-memory list with the file content. A missing or
// unreadable file leaves the store empty; the file itself is not touched.
func (s *Store) Load(ctx context.Context) {
	jobs, err := ReadJobs(s.path)
	if err != nil {
		logs.CtxWarn(ctx, "[schedule] job store %s unreadable, starting empty: %v", s.path, err)
		jobs = nil
	}

	s.mu.Lock()
	s.jobs = jobs
	s.mu.Unlock()
}

// ReadJobs decodes a job file. A missing or empty file yields no jobs.
func ReadJobs(path string) ([]Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read store file: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var jobs []Job
	if err := sonic.Unmarshal(data, &jobs); err != nil {
		return nil, fmt.Errorf("unmarshal store: %w", err)
	}
	return jobs, nil
}

// Save writes all jobs atomically (tmp + rename).
func (s *Store) Save() error {
	s.mu.RLock()
	jobs := make([]Job, len(s.jobs))
	copy(jobs, s.jobs)
	s.mu.RUnlock()

	data, err := sonic.ConfigStd.MarshalIndent(jobs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal store: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write tmp store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename store: %w", err)
	}
	return nil
}

func (s *Store) Append(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job.clone())
}

func (s *Store) Get(id string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.jobs[i].clone(), true
	}
	return Job{}, false
}

// Update applies fn to the job in place and returns the result.
func (s *Store) Update(id string, fn func(*Job)) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return Job{}, false
	}
	fn(&s.jobs[i])
	return s.jobs[i].clone(), true
}

func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return false
	}
	s.jobs = append(s.jobs[:i], s.jobs[i+1:]...)
	return true
}

// List returns a copy in persisted order.
func (s *Store) List() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Job, len(s.jobs))
	for i, j := range s.jobs {
		out[i] = j.clone()
	}
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

func (s *Store) indexLocked(id string) int {
	for i := range s.jobs {
		if s.jobs[i].ID == id {
			return i
		}
	}
	return -1
}
