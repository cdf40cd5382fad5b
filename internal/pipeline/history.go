package pipeline

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bytedance/sonic"

	"github.com/tgifai/crawlwatch/internal/pkg/logs"
)

// History appends finished runs to a JSON-lines file.
type History struct {
	path string
	mu   sync.Mutex
}

func NewHistory(path string) *History {
	return &History{path: path}
}

func (h *History) Path() string { return h.path }

func (h *History) Append(o *Outcome) error {
	if h == nil || h.path == "" {
		return nil
	}
	line, err := sonic.Marshal(o)
	if err != nil {
		return fmt.Errorf("encode run: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(h.path), 0o755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}
	f, err := os.OpenFile(h.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return nil
}

// List returns up to limit runs, newest first. limit <= 0 returns all.
// Unparseable lines are skipped.
func (h *History) List(limit int) ([]Outcome, error) {
	if h == nil || h.path == "" {
		return nil, nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	f, err := os.Open(h.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Outcome{}, nil
		}
		return nil, fmt.Errorf("open history: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var all []Outcome
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var o Outcome
		if err := sonic.UnmarshalString(line, &o); err != nil {
			logs.Warn("[pipeline] skip bad history line: %v", err)
			continue
		}
		all = append(all, o)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan history: %w", err)
	}

	out := make([]Outcome, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		out = append(out, all[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
