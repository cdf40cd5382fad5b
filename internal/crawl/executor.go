package crawl

import (
	"context"
	"errors"
	"time"
)

var ErrCrawlFailed = errors.New("crawl failed")

// ProgressFunc receives human-readable phase strings.
type ProgressFunc func(phase string)

// Result locates the exports of a finished crawl.
type Result struct {
	OutputDir string        `json:"output_dir"`
	BaseName  string        `json:"base_name"`
	Domain    string        `json:"domain"`
	Duration  time.Duration `json:"duration"`
}

// Executor runs one crawl to completion.
type Executor interface {
	Execute(ctx context.Context, req *Request, progress ProgressFunc) (*Result, error)
}
