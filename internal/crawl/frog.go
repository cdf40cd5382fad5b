package crawl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/tgifai/crawlwatch/internal/pkg/logs"
)

const (
	stderrTailBytes = 2048
	killGrace       = 5 * time.Second
)

// FrogOptions configures the Screaming Frog CLI.
type FrogOptions struct {
	Executable        string
	OutputDir         string
	Headless          bool
	SaveCrawl         bool
	ExportFormat      string
	Timeout           time.Duration
	DefaultExportTabs []string
	Now               func() time.Time
}

// Frog runs crawls with the Screaming Frog SEO Spider CLI.
type Frog struct {
	opts FrogOptions
}

var _ Executor = (*Frog)(nil)

func NewFrog(opts FrogOptions) *Frog {
	if opts.ExportFormat == "" {
		opts.ExportFormat = "xlsx"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Frog{opts: opts}
}

// Args builds the CLI argument list for a crawl into outputDir.
func (f *Frog) Args(req *Request, outputDir, baseName string) []string {
	var args []string
	if req.Mode == ModeFile {
		args = append(args, "--open-project", req.FilePath)
	} else {
		args = append(args, "--crawl", req.URL)
	}
	args = append(args, "--output-folder", outputDir)
	if req.Mode == ModeURL && req.ConfigFile != "" {
		args = append(args, "--config", req.ConfigFile)
	}
	if tabs := req.effectiveTabs(f.opts.DefaultExportTabs); len(tabs) > 0 {
		args = append(args, "--export-tabs", strings.Join(tabs, ","))
	}
	if len(req.BulkExports) > 0 {
		args = append(args, "--bulk-export", strings.Join(req.BulkExports, ","))
	}
	if f.opts.Headless {
		args = append(args, "--headless")
	}
	if req.Mode == ModeURL && f.opts.SaveCrawl {
		args = append(args, "--save-crawl", "--project-name", baseName)
	}
	return append(args, "--export-format", f.opts.ExportFormat)
}

func (f *Frog) Execute(ctx context.Context, req *Request, progress ProgressFunc) (*Result, error) {
	if progress == nil {
		progress = func(string) {}
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	progress("Checking crawler executable...")
	if err := f.checkExecutable(); err != nil {
		return nil, err
	}
	if req.Mode == ModeFile {
		if _, err := os.Stat(req.FilePath); err != nil {
			return nil, fmt.Errorf("crawl project %s: %w", req.FilePath, err)
		}
	}

	progress("Preparing output folder...")
	domain := req.Domain()
	baseName := BaseName(domain, f.opts.Now())
	outputDir := filepath.Join(f.opts.OutputDir, baseName)
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output folder: %w", err)
	}

	if req.Mode == ModeFile {
		progress("Processing crawl project...")
	} else {
		progress("Running crawl...")
	}
	args := f.Args(req, outputDir, baseName)
	logs.CtxInfo(ctx, "[crawl] exec %s %s", f.opts.Executable, strings.Join(args, " "))

	start := time.Now()
	if err := f.run(ctx, args); err != nil {
		logs.CtxError(ctx, "[crawl] %s failed after %s: %v", req.Target(), time.Since(start).Round(time.Second), err)
		return nil, err
	}
	res := &Result{
		OutputDir: outputDir,
		BaseName:  baseName,
		Domain:    domain,
		Duration:  time.Since(start),
	}
	logs.CtxInfo(ctx, "[crawl] %s finished in %s -> %s", req.Target(), res.Duration.Round(time.Second), outputDir)
	return res, nil
}

func (f *Frog) checkExecutable() error {
	if strings.TrimSpace(f.opts.Executable) == "" {
		return fmt.Errorf("%w: crawler.executable is not configured", ErrCrawlFailed)
	}
	info, err := os.Stat(f.opts.Executable)
	if err != nil {
		return fmt.Errorf("%w: crawler executable not found at %s", ErrCrawlFailed, f.opts.Executable)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: crawler executable %s is a directory", ErrCrawlFailed, f.opts.Executable)
	}
	return nil
}

// run executes the CLI directly, without a shell, in its own process group.
func (f *Frog) run(ctx context.Context, args []string) error {
	if f.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.opts.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, f.opts.Executable, args...)
	setProcessGroup(cmd)
	cmd.Cancel = func() error {
		killProcessGroup(cmd)
		return nil
	}
	cmd.WaitDelay = killGrace

	stderr := &tailBuffer{max: stderrTailBytes}
	cmd.Stderr = stderr

	err := cmd.Run()
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: timed out after %s", ErrCrawlFailed, f.opts.Timeout)
	case errors.Is(ctx.Err(), context.Canceled):
		return fmt.Errorf("%w: cancelled", ErrCrawlFailed)
	case err != nil:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%w: exit code %d: %s", ErrCrawlFailed, exitErr.ExitCode(), stderr.String())
		}
		return fmt.Errorf("%w: %v", ErrCrawlFailed, err)
	}
	return nil
}

// tailBuffer keeps the last max bytes written.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.max; over > 0 {
		b.buf = b.buf[over:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.TrimSpace(string(b.buf))
}
