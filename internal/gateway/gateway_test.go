package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/tgifai/crawlwatch/internal/config"
	"github.com/tgifai/crawlwatch/internal/crawl"
	"github.com/tgifai/crawlwatch/internal/schedule"
)

type nopExecutor struct{}

func (nopExecutor) Execute(context.Context, *crawl.Request, crawl.ProgressFunc) (*crawl.Result, error) {
	return nil, crawl.ErrCrawlFailed
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	_ = l.Close()
	return addr
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Server.Bind = freeAddr(t)
	cfg.Scheduler.Store = filepath.Join(dir, "jobs.json")
	cfg.Scheduler.Timezone = "UTC"
	cfg.Crawler.OutputDir = filepath.Join(dir, "crawls")
	cfg.Crawler.ConfigDir = filepath.Join(dir, "configs")
	cfg.Crawler.TempDir = filepath.Join(dir, "tmp")
	cfg.Pipeline.History = filepath.Join(dir, "runs.jsonl")
	cfg.Notifiers = map[string]config.NotifierConfig{"log": {Type: "log", Enabled: true}}
	return cfg
}

func waitHealthy(t *testing.T, addr string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(fmt.Sprintf("http://%s/health", addr))
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("server on %s never became healthy", addr)
}

func TestGatewayRestartRecoversJobs(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	gw, err := NewGateway(cfg, WithExecutor(nopExecutor{}))
	if err != nil {
		t.Fatalf("NewGateway: %v", err)
	}
	if err := gw.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitHealthy(t, cfg.Server.Bind)

	tomorrow := time.Now().UTC().Add(24 * time.Hour)
	view, err := gw.Scheduler().Add(ctx, schedule.NewJob{
		Date:        tomorrow.Format("2006-01-02"),
		Time:        "06:30",
		Frequency:   "daily",
		CrawlConfig: json.RawMessage(`{"url":"https://www.example.com/"}`),
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	stopCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := gw.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	cfg.Server.Bind = freeAddr(t)
	gw2, err := NewGateway(cfg, WithExecutor(nopExecutor{}))
	if err != nil {
		t.Fatalf("NewGateway: %v", err)
	}
	if err := gw2.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() { _ = gw2.Stop(stopCtx) }()

	got, err := gw2.Scheduler().Get(view.ID)
	if err != nil {
		t.Fatalf("job lost across restart: %v", err)
	}
	if !got.IsActive || got.NextRun == nil {
		t.Fatalf("job not re-armed: %+v", got)
	}
}

func TestGatewaySchedulerDisabled(t *testing.T) {
	cfg := testConfig(t)
	off := false
	cfg.Scheduler.Enabled = &off

	gw, err := NewGateway(cfg, WithExecutor(nopExecutor{}))
	if err != nil {
		t.Fatalf("NewGateway: %v", err)
	}
	if gw.Scheduler() != nil {
		t.Fatalf("scheduler should be nil")
	}
	if err := gw.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitHealthy(t, cfg.Server.Bind)

	resp, err := http.Get(fmt.Sprintf("http://%s/api/v1/jobs", cfg.Server.Bind))
	if err != nil {
		t.Fatalf("GET jobs: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	_ = gw.Stop(context.Background())
}

func TestNewGatewayBadTimezone(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scheduler.Timezone = "Mars/Olympus"
	if _, err := NewGateway(cfg); err == nil {
		t.Fatalf("expected error")
	}
}
