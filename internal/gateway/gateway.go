package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	hzconfig "github.com/cloudwego/hertz/pkg/common/config"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	monitor "github.com/hertz-contrib/monitor-prometheus"

	"github.com/tgifai/crawlwatch/internal/config"
	"github.com/tgifai/crawlwatch/internal/crawl"
	"github.com/tgifai/crawlwatch/internal/notify"
	"github.com/tgifai/crawlwatch/internal/pipeline"
	"github.com/tgifai/crawlwatch/internal/pkg/logs"
	"github.com/tgifai/crawlwatch/internal/pkg/prometheus"
	"github.com/tgifai/crawlwatch/internal/pkg/utils"
	"github.com/tgifai/crawlwatch/internal/schedule"
	apiserver "github.com/tgifai/crawlwatch/internal/server"
)

const exitWait = 5 * time.Second

// Gateway owns the process runtime: scheduler, pipeline, notifiers and the
// HTTP control API.
type Gateway struct {
	cfg *config.Config

	scheduler   *schedule.Scheduler
	coordinator *pipeline.Coordinator
	bus         *notify.Bus
	httpServer  *server.Hertz

	runCtx    context.Context
	runCancel context.CancelFunc

	stopOnce sync.Once
	stopErr  error
}

// Option overrides a component, mostly for tests.
type Option func(*Gateway, *pipeline.Options)

// WithExecutor replaces the Screaming Frog executor.
func WithExecutor(e crawl.Executor) Option {
	return func(_ *Gateway, po *pipeline.Options) { po.Executor = e }
}

func NewGateway(cfg *config.Config, opts ...Option) (*Gateway, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Scheduler.Timezone, err)
	}

	gw := &Gateway{cfg: cfg}
	gw.bus = notify.NewBus(notify.NewRegistry(), 0)

	if config.Bool(cfg.Scheduler.Enabled, true) {
		gw.scheduler = schedule.NewScheduler(schedule.NewStore(cfg.Scheduler.Store), schedule.Options{
			Location:       loc,
			DispatchBuffer: cfg.Scheduler.DispatchBuffer,
			OnRemoved:      gw.jobRemoved,
		})
	}

	po := PipelineOptions(cfg, gw.bus)
	for _, opt := range opts {
		opt(gw, &po)
	}
	gw.coordinator = pipeline.NewCoordinator(po)
	gw.httpServer = newHTTPServer(cfg.Server)
	return gw, nil
}

// PipelineOptions maps the crawler and pipeline config sections onto the
// coordinator.
func PipelineOptions(cfg *config.Config, bus *notify.Bus) pipeline.Options {
	return pipeline.Options{
		Executor:         newFrog(cfg.Crawler),
		Bus:              bus,
		History:          pipeline.NewHistory(cfg.Pipeline.History),
		OutputDir:        cfg.Crawler.OutputDir,
		ConfigDir:        cfg.Crawler.ConfigDir,
		TempDir:          cfg.Crawler.TempDir,
		MaxConcurrent:    cfg.Pipeline.MaxConcurrentRuns,
		LaneBuffer:       cfg.Pipeline.LaneBuffer,
		Comparison:       config.Bool(cfg.Pipeline.Comparison, true),
		InternalAnalysis: config.Bool(cfg.Pipeline.InternalAnalysis, true),
	}
}

func newFrog(cfg config.CrawlerConfig) *crawl.Frog {
	return crawl.NewFrog(crawl.FrogOptions{
		Executable:        cfg.Executable,
		OutputDir:         cfg.OutputDir,
		Headless:          config.Bool(cfg.Headless, true),
		SaveCrawl:         config.Bool(cfg.SaveCrawl, true),
		ExportFormat:      cfg.ExportFormat,
		Timeout:           time.Duration(cfg.TimeoutSec) * time.Second,
		DefaultExportTabs: cfg.DefaultExportTabs,
	})
}

func newHTTPServer(cfg config.ServerConfig) *server.Hertz {
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	hlog.SetLogger(logs.NewHlogLogger(logs.DefaultLogger()))

	opts := []hzconfig.Option{
		server.WithHostPorts(cfg.Bind),
		server.WithReadTimeout(timeout),
		server.WithWriteTimeout(timeout),
		server.WithExitWaitTime(exitWait),
	}
	if cfg.MetricsBind != "" {
		opts = append(opts, server.WithTracer(monitor.NewServerTracer(
			cfg.MetricsBind, cfg.MetricsPath,
			monitor.WithRegistry(prometheus.GetRegistry()),
		)))
	}
	return server.Default(opts...)
}

func (gw *Gateway) Start(ctx context.Context) error {
	gw.runCtx, gw.runCancel = context.WithCancel(ctx)

	n := notify.RegisterAll(gw.bus.Registry(), gw.cfg.Notifiers)
	gw.bus.Start(gw.runCtx)
	logs.CtxInfo(ctx, "[gateway] %d notifiers ready", n)

	var due <-chan schedule.DueEvent
	if gw.scheduler != nil {
		due = gw.scheduler.Due()
	}
	if err := gw.coordinator.Start(gw.runCtx, due); err != nil {
		return fmt.Errorf("start pipeline: %w", err)
	}
	if gw.scheduler != nil {
		if err := gw.scheduler.Start(gw.runCtx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
	} else {
		logs.CtxWarn(ctx, "[gateway] scheduler is disabled, only manual crawls run")
	}

	if err := gw.initHTTPServer(); err != nil {
		return fmt.Errorf("init http server: %w", err)
	}
	if gw.cfg.Server.APIKey == "" && !utils.IsLocalBind(gw.cfg.Server.Bind) {
		logs.CtxWarn(ctx, "[gateway] %s is reachable from other hosts and no api_key is set", gw.cfg.Server.Bind)
	}

	go gw.httpServer.Spin()
	logs.CtxInfo(ctx, "[gateway] control API listening on %s", gw.cfg.Server.Bind)
	return nil
}

func (gw *Gateway) initHTTPServer() error {
	opts := apiserver.Options{
		Runs:   gw.coordinator,
		APIKey: gw.cfg.Server.APIKey,
	}
	if gw.scheduler != nil {
		opts.Jobs = gw.scheduler
	}
	apiserver.New(opts).Register(gw.httpServer.Engine)
	return nil
}

// Stop shuts the HTTP server, then the scheduler (live triggers only, the
// store is untouched), then the pipeline and the notification bus.
func (gw *Gateway) Stop(ctx context.Context) error {
	gw.stopOnce.Do(func() {
		if err := gw.httpServer.Shutdown(ctx); err != nil {
			logs.CtxWarn(ctx, "[gateway] shutdown http server error: %v", err)
		}
		if gw.scheduler != nil {
			if err := gw.scheduler.Shutdown(ctx); err != nil {
				logs.CtxWarn(ctx, "[gateway] shutdown scheduler error: %v", err)
				gw.stopErr = err
			}
		}
		if gw.runCancel != nil {
			gw.runCancel()
		}
		if err := gw.coordinator.Stop(ctx); err != nil {
			logs.CtxWarn(ctx, "[gateway] stop pipeline error: %v", err)
		}
		if err := gw.bus.Stop(ctx); err != nil {
			logs.CtxWarn(ctx, "[gateway] stop notifications error: %v", err)
		}
		logs.CtxInfo(ctx, "[gateway] all resources stopped")
	})
	return gw.stopErr
}

func (gw *Gateway) jobRemoved(job schedule.Job) {
	gw.bus.Publish(notify.Event{Kind: notify.KindJobRemoved, JobID: job.ID, Message: job.Name})
}

func (gw *Gateway) Scheduler() *schedule.Scheduler     { return gw.scheduler }
func (gw *Gateway) Coordinator() *pipeline.Coordinator { return gw.coordinator }
func (gw *Gateway) Bus() *notify.Bus                   { return gw.bus }
