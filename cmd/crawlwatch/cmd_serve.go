package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/tgifai/crawlwatch/internal/config"
	"github.com/tgifai/crawlwatch/internal/gateway"
	"github.com/tgifai/crawlwatch/internal/pkg/logs"
)

const shutdownTimeout = 30 * time.Second

var serveHwd = &ServeRunner{}

type ServeRunner struct{}

func (r *ServeRunner) cmd() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the scheduler, crawl pipeline and control API",
		Action: r.run,
	}
}

func (r *ServeRunner) run(ctx context.Context, cmd *cli.Command) error {
	cfgPath := cmd.String("config")

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config error: %w", err)
	}
	if err = initLogger(cfg.Logging); err != nil {
		return fmt.Errorf("init logger error: %w", err)
	}
	defer logs.Flush()

	if config.FromDisk() {
		logs.CtxInfo(ctx, "booting crawlwatch, using config file: %s...", cfgPath)
	} else {
		logs.CtxWarn(ctx, "no config at %s, running with defaults. Run \"crawlwatch onboard\" to create one.", cfgPath)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	gw, err := gateway.NewGateway(cfg)
	if err != nil {
		return fmt.Errorf("create gateway: %w", err)
	}
	if err = gw.Start(ctx); err != nil {
		cancel()
		_ = gw.Stop(context.Background())
		return fmt.Errorf("start gateway: %w", err)
	}

	logs.CtxInfo(ctx, "crawlwatch is running. Press Ctrl+C to stop.")

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signalCh)

	select {
	case sig := <-signalCh:
		logs.CtxInfo(ctx, "Received shutdown signal (%s). Stopping runtime...", sig.String())
	case <-ctx.Done():
		logs.CtxInfo(ctx, "Context canceled. Stopping runtime...")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stopCancel()
	if err = gw.Stop(stopCtx); err != nil {
		logs.CtxError(ctx, "stop gateway error: %v", err)
	}

	logs.CtxInfo(ctx, "all stopped, good bye!")
	return nil
}

func initLogger(cfg config.LoggingConfig) error {
	return logs.Init(logs.Options{
		Level:      cfg.Level,
		Format:     cfg.Format,
		Output:     cfg.Output,
		File:       cfg.File,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
	})
}
