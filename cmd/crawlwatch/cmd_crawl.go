package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/tgifai/crawlwatch/internal/config"
	"github.com/tgifai/crawlwatch/internal/gateway"
	"github.com/tgifai/crawlwatch/internal/notify"
	"github.com/tgifai/crawlwatch/internal/pipeline"
	"github.com/tgifai/crawlwatch/internal/pkg/logs"
)

var crawlHwd = &CrawlRunner{}

type CrawlRunner struct{}

func (r *CrawlRunner) cmd() *cli.Command {
	localFlag := &cli.BoolFlag{
		Name:  "local",
		Usage: "Work in this process instead of asking the server",
	}
	return &cli.Command{
		Name:  "crawl",
		Usage: "Run crawls and inspect run history",
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Start a crawl now",
				Flags:  append(append([]cli.Flag{localFlag}, requestFlags...), apiFlags...),
				Action: r.run,
			},
			{
				Name:  "runs",
				Usage: "Show recent runs, newest first",
				Flags: append([]cli.Flag{
					localFlag,
					&cli.IntFlag{Name: "limit", Usage: "Number of runs to show", Value: 20},
				}, apiFlags...),
				Action: r.runs,
			},
		},
	}
}

func (r *CrawlRunner) run(ctx context.Context, cmd *cli.Command) error {
	req, err := requestFromFlags(cmd)
	if err != nil {
		return err
	}

	if !cmd.Bool("local") {
		api, err := newAPIClient(cmd)
		if err != nil {
			return err
		}
		var task pipeline.Task
		if _, err = api.do(ctx, http.MethodPost, "/crawls", req, &task); err != nil {
			return fmt.Errorf("submit crawl: %w", err)
		}
		fmt.Printf("Queued run %s for %s\n", task.RunID, req.Target())
		return nil
	}

	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("loading config error: %w", err)
	}
	if err = initLogger(cfg.Logging); err != nil {
		return fmt.Errorf("init logger error: %w", err)
	}
	defer logs.Flush()

	bus := notify.NewBus(notify.NewRegistry(), 0)
	notify.RegisterAll(bus.Registry(), cfg.Notifiers)
	bus.Start(ctx)
	defer func() { _ = bus.Stop(context.Background()) }()

	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()
	go func() {
		for ev := range events {
			if ev.Kind == notify.KindPhase {
				cDim.Printf("  … %s\n", ev.Phase)
			}
		}
	}()

	c := pipeline.NewCoordinator(gateway.PipelineOptions(cfg, bus))
	o, err := c.RunNow(ctx, req)
	if err != nil {
		return err
	}
	printOutcome(o)
	if o.Status == pipeline.StatusFailed {
		return fmt.Errorf("crawl failed: %s", o.Error)
	}
	return nil
}

func (r *CrawlRunner) runs(ctx context.Context, cmd *cli.Command) error {
	limit := int(cmd.Int("limit"))

	var runs []pipeline.Outcome
	if cmd.Bool("local") {
		cfg, err := config.Load(cmd.String("config"))
		if err != nil {
			return fmt.Errorf("loading config error: %w", err)
		}
		if runs, err = pipeline.NewHistory(cfg.Pipeline.History).List(limit); err != nil {
			return err
		}
	} else {
		api, err := newAPIClient(cmd)
		if err != nil {
			return err
		}
		if _, err = api.do(ctx, http.MethodGet, "/runs?limit="+strconv.Itoa(limit), nil, &runs); err != nil {
			return fmt.Errorf("list runs: %w", err)
		}
	}

	if len(runs) == 0 {
		fmt.Println("No runs yet.")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSOURCE\tDOMAIN\tSTATUS\tSTARTED\tDURATION\tCHANGES")
	for _, o := range runs {
		changes := "-"
		if o.Summary != nil {
			changes = fmt.Sprintf("+%d -%d ~%d", o.Summary.Added, o.Summary.Removed, o.Summary.Changed)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", o.RunID, o.Source, o.Domain, o.Status,
			o.StartedAt.Local().Format("2006-01-02 15:04"), o.Duration().Round(time.Second), changes)
	}
	return w.Flush()
}

func printOutcome(o *pipeline.Outcome) {
	if o.Status == pipeline.StatusFailed {
		cError.Printf("✗ %s failed: %s\n", o.Domain, o.Error)
		return
	}
	cSuccess.Printf("✓ %s finished in %s\n", o.BaseName, o.Duration().Round(time.Second))
	fmt.Printf("  Output: %s\n", o.OutputDir)
	for _, f := range o.Files {
		fmt.Printf("  - %s\n", f)
	}
	if o.Summary != nil {
		fmt.Printf("  Changes since %s: +%d -%d ~%d\n", o.Previous, o.Summary.Added, o.Summary.Removed, o.Summary.Changed)
	}
	for _, w := range o.Warnings {
		cWarn.Printf("  ⚠ %s\n", w)
	}
}
