package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/urfave/cli/v3"

	"github.com/tgifai/crawlwatch/internal/config"
	"github.com/tgifai/crawlwatch/internal/crawl"
	"github.com/tgifai/crawlwatch/internal/schedule"
)

var scheduleHwd = &ScheduleRunner{}

type ScheduleRunner struct{}

func (r *ScheduleRunner) cmd() *cli.Command {
	return &cli.Command{
		Name:  "schedule",
		Usage: "Manage scheduled crawl jobs",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List scheduled jobs",
				Flags: append([]cli.Flag{
					&cli.BoolFlag{
						Name:  "remote",
						Usage: "Ask the running server, which knows the next run of each job",
					},
				}, apiFlags...),
				Action: r.list,
			},
			{
				Name:  "add",
				Usage: "Schedule a crawl",
				Flags: append(append([]cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "Display name"},
					&cli.StringFlag{Name: "date", Usage: "Anchor date, YYYY-MM-DD", Required: true},
					&cli.StringFlag{Name: "time", Usage: "Anchor time, HH:MM or HH:MM:SS", Required: true},
					&cli.StringFlag{Name: "frequency", Usage: "once, daily, weekly or monthly", Value: string(schedule.FrequencyOnce)},
				}, requestFlags...), apiFlags...),
				Action: r.add,
			},
			{
				Name:      "validate",
				Usage:     "Check that a date and time are in the future",
				ArgsUsage: "<date> <time>",
				Flags:     apiFlags,
				Action:    r.validate,
			},
			{
				Name:      "cancel",
				Usage:     "Stop a job without removing it",
				ArgsUsage: "<id>",
				Flags:     apiFlags,
				Action:    r.cancel,
			},
			{
				Name:      "delete",
				Usage:     "Remove a job",
				ArgsUsage: "<id>",
				Flags:     apiFlags,
				Action:    r.delete,
			},
			{
				Name:      "rename",
				Usage:     "Change the display name of a job",
				ArgsUsage: "<id> <name>",
				Flags:     apiFlags,
				Action:    r.rename,
			},
			{
				Name:      "frequency",
				Usage:     "Change how often a job repeats",
				ArgsUsage: "<id> <once|daily|weekly|monthly>",
				Flags:     apiFlags,
				Action:    r.frequency,
			},
		},
	}
}

func (r *ScheduleRunner) list(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("remote") {
		api, err := newAPIClient(cmd)
		if err != nil {
			return err
		}
		var jobs []schedule.JobView
		if _, err = api.do(ctx, http.MethodGet, "/jobs", nil, &jobs); err != nil {
			return fmt.Errorf("list jobs: %w", err)
		}
		fmt.Print(schedule.FormatJobList(jobs, time.Now()))
		return nil
	}

	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("loading config error: %w", err)
	}
	jobs, err := schedule.LoadJobsFromStore(cfg.Scheduler.Store)
	if err != nil {
		return fmt.Errorf("load jobs: %w", err)
	}
	fmt.Print(schedule.FormatJobList(jobs, time.Now()))
	return nil
}

func (r *ScheduleRunner) add(ctx context.Context, cmd *cli.Command) error {
	req, err := requestFromFlags(cmd)
	if err != nil {
		return err
	}
	raw, err := sonic.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode crawl config: %w", err)
	}

	api, err := newAPIClient(cmd)
	if err != nil {
		return err
	}
	in := schedule.NewJob{
		Name:        cmd.String("name"),
		Date:        cmd.String("date"),
		Time:        cmd.String("time"),
		Frequency:   cmd.String("frequency"),
		CrawlConfig: raw,
	}
	var view schedule.JobView
	warning, err := api.do(ctx, http.MethodPost, "/jobs", in, &view)
	if err != nil {
		return fmt.Errorf("add job: %w", err)
	}
	printWarning(warning)
	fmt.Printf("Scheduled %s (%s) for %s\n", view.ID, view.Frequency, nextRunText(view))
	return nil
}

func (r *ScheduleRunner) validate(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 2 {
		return errors.New("usage: crawlwatch schedule validate <date> <time>")
	}
	api, err := newAPIClient(cmd)
	if err != nil {
		return err
	}
	body := map[string]string{"date": cmd.Args().Get(0), "time": cmd.Args().Get(1)}
	if _, err = api.do(ctx, http.MethodPost, "/jobs/validate", body, nil); err != nil {
		return err
	}
	fmt.Println("Valid.")
	return nil
}

func (r *ScheduleRunner) cancel(ctx context.Context, cmd *cli.Command) error {
	id, err := argID(cmd)
	if err != nil {
		return err
	}
	api, err := newAPIClient(cmd)
	if err != nil {
		return err
	}
	warning, err := api.do(ctx, http.MethodPost, "/jobs/"+id+"/cancel", nil, nil)
	if err != nil {
		return fmt.Errorf("cancel job: %w", err)
	}
	printWarning(warning)
	fmt.Printf("Cancelled %s\n", id)
	return nil
}

func (r *ScheduleRunner) delete(ctx context.Context, cmd *cli.Command) error {
	id, err := argID(cmd)
	if err != nil {
		return err
	}
	api, err := newAPIClient(cmd)
	if err != nil {
		return err
	}
	warning, err := api.do(ctx, http.MethodDelete, "/jobs/"+id, nil, nil)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	printWarning(warning)
	fmt.Printf("Deleted %s\n", id)
	return nil
}

func (r *ScheduleRunner) rename(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 2 {
		return errors.New("usage: crawlwatch schedule rename <id> <name>")
	}
	name := cmd.Args().Get(1)
	return r.update(ctx, cmd, cmd.Args().Get(0), map[string]*string{"name": &name})
}

func (r *ScheduleRunner) frequency(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 2 {
		return errors.New("usage: crawlwatch schedule frequency <id> <once|daily|weekly|monthly>")
	}
	freq := cmd.Args().Get(1)
	return r.update(ctx, cmd, cmd.Args().Get(0), map[string]*string{"frequency": &freq})
}

func (r *ScheduleRunner) update(ctx context.Context, cmd *cli.Command, id string, body map[string]*string) error {
	api, err := newAPIClient(cmd)
	if err != nil {
		return err
	}
	var view schedule.JobView
	warning, err := api.do(ctx, http.MethodPatch, "/jobs/"+id, body, &view)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	printWarning(warning)
	fmt.Printf("Updated %s, next run: %s\n", view.ID, nextRunText(view))
	return nil
}

func argID(cmd *cli.Command) (string, error) {
	id := strings.TrimSpace(cmd.Args().First())
	if id == "" {
		return "", errors.New("job id is required")
	}
	return id, nil
}

func nextRunText(view schedule.JobView) string {
	if view.NextRun == nil {
		return "-"
	}
	return view.NextRun.Format(time.RFC3339)
}

func printWarning(w string) {
	if w != "" {
		cWarn.Printf("warning: %s\n", w)
	}
}

// requestFlags describe a crawl request on the command line.
var requestFlags = []cli.Flag{
	&cli.StringFlag{Name: "url", Usage: "Site to crawl"},
	&cli.StringFlag{Name: "file", Usage: "Saved crawl project to open instead of crawling"},
	&cli.StringFlag{Name: "crawl-config", Usage: "Crawler configuration file"},
	&cli.StringSliceFlag{Name: "tab", Usage: "Export tab, repeatable (e.g. \"Internal:All\")"},
	&cli.StringSliceFlag{Name: "bulk", Usage: "Bulk export, repeatable"},
	&cli.BoolFlag{Name: "analysis", Usage: "Classify internal URLs and write the analysis workbook and report"},
	&cli.BoolFlag{Name: "comparison", Usage: "Compare against the previous run of the same domain"},
}

func requestFromFlags(cmd *cli.Command) (*crawl.Request, error) {
	req := &crawl.Request{
		URL:         cmd.String("url"),
		FilePath:    cmd.String("file"),
		ConfigFile:  cmd.String("crawl-config"),
		ExportTabs:  cmd.StringSlice("tab"),
		BulkExports: cmd.StringSlice("bulk"),
		ProcessOptions: crawl.ProcessOptions{
			InternalAnalysis: cmd.Bool("analysis"),
			Comparison:       cmd.Bool("comparison"),
		},
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}
