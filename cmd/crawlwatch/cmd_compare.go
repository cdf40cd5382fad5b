package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/tgifai/crawlwatch/internal/compare"
	"github.com/tgifai/crawlwatch/internal/crawl"
	"github.com/tgifai/crawlwatch/internal/report"
	"github.com/tgifai/crawlwatch/internal/snapshot"
)

var compareHwd = &CompareRunner{}

type CompareRunner struct{}

func (r *CompareRunner) cmd() *cli.Command {
	return &cli.Command{
		Name:  "compare",
		Usage: "Compare two run directories and write a PDF report",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "previous", Usage: "Earlier run directory", Required: true},
			&cli.StringFlag{Name: "current", Usage: "Later run directory", Required: true},
			&cli.StringFlag{Name: "domain", Usage: "Domain label for the report (defaults to the current directory's prefix)"},
			&cli.StringFlag{Name: "out", Usage: "Directory to write the report into", Value: "."},
		},
		Action: r.run,
	}
}

func (r *CompareRunner) run(ctx context.Context, cmd *cli.Command) error {
	prevDir := strings.TrimSpace(cmd.String("previous"))
	curDir := strings.TrimSpace(cmd.String("current"))
	if prevDir == "" || curDir == "" {
		return errors.New("--previous and --current are required")
	}

	prev, prevPath, err := snapshot.ReadDir(prevDir)
	if err != nil {
		return fmt.Errorf("read previous run: %w", err)
	}
	cur, curPath, err := snapshot.ReadDir(curDir)
	if err != nil {
		return fmt.Errorf("read current run: %w", err)
	}
	cDim.Printf("previous: %s (%d urls)\n", prevPath, prev.Len())
	cDim.Printf("current:  %s (%d urls)\n", curPath, cur.Len())

	diff := compare.Compare(prev, cur)
	printDiff(diff)

	prevBase, curBase := filepath.Base(filepath.Clean(prevDir)), filepath.Base(filepath.Clean(curDir))
	domain := strings.TrimSpace(cmd.String("domain"))
	if domain == "" {
		domain = crawl.DomainFromProject(curBase)
	}
	baseName := curBase
	if crawl.TimestampOf(curBase) == "" {
		baseName = domain + "_comparison"
	}

	out, err := report.PDFSink{}.Render(ctx, cmd.String("out"), baseName, &report.Comparison{
		Domain:       domain,
		PreviousDate: dateLabel(prevBase),
		CurrentDate:  dateLabel(curBase),
		Diff:         diff,
	})
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	cSuccess.Printf("✓ Report written to %s\n", out)
	return nil
}

// dateLabel is the run timestamp when the directory carries one, its name otherwise.
func dateLabel(base string) string {
	if ts := crawl.TimestampOf(base); ts != "" {
		return crawl.FormatTimestamp(ts)
	}
	return base
}

func printDiff(d *compare.Diff) {
	s := d.Summary
	fmt.Printf("URLs: %d → %d\n", s.PreviousTotal, s.CurrentTotal)
	cSuccess.Printf("  + %d added\n", s.Added)
	cError.Printf("  - %d removed\n", s.Removed)
	cWarn.Printf("  ~ %d changed\n", s.Changed)
	if d.Empty() {
		cDim.Println("No differences.")
	}
}
