package report

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/tgifai/crawlwatch/internal/compare"
	"github.com/tgifai/crawlwatch/internal/pkg/logs"
	"github.com/tgifai/crawlwatch/internal/pkg/utils"
	"github.com/tgifai/crawlwatch/internal/snapshot"
)

// PDFSink writes {baseName}_comparison.pdf.
type PDFSink struct{}

var _ Sink = PDFSink{}

func ComparisonPath(dir, baseName string) string {
	return filepath.Join(dir, baseName+"_comparison.pdf")
}

func (PDFSink) Render(ctx context.Context, dir, baseName string, cmp *Comparison) (string, error) {
	if cmp == nil || cmp.Diff == nil {
		return "", fmt.Errorf("render comparison: no diff")
	}
	d := newDoc()
	header(d, cmp)
	summary(d, cmp.Diff.Summary)

	if n := len(cmp.Diff.Added); n > 0 {
		urlTable(d, fmt.Sprintf("New URLs (%d)", n), colorGreenFg, colorGreenBg, cmp.Diff.Added, addedRows)
	}
	if n := len(cmp.Diff.Removed); n > 0 {
		urlTable(d, fmt.Sprintf("Removed URLs (%d)", n), colorRedFg, colorRedBg, cmp.Diff.Removed, removedRows)
	}
	if len(cmp.Diff.Changed) > 0 {
		changedSection(d, cmp.Diff.Changed)
	}

	path := ComparisonPath(dir, baseName)
	if err := d.save(path); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	logs.CtxInfo(ctx, "[report] comparison written to %s", path)
	return path, nil
}

func header(d *doc, cmp *Comparison) {
	d.font("B", 22, colorTitle)
	d.centered("Comparison Report", 11)
	d.font("", 15, colorSubtitle)
	d.centered(cmp.Domain, 9)
	d.pdf.Ln(2)
	d.font("", 10, colorMuted)
	d.centered("Previous crawl: "+cmp.PreviousDate, 5)
	d.centered("Current crawl: "+cmp.CurrentDate, 5)
	d.pdf.Ln(4)
	d.rule()
}

func summary(d *doc, s compare.Summary) {
	d.heading("Executive Summary", colorText)

	delta := s.CurrentTotal - s.PreviousTotal
	d.font("", 10, colorSubtitle)
	d.line(fmt.Sprintf("URLs in previous crawl: %d", s.PreviousTotal))
	d.line(fmt.Sprintf("URLs in current crawl: %d (%+d)", s.CurrentTotal, delta))
	d.pdf.Ln(3)

	const boxW, boxH, gap = 56.0, 26.0, 4.0
	y := d.pdf.GetY()
	boxes := []struct {
		label  string
		value  int
		bg, fg rgb
	}{
		{"NEW URLS", s.Added, colorGreenBg, colorGreenFg},
		{"REMOVED URLS", s.Removed, colorRedBg, colorRedFg},
		{"CHANGED URLS", s.Changed, colorAmberBg, colorAmberFg},
	}
	for i, b := range boxes {
		x := margin + float64(i)*(boxW+gap)
		d.fill(b.bg)
		d.pdf.Rect(x, y, boxW, boxH, "F")
		d.pdf.SetXY(x+3, y+3)
		d.font("B", 8, b.fg)
		d.pdf.CellFormat(boxW-6, 5, b.label, "", 0, "L", false, 0, "")
		d.pdf.SetXY(x+3, y+10)
		d.font("B", 20, b.fg)
		d.pdf.CellFormat(boxW-6, 12, fmt.Sprint(b.value), "", 0, "L", false, 0, "")
	}
	d.pdf.SetXY(margin, y+boxH+8)
}

func urlTable(d *doc, title string, fg, bg rgb, rows []snapshot.Row, max int) {
	d.ensure(50)
	d.heading(title, fg)

	widths := []float64{110, 20, 52}
	d.font("B", 8, colorText)
	d.row(widths, []string{"URL", "Status", "Title"}, bg, "L")

	d.font("", 7, colorBody)
	for i, r := range rows {
		if i >= max {
			break
		}
		shade := colorWhite
		if i%2 == 1 {
			shade = colorAltBg
		}
		d.row(widths, []string{
			utils.Truncate(r.URL, 60),
			r.Get(snapshot.KeyStatusCode),
			utils.Truncate(r.Get(snapshot.KeyTitle), 25),
		}, shade, "L")
	}
	if len(rows) > max {
		d.pdf.Ln(1)
		d.font("", 8, colorMuted)
		d.centered(fmt.Sprintf("... and %d more URLs", len(rows)-max), 5)
	}
	d.pdf.Ln(5)
}

func changedSection(d *doc, changed []compare.Changed) {
	d.ensure(50)
	d.heading(fmt.Sprintf("Changed URLs (%d)", len(changed)), colorAmberFg)

	widths := []float64{45, 68, 68}
	for i, c := range changed {
		if i >= changedURLs {
			break
		}
		d.ensure(float64(len(c.Changes)+2) * rowHeight)
		d.font("B", 9, colorText)
		d.line(utils.Truncate(c.URL, 80))

		d.pdf.SetX(margin + 4)
		d.font("B", 7, colorSubtitle)
		d.row(widths, []string{"Field", "Before", "After"}, colorHeadBg, "L")
		d.font("", 7, colorBody)
		for _, ch := range c.Changes {
			d.pdf.SetX(margin + 4)
			d.row(widths, []string{ch.Field, utils.Truncate(ch.Old, 40), utils.Truncate(ch.New, 40)}, colorWhite, "L")
		}
		d.pdf.Ln(3)
	}
	if len(changed) > changedURLs {
		d.font("", 9, colorMuted)
		d.centered(fmt.Sprintf("... and %d more changed URLs", len(changed)-changedURLs), 5)
	}
}
