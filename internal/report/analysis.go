package report

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/tgifai/crawlwatch/internal/analysis"
	"github.com/tgifai/crawlwatch/internal/pkg/logs"
)

func AnalysisPath(dir, baseName string) string {
	return filepath.Join(dir, baseName+"_report.pdf")
}

// RenderAnalysis writes {baseName}_report.pdf with the per-type distribution
// of an internal analysis.
func RenderAnalysis(ctx context.Context, dir, baseName, domain string, st analysis.Stats) (string, error) {
	d := newDoc()

	d.font("B", 22, colorTitle)
	d.centered("Site Analysis Report", 11)
	d.font("", 15, colorSubtitle)
	d.centered(domain, 8)
	d.font("", 10, colorFooter)
	d.centered(nowFunc().Format("January 2, 2006"), 6)
	d.pdf.Ln(4)
	d.rule()

	d.heading("Executive Summary", colorText)
	d.font("B", 12, colorTitle)
	d.line(fmt.Sprintf("Total URLs analysed: %d", st.Total))
	d.pdf.Ln(6)

	d.heading("Distribution by Type", colorText)
	widths := []float64{80, 40, 40}
	d.font("B", 9, colorWhite)
	d.row(widths, []string{"Type", "Count", "Percentage"}, colorBlue, "C")
	d.font("", 9, colorBody)
	for i, ts := range st.ByType {
		shade := colorWhite
		if i%2 == 1 {
			shade = colorHeadBg
		}
		d.row(widths, []string{ts.Type, fmt.Sprint(ts.Count), fmt.Sprintf("%.2f%%", ts.Percentage)}, shade, "C")
	}
	d.font("B", 9, colorText)
	d.row(widths, []string{"TOTAL", fmt.Sprint(st.Total), "100%"}, colorTotalBg, "C")
	d.pdf.Ln(8)

	barChart(d, st)

	path := AnalysisPath(dir, baseName)
	if err := d.save(path); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	logs.CtxInfo(ctx, "[report] analysis written to %s", path)
	return path, nil
}

func barChart(d *doc, st analysis.Stats) {
	const labelW, maxBarW, barH, gap = 35.0, 120.0, 6.0, 3.0

	d.ensure(20 + float64(len(st.ByType))*(barH+gap))
	d.heading("Visual Distribution", colorText)

	max := 1
	for _, ts := range st.ByType {
		if ts.Count > max {
			max = ts.Count
		}
	}
	y := d.pdf.GetY()
	for _, ts := range st.ByType {
		w := float64(ts.Count) / float64(max) * maxBarW
		if w < 0.7 {
			w = 0.7
		}
		d.font("", 9, colorSubtitle)
		d.pdf.SetXY(margin, y)
		d.pdf.CellFormat(labelW, barH, ts.Type, "", 0, "L", false, 0, "")
		d.fill(colorBar)
		d.pdf.Rect(margin+labelW, y, w, barH, "F")
		d.pdf.SetXY(margin+labelW+w+2, y)
		d.pdf.CellFormat(20, barH, fmt.Sprint(ts.Count), "", 0, "L", false, 0, "")
		y += barH + gap
	}
	d.pdf.SetXY(margin, y+4)
}
