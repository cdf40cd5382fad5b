// Package analysis groups the URLs of an internal export by resource type
// and writes them to a workbook.
package analysis

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/tgifai/crawlwatch/internal/pkg/logs"
	"github.com/tgifai/crawlwatch/internal/snapshot"
)

const (
	defaultStatus      = "200"
	defaultContentType = "text/html"
	summarySheet       = "Summary"
)

type URLInfo struct {
	URL         string `json:"url"`
	StatusCode  string `json:"status_code"`
	ContentType string `json:"content_type"`
}

type TypeStat struct {
	Type       string  `json:"type"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type Stats struct {
	Total  int        `json:"total"`
	ByType []TypeStat `json:"by_type"`
}

type Result struct {
	OutputFile string                `json:"output_file"`
	Stats      Stats                 `json:"stats"`
	Groups     map[string][]URLInfo `json:"-"`
}

// Run reads the internal export in dir and writes {baseName}_internal_analysis.xlsx.
func Run(ctx context.Context, dir, baseName string) (*Result, error) {
	export, err := snapshot.FindExport(dir)
	if err != nil {
		return nil, err
	}
	table, err := snapshot.ReadTable(export)
	if err != nil {
		return nil, err
	}
	rows := Extract(table)
	groups := Group(rows)

	out := filepath.Join(dir, baseName+"_internal_analysis.xlsx")
	if err := WriteWorkbook(out, groups, len(rows)); err != nil {
		return nil, err
	}
	stats := BuildStats(groups, len(rows))
	logs.CtxInfo(ctx, "[analysis] %d urls classified -> %s", stats.Total, out)
	return &Result{OutputFile: out, Stats: stats, Groups: groups}, nil
}

// Extract reads URL, status and content type columns. Missing columns fall
// back to positions 1, 2 and 3.
func Extract(table [][]string) []URLInfo {
	if len(table) == 0 {
		return nil
	}
	header := table[0]
	urlCol := orDefault(snapshot.HeaderIndex(header, "address", "url"), 0)
	statusCol := orDefault(snapshot.HeaderIndex(header, "status code", "status"), 1)
	ctCol := orDefault(snapshot.HeaderIndex(header, "content type", "content-type"), 2)

	var out []URLInfo
	for _, rec := range table[1:] {
		url := strings.TrimSpace(at(rec, urlCol))
		if url == "" {
			continue
		}
		info := URLInfo{
			URL:         url,
			StatusCode:  strings.TrimSpace(at(rec, statusCol)),
			ContentType: strings.TrimSpace(at(rec, ctCol)),
		}
		if info.StatusCode == "" {
			info.StatusCode = defaultStatus
		}
		if info.ContentType == "" {
			info.ContentType = defaultContentType
		}
		out = append(out, info)
	}
	return out
}

// Group buckets rows by Classify. Every type has an entry.
func Group(rows []URLInfo) map[string][]URLInfo {
	groups := make(map[string][]URLInfo, len(classifiers)+1)
	for _, t := range Types() {
		groups[t] = nil
	}
	for _, r := range rows {
		t := Classify(r.URL, r.ContentType)
		groups[t] = append(groups[t], r)
	}
	return groups
}

func BuildStats(groups map[string][]URLInfo, total int) Stats {
	st := Stats{Total: total}
	for _, t := range Types() {
		st.ByType = append(st.ByType, TypeStat{Type: t, Count: len(groups[t]), Percentage: percent(len(groups[t]), total)})
	}
	return st
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(n)/float64(total)*10000) / 100
}

// WriteWorkbook writes a summary sheet and one sheet per non-empty type.
func WriteWorkbook(path string, groups map[string][]URLInfo, total int) error {
	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4472C4"}},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	totalStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"E2E8F0"}},
	})
	if err != nil {
		return fmt.Errorf("total style: %w", err)
	}
	statusStyles, err := newStatusStyles(f)
	if err != nil {
		return err
	}

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return err
	}
	if err := writeRows(f, summarySheet, header, []float64{20, 15, 15}, []string{"Type", "Count", "Percentage"}); err != nil {
		return err
	}
	row := 2
	for _, t := range Types() {
		n := len(groups[t])
		if err := setRow(f, summarySheet, row, strings.ToUpper(t), n, fmt.Sprintf("%.2f%%", percent(n, total))); err != nil {
			return err
		}
		row++
	}
	if err := setRow(f, summarySheet, row, "TOTAL", total, "100%"); err != nil {
		return err
	}
	if err := f.SetCellStyle(summarySheet, cellName(1, row), cellName(3, row), totalStyle); err != nil {
		return err
	}

	for _, t := range Types() {
		items := groups[t]
		if len(items) == 0 {
			continue
		}
		sheet := strings.ToUpper(t)
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("new sheet %s: %w", sheet, err)
		}
		if err := writeRows(f, sheet, header, []float64{90, 15, 35}, []string{"URL", "Status Code", "Content Type"}); err != nil {
			return err
		}
		for i, it := range items {
			r := i + 2
			if err := setRow(f, sheet, r, it.URL, statusValue(it.StatusCode), it.ContentType); err != nil {
				return err
			}
			if style, ok := statusStyles.pick(it.StatusCode); ok {
				if err := f.SetCellStyle(sheet, cellName(2, r), cellName(2, r), style); err != nil {
					return err
				}
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

type statusStyles struct {
	ok, redirect, clientErr int
}

func newStatusStyles(f *excelize.File) (statusStyles, error) {
	var s statusStyles
	var err error
	fill := func(color string) excelize.Fill {
		return excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}}
	}
	if s.ok, err = f.NewStyle(&excelize.Style{Fill: fill("22C55E")}); err != nil {
		return s, err
	}
	if s.redirect, err = f.NewStyle(&excelize.Style{Fill: fill("FBBF24")}); err != nil {
		return s, err
	}
	if s.clientErr, err = f.NewStyle(&excelize.Style{Fill: fill("EF4444"), Font: &excelize.Font{Color: "FFFFFF"}}); err != nil {
		return s, err
	}
	return s, nil
}

func (s statusStyles) pick(status string) (int, bool) {
	code, err := strconv.Atoi(status)
	switch {
	case err != nil:
		return 0, false
	case code >= 400:
		return s.clientErr, true
	case code >= 300:
		return s.redirect, true
	case code == 200:
		return s.ok, true
	}
	return 0, false
}

func writeRows(f *excelize.File, sheet string, style int, widths []float64, header []string) error {
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheet, col, col, w); err != nil {
			return err
		}
	}
	vals := make([]interface{}, len(header))
	for i, h := range header {
		vals[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &vals); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", cellName(len(header), 1), style); err != nil {
		return err
	}
	return f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func setRow(f *excelize.File, sheet string, row int, vals ...interface{}) error {
	return f.SetSheetRow(sheet, cellName(1, row), &vals)
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func statusValue(s string) interface{} {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return s
}

func orDefault(i, def int) int {
	if i < 0 {
		return def
	}
	return i
}

func at(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return rec[i]
}
