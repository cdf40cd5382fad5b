package analysis

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		url, ct, want string
	}{
		{"https://a.com/logo.png", "", "images"},
		{"https://a.com/x", "image/webp", "images"},
		{"https://a.com/site.css?v=3", "", "css"},
		{"https://a.com/app.mjs#top", "", "javascript"},
		{"https://a.com/x", "application/ecmascript", "javascript"},
		{"https://a.com/file.pdf", "", "pdf"},
		{"https://a.com/f.woff2", "", "fonts"},
		{"https://a.com/clip.mov", "", "videos"},
		{"https://a.com/data.csv", "", "documents"},
		{"https://a.com/about/", "", "html"},
		{"https://a.com/page.html", "", "html"},
		{"https://a.com/page", "text/html; charset=utf-8", "html"},
		{"https://a.com/feed", "application/rss+xml", "other"},
		// the extension must end the path
		{"https://a.com/style.cssx", "", "other"},
		{"https://a.com/photo.png/", "", "html"},
	}
	for _, c := range cases {
		if got := Classify(c.url, c.ct); got != c.want {
			t.Fatalf("Classify(%q, %q) = %q, want %q", c.url, c.ct, got, c.want)
		}
	}
}

func TestExtractDefaults(t *testing.T) {
	table := [][]string{
		{"Address", "Content Type", "Status Code"},
		{"https://a.com/", "", ""},
		{"", "text/html", "200"},
		{"https://a.com/x.js", "application/javascript", "404"},
	}
	rows := Extract(table)
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].StatusCode != "200" || rows[0].ContentType != "text/html" {
		t.Fatalf("defaults not applied: %+v", rows[0])
	}
	if rows[1].StatusCode != "404" || rows[1].ContentType != "application/javascript" {
		t.Fatalf("header mapping wrong: %+v", rows[1])
	}
}

func TestExtractPositionalFallback(t *testing.T) {
	table := [][]string{
		{"A", "B", "C"},
		{"https://a.com/img.gif", "301", "image/gif"},
	}
	rows := Extract(table)
	if len(rows) != 1 || rows[0].URL != "https://a.com/img.gif" || rows[0].StatusCode != "301" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestBuildStats(t *testing.T) {
	groups := Group([]URLInfo{
		{URL: "https://a.com/", ContentType: "text/html"},
		{URL: "https://a.com/a", ContentType: "text/html"},
		{URL: "https://a.com/b.png"},
	})
	st := BuildStats(groups, 3)
	if st.Total != 3 || len(st.ByType) != len(Types()) {
		t.Fatalf("unexpected stats: %+v", st)
	}
	for _, ts := range st.ByType {
		switch ts.Type {
		case "html":
			if ts.Count != 2 || ts.Percentage != 66.67 {
				t.Fatalf("html = %+v", ts)
			}
		case "images":
			if ts.Count != 1 || ts.Percentage != 33.33 {
				t.Fatalf("images = %+v", ts)
			}
		default:
			if ts.Count != 0 {
				t.Fatalf("%s = %+v", ts.Type, ts)
			}
		}
	}
}

func TestRunWritesWorkbook(t *testing.T) {
	dir := t.TempDir()
	src := excelize.NewFile()
	rows := [][]interface{}{
		{"Address", "Status Code", "Content Type"},
		{"https://a.com/", 200, "text/html"},
		{"https://a.com/x.css", 200, "text/css"},
		{"https://a.com/gone", 404, "text/html"},
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := src.SetSheetRow("Sheet1", cell, &r); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	if err := src.SaveAs(filepath.Join(dir, "internal_all.xlsx")); err != nil {
		t.Fatalf("save: %v", err)
	}

	res, err := Run(context.Background(), dir, "a.com_20300101_080000")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Stats.Total != 3 {
		t.Fatalf("total = %d", res.Stats.Total)
	}
	if _, err := os.Stat(res.OutputFile); err != nil {
		t.Fatalf("output missing: %v", err)
	}

	f, err := excelize.OpenFile(res.OutputFile)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	want := []string{"Summary", "CSS", "HTML"}
	if len(sheets) != len(want) {
		t.Fatalf("sheets = %v, want %v", sheets, want)
	}
	for i := range want {
		if sheets[i] != want[i] {
			t.Fatalf("sheets = %v, want %v", sheets, want)
		}
	}
	html, _ := f.GetRows("HTML")
	if len(html) != 3 || html[2][1] != "404" {
		t.Fatalf("html rows = %v", html)
	}
	summary, _ := f.GetRows("Summary")
	last := summary[len(summary)-1]
	if last[0] != "TOTAL" || last[1] != "3" {
		t.Fatalf("total row = %v", last)
	}
}

func TestRunMissingExport(t *testing.T) {
	if _, err := Run(context.Background(), t.TempDir(), "x"); err == nil {
		t.Fatalf("expected error")
	}
}
