package report

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/tgifai/crawlwatch/internal/analysis"
	"github.com/tgifai/crawlwatch/internal/compare"
	"github.com/tgifai/crawlwatch/internal/snapshot"
)

func snap(n int, title string) *snapshot.Snapshot {
	s := snapshot.New()
	for i := 0; i < n; i++ {
		s.Add(snapshot.Row{
			URL: fmt.Sprintf("https://example.com/page-%d", i),
			Values: map[string]string{
				snapshot.KeyStatusCode: "200",
				snapshot.KeyTitle:      title + " ñ",
			},
		})
	}
	return s
}

func assertPDF(t *testing.T, path string) {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	if !bytes.HasPrefix(raw, []byte("%PDF-")) {
		t.Fatalf("%s is not a pdf", path)
	}
}

func TestPDFSinkRender(t *testing.T) {
	dir := t.TempDir()
	prev := snap(40, "old")
	cur := snapshot.New()
	for i, r := range snap(60, "new").Rows() {
		if i < 20 {
			continue
		}
		cur.Add(r)
	}

	cmp := &Comparison{
		Domain:       "example",
		PreviousDate: "01/01/2030 08:00:00",
		CurrentDate:  "02/01/2030 08:00:00",
		Diff:         compare.Compare(prev, cur),
	}
	if cmp.Diff.Summary.Changed != 20 || cmp.Diff.Summary.Added != 20 || cmp.Diff.Summary.Removed != 20 {
		t.Fatalf("unexpected summary: %+v", cmp.Diff.Summary)
	}

	path, err := PDFSink{}.Render(context.Background(), dir, "example_20300102_080000", cmp)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if path != filepath.Join(dir, "example_20300102_080000_comparison.pdf") {
		t.Fatalf("path = %s", path)
	}
	assertPDF(t, path)
}

func TestPDFSinkEmptyDiff(t *testing.T) {
	dir := t.TempDir()
	cmp := &Comparison{Domain: "example", Diff: compare.Compare(nil, nil)}
	path, err := PDFSink{}.Render(context.Background(), dir, "example", cmp)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	assertPDF(t, path)
}

func TestPDFSinkRequiresDiff(t *testing.T) {
	if _, err := (PDFSink{}).Render(context.Background(), t.TempDir(), "x", &Comparison{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestPDFSinkBadDir(t *testing.T) {
	cmp := &Comparison{Diff: compare.Compare(nil, nil)}
	if _, err := (PDFSink{}).Render(context.Background(), filepath.Join(t.TempDir(), "missing"), "x", cmp); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSinkFunc(t *testing.T) {
	var got string
	var s Sink = SinkFunc(func(_ context.Context, dir, base string, _ *Comparison) (string, error) {
		got = base
		return dir, nil
	})
	if _, err := s.Render(context.Background(), "d", "b", nil); err != nil || got != "b" {
		t.Fatalf("SinkFunc not called: %q %v", got, err)
	}
}

func TestRenderAnalysis(t *testing.T) {
	dir := t.TempDir()
	st := analysis.Stats{Total: 10, ByType: []analysis.TypeStat{
		{Type: "html", Count: 7, Percentage: 70},
		{Type: "images", Count: 3, Percentage: 30},
		{Type: "other", Count: 0, Percentage: 0},
	}}
	path, err := RenderAnalysis(context.Background(), dir, "example_20300101_080000", "example", st)
	if err != nil {
		t.Fatalf("RenderAnalysis: %v", err)
	}
	if filepath.Base(path) != "example_20300101_080000_report.pdf" {
		t.Fatalf("path = %s", path)
	}
	assertPDF(t, path)
}
