package compare

import (
	"reflect"
	"testing"

	"github.com/tgifai/crawlwatch/internal/snapshot"
)

func snap(rows ...snapshot.Row) *snapshot.Snapshot {
	s := snapshot.New()
	for _, r := range rows {
		s.Add(r)
	}
	return s
}

func row(url string, kv ...string) snapshot.Row {
	r := snapshot.Row{URL: url, Values: map[string]string{}}
	for _, f := range snapshot.Fields {
		r.Values[f.Key] = ""
	}
	for i := 0; i+1 < len(kv); i += 2 {
		r.Values[kv[i]] = kv[i+1]
	}
	return r
}

func urls(rows []snapshot.Row) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.URL)
	}
	return out
}

func TestCompareSelfIsEmpty(t *testing.T) {
	s := snap(
		row("https://a.test/", snapshot.KeyStatusCode, "200", snapshot.KeyTitle, "Home"),
		row("https://a.test/about", snapshot.KeyStatusCode, "200"),
	)
	d := Compare(s, s)

	if len(d.Added) != 0 || len(d.Removed) != 0 || len(d.Changed) != 0 || !d.Empty() {
		t.Fatalf("self diff = %+v", d)
	}
	if d.Summary.PreviousTotal != 2 || d.Summary.CurrentTotal != 2 {
		t.Fatalf("summary = %+v", d.Summary)
	}
}

func TestCompareAsymmetry(t *testing.T) {
	prev := snap(
		row("A", snapshot.KeyTitle, "a"),
		row("B", snapshot.KeyTitle, "b-old", snapshot.KeyWordCount, "10"),
	)
	cur := snap(
		row("B", snapshot.KeyTitle, "b-new", snapshot.KeyWordCount, "10"),
		row("C", snapshot.KeyTitle, "c"),
	)
	d := Compare(prev, cur)

	if got := urls(d.Added); !reflect.DeepEqual(got, []string{"C"}) {
		t.Fatalf("added = %v", got)
	}
	if got := urls(d.Removed); !reflect.DeepEqual(got, []string{"A"}) {
		t.Fatalf("removed = %v", got)
	}
	if len(d.Changed) != 1 || d.Changed[0].URL != "B" {
		t.Fatalf("changed = %+v", d.Changed)
	}
	want := []Change{{Field: "Title 1", Old: "b-old", New: "b-new"}}
	if !reflect.DeepEqual(d.Changed[0].Changes, want) {
		t.Fatalf("changes = %+v, want %+v", d.Changed[0].Changes, want)
	}
	if sum := (Summary{PreviousTotal: 2, CurrentTotal: 2, Added: 1, Removed: 1, Changed: 1}); d.Summary != sum {
		t.Fatalf("summary = %+v, want %+v", d.Summary, sum)
	}
}

func TestCompareSingleTitleChange(t *testing.T) {
	d := Compare(
		snap(row("x", snapshot.KeyTitle, "Old", snapshot.KeyStatusCode, "200")),
		snap(row("x", snapshot.KeyTitle, "New", snapshot.KeyStatusCode, "200")),
	)
	want := Changed{URL: "x", Changes: []Change{{Field: "Title 1", Old: "Old", New: "New"}}}
	if len(d.Changed) != 1 || !reflect.DeepEqual(d.Changed[0], want) {
		t.Fatalf("changed = %+v, want [%+v]", d.Changed, want)
	}
}

func TestCompareChangeOrderAndCasing(t *testing.T) {
	d := Compare(
		snap(row("https://A.test/Page", snapshot.KeyStatusCode, "200", snapshot.KeyRichResults, "FAQ")),
		snap(row("https://a.test/page", snapshot.KeyStatusCode, "301", snapshot.KeyRedirectURL, "https://a.test/new")),
	)
	if len(d.Changed) != 1 {
		t.Fatalf("changed = %+v", d.Changed)
	}
	// current casing is displayed
	if d.Changed[0].URL != "https://a.test/page" {
		t.Fatalf("URL = %q", d.Changed[0].URL)
	}

	var fields []string
	for _, c := range d.Changed[0].Changes {
		fields = append(fields, c.Field)
		if c.Old == c.New {
			t.Fatalf("unchanged field reported: %+v", c)
		}
	}
	if want := []string{"Status Code", "Redirect URL", "Rich Results Types"}; !reflect.DeepEqual(fields, want) {
		t.Fatalf("fields = %v, want %v", fields, want)
	}
}

func TestCompareExactStringEquality(t *testing.T) {
	d := Compare(
		snap(row("x", snapshot.KeySize, "1024")),
		snap(row("x", snapshot.KeySize, "1024.0")),
	)
	if len(d.Changed) != 1 || d.Changed[0].Changes[0].Field != "Size (bytes)" {
		t.Fatalf("changed = %+v", d.Changed)
	}
}

func TestCompareNilInputs(t *testing.T) {
	cur := snap(row("a"), row("b"))

	d := Compare(nil, cur)
	if got := urls(d.Added); !reflect.DeepEqual(got, []string{"a", "b"}) || d.Summary.PreviousTotal != 0 {
		t.Fatalf("Compare(nil, cur) = %+v", d)
	}

	d = Compare(cur, nil)
	if got := urls(d.Removed); !reflect.DeepEqual(got, []string{"a", "b"}) || len(d.Added) != 0 {
		t.Fatalf("Compare(cur, nil) = %+v", d)
	}

	if d = Compare(nil, nil); !d.Empty() {
		t.Fatalf("Compare(nil, nil) = %+v", d)
	}
}
