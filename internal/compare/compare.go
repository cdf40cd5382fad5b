// Package compare diffs two crawl snapshots keyed by URL.
package compare

import (
	"github.com/tgifai/crawlwatch/internal/snapshot"
)

type Change struct {
	Field string `json:"field"`
	Old   string `json:"old"`
	New   string `json:"new"`
}

type Changed struct {
	URL     string   `json:"url"`
	Changes []Change `json:"changes"`
}

type Summary struct {
	PreviousTotal int `json:"previous_total"`
	CurrentTotal  int `json:"current_total"`
	Added         int `json:"added"`
	Removed       int `json:"removed"`
	Changed       int `json:"changed"`
}

type Diff struct {
	Added   []snapshot.Row `json:"added"`
	Removed []snapshot.Row `json:"removed"`
	Changed []Changed      `json:"changed"`
	Summary Summary        `json:"summary"`
}

// Empty reports whether nothing was added, removed or changed.
func (d *Diff) Empty() bool {
	return d == nil || len(d.Added)+len(d.Removed)+len(d.Changed) == 0
}

// Compare returns what changed from previous to current. Nil snapshots are
// empty. Added and changed follow current's order, removed follows
// previous's; nothing is sorted.
func Compare(previous, current *snapshot.Snapshot) *Diff {
	d := &Diff{
		Added:   []snapshot.Row{},
		Removed: []snapshot.Row{},
		Changed: []Changed{},
	}

	for _, cur := range current.Rows() {
		prev, ok := previous.Lookup(cur.URL)
		if !ok {
			d.Added = append(d.Added, cur)
			continue
		}
		if changes := diffRow(prev, cur); len(changes) > 0 {
			d.Changed = append(d.Changed, Changed{URL: cur.URL, Changes: changes})
		}
	}
	for _, prev := range previous.Rows() {
		if !current.Has(prev.URL) {
			d.Removed = append(d.Removed, prev)
		}
	}

	d.Summary = Summary{
		PreviousTotal: previous.Len(),
		CurrentTotal:  current.Len(),
		Added:         len(d.Added),
		Removed:       len(d.Removed),
		Changed:       len(d.Changed),
	}
	return d
}

// diffRow compares tracked fields as plain strings.
func diffRow(prev, cur snapshot.Row) []Change {
	var out []Change
	for _, f := range snapshot.Fields {
		o, n := prev.Get(f.Key), cur.Get(f.Key)
		if o != n {
			out = append(out, Change{Field: f.Label, Old: o, New: n})
		}
	}
	return out
}
