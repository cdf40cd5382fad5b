package snapshot

import "strings"

// Row is one crawled URL. Values holds every tracked field, empty when absent.
type Row struct {
	URL    string            `json:"url"`
	Values map[string]string `json:"values"`
}

func (r Row) Get(key string) string {
	return r.Values[key]
}

// Snapshot is a URL-keyed dataset that keeps insertion order.
type Snapshot struct {
	rows  []Row
	index map[string]int
}

func New() *Snapshot {
	return &Snapshot{index: make(map[string]int)}
}

// Key folds a URL for lookups.
func Key(url string) string {
	return strings.ToLower(strings.TrimSpace(url))
}

// Add inserts row. A row whose key already exists replaces it in place.
// Rows with an empty key are ignored.
func (s *Snapshot) Add(row Row) bool {
	k := Key(row.URL)
	if k == "" {
		return false
	}
	if row.Values == nil {
		row.Values = make(map[string]string, len(Fields))
	}
	if i, ok := s.index[k]; ok {
		s.rows[i] = row
		return true
	}
	s.index[k] = len(s.rows)
	s.rows = append(s.rows, row)
	return true
}

func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.rows)
}

// Rows returns the rows in insertion order. Callers must not modify them.
func (s *Snapshot) Rows() []Row {
	if s == nil {
		return nil
	}
	return s.rows
}

func (s *Snapshot) Lookup(url string) (Row, bool) {
	if s == nil {
		return Row{}, false
	}
	i, ok := s.index[Key(url)]
	if !ok {
		return Row{}, false
	}
	return s.rows[i], true
}

func (s *Snapshot) Has(url string) bool {
	_, ok := s.Lookup(url)
	return ok
}
