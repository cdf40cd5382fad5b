package snapshot

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var ErrExportNotFound = errors.New("internal export not found")

// ReadTable returns the first sheet of an .xlsx file or the records of a
// .csv file, header row included.
func ReadTable(path string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return readXLSX(path)
	case ".csv":
		return readCSV(path)
	default:
		return nil, fmt.Errorf("unsupported export format %q", filepath.Ext(path))
	}
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))

	r := csv.NewReader(bytes.NewReader(raw))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var out [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// FromTable builds a snapshot from a header row and data rows. The URL
// column is the one headed address or url, else the first column.
func FromTable(table [][]string) *Snapshot {
	s := New()
	if len(table) == 0 {
		return s
	}

	cols := ResolveColumns(table[0])
	urlCol := cols.URL
	for _, rec := range table[1:] {
		url := strings.TrimSpace(cell(rec, urlCol))
		if url == "" {
			continue
		}
		row := Row{URL: url, Values: make(map[string]string, len(Fields))}
		for _, f := range Fields {
			if idx, ok := cols.Fields[f.Key]; ok {
				row.Values[f.Key] = strings.TrimSpace(cell(rec, idx))
			} else {
				row.Values[f.Key] = ""
			}
		}
		s.Add(row)
	}
	return s
}

// Columns maps tracked fields to header positions.
type Columns struct {
	URL    int
	Fields map[string]int
}

// ResolveColumns matches headers case-insensitively. When a header repeats,
// the rightmost column wins.
func ResolveColumns(header []string) Columns {
	cols := Columns{URL: HeaderIndex(header, urlHeaders...), Fields: make(map[string]int, len(Fields))}
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		for _, f := range Fields {
			if name == f.Column {
				cols.Fields[f.Key] = i
			}
		}
	}
	if cols.URL < 0 {
		cols.URL = 0
	}
	return cols
}

// HeaderIndex returns the position of the last header equal to one of names.
func HeaderIndex(header []string, names ...string) int {
	for i := len(header) - 1; i >= 0; i-- {
		name := strings.ToLower(strings.TrimSpace(header[i]))
		for _, n := range names {
			if name == n {
				return i
			}
		}
	}
	return -1
}

func cell(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return rec[i]
}

// Read parses one export file.
func Read(path string) (*Snapshot, error) {
	table, err := ReadTable(path)
	if err != nil {
		return nil, err
	}
	return FromTable(table), nil
}

// FindExport locates the internal export in dir: an .xlsx or .csv file whose
// name contains "internal" but neither "analysis" nor "comparison". xlsx
// files are preferred.
func FindExport(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrExportNotFound, dir)
		}
		return "", fmt.Errorf("list %s: %w", dir, err)
	}

	var csvMatch string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := strings.ToLower(e.Name())
		if !strings.Contains(name, "internal") ||
			strings.Contains(name, "analysis") ||
			strings.Contains(name, "comparison") {
			continue
		}
		switch filepath.Ext(name) {
		case ".xlsx":
			return filepath.Join(dir, e.Name()), nil
		case ".csv":
			if csvMatch == "" {
				csvMatch = filepath.Join(dir, e.Name())
			}
		}
	}
	if csvMatch != "" {
		return csvMatch, nil
	}
	return "", fmt.Errorf("%w: %s", ErrExportNotFound, dir)
}

// ReadDir finds and parses the internal export of a run directory.
func ReadDir(dir string) (*Snapshot, string, error) {
	path, err := FindExport(dir)
	if err != nil {
		return nil, "", err
	}
	s, err := Read(path)
	if err != nil {
		return nil, path, err
	}
	return s, path, nil
}
