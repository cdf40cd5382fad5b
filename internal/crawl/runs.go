package crawl

import (
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// TimestampLayout sorts lexicographically in time order.
const TimestampLayout = "20060102_150405"

const unknownDomain = "unknown"

// ExtractDomain returns the first hostname label without a leading "www.":
// "https://www.example.co.uk/x" gives "example".
func ExtractDomain(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Hostname() == "" {
		return unknownDomain
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	label, _, _ := strings.Cut(host, ".")
	if label == "" {
		return unknownDomain
	}
	return label
}

// DomainFromProject reads the domain from a "domain_YYYYMMDD_HHMMSS.seospider" name.
func DomainFromProject(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	label, _, _ := strings.Cut(name, "_")
	if label == "" {
		return unknownDomain
	}
	return label
}

// BaseName names a run directory and its files.
func BaseName(domain string, t time.Time) string {
	return domain + "_" + t.Format(TimestampLayout)
}

// PreviousRun is an earlier run directory of the same domain.
type PreviousRun struct {
	Path       string `json:"path"`
	FolderName string `json:"folder_name"`
	Timestamp  string `json:"timestamp"`
}

// FindPreviousRun returns the most recent run directory for domain under
// outputDir, skipping exclude. Only directories named domain_YYYYMMDD_HHMMSS
// count. Nil when there is none.
func FindPreviousRun(outputDir, domain, exclude string) *PreviousRun {
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return nil
	}

	prefix := domain + "_"
	var matches []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || name == exclude || !strings.HasPrefix(name, prefix) {
			continue
		}
		if _, err := time.Parse(TimestampLayout, strings.TrimPrefix(name, prefix)); err != nil {
			continue
		}
		matches = append(matches, name)
	}
	if len(matches) == 0 {
		return nil
	}
	sort.Strings(matches)
	latest := matches[len(matches)-1]
	return &PreviousRun{
		Path:       filepath.Join(outputDir, latest),
		FolderName: latest,
		Timestamp:  strings.TrimPrefix(latest, prefix),
	}
}

// TimestampOf returns the timestamp suffix of a base name.
func TimestampOf(baseName string) string {
	if len(baseName) < len(TimestampLayout) {
		return ""
	}
	ts := baseName[len(baseName)-len(TimestampLayout):]
	if _, err := time.Parse(TimestampLayout, ts); err != nil {
		return ""
	}
	return ts
}

// FormatTimestamp turns YYYYMMDD_HHMMSS into DD/MM/YYYY HH:MM:SS. Anything
// else is returned unchanged.
func FormatTimestamp(ts string) string {
	t, err := time.Parse(TimestampLayout, ts)
	if err != nil {
		return ts
	}
	return t.Format("02/01/2006 15:04:05")
}

// ListFiles returns the names in dir with one of exts, sorted. No exts means all files.
func ListFiles(dir string, exts ...string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if len(exts) == 0 || hasExt(e.Name(), exts) {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out
}

func hasExt(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}
