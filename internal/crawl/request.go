package crawl

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
)

type Mode string

const (
	ModeURL  Mode = "url"
	ModeFile Mode = "file"
)

const internalAllTab = "Internal:All"

// Request is the decoded crawl configuration carried by a job.
type Request struct {
	Mode           Mode           `json:"mode"`
	URL            string         `json:"url,omitempty"`
	FilePath       string         `json:"file_path,omitempty"`
	ConfigFile     string         `json:"config_file,omitempty"`
	ExportTabs     []string       `json:"export_tabs,omitempty"`
	BulkExports    []string       `json:"bulk_exports,omitempty"`
	ProcessOptions ProcessOptions `json:"process_options"`
}

type ProcessOptions struct {
	InternalAnalysis bool `json:"internal_analysis"`
	Comparison       bool `json:"comparison"`
}

// DecodeRequest parses a job's crawl config and validates it.
func DecodeRequest(raw json.RawMessage) (*Request, error) {
	if len(raw) == 0 {
		return nil, errors.New("crawl config is empty")
	}
	var req Request
	if err := sonic.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("decode crawl config: %w", err)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &req, nil
}

// Validate normalises the mode and checks the target is set.
func (r *Request) Validate() error {
	r.Mode = Mode(strings.ToLower(strings.TrimSpace(string(r.Mode))))
	r.URL = strings.TrimSpace(r.URL)
	r.FilePath = strings.TrimSpace(r.FilePath)
	if r.Mode == "" {
		if r.FilePath != "" && r.URL == "" {
			r.Mode = ModeFile
		} else {
			r.Mode = ModeURL
		}
	}
	switch r.Mode {
	case ModeURL:
		if r.URL == "" {
			return errors.New("crawl config: url is required in url mode")
		}
	case ModeFile:
		if r.FilePath == "" {
			return errors.New("crawl config: file_path is required in file mode")
		}
	default:
		return fmt.Errorf("crawl config: unknown mode %q", r.Mode)
	}
	return nil
}

// Domain is the label used to name run directories.
func (r *Request) Domain() string {
	if r.Mode == ModeFile {
		return DomainFromProject(r.FilePath)
	}
	return ExtractDomain(r.URL)
}

// Target is the URL or project file, for display.
func (r *Request) Target() string {
	if r.Mode == ModeFile {
		return r.FilePath
	}
	return r.URL
}

// effectiveTabs adds Internal:All when a later stage needs the internal
// export and no Internal tab was chosen.
func (r *Request) effectiveTabs(defaults []string) []string {
	tabs := r.ExportTabs
	if len(tabs) == 0 {
		tabs = defaults
	}
	out := make([]string, 0, len(tabs)+1)
	hasInternal := false
	for _, t := range tabs {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if strings.HasPrefix(strings.ToLower(t), "internal:") {
			hasInternal = true
		}
		out = append(out, t)
	}
	if !hasInternal && (r.ProcessOptions.Comparison || r.ProcessOptions.InternalAnalysis) {
		out = append(out, internalAllTab)
	}
	return out
}
