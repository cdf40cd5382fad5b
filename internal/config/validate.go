package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Validate normalises the config and back-fills zero values with defaults.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config cannot be nil")
	}
	def := Default()

	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = def.Server.Bind
	}
	if c.Server.RequestTimeout <= 0 {
		c.Server.RequestTimeout = def.Server.RequestTimeout
	}
	c.Server.MetricsBind = strings.TrimSpace(c.Server.MetricsBind)
	if p := strings.TrimSpace(c.Server.MetricsPath); p == "" {
		c.Server.MetricsPath = def.Server.MetricsPath
	} else if !strings.HasPrefix(p, "/") {
		c.Server.MetricsPath = "/" + p
	}

	switch strings.ToLower(strings.TrimSpace(c.Logging.Output)) {
	case "":
		c.Logging.Output = def.Logging.Output
	case "stdout", "file", "both":
	default:
		return fmt.Errorf("logging.output must be stdout, file or both, got %q", c.Logging.Output)
	}
	c.Logging.File = expandHome(c.Logging.File)

	if c.Scheduler.Enabled == nil {
		c.Scheduler.Enabled = boolPtr(true)
	}
	c.Scheduler.Store = expandHome(c.Scheduler.Store)
	if c.Scheduler.Store == "" {
		c.Scheduler.Store = def.Scheduler.Store
	}
	c.Scheduler.Timezone = strings.TrimSpace(c.Scheduler.Timezone)
	if c.Scheduler.Timezone == "" {
		c.Scheduler.Timezone = defaultTimezone
	}
	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("scheduler.timezone: %w", err)
	}
	if c.Scheduler.DispatchBuffer <= 0 {
		c.Scheduler.DispatchBuffer = def.Scheduler.DispatchBuffer
	}

	if err := c.Crawler.validate(&def.Crawler); err != nil {
		return fmt.Errorf("crawler: %w", err)
	}

	if c.Pipeline.MaxConcurrentRuns <= 0 {
		c.Pipeline.MaxConcurrentRuns = def.Pipeline.MaxConcurrentRuns
	}
	if c.Pipeline.LaneBuffer <= 0 {
		c.Pipeline.LaneBuffer = def.Pipeline.LaneBuffer
	}
	c.Pipeline.History = expandHome(c.Pipeline.History)
	if c.Pipeline.History == "" {
		c.Pipeline.History = def.Pipeline.History
	}
	if c.Pipeline.Comparison == nil {
		c.Pipeline.Comparison = boolPtr(true)
	}
	if c.Pipeline.InternalAnalysis == nil {
		c.Pipeline.InternalAnalysis = boolPtr(true)
	}

	normalized := make(map[string]NotifierConfig, len(c.Notifiers))
	for key, one := range c.Notifiers {
		id := strings.TrimSpace(key)
		if id == "" {
			return errors.New("notifier id cannot be empty")
		}
		one.ID = id
		if err := one.Validate(); err != nil {
			return fmt.Errorf("notifiers[%s] validation failed: %w", id, err)
		}
		normalized[id] = one
	}
	c.Notifiers = normalized
	return nil
}

func (c *CrawlerConfig) validate(def *CrawlerConfig) error {
	c.Executable = expandHome(c.Executable)
	c.OutputDir = expandHome(c.OutputDir)
	if c.OutputDir == "" {
		c.OutputDir = def.OutputDir
	}
	c.ConfigDir = expandHome(c.ConfigDir)
	if c.ConfigDir == "" {
		c.ConfigDir = def.ConfigDir
	}
	c.TempDir = expandHome(c.TempDir)
	if c.TempDir == "" {
		c.TempDir = def.TempDir
	}
	if c.Headless == nil {
		c.Headless = boolPtr(true)
	}
	if c.SaveCrawl == nil {
		c.SaveCrawl = boolPtr(true)
	}
	c.ExportFormat = strings.ToLower(strings.TrimSpace(c.ExportFormat))
	switch c.ExportFormat {
	case "":
		c.ExportFormat = def.ExportFormat
	case "xlsx", "csv":
	default:
		return fmt.Errorf("export_format must be xlsx or csv, got %q", c.ExportFormat)
	}
	if c.TimeoutSec <= 0 {
		c.TimeoutSec = def.TimeoutSec
	}
	if len(c.DefaultExportTabs) == 0 {
		c.DefaultExportTabs = append([]string(nil), def.DefaultExportTabs...)
	}
	return nil
}

func (n *NotifierConfig) Validate() error {
	if n == nil {
		return errors.New("notifier config cannot be nil")
	}
	n.Type = strings.ToLower(strings.TrimSpace(n.Type))
	switch n.Type {
	case "log":
	case "telegram":
		if !n.Enabled {
			return nil
		}
		if s, _ := n.Config["token"].(string); strings.TrimSpace(s) == "" {
			return errors.New("telegram notifier requires config.token")
		}
		if n.Config["chat_id"] == nil {
			return errors.New("telegram notifier requires config.chat_id")
		}
	default:
		return fmt.Errorf("unsupported notifier type %q", n.Type)
	}
	return nil
}

func expandHome(p string) string {
	p = strings.TrimSpace(p)
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
