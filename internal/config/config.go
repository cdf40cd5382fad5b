package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	"gopkg.in/yaml.v3"

	"github.com/tgifai/crawlwatch/internal/consts"
)

type (
	Config struct {
		Server    ServerConfig              `yaml:"server"`
		Logging   LoggingConfig             `yaml:"logging"`
		Scheduler SchedulerConfig           `yaml:"scheduler"`
		Crawler   CrawlerConfig             `yaml:"crawler"`
		Pipeline  PipelineConfig            `yaml:"pipeline"`
		Notifiers map[string]NotifierConfig `yaml:"notifiers"`
	}

	ServerConfig struct {
		Bind           string `yaml:"bind"`
		APIKey         string `yaml:"api_key"`
		RequestTimeout int    `yaml:"request_timeout"` // seconds
		MetricsBind    string `yaml:"metrics_bind"`
		MetricsPath    string `yaml:"metrics_path"`
	}

	LoggingConfig struct {
		Level      string `yaml:"level"`  // debug, info, warn, error
		Format     string `yaml:"format"` // json, text
		Output     string `yaml:"output"` // stdout, file, both
		File       string `yaml:"file"`
		MaxSize    int    `yaml:"max_size"` // MB
		MaxBackups int    `yaml:"max_backups"`
		MaxAge     int    `yaml:"max_age"` // days
	}

	SchedulerConfig struct {
		Enabled        *bool  `yaml:"enabled"`
		Store          string `yaml:"store"`
		Timezone       string `yaml:"timezone"`
		DispatchBuffer int    `yaml:"dispatch_buffer"`
	}

	CrawlerConfig struct {
		Executable        string   `yaml:"executable"`
		OutputDir         string   `yaml:"output_dir"`
		ConfigDir         string   `yaml:"config_dir"`
		TempDir           string   `yaml:"temp_dir"`
		Headless          *bool    `yaml:"headless"`
		SaveCrawl         *bool    `yaml:"save_crawl"`
		ExportFormat      string   `yaml:"export_format"` // xlsx, csv
		TimeoutSec        int      `yaml:"timeout_sec"`
		DefaultExportTabs []string `yaml:"default_export_tabs"`
	}

	PipelineConfig struct {
		MaxConcurrentRuns int    `yaml:"max_concurrent_runs"`
		LaneBuffer        int    `yaml:"lane_buffer"`
		History           string `yaml:"history"`
		Comparison        *bool  `yaml:"comparison"`
		InternalAnalysis  *bool  `yaml:"internal_analysis"`
	}

	NotifierConfig struct {
		ID      string                 `yaml:"-"`
		Type    string                 `yaml:"type"` // log, telegram
		Enabled bool                   `yaml:"enabled"`
		Config  map[string]interface{} `yaml:"config"`
	}
)

const (
	defaultBind           = "127.0.0.1:8088"
	defaultRequestTimeout = 30
	defaultMetricsPath    = "/metrics"
	defaultDispatchBuffer = 64
	defaultCrawlTimeout   = 4 * 60 * 60
	defaultMaxRuns        = 3
	defaultLaneBuffer     = 16
	defaultExportFormat   = "xlsx"
	defaultTimezone       = "Local"
)

var defaultExportTabs = []string{"Internal:All", "Response Codes:All"}

// Default returns a fully populated config. Persisted YAML is decoded on top of it.
func Default() *Config {
	home := consts.HomeDir()
	return &Config{
		Server: ServerConfig{
			Bind:           defaultBind,
			RequestTimeout: defaultRequestTimeout,
			MetricsPath:    defaultMetricsPath,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
			File:   filepath.Join(home, "logs", "crawlwatch.log"),
		},
		Scheduler: SchedulerConfig{
			Enabled:        boolPtr(true),
			Store:          consts.DefaultJobsPath(),
			Timezone:       defaultTimezone,
			DispatchBuffer: defaultDispatchBuffer,
		},
		Crawler: CrawlerConfig{
			Executable:        consts.DefaultFrogExecutable(),
			OutputDir:         consts.DefaultCrawlOutputDir(),
			ConfigDir:         filepath.Join(home, consts.DefaultConfigDir),
			TempDir:           filepath.Join(home, consts.DefaultTempDir),
			Headless:          boolPtr(true),
			SaveCrawl:         boolPtr(true),
			ExportFormat:      defaultExportFormat,
			TimeoutSec:        defaultCrawlTimeout,
			DefaultExportTabs: append([]string(nil), defaultExportTabs...),
		},
		Pipeline: PipelineConfig{
			MaxConcurrentRuns: defaultMaxRuns,
			LaneBuffer:        defaultLaneBuffer,
			History:           consts.DefaultRunsPath(),
			Comparison:        boolPtr(true),
			InternalAnalysis:  boolPtr(true),
		},
		Notifiers: map[string]NotifierConfig{},
	}
}

func boolPtr(v bool) *bool { return &v }

// Bool dereferences an optional flag.
func Bool(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// UpdateByName replaces one top-level section.
func (c *Config) UpdateByName(name string, value any) error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return fmt.Errorf("name is required")
	case "config":
		typed, ok := value.(*Config)
		if !ok || typed == nil {
			return fmt.Errorf("name 'config' requires *Config")
		}
		*c = *typed
	case "server":
		typed, ok := value.(*ServerConfig)
		if !ok || typed == nil {
			return fmt.Errorf("name 'server' requires *ServerConfig")
		}
		c.Server = *typed
	case "logging":
		typed, ok := value.(*LoggingConfig)
		if !ok || typed == nil {
			return fmt.Errorf("name 'logging' requires *LoggingConfig")
		}
		c.Logging = *typed
	case "scheduler":
		typed, ok := value.(*SchedulerConfig)
		if !ok || typed == nil {
			return fmt.Errorf("name 'scheduler' requires *SchedulerConfig")
		}
		c.Scheduler = *typed
	case "crawler":
		typed, ok := value.(*CrawlerConfig)
		if !ok || typed == nil {
			return fmt.Errorf("name 'crawler' requires *CrawlerConfig")
		}
		c.Crawler = *typed
	case "pipeline":
		typed, ok := value.(*PipelineConfig)
		if !ok || typed == nil {
			return fmt.Errorf("name 'pipeline' requires *PipelineConfig")
		}
		c.Pipeline = *typed
	case "notifiers":
		typed, ok := value.(*map[string]NotifierConfig)
		if !ok || typed == nil {
			return fmt.Errorf("name 'notifiers' requires *map[string]NotifierConfig")
		}
		next := make(map[string]NotifierConfig, len(*typed))
		for k, v := range *typed {
			next[k] = v
		}
		c.Notifiers = next
	default:
		return fmt.Errorf("unsupported config name: %s", name)
	}
	return nil
}

// SectionFromYAML decodes raw over a copy of the named section, so a partial
// document only changes the keys it mentions. The result is the pointer type
// UpdateByName expects for name.
func (c *Config) SectionFromYAML(name string, raw []byte) (any, error) {
	if c == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	draft, err := c.Clone()
	if err != nil {
		return nil, err
	}

	var target any
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "config":
		target = draft
	case "server":
		target = &draft.Server
	case "logging":
		target = &draft.Logging
	case "scheduler":
		target = &draft.Scheduler
	case "crawler":
		target = &draft.Crawler
	case "pipeline":
		target = &draft.Pipeline
	case "notifiers":
		if draft.Notifiers == nil {
			draft.Notifiers = map[string]NotifierConfig{}
		}
		target = &draft.Notifiers
	default:
		return nil, fmt.Errorf("unsupported config name: %s", name)
	}
	if err := yaml.Unmarshal(raw, target); err != nil {
		return nil, fmt.Errorf("parse %s yaml: %w", name, err)
	}
	return target, nil
}

// Clone deep-copies the config through a JSON round trip.
func (c *Config) Clone() (*Config, error) {
	if c == nil {
		return nil, fmt.Errorf("config is nil")
	}
	raw, err := sonic.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	var cloned Config
	if err := sonic.Unmarshal(raw, &cloned); err != nil {
		return nil, fmt.Errorf("unmarshal config clone: %w", err)
	}
	return &cloned, nil
}

func (c *Config) Hash() string {
	api := sonic.Config{SortMapKeys: true, UseNumber: true}.Froze()
	raw, _ := api.Marshal(c)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
