package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	ins := &InstanceManager{}
	cfg, err := ins.Load(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if ins.FromDisk() {
		t.Fatalf("FromDisk() = true, want false")
	}
	if cfg.Pipeline.MaxConcurrentRuns != defaultMaxRuns {
		t.Fatalf("MaxConcurrentRuns = %d, want %d", cfg.Pipeline.MaxConcurrentRuns, defaultMaxRuns)
	}
	if cfg.Crawler.ExportFormat != "xlsx" {
		t.Fatalf("ExportFormat = %q, want xlsx", cfg.Crawler.ExportFormat)
	}
	if !Bool(cfg.Scheduler.Enabled, false) {
		t.Fatalf("scheduler should be enabled by default")
	}
}

func TestLoadOverlaysPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  bind: 0.0.0.0:9000
scheduler:
  timezone: UTC
crawler:
  export_format: CSV
  headless: false
pipeline:
  comparison: false
notifiers:
  " ops ":
    type: log
    enabled: true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	ins := &InstanceManager{}
	cfg, err := ins.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Bind != "0.0.0.0:9000" {
		t.Fatalf("Bind = %q", cfg.Server.Bind)
	}
	if cfg.Server.RequestTimeout != defaultRequestTimeout {
		t.Fatalf("RequestTimeout = %d, want default", cfg.Server.RequestTimeout)
	}
	if cfg.Scheduler.Timezone != "UTC" {
		t.Fatalf("Timezone = %q", cfg.Scheduler.Timezone)
	}
	if cfg.Crawler.ExportFormat != "csv" {
		t.Fatalf("ExportFormat = %q, want csv", cfg.Crawler.ExportFormat)
	}
	if Bool(cfg.Crawler.Headless, true) {
		t.Fatalf("Headless should be false")
	}
	if !Bool(cfg.Crawler.SaveCrawl, false) {
		t.Fatalf("SaveCrawl should default to true")
	}
	if Bool(cfg.Pipeline.Comparison, true) {
		t.Fatalf("Comparison should be false")
	}
	n, ok := cfg.Notifiers["ops"]
	if !ok || n.ID != "ops" || n.Type != "log" {
		t.Fatalf("notifier = %+v, ok = %v", n, ok)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad timezone", func(c *Config) { c.Scheduler.Timezone = "Mars/Olympus" }},
		{"bad export format", func(c *Config) { c.Crawler.ExportFormat = "pdf" }},
		{"bad log output", func(c *Config) { c.Logging.Output = "syslog" }},
		{"unknown notifier", func(c *Config) {
			c.Notifiers = map[string]NotifierConfig{"x": {Type: "pager"}}
		}},
		{"telegram without token", func(c *Config) {
			c.Notifiers = map[string]NotifierConfig{"tg": {Type: "telegram", Enabled: true}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("Validate() error = nil, want error")
			}
		})
	}
}

func TestSaveAndCAS(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	ins := &InstanceManager{}
	if _, err := ins.Load(path); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := ins.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	hash, err := ins.Hash()
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	server := ServerConfig{Bind: "127.0.0.1:1234"}
	if err := ins.ApplyWithCAS("server", &server, hash); err != nil {
		t.Fatalf("ApplyWithCAS() error = %v", err)
	}
	if err := ins.ApplyWithCAS("server", &server, hash); !errors.Is(err, ErrConfigConflict) {
		t.Fatalf("stale ApplyWithCAS() error = %v, want ErrConfigConflict", err)
	}
	if err := ins.Save(); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}

	reloaded := &InstanceManager{}
	cfg, err := reloaded.Load(path)
	if err != nil {
		t.Fatalf("reload error = %v", err)
	}
	if cfg.Server.Bind != "127.0.0.1:1234" {
		t.Fatalf("reloaded Bind = %q", cfg.Server.Bind)
	}
	if cfg.Server.RequestTimeout != defaultRequestTimeout {
		t.Fatalf("RequestTimeout should be back-filled, got %d", cfg.Server.RequestTimeout)
	}

	backups, _ := filepath.Glob(path + ".[0-9]*")
	if len(backups) != 1 {
		t.Fatalf("backups = %v, want 1", backups)
	}
	if _, err := os.Stat(path + ".lock"); !os.IsNotExist(err) {
		t.Fatalf("lock file left behind: %v", err)
	}
}

func TestGetReturnsClone(t *testing.T) {
	ins := &InstanceManager{}
	if _, err := ins.Load(filepath.Join(t.TempDir(), "config.yaml")); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	a, _ := ins.Get()
	a.Crawler.DefaultExportTabs[0] = "mutated"
	b, _ := ins.Get()
	if b.Crawler.DefaultExportTabs[0] == "mutated" {
		t.Fatalf("Get() leaked internal state")
	}
}

func TestUpdateByNameRejectsWrongType(t *testing.T) {
	cfg := Default()
	if err := cfg.UpdateByName("pipeline", &ServerConfig{}); err == nil {
		t.Fatalf("UpdateByName() error = nil, want type error")
	}
	if err := cfg.UpdateByName("nope", nil); err == nil {
		t.Fatalf("UpdateByName() error = nil, want unsupported name")
	}
}

func TestSectionFromYAMLOverlaysCurrentValues(t *testing.T) {
	cfg := Default()
	cfg.Server.APIKey = "secret"

	v, err := cfg.SectionFromYAML("server", []byte("bind: 127.0.0.1:9999\n"))
	if err != nil {
		t.Fatalf("SectionFromYAML() error = %v", err)
	}
	server, ok := v.(*ServerConfig)
	if !ok {
		t.Fatalf("SectionFromYAML() type = %T, want *ServerConfig", v)
	}
	if server.Bind != "127.0.0.1:9999" || server.APIKey != "secret" {
		t.Fatalf("server = %+v", server)
	}
	if cfg.Server.Bind != defaultBind {
		t.Fatalf("receiver mutated: Bind = %q", cfg.Server.Bind)
	}
	if err := cfg.UpdateByName("server", v); err != nil {
		t.Fatalf("UpdateByName() error = %v", err)
	}

	v, err = cfg.SectionFromYAML("notifiers", []byte("ops:\n  type: log\n  enabled: true\n"))
	if err != nil {
		t.Fatalf("SectionFromYAML(notifiers) error = %v", err)
	}
	if err := cfg.UpdateByName("notifiers", v); err != nil {
		t.Fatalf("UpdateByName(notifiers) error = %v", err)
	}
	if n, ok := cfg.Notifiers["ops"]; !ok || n.Type != "log" || !n.Enabled {
		t.Fatalf("notifiers = %+v", cfg.Notifiers)
	}

	if _, err := cfg.SectionFromYAML("nope", nil); err == nil {
		t.Fatalf("SectionFromYAML(nope) error = nil, want unsupported name")
	}
	if _, err := cfg.SectionFromYAML("server", []byte("bind: [")); err == nil {
		t.Fatalf("SectionFromYAML() error = nil, want parse error")
	}
}
