package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/tgifai/crawlwatch/internal/consts"
)

var ErrConfigConflict = errors.New("config conflict")

var defaultManager = &InstanceManager{}

// InstanceManager owns the process config. Readers get clones.
type InstanceManager struct {
	mu sync.RWMutex

	path   string
	loaded bool
	cfg    *Config
	hash   string
	// fromDisk is false when Load fell back to defaults.
	fromDisk bool
}

func (ins *InstanceManager) Load(path string) (*Config, error) {
	if ins == nil {
		return nil, fmt.Errorf("instance manager is nil")
	}
	ins.mu.Lock()
	defer ins.mu.Unlock()

	path = strings.TrimSpace(path)
	if path == "" {
		path = ins.path
	}
	if path == "" {
		path = consts.DefaultConfigPath()
	}

	cfg, fromDisk, err := readConfig(path)
	if err != nil {
		return nil, err
	}
	ins.path = path
	ins.cfg = cfg
	ins.hash = cfg.Hash()
	ins.loaded = true
	ins.fromDisk = fromDisk
	return cfg.Clone()
}

func (ins *InstanceManager) Get() (*Config, error) {
	if ins == nil {
		return nil, fmt.Errorf("instance manager is nil")
	}
	ins.mu.RLock()
	defer ins.mu.RUnlock()
	if !ins.loaded || ins.cfg == nil {
		return nil, fmt.Errorf("config is not loaded")
	}
	return ins.cfg.Clone()
}

// Path is the file the config was loaded from (or will be saved to).
func (ins *InstanceManager) Path() string {
	ins.mu.RLock()
	defer ins.mu.RUnlock()
	return ins.path
}

// FromDisk reports whether the last Load found a config file.
func (ins *InstanceManager) FromDisk() bool {
	ins.mu.RLock()
	defer ins.mu.RUnlock()
	return ins.fromDisk
}

func (ins *InstanceManager) Apply(name string, value any) error {
	return ins.ApplyWithCAS(name, value, "")
}

// ApplyWithCAS replaces one section if the current hash matches expectedHash.
// An empty expectedHash skips the check.
func (ins *InstanceManager) ApplyWithCAS(name string, value any, expectedHash string) error {
	if ins == nil {
		return fmt.Errorf("instance manager is nil")
	}
	ins.mu.Lock()
	defer ins.mu.Unlock()

	if !ins.loaded || ins.cfg == nil {
		return fmt.Errorf("config is not loaded")
	}
	if want := strings.TrimSpace(expectedHash); want != "" && want != ins.hash {
		return fmt.Errorf("%w: expected %s, got %s", ErrConfigConflict, want, ins.hash)
	}

	draft, err := ins.cfg.Clone()
	if err != nil {
		return err
	}
	if err := draft.UpdateByName(name, value); err != nil {
		return err
	}
	if err := draft.Validate(); err != nil {
		return err
	}
	ins.cfg = draft
	ins.hash = draft.Hash()
	return nil
}

func (ins *InstanceManager) Hash() (string, error) {
	if ins == nil {
		return "", fmt.Errorf("instance manager is nil")
	}
	ins.mu.RLock()
	defer ins.mu.RUnlock()
	if !ins.loaded || ins.cfg == nil {
		return "", fmt.Errorf("config is not loaded")
	}
	return ins.hash, nil
}

func (ins *InstanceManager) Save() error {
	if ins == nil {
		return fmt.Errorf("instance manager is nil")
	}
	ins.mu.Lock()
	defer ins.mu.Unlock()
	if !ins.loaded || ins.cfg == nil {
		return fmt.Errorf("config is not loaded")
	}

	raw, err := encodeYAML(ins.cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := writeFileLocked(ins.path, raw); err != nil {
		return err
	}
	ins.hash = ins.cfg.Hash()
	ins.fromDisk = true
	return nil
}

// readConfig decodes the file over Default(). A missing file yields the defaults.
func readConfig(path string) (*Config, bool, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := cfg.Validate(); err != nil {
			return nil, false, fmt.Errorf("config validation failed: %w", err)
		}
		return cfg, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, false, fmt.Errorf("parse config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, false, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, true, nil
}

func encodeYAML(cfg *Config) ([]byte, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		_ = enc.Close()
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return []byte(strings.TrimRight(buf.String(), "\n") + "\n"), nil
}

// SetDefault installs cfg as the process config, as if loaded from path.
func SetDefault(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	defaultManager.mu.Lock()
	defer defaultManager.mu.Unlock()
	defaultManager.path = path
	defaultManager.cfg = cfg
	defaultManager.hash = cfg.Hash()
	defaultManager.loaded = true
	return nil
}

func Load(path string) (*Config, error)              { return defaultManager.Load(path) }
func Get() (*Config, error)                          { return defaultManager.Get() }
func Apply(name string, value any) error             { return defaultManager.Apply(name, value) }
func Save() error                                    { return defaultManager.Save() }
func Hash() (string, error)                          { return defaultManager.Hash() }
func FromDisk() bool                                 { return defaultManager.FromDisk() }
func ApplyWithCAS(name string, value any, h string) error {
	return defaultManager.ApplyWithCAS(name, value, h)
}
