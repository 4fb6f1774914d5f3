// Package config holds the runtime configuration for the scan service.
// Every operational tunable (deadlines, TTLs, hop limits, keyword and brand
// lists, scoring weights) lives here, with production defaults and optional
// YAML overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/phishguard/phishguard/internal/probe"
	"github.com/phishguard/phishguard/internal/scoring"
	"github.com/phishguard/phishguard/internal/urlutil"
	"github.com/phishguard/phishguard/internal/webclient"
)

// Duration wraps time.Duration so YAML values like "30s" parse directly.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the underlying time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// ScanConfig bounds a single scan.
type ScanConfig struct {
	// Deadline is the absolute ceiling for one scan; the server must answer
	// before the browser's own 30s abort fires.
	Deadline Duration `yaml:"deadline"`

	// ProbeMargin is reserved out of the deadline for extraction/scoring.
	ProbeMargin Duration `yaml:"probe_margin"`

	// MaxURLLength rejects absurd inputs before any probing.
	MaxURLLength int `yaml:"max_url_length"`

	CacheTTL      Duration `yaml:"cache_ttl"`
	CacheCapacity int      `yaml:"cache_capacity"`
}

// HistoryConfig configures the append-only scan-history store.
type HistoryConfig struct {
	// Path is the sqlite database path; empty keeps history in memory.
	Path string `yaml:"path"`
}

// Config is the root runtime configuration.
type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Scan      ScanConfig       `yaml:"scan"`
	Probes    probe.Config     `yaml:"probes"`
	Scoring   scoring.Config   `yaml:"scoring"`
	WebClient webclient.Config `yaml:"webclient"`
	History   HistoryConfig    `yaml:"history"`
	URL       urlutil.Options  `yaml:"url"`
}

// Default returns a Config populated with production defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: ":8080",
		},
		Scan: ScanConfig{
			Deadline:      Duration(30 * time.Second),
			ProbeMargin:   Duration(2 * time.Second),
			MaxURLLength:  2048,
			CacheTTL:      Duration(10 * time.Minute),
			CacheCapacity: 1024,
		},
		Probes:    probe.DefaultConfig(),
		Scoring:   scoring.DefaultConfig(),
		WebClient: webclient.DefaultConfig(),
		History: HistoryConfig{
			Path: "",
		},
		URL: urlutil.DefaultOptions(),
	}
}

// Load reads YAML overrides from path on top of the defaults. A missing path
// returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}
