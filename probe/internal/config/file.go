// Package config loads the pierce YAML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level pierce configuration.
type Config struct {
	Browser BrowserConfig `yaml:"browser"`
	Fetch   FetchConfig   `yaml:"fetch"`
	Store   StoreConfig   `yaml:"store"`
	Server  ServerConfig  `yaml:"server"`
	Query   QueryConfig   `yaml:"query"`
}

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig struct {
	Remote            string        `yaml:"remote"`
	RecycleInterval   time.Duration `yaml:"recycle_interval"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout"`
	ResourceBlocking  []string      `yaml:"resource_blocking"`
	XvfbDisplay       string        `yaml:"xvfb_display"`
}

// FetchConfig controls the HTTP acquisition path.
type FetchConfig struct {
	UserAgent    string        `yaml:"user_agent"`
	Timeout      time.Duration `yaml:"timeout"`
	RateLimit    float64       `yaml:"rate_limit"` // requests per second, 0 = default
	Burst        int           `yaml:"burst"`
	MaxBody      int64         `yaml:"max_body"`
	AllowPrivate bool          `yaml:"allow_private"`
	FileRoot     string        `yaml:"file_root"` // file sources must resolve under it; empty disables them
}

// StoreConfig locates the SQLite database of saved selectors and runs.
type StoreConfig struct {
	Path          string `yaml:"path"` // empty = no persistence
	BusyTimeoutMS int    `yaml:"busy_timeout_ms"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr    string `yaml:"addr"`
	MaxBody int64  `yaml:"max_body"`
}

// QueryConfig holds per-query defaults.
type QueryConfig struct {
	Mode              string        `yaml:"mode"`    // first | all
	Stealth           string        `yaml:"stealth"` // 0 | 1 | 2 | auto
	Markdown          bool          `yaml:"markdown"`
	MaxText           int           `yaml:"max_text"`
	HighlightDuration time.Duration `yaml:"highlight_duration"`
}

// Default returns a Config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadFile reads a YAML configuration file. Unknown keys are rejected.
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Browser.RecycleInterval <= 0 {
		c.Browser.RecycleInterval = time.Hour
	}
	if c.Browser.NavigationTimeout <= 0 {
		c.Browser.NavigationTimeout = 30 * time.Second
	}
	if c.Browser.XvfbDisplay == "" {
		c.Browser.XvfbDisplay = ":99"
	}
	if c.Fetch.Timeout <= 0 {
		c.Fetch.Timeout = 30 * time.Second
	}
	if c.Fetch.RateLimit <= 0 {
		c.Fetch.RateLimit = 2
	}
	if c.Fetch.Burst <= 0 {
		c.Fetch.Burst = 4
	}
	if c.Fetch.MaxBody <= 0 {
		c.Fetch.MaxBody = 10 << 20
	}
	if c.Store.BusyTimeoutMS <= 0 {
		c.Store.BusyTimeoutMS = 5000
	}
	if c.Server.Addr == "" {
		c.Server.Addr = "127.0.0.1:8470"
	}
	if c.Server.MaxBody <= 0 {
		c.Server.MaxBody = 1 << 20
	}
	if c.Query.Mode == "" {
		c.Query.Mode = "all"
	}
	if c.Query.Stealth == "" {
		c.Query.Stealth = "auto"
	}
	if c.Query.HighlightDuration <= 0 {
		c.Query.HighlightDuration = 3 * time.Second
	}
}

func (c *Config) validate() error {
	switch c.Query.Mode {
	case "first", "all":
	default:
		return fmt.Errorf("query.mode %q: want first or all", c.Query.Mode)
	}
	switch c.Query.Stealth {
	case "0", "1", "2", "auto":
	default:
		return fmt.Errorf("query.stealth %q: want 0, 1, 2 or auto", c.Query.Stealth)
	}
	return nil
}
