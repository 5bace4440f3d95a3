// Package config handles glamwatch configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultGlamtoolsURL is the glamorgan form page.
const DefaultGlamtoolsURL = "https://glamtools.toolforge.org/glamorgan.html"

// Config is the top-level glamwatch configuration.
type Config struct {
	// GlamtoolsURL is the report form page. Override for testing.
	GlamtoolsURL string `yaml:"glamtools_url"`

	// ReportsDir is the snapshot store root. Default: "reports".
	ReportsDir string `yaml:"reports_dir"`

	// HistoryDB is the run-history SQLite path. Empty = <reports_dir>/glamwatch.db.
	HistoryDB string `yaml:"history_db"`

	Browser    BrowserConfig    `yaml:"browser"`
	Capture    CaptureConfig    `yaml:"capture"`
	Serve      ServeConfig      `yaml:"serve"`
	Categories []CategoryConfig `yaml:"categories"`
}

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig struct {
	// Remote is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome via launcher.
	Remote string `yaml:"remote"`

	// Headless disables the visible window. Default: true.
	Headless *bool `yaml:"headless"`

	WindowWidth  int `yaml:"window_width"`
	WindowHeight int `yaml:"window_height"`
}

// CaptureConfig controls the wait for the remote report to finish rendering.
type CaptureConfig struct {
	// Timeout bounds the whole wait for results. Default: 2m.
	Timeout time.Duration `yaml:"timeout"`

	// PollInterval between page-source checks. Default: 1s.
	PollInterval time.Duration `yaml:"poll_interval"`

	// StableChecks is how many consecutive equal-length checks count as
	// "rendering finished". Default: 5.
	StableChecks int `yaml:"stable_checks"`

	// SettleDelay is the final buffer after stabilization. Default: 3s.
	SettleDelay time.Duration `yaml:"settle_delay"`

	// Screenshot captures a full-page PNG alongside the HTML. Default: true.
	Screenshot *bool `yaml:"screenshot"`
}

// ServeConfig configures the read-only HTTP API.
type ServeConfig struct {
	Addr string `yaml:"addr"` // default ":8742"
}

// CategoryConfig is one watched Commons category.
type CategoryConfig struct {
	// Name is the category as entered into the form, without the
	// "Category:" prefix.
	Name string `yaml:"name"`

	// Depth is the category tree depth. Default: "12".
	Depth string `yaml:"depth"`

	// Subdir is the per-category directory under reports_dir.
	// Default: slug of Name.
	Subdir string `yaml:"subdir"`
}

// LoadFile reads a YAML configuration file and applies defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.GlamtoolsURL == "" {
		c.GlamtoolsURL = DefaultGlamtoolsURL
	}
	if c.ReportsDir == "" {
		c.ReportsDir = "reports"
	}
	if c.Browser.Headless == nil {
		t := true
		c.Browser.Headless = &t
	}
	if c.Browser.WindowWidth <= 0 {
		c.Browser.WindowWidth = 1920
	}
	if c.Browser.WindowHeight <= 0 {
		c.Browser.WindowHeight = 1080
	}
	if c.Capture.Timeout <= 0 {
		c.Capture.Timeout = 2 * time.Minute
	}
	if c.Capture.PollInterval <= 0 {
		c.Capture.PollInterval = time.Second
	}
	if c.Capture.StableChecks <= 0 {
		c.Capture.StableChecks = 5
	}
	if c.Capture.SettleDelay <= 0 {
		c.Capture.SettleDelay = 3 * time.Second
	}
	if c.Capture.Screenshot == nil {
		t := true
		c.Capture.Screenshot = &t
	}
	if c.Serve.Addr == "" {
		c.Serve.Addr = ":8742"
	}
	for i := range c.Categories {
		if c.Categories[i].Depth == "" {
			c.Categories[i].Depth = "12"
		}
		if c.Categories[i].Subdir == "" {
			c.Categories[i].Subdir = Slug(c.Categories[i].Name)
		}
	}
}

// Validate rejects configurations glamwatch cannot run with.
func (c *Config) Validate() error {
	if len(c.Categories) == 0 {
		return fmt.Errorf("config: no categories configured")
	}
	seen := make(map[string]string, len(c.Categories))
	for _, cat := range c.Categories {
		if cat.Name == "" {
			return fmt.Errorf("config: category with empty name")
		}
		if prior, dup := seen[cat.Subdir]; dup {
			return fmt.Errorf("config: categories %q and %q share subdir %q", prior, cat.Name, cat.Subdir)
		}
		seen[cat.Subdir] = cat.Name
	}
	return nil
}

// Slug turns a category name into a filesystem- and URL-safe identifier:
// lowercase, runs of non-alphanumerics collapsed to single hyphens.
func Slug(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
