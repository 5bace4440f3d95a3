package glamwatch

import (
	"github.com/hazyhaar/glamwatch/internal/config"
)

// Config is the top-level glamwatch configuration. Re-exported from internal.
type Config = config.Config

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig = config.BrowserConfig

// CaptureConfig controls the wait for the remote report to render.
type CaptureConfig = config.CaptureConfig

// ServeConfig configures the read-only HTTP API.
type ServeConfig = config.ServeConfig

// CategoryConfig is one watched Commons category.
type CategoryConfig = config.CategoryConfig

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}
