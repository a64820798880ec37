// Package config loads gpxaudit settings from an optional file and the
// environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/kkyr/fig"
)

const configEnv = "GPXAUDIT"

// Output formats understood by the CLI.
const (
	FormatJSON = "json"
	FormatPNG  = "png"
	FormatHTML = "html"
)

var knownFormats = []string{FormatJSON, FormatPNG, FormatHTML}

// Config represents the application's configuration structure.
type Config struct {
	LogLevel slog.Level `fig:"loglevel" default:"0"`

	Density struct {
		// Number of curve samples; peaks need at least 3
		GridSize int `fig:"grid_size" default:"200"`
		// Log-space bandwidth, 0 selects Silverman's rule
		Bandwidth float64 `fig:"bandwidth"`
		// Multiples of the base bandwidth drawn in the HTML report
		BandwidthScales []float64 `fig:"bandwidth_scales" default:"[0.5,1,2]"`
	} `fig:"density"`

	Output struct {
		Dir     string   `fig:"dir" default:"gpxaudit-out"`
		Formats []string `fig:"formats" default:"[json]"`
	} `fig:"output"`
}

func NewFromFile(path, file string) (*Config, error) {
	conf := new(Config)
	_, err := os.Stat(filepath.Join(path, file))
	if err != nil {
		return conf, fmt.Errorf("failed to read Config: %w", err)
	}
	if err = fig.Load(conf, fig.Dirs(path), fig.File(file), fig.UseEnv(configEnv)); err != nil {
		return conf, fmt.Errorf("failed to load Config: %w", err)
	}

	return conf, conf.Validate()
}

func New() (*Config, error) {
	conf := new(Config)
	if err := fig.Load(conf, fig.AllowNoFile(), fig.UseEnv(configEnv)); err != nil {
		return conf, fmt.Errorf("failed to load Config: %w", err)
	}

	return conf, conf.Validate()
}

func (c *Config) Validate() error {
	if c.Density.GridSize < 1 {
		return fmt.Errorf("invalid grid size: %d", c.Density.GridSize)
	}
	if c.Density.Bandwidth < 0 {
		return fmt.Errorf("invalid bandwidth: %g", c.Density.Bandwidth)
	}
	for _, s := range c.Density.BandwidthScales {
		if s <= 0 {
			return fmt.Errorf("invalid bandwidth scale: %g", s)
		}
	}
	if len(c.Density.BandwidthScales) == 0 {
		c.Density.BandwidthScales = []float64{1}
	}
	for _, f := range c.Output.Formats {
		if !slices.Contains(knownFormats, f) {
			return fmt.Errorf("invalid output format: %s", f)
		}
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "."
	}

	return nil
}

// Wants reports whether format is among the configured output formats.
func (c *Config) Wants(format string) bool {
	return slices.Contains(c.Output.Formats, format)
}
