// Package config handles extractor configuration loading and management.
package config

import (
	"fmt"

	"github.com/Faultbox/midgard-vmap/internal/vmap"
)

// Config holds all extractor settings.
type Config struct {
	Data    DataConfig    `yaml:"data"`
	Output  OutputConfig  `yaml:"output"`
	Extract ExtractConfig `yaml:"extract"`
	Logging LoggingConfig `yaml:"logging"`
}

// DataConfig holds client data locations. Sources are searched in order:
// loose directories first, then GRF archives.
type DataConfig struct {
	GRFPaths []string `yaml:"grf_paths"`
	Dirs     []string `yaml:"dirs"`
}

// OutputConfig holds where compiled files go.
type OutputConfig struct {
	Dir    string `yaml:"dir"`
	Report bool   `yaml:"report"` // write summary.yaml after a run
}

// ExtractConfig holds extraction settings.
type ExtractConfig struct {
	Workers int             `yaml:"workers"` // 0 means one per CPU
	Maps    []vmap.MapEntry `yaml:"maps"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			GRFPaths: []string{"data.grf"},
		},
		Output: OutputConfig{
			Dir:    "vmaps",
			Report: true,
		},
		Extract: ExtractConfig{
			Workers: 0,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate checks settings that would make a run meaningless.
func (c *Config) Validate() error {
	if len(c.Data.GRFPaths) == 0 && len(c.Data.Dirs) == 0 {
		return fmt.Errorf("no data sources configured")
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("output directory is empty")
	}
	if c.Extract.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Extract.Workers)
	}
	seen := make(map[uint32]string)
	for _, m := range c.Extract.Maps {
		if m.Name == "" {
			return fmt.Errorf("map %d has no name", m.ID)
		}
		if prev, ok := seen[m.ID]; ok {
			return fmt.Errorf("map id %d used by %q and %q", m.ID, prev, m.Name)
		}
		seen[m.ID] = m.Name
	}
	return nil
}
