package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const defaultConfigFile = "stlview.yaml"

// Load loads configuration with priority: defaults < file < flags.
func Load() (*Config, error) {
	cfg := Default()

	configPath := ConfigPath()
	if configPath == "" {
		configPath = findConfigFile()
	}
	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports settings the viewer cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Server.Addr == "":
		return fmt.Errorf("config: empty server address")
	case c.Render.Width <= 0 || c.Render.Height <= 0:
		return fmt.Errorf("config: render size %dx%d must be positive", c.Render.Width, c.Render.Height)
	case c.Render.Supersample < 1 || c.Render.Supersample > 4:
		return fmt.Errorf("config: supersample %d out of range [1,4]", c.Render.Supersample)
	case c.Mesh.DefaultPath == "":
		return fmt.Errorf("config: no default mesh path")
	case c.Session.TTL <= 0 || c.Session.SweepInterval <= 0:
		return fmt.Errorf("config: session ttl and sweep interval must be positive")
	}
	return nil
}

// findConfigFile looks for a config file in the working directory.
func findConfigFile() string {
	if _, err := os.Stat(defaultConfigFile); err == nil {
		return defaultConfigFile
	}
	return ""
}

// loadFromFile loads config from a YAML file, merging with existing values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
