// Package config handles viewer configuration loading.
package config

import "time"

// Config holds all viewer settings.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Render  RenderConfig  `yaml:"render"`
	Mesh    MeshConfig    `yaml:"mesh"`
	Session SessionConfig `yaml:"session"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// RenderConfig holds output canvas settings.
type RenderConfig struct {
	Width       int    `yaml:"width"`
	Height      int    `yaml:"height"`
	Supersample int    `yaml:"supersample"`
	Background  string `yaml:"background"`
}

// MeshConfig holds mesh input settings.
type MeshConfig struct {
	DefaultPath string `yaml:"default_path"` // Bundled mesh shown when nothing is uploaded
	TempDir     string `yaml:"temp_dir"`     // Where uploads are staged; empty means os.TempDir
}

// SessionConfig holds session lifetime settings.
type SessionConfig struct {
	TTL           time.Duration `yaml:"ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            "127.0.0.1:8080",
			ShutdownTimeout: 5 * time.Second,
		},
		Render: RenderConfig{
			Width:       800,
			Height:      600,
			Supersample: 2,
			Background:  "#FFFFFF",
		},
		Mesh: MeshConfig{
			DefaultPath: "sample.stl",
		},
		Session: SessionConfig{
			TTL:           30 * time.Minute,
			SweepInterval: time.Minute,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
