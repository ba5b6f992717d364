// Package config loads the host application's process configuration:
// where the service catalog lives, where session journals are written,
// and which port to serve the HTTP surface on. Follows the teacher's
// defaults-then-unmarshal pattern: a Config literal pre-populated with
// sane defaults is unmarshalled over, so a YAML file only needs to
// mention the fields it wants to override.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Catalog CatalogConfig `yaml:"catalog"`
	Journal JournalConfig `yaml:"journal"`
	Server  ServerConfig  `yaml:"server"`
}

// CatalogConfig locates the service catalog document.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// JournalConfig controls where per-session JSON-line journals are written
// and how long they are retained.
type JournalConfig struct {
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

// ServerConfig controls the HTTP listener exposing the host surface.
type ServerConfig struct {
	Port int `yaml:"port"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Catalog: CatalogConfig{
			Path: "remotelab.xml",
		},
		Journal: JournalConfig{
			Path:          "/data/journal",
			RetentionDays: 30,
		},
		Server: ServerConfig{
			Port: 8080,
		},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
