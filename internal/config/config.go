package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the daemon configuration. Product-level settings (the
// home-automation target, entity lists, user accounts) live in the record
// files under the data directory, not here.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Paths    PathsConfig    `yaml:"paths"`
	Timeouts TimeoutsConfig `yaml:"timeouts"`
}

// ServerConfig holds network listener settings.
type ServerConfig struct {
	TelnetPort int `yaml:"telnet_port"`
	SSHPort    int `yaml:"ssh_port"`
}

// PathsConfig holds filesystem paths for persistent data.
type PathsConfig struct {
	Data     string `yaml:"data"`
	Database string `yaml:"database"`
}

// TimeoutsConfig holds interactive deadlines, in seconds.
type TimeoutsConfig struct {
	Idle      int `yaml:"idle"`       // whole-session idle bound
	Prompt    int `yaml:"prompt"`     // ordinary prompts
	Compose   int `yaml:"compose"`    // long-form input (mail body, board post)
	HARequest int `yaml:"ha_request"` // per-request home-automation deadline
}

// Load reads and parses a YAML config file. Missing fields keep defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			TelnetPort: 2323,
			SSHPort:    2222,
		},
		Paths: PathsConfig{
			Data:     "./data",
			Database: "./data/hearth.db",
		},
		Timeouts: TimeoutsConfig{
			Idle:      120,
			Prompt:    30,
			Compose:   120,
			HARequest: 5,
		},
	}
}
