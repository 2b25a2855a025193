// Package config loads the bridge server configuration.
//
// The file is named by the --config flag or the LIGHTHOUSE_CONFIG
// environment variable. Without either, Default is used unchanged.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable holding the config path.
const EnvVar = "LIGHTHOUSE_CONFIG"

// Config is the full server configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// LogFormat is text or json.
	LogFormat string `yaml:"log_format"`

	WSL    WSLConfig    `yaml:"wsl"`
	Docker DockerConfig `yaml:"docker"`
}

// WSLConfig configures the wsl backend.
type WSLConfig struct {
	// Enabled registers the backend.
	Enabled bool `yaml:"enabled"`

	// Distribution is the distribution name, e.g. "Ubuntu".
	Distribution string `yaml:"distribution"`

	// Executable is the path to wsl.exe.
	Executable string `yaml:"executable"`

	// MountRoot is the automount root configured in the distribution's wsl.conf.
	MountRoot string `yaml:"mount_root"`

	// WorkdirPolicy is "verbatim" or "strict".
	WorkdirPolicy string `yaml:"workdir_policy"`
}

// DockerConfig configures the docker backend.
type DockerConfig struct {
	Enabled bool `yaml:"enabled"`

	// Image is used when a request names none.
	Image string `yaml:"image"`

	// TargetRoot is where upload roots without a target hint are mounted.
	TargetRoot string `yaml:"target_root"`

	// Build enables building images from repository URLs.
	Build bool `yaml:"build"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Listen:    ":3000",
		LogLevel:  "info",
		LogFormat: "text",
		WSL: WSLConfig{
			Executable:    "wsl.exe",
			MountRoot:     "/mnt/",
			WorkdirPolicy: "verbatim",
		},
		Docker: DockerConfig{
			Image:      "ubuntu:24.04",
			TargetRoot: "/workspace",
		},
	}
}

// Load reads path over Default. An empty path falls back to EnvVar, and
// if that is unset too, Default is returned.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvVar)
	}
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later at first use.
func (c *Config) Validate() error {
	var errs []error
	if c.Listen == "" {
		errs = append(errs, errors.New("listen address is required"))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format must be text or json, got %q", c.LogFormat))
	}
	if c.WSL.Enabled && c.WSL.Distribution == "" {
		errs = append(errs, errors.New("wsl.distribution is required when wsl is enabled"))
	}
	switch c.WSL.WorkdirPolicy {
	case "", "verbatim", "strict":
	default:
		errs = append(errs, fmt.Errorf("wsl.workdir_policy must be verbatim or strict, got %q", c.WSL.WorkdirPolicy))
	}
	return errors.Join(errs...)
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}
