// Package config loads and merges binprobe configuration files.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the binprobe configuration
type Config struct {
	BaseURL     string   `yaml:"baseUrl,omitempty"`
	Profiles    []string `yaml:"profiles,omitempty"`
	Repeats     int      `yaml:"repeats,omitempty"`
	Timeout     int      `yaml:"timeout,omitempty"` // milliseconds
	Parallel    *bool    `yaml:"parallel,omitempty"`
	Concurrency int      `yaml:"concurrency,omitempty"`
	Fast        *bool    `yaml:"fast,omitempty"`
	Filter      string   `yaml:"filter,omitempty"`
	ValidateSSL *bool    `yaml:"validateSSL,omitempty"`
	Proxy       string   `yaml:"proxy,omitempty"`
	Output      string   `yaml:"output,omitempty"` // console, json, junit, tap
	HistoryPath string   `yaml:"historyPath,omitempty"`
	Verbose     *bool    `yaml:"verbose,omitempty"`
	NoColor     *bool    `yaml:"noColor,omitempty"`
	NoProgress  *bool    `yaml:"noProgress,omitempty"`
}

// BoolPtr returns a pointer to a bool value
func BoolPtr(b bool) *bool {
	return &b
}

func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetParallel returns the parallel setting, defaulting to false
func (c *Config) GetParallel() bool {
	return getBool(c.Parallel, false)
}

// GetFast returns the fast setting, defaulting to false
func (c *Config) GetFast() bool {
	return getBool(c.Fast, false)
}

// GetValidateSSL returns the validate SSL setting, defaulting to true
func (c *Config) GetValidateSSL() bool {
	return getBool(c.ValidateSSL, true)
}

// GetVerbose returns the verbose setting, defaulting to false
func (c *Config) GetVerbose() bool {
	return getBool(c.Verbose, false)
}

// GetNoColor returns the no color setting, defaulting to false
func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// GetNoProgress returns the no progress setting, defaulting to false
func (c *Config) GetNoProgress() bool {
	return getBool(c.NoProgress, false)
}

// ConfigFilenames contains the possible config file names
var ConfigFilenames = []string{
	".binprobe.yaml",
	".binprobe.yml",
	"binprobe.yaml",
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Profiles:    []string{"pooled"},
		Repeats:     1,
		Timeout:     30000, // 30 seconds
		Concurrency: 5,
		Output:      "console",
	}
}

// LoadConfig loads configuration from the specified path or searches for
// config files in the current directory
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}
	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches for a config file in the given directory
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}

	// Return defaults if no config file found
	return DefaultConfig(), nil
}

func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return config, nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c // Copy

	if other.BaseURL != "" {
		result.BaseURL = other.BaseURL
	}
	if len(other.Profiles) > 0 {
		result.Profiles = other.Profiles
	}
	if other.Repeats > 0 {
		result.Repeats = other.Repeats
	}
	if other.Timeout > 0 {
		result.Timeout = other.Timeout
	}
	if other.Parallel != nil {
		result.Parallel = other.Parallel
	}
	if other.Concurrency > 0 {
		result.Concurrency = other.Concurrency
	}
	if other.Fast != nil {
		result.Fast = other.Fast
	}
	if other.Filter != "" {
		result.Filter = other.Filter
	}
	if other.ValidateSSL != nil {
		result.ValidateSSL = other.ValidateSSL
	}
	if other.Proxy != "" {
		result.Proxy = other.Proxy
	}
	if other.Output != "" {
		result.Output = other.Output
	}
	if other.HistoryPath != "" {
		result.HistoryPath = other.HistoryPath
	}
	if other.Verbose != nil {
		result.Verbose = other.Verbose
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}
	if other.NoProgress != nil {
		result.NoProgress = other.NoProgress
	}

	return &result
}
