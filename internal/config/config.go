package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// HistoryConfig represents session history configuration
type HistoryConfig struct {
	// Enabled enables recording of completed sessions
	Enabled bool `yaml:"enabled"`

	// DBPath is the path to the session history database
	DBPath string `yaml:"db_path"`

	// KeepSessionsDays is the number of days to keep completed sessions
	KeepSessionsDays int `yaml:"keep_sessions_days"`
}

// Config represents parcours configuration options
type Config struct {
	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// ExportFormat is the default result export format (text or json)
	ExportFormat string `yaml:"export_format"`

	// History contains session history configuration
	History HistoryConfig `yaml:"history"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		LogLevel:     "info",
		ExportFormat: "text",
		History: HistoryConfig{
			Enabled:          false,
			DBPath:           ".parcours/history.db",
			KeepSessionsDays: 90,
		},
	}
}

// LoadConfig loads configuration from the specified file path.
// If the file doesn't exist, returns default configuration without error.
// If the file exists but is malformed, returns an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		// File doesn't exist, return defaults (not an error)
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply non-zero values from file (merging with defaults)
	if fileCfg.LogLevel != "" {
		cfg.LogLevel = fileCfg.LogLevel
	}
	if fileCfg.ExportFormat != "" {
		cfg.ExportFormat = fileCfg.ExportFormat
	}

	// Merge the history section only when it is present in the file
	var rawMap map[string]interface{}
	if err := yaml.Unmarshal(data, &rawMap); err == nil {
		if historySection, exists := rawMap["history"]; exists && historySection != nil {
			historyMap, _ := historySection.(map[string]interface{})

			if _, exists := historyMap["enabled"]; exists {
				cfg.History.Enabled = fileCfg.History.Enabled
			}
			if _, exists := historyMap["db_path"]; exists {
				cfg.History.DBPath = fileCfg.History.DBPath
			}
			if _, exists := historyMap["keep_sessions_days"]; exists {
				cfg.History.KeepSessionsDays = fileCfg.History.KeepSessionsDays
			}
		}
	}

	return cfg, nil
}

// LoadConfigFromDir loads configuration from .parcours/config.yaml in the
// specified directory. If the directory or file doesn't exist, returns
// default configuration without error.
func LoadConfigFromDir(dir string) (*Config, error) {
	return LoadConfig(filepath.Join(dir, ".parcours", "config.yaml"))
}

// MergeWithFlags merges CLI flags into the configuration.
// Non-nil flag values override configuration values, so CLI flags take
// precedence over config file settings.
func (c *Config) MergeWithFlags(logLevel *string, exportFormat *string, historyDB *string) {
	if logLevel != nil {
		c.LogLevel = *logLevel
	}
	if exportFormat != nil {
		c.ExportFormat = *exportFormat
	}
	if historyDB != nil {
		c.History.Enabled = *historyDB != ""
		c.History.DBPath = *historyDB
	}
}

// Validate validates the configuration values.
// Returns an error if any values are invalid.
func (c *Config) Validate() error {
	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	if c.ExportFormat != "text" && c.ExportFormat != "json" {
		return fmt.Errorf("invalid export_format %q, must be text or json", c.ExportFormat)
	}

	if c.History.Enabled {
		if c.History.DBPath == "" {
			return fmt.Errorf("history.db_path cannot be empty when history is enabled")
		}
		if c.History.KeepSessionsDays < 0 {
			return fmt.Errorf("history.keep_sessions_days must be >= 0, got %d", c.History.KeepSessionsDays)
		}
	}

	return nil
}
