package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.ExportFormat)
	assert.False(t, cfg.History.Enabled)
	assert.Equal(t, ".parcours/history.db", cfg.History.DBPath)
	assert.Equal(t, 90, cfg.History.KeepSessionsDays)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_MergesWithDefaults(t *testing.T) {
	path := writeConfig(t, "log_level: debug\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	// Unset fields keep their defaults.
	assert.Equal(t, "text", cfg.ExportFormat)
	assert.Equal(t, 90, cfg.History.KeepSessionsDays)
}

func TestLoadConfig_HistorySection(t *testing.T) {
	path := writeConfig(t, `
log_level: warn
export_format: json
history:
  enabled: true
  db_path: /tmp/parcours-test.db
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, "/tmp/parcours-test.db", cfg.History.DBPath)
	// keep_sessions_days absent from the file keeps the default.
	assert.Equal(t, 90, cfg.History.KeepSessionsDays)
}

func TestLoadConfig_Malformed(t *testing.T) {
	path := writeConfig(t, "log_level: [not\n")
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigFromDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".parcours"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".parcours", "config.yaml"),
		[]byte("export_format: json\n"), 0644))

	cfg, err := LoadConfigFromDir(dir)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.ExportFormat)

	cfg, err = LoadConfigFromDir(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestMergeWithFlags(t *testing.T) {
	cfg := DefaultConfig()

	level := "debug"
	db := "/tmp/h.db"
	cfg.MergeWithFlags(&level, nil, &db)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.ExportFormat, "nil flag leaves the value alone")
	assert.True(t, cfg.History.Enabled, "a history path flag enables recording")
	assert.Equal(t, "/tmp/h.db", cfg.History.DBPath)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(c *Config) {}, ""},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "invalid log_level"},
		{"bad export format", func(c *Config) { c.ExportFormat = "xml" }, "invalid export_format"},
		{"history without path", func(c *Config) {
			c.History.Enabled = true
			c.History.DBPath = ""
		}, "db_path cannot be empty"},
		{"negative retention", func(c *Config) {
			c.History.Enabled = true
			c.History.KeepSessionsDays = -1
		}, "keep_sessions_days"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
