// Package config provides configuration types, defaults, and persistence for
// himena.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/himena-app/himena/internal/log"
)

// Config holds all configuration options for himena.
type Config struct {
	// Profile names the active plugin profile.
	Profile string `mapstructure:"profile"`

	// Plugins lists the plugin ids loaded at startup.
	Plugins []string `mapstructure:"plugins"`

	Watch   WatchConfig   `mapstructure:"watch"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Session SessionConfig `mapstructure:"session"`
	History HistoryConfig `mapstructure:"history"`
	Tracing TracingConfig `mapstructure:"tracing"`
	Log     LogConfig     `mapstructure:"log"`
}

// WatchConfig controls the source-file watcher.
type WatchConfig struct {
	// Enabled turns on stale-window detection for file-backed windows.
	Enabled bool `mapstructure:"enabled"`

	// DebounceMillis coalesces rapid writes into one notification.
	DebounceMillis int `mapstructure:"debounce_millis"`
}

// CacheConfig controls the read-through cache in the provider store.
type CacheConfig struct {
	// Enabled turns on caching of reader results. Intended for remote or
	// slow sources.
	Enabled bool `mapstructure:"enabled"`

	// TTLSeconds is how long a cached read stays valid.
	TTLSeconds int `mapstructure:"ttl_seconds"`
}

// SessionConfig holds defaults for session save operations.
type SessionConfig struct {
	// SaveCopies materializes every window's data inside the session archive
	// instead of referencing original files.
	SaveCopies bool `mapstructure:"save_copies"`

	// AllowCalculate lists command ids whose outputs may be recomputed on
	// load instead of storing a copy.
	AllowCalculate []string `mapstructure:"allow_calculate"`
}

// HistoryConfig controls the recent-file history store.
type HistoryConfig struct {
	// Path is the sqlite database location. Empty derives it from the config
	// directory.
	Path string `mapstructure:"path"`

	// MaxEntries bounds how many recent files are kept per kind.
	MaxEntries int `mapstructure:"max_entries"`
}

// TracingConfig holds trace export configuration.
type TracingConfig struct {
	// Enabled controls whether tracing is active. Default: false.
	Enabled bool `mapstructure:"enabled"`

	// Exporter selects the trace export backend.
	// Options: "none", "file", "stdout", "otlp". Default: "file".
	Exporter string `mapstructure:"exporter"`

	// FilePath is the output file for the "file" exporter.
	FilePath string `mapstructure:"file_path"`

	// OTLPEndpoint is the collector endpoint for the "otlp" exporter.
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`

	// SampleRate controls trace sampling (0.0 to 1.0).
	SampleRate float64 `mapstructure:"sample_rate"`
}

// LogConfig controls the debug log sink.
type LogConfig struct {
	// Enabled turns file logging on.
	Enabled bool `mapstructure:"enabled"`

	// Path is the log file. Empty derives it from the config directory.
	Path string `mapstructure:"path"`

	// Level is the minimum level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Profile: "default",
		Watch: WatchConfig{
			Enabled:        true,
			DebounceMillis: 1000,
		},
		Cache: CacheConfig{
			Enabled:    false,
			TTLSeconds: 300,
		},
		Session: SessionConfig{
			SaveCopies:     false,
			AllowCalculate: nil,
		},
		History: HistoryConfig{
			Path:       "", // Derived from config dir at runtime
			MaxEntries: 60,
		},
		Tracing: TracingConfig{
			Enabled:      false,
			Exporter:     "file",
			FilePath:     "", // Derived from config dir at runtime
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
		Log: LogConfig{
			Enabled: false,
			Path:    "",
			Level:   "info",
		},
	}
}

// MinLogLevel maps the configured level name to a log level.
func (c LogConfig) MinLogLevel() log.Level {
	switch c.Level {
	case "debug":
		return log.LevelDebug
	case "warn":
		return log.LevelWarn
	case "error":
		return log.LevelError
	default:
		return log.LevelInfo
	}
}

// UserConfigDir returns the per-user himena configuration directory.
func UserConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "himena")
}

// DefaultHistoryPath returns the default recent-file database location.
func DefaultHistoryPath() string {
	dir := UserConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "history.db")
}

// DefaultTracesFilePath returns the default path for trace file export.
func DefaultTracesFilePath() string {
	dir := UserConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "traces", "traces.jsonl")
}

// WriteDefaultConfig writes a commented default config file to configPath,
// creating parent directories as needed.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}

// DefaultConfigTemplate returns the commented YAML written for new
// installations.
func DefaultConfigTemplate() string {
	return `# himena configuration

# Active plugin profile.
profile: default

# Plugin ids loaded at startup.
plugins: []

watch:
  # Flag file-backed windows as stale when the file changes on disk.
  enabled: true
  debounce_millis: 1000

cache:
  # Cache reader results (useful for remote sources).
  enabled: false
  ttl_seconds: 300

session:
  # Store copies of window data inside session archives by default.
  save_copies: false
  # Command ids whose outputs may be recomputed on load.
  allow_calculate: []

history:
  # Recent-file database location (empty: ~/.config/himena/history.db).
  path: ""
  max_entries: 60

tracing:
  enabled: false
  # none, file, stdout, otlp
  exporter: file
  file_path: ""
  otlp_endpoint: localhost:4317
  sample_rate: 1.0

log:
  enabled: false
  path: ""
  # debug, info, warn, error
  level: info
`
}
