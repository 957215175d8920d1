package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/himena-app/himena/internal/log"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	require.Equal(t, "default", cfg.Profile)
	require.True(t, cfg.Watch.Enabled)
	require.Equal(t, 1000, cfg.Watch.DebounceMillis)
	require.False(t, cfg.Cache.Enabled)
	require.False(t, cfg.Session.SaveCopies)
	require.Equal(t, 60, cfg.History.MaxEntries)
	require.Equal(t, "file", cfg.Tracing.Exporter)
	require.Equal(t, 1.0, cfg.Tracing.SampleRate)
}

func TestWriteDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	require.NoError(t, WriteDefaultConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "himena configuration")

	// The template must parse as valid YAML.
	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(data, &doc))
	require.Contains(t, doc, "session")
	require.Contains(t, doc, "watch")
}

func TestMinLogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  log.Level
	}{
		{"debug", log.LevelDebug},
		{"info", log.LevelInfo},
		{"warn", log.LevelWarn},
		{"error", log.LevelError},
		{"", log.LevelInfo},
		{"bogus", log.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			require.Equal(t, tt.want, LogConfig{Level: tt.level}.MinLogLevel())
		})
	}
}
