// Package cmd implements the himena command line interface: opening files
// into a headless workspace, saving and loading sessions, listing recent
// files, and inspecting workflow provenance.
package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/himena-app/himena/internal/config"
)

var (
	version = "dev"
	cfgFile string
	cfg     config.Config
)

var rootCmd = &cobra.Command{
	Use:     "himena [file...]",
	Short:   "A data viewer with full provenance tracking",
	Long: `himena opens data files into a tabbed workspace where every window
remembers how its data was produced: the file it was read from, the commands
that derived it, and the edits applied to it. Workspaces can be saved as
sessions and restored later, including on machines where the original files
are gone.`,
	Version: version,
	Args:    cobra.ArbitraryArgs,
	RunE:    runOpen,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ~/.config/himena/config.yaml)")
	rootCmd.Flags().StringP("plugin", "p", "",
		"reader plugin to use for the given files")
}

func initConfig() {
	defaults := config.Defaults()
	viper.SetDefault("profile", defaults.Profile)
	viper.SetDefault("watch.enabled", defaults.Watch.Enabled)
	viper.SetDefault("watch.debounce_millis", defaults.Watch.DebounceMillis)
	viper.SetDefault("cache.enabled", defaults.Cache.Enabled)
	viper.SetDefault("cache.ttl_seconds", defaults.Cache.TTLSeconds)
	viper.SetDefault("session.save_copies", defaults.Session.SaveCopies)
	viper.SetDefault("history.max_entries", defaults.History.MaxEntries)
	viper.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	viper.SetDefault("tracing.otlp_endpoint", defaults.Tracing.OTLPEndpoint)
	viper.SetDefault("tracing.sample_rate", defaults.Tracing.SampleRate)
	viper.SetDefault("log.level", defaults.Log.Level)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .himena/config.yaml (current directory)
		// 2. ~/.config/himena/config.yaml (user config)
		if _, err := os.Stat(".himena/config.yaml"); err == nil {
			viper.SetConfigFile(".himena/config.yaml")
		} else {
			viper.AddConfigPath(config.UserConfigDir())
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		// No config file anywhere - create a default user config.
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			defaultPath := filepath.Join(config.UserConfigDir(), "config.yaml")
			if writeErr := config.WriteDefaultConfig(defaultPath); writeErr == nil {
				viper.SetConfigFile(defaultPath)
				_ = viper.ReadInConfig()
			}
			// If write fails, just continue with defaults (no config file)
		}
	}

	_ = viper.Unmarshal(&cfg)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
