package main

import (
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"repograph/internal/config"
	"repograph/internal/slogutil"
	"repograph/internal/version"
)

var (
	// configPath is the --config flag value
	configPath string
	verbosity  int
	quiet      bool
)

var rootCmd = &cobra.Command{
	Use:   "repograph",
	Short: "repograph - repository explorer backend",
	Long: `repograph serves the file tree, force-directed graph, history, contributors,
issues, pull requests and AI file summaries of public GitHub repositories.
Summaries and trees are cached in a durable key-value store.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate(version.Full() + "\n")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Config file (JSON, TOML or YAML; default .repograph/config.*)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress log output")
}

// loadConfig reads and validates the configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the process logger. Command-line verbosity overrides
// the configured level.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	level := slogutil.LevelFromVerbosity(verbosity, quiet, slogutil.LevelFromString(cfg.Logging.Level))
	if strings.EqualFold(cfg.Logging.Format, slogutil.FormatJSON) {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	}
	return slogutil.NewLogger(w, level)
}
