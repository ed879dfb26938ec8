package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/novelparser/internal/api"
	"github.com/jackzampolin/novelparser/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "novelparser",
	Short: "LLM-powered chapter analysis and book summaries for novels",
	Long: `novelparser analyzes novel chapters with a language model and folds the
per-chapter results into a book-level summary.

The pipeline includes:
  - Token-budgeted segmentation of oversized chapters
  - Per-dimension analysis (characters, plot, foreshadowing, ...)
  - Merging of segment analyses into one chapter analysis
  - Concurrent batch analysis with live progress and cancellation
  - Hierarchical reduction of chapter analyses into a book summary`,
	Version:       version.GitRelease,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.novelparser/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "novelparser home directory (default: ~/.novelparser)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "info", "log level: debug, info, warn or error",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}

// newLogger builds the stderr text logger at the --log-level level.
func newLogger() (*slog.Logger, error) {
	var level slog.Level
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "", "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q", logLevel)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
}
