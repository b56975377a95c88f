// Package commands implements the cadastre command line.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/use-agent/cadastre/config"
)

var (
	cfg       = config.Load()
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "cadastre",
	Short: "cadastre harvests and normalizes cadastral property assessment records.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		if logFormat != "" {
			cfg.Log.Format = logFormat
		}
		initLogger(cfg.Log)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default from CADASTRE_LOG_LEVEL).")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: json or text (default from CADASTRE_LOG_FORMAT).")
}

// ExecuteContext runs the root command, exiting non-zero on failure.
func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initLogger configures slog based on the LogConfig. Logs go to stderr so
// command output on stdout stays clean.
func initLogger(lc config.LogConfig) {
	var level slog.Level
	switch lc.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if lc.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}
