package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/use-agent/gleaner/config"
)

var cfg *config.Config

// outputFormat is shared by all subcommands via the persistent flag.
var outputFormat string

func main() {
	cfg = config.Load()
	initLogger(cfg.Log)

	root := &cobra.Command{
		Use:   "gleaner",
		Short: "Extract structured data from web pages",
		Long: `gleaner extracts tabular data from web pages, either from static
markup or by driving a headless browser for script-rendered pages.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&outputFormat, "format", "table", "output format: table or csv")

	root.AddCommand(newTableCmd())
	root.AddCommand(newQuestionsCmd())
	root.AddCommand(newLeaderboardCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// initLogger configures slog based on the LogConfig.
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
	if lc.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}
