// =============================================================================
// main.go - ai-relay CLI entry point
// =============================================================================
//
// Commands:
//
//	pipeline scrape                  collect every source, write data + transcripts
//	pipeline scrape --sources A,B    collect a subset of the registry
//	pipeline transcripts [file]      rebuild transcripts from a raw_articles file
//	                                 (latest one in the data dir when omitted)
//	pipeline merge [stamp]           merge per-source transcripts into one file
//
// Settings: built-in defaults < --config YAML (or AI_RELAY_CONFIG) < env.
// A .env file in the working directory is loaded first when present.
//
// Logs go to stderr; the run summary is printed to stderr as well.
//
// =============================================================================
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"ai-relay/internal/logger"
	"ai-relay/internal/pipeline"
)

var configPath string

func main() {
	// .env is optional; real environment variables still apply.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "[WARN] .env file not loaded: %v\n", err)
	}

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pipeline",
		Short: "Collect AI news from feeds and community sites",
		Long: `pipeline fetches the configured AI news sources, recovers full article
text where feeds only carry teasers, and writes the run as JSON, per-source
transcripts and a categorised newsletter.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (default: $"+pipeline.EnvConfigPath+")")

	root.AddCommand(
		newScrapeCmd(),
		newTranscriptsCmd(),
		newMergeCmd(),
	)
	return root
}

// setup loads the configuration and builds the logger.
func setup() (pipeline.Config, logger.Logger, error) {
	cfg, err := pipeline.LoadConfig(configPath)
	if err != nil {
		return pipeline.Config{}, nil, err
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return pipeline.Config{}, nil, fmt.Errorf("logger: %w", err)
	}
	return cfg, log, nil
}
