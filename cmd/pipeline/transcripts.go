package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"ai-relay/internal/logger"
	"ai-relay/internal/pipeline"
)

func newTranscriptsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transcripts [raw_articles.json]",
		Short: "Rebuild transcripts and the newsletter from saved articles",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			path := ""
			if len(args) == 1 {
				path = args[0]
			} else {
				path, err = pipeline.LatestArticlesFile(cfg.Output.DataDir)
				if errors.Is(err, pipeline.ErrNoData) {
					return fmt.Errorf("%w in %s; run `pipeline scrape` first", err, cfg.Output.DataDir)
				}
				if err != nil {
					return err
				}
			}

			articles, err := pipeline.LoadArticles(path)
			if err != nil {
				return err
			}
			log.Info("articles loaded", logger.String("file", path), logger.Int("count", len(articles)))

			now := time.Now()
			saved, nl, err := pipeline.WriteDigests(cfg.Output, articles, pipeline.Stamp(now), now)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "%d transcripts written to %s\n", len(saved), cfg.Output.TranscriptDir)
			if nl.Markdown != "" {
				fmt.Fprintf(os.Stderr, "newsletter: %s\n", nl.Markdown)
			}
			return nil
		},
	}
}
