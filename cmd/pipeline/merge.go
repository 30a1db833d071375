package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"ai-relay/internal/logger"
	"ai-relay/internal/pipeline"
)

func newMergeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merge [stamp]",
		Short: "Merge per-source transcripts into a single file",
		Long: `Without arguments the newest transcript of every source is merged.
With a stamp fragment (e.g. 20260301 or 20260301_08) only transcripts whose
stamp contains it are used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			dir := cfg.Output.TranscriptDir
			now := time.Now()

			var (
				files map[string]string
				out   string
			)
			if len(args) == 1 {
				files, err = pipeline.FindTranscriptsByStamp(dir, args[0])
				out = filepath.Join(dir, "merged_"+args[0]+".txt")
			} else {
				files, err = pipeline.FindLatestTranscripts(dir)
				out = filepath.Join(dir, "merged_transcript_"+pipeline.Stamp(now)+".txt")
			}
			if err != nil {
				return fmt.Errorf("%s: %w", dir, err)
			}

			summary, err := pipeline.MergeTranscripts(files, out, now)
			if err != nil {
				return err
			}
			for _, f := range summary.Skipped {
				log.Warn("transcript skipped", logger.String("file", f))
			}
			fmt.Fprintf(os.Stderr, "merged %d sources, %d articles into %s\n", summary.Sources, summary.Articles, summary.Output)
			return nil
		},
	}
}
