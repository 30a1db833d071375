package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ai-relay/internal/logger"
	"ai-relay/internal/metrics"
	"ai-relay/internal/pipeline"
)

func newScrapeCmd() *cobra.Command {
	var sources []string

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Run one collection batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			reg, err := pipeline.NewRegistry(cfg.Sources)
			if err != nil {
				return err
			}
			if len(sources) > 0 {
				if reg, err = reg.Select(sources); err != nil {
					return err
				}
				// An explicit subset is about feeds only.
				cfg.Community.Enabled = false
			}

			out, err := pipeline.RunBatch(cmd.Context(), cfg, reg, log, metrics.New())
			printSummary(os.Stderr, out)
			if err != nil {
				log.Error("writing run outputs failed", logger.Err(err))
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&sources, "sources", "s", nil, "comma separated source names (default: all)")
	return cmd
}

func printSummary(w io.Writer, out pipeline.BatchResult) {
	r := out.Report
	rule := strings.Repeat("=", 50)

	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "COLLECTION SUMMARY")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Run:        %s\n", out.Run.RunID)
	fmt.Fprintf(w, "Sources:    %d ok / %d total\n", r.Successful, r.TotalSources)
	fmt.Fprintf(w, "Articles:   %d collected, %d after dedupe\n", r.TotalArticles, len(out.Run.Articles))
	fmt.Fprintf(w, "Elapsed:    %s\n", out.Run.FinishedAt.Sub(out.Run.StartedAt).Round(time.Millisecond))

	if failed := r.FailedSources(); len(failed) > 0 {
		fmt.Fprintf(w, "\nFailed sources (%d):\n", len(failed))
		for _, name := range failed {
			msg := ""
			if e := r.Sources[name].Error; e != nil {
				msg = ": " + *e
			}
			fmt.Fprintf(w, "  - %s%s\n", name, msg)
		}
	}
	if r.TotalSources > 0 && r.Successful == 0 {
		fmt.Fprintln(w, "\n[WARN] every source failed; check network access")
	}

	if out.Files.Articles != "" {
		fmt.Fprintf(w, "\nData:        %s\n", out.Files.Articles)
		fmt.Fprintf(w, "Status:      %s\n", out.Files.Status)
	}
	if out.Newsletter.Markdown != "" {
		fmt.Fprintf(w, "Newsletter:  %s\n", out.Newsletter.Markdown)
	}
	fmt.Fprintln(w, rule)
}
