// =============================================================================
// batch.go - One scheduled run, end to end
// =============================================================================
//
// Shared by the CLI `scrape` command and the collect Lambda:
//
//	Collector.Run -> Report -> WriteRunFiles -> WriteDigests -> metrics -> email
//
// Output failures are returned; source failures only show up in the report.
//
// =============================================================================
package pipeline

import (
	"context"
	"fmt"
	"time"

	"ai-relay/internal/logger"
	"ai-relay/internal/metrics"
)

// BatchResult is what RunBatch produced and where it was written.
type BatchResult struct {
	Run         RunResult
	Report      StatusReport
	Stamp       string
	Files       RunFiles
	Transcripts map[string]string
	Newsletter  NewsletterFiles
}

// RunBatch collects reg, then writes the run files, the transcripts and
// (when enabled) the newsletter. rec may be nil.
func RunBatch(ctx context.Context, cfg Config, reg *Registry, log logger.Logger, rec *metrics.Recorder) (BatchResult, error) {
	run := NewCollector(cfg, log, rec).Run(ctx, reg)
	out := BatchResult{
		Run:    run,
		Report: Report(run.Statuses),
		Stamp:  Stamp(run.StartedAt),
	}
	log = log.With(logger.String("run_id", run.RunID))

	files, err := WriteRunFiles(cfg.Output.DataDir, out.Stamp, run.Articles, out.Report)
	if err != nil {
		return out, err
	}
	out.Files = files
	log.Info("run files written", logger.String("articles", files.Articles), logger.String("status", files.Status))

	out.Transcripts, out.Newsletter, err = WriteDigests(cfg.Output, run.Articles, out.Stamp, run.FinishedAt)
	if err != nil {
		return out, err
	}
	log.Info("transcripts written",
		logger.Int("sources", len(out.Transcripts)),
		logger.String("newsletter", out.Newsletter.Markdown))

	if path := cfg.Output.MetricsFile; path != "" && rec != nil {
		if err := rec.WriteTextfile(path); err != nil {
			// Metrics are best effort.
			log.Warn("metrics textfile not written", logger.String("path", path), logger.Err(err))
		}
	}

	notifyRun(ctx, cfg, out, log)
	return out, nil
}

// WriteDigests writes the per-source transcripts and, when out.Newsletter is
// set, the newsletter files into out.TranscriptDir.
func WriteDigests(out OutputConfig, articles []Article, stamp string, now time.Time) (map[string]string, NewsletterFiles, error) {
	w := NewTranscriptWriter(out.TranscriptDir)
	w.now = func() time.Time { return now }

	saved, err := w.WriteAll(articles, stamp)
	if err != nil {
		return saved, NewsletterFiles{}, fmt.Errorf("transcripts: %w", err)
	}
	if !out.Newsletter {
		return saved, NewsletterFiles{}, nil
	}
	nl, err := WriteNewsletter(out.TranscriptDir, stamp, articles, now)
	if err != nil {
		return saved, NewsletterFiles{}, err
	}
	return saved, nl, nil
}
