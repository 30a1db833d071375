// =============================================================================
// Lambda: collect
// =============================================================================
//
// Runs one collection batch and writes its outputs under OUTPUT_DIR.
//
// Environment:
//   - OUTPUT_DIR:       root for data/ and transcripts/ (default: /tmp/ai-relay)
//   - SOURCES:          comma separated source names (default: all)
//   - AI_RELAY_CONFIG:  optional YAML config file bundled with the function
//   - AI_RELAY_*:       the usual overrides (log level, PDF mode, ...)
//
// =============================================================================
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-lambda-go/lambda"

	"ai-relay/internal/logger"
	"ai-relay/internal/metrics"
	"ai-relay/internal/pipeline"
)

const defaultOutputDir = "/tmp/ai-relay"

// Response is the Lambda result.
type Response struct {
	StatusCode int                   `json:"statusCode"`
	Message    string                `json:"message"`
	RunID      string                `json:"runId,omitempty"`
	Collected  int                   `json:"collected"`
	Failed     []string              `json:"failed,omitempty"`
	Report     pipeline.StatusReport `json:"report"`
}

// Handler runs one batch. Source failures are reported in the body, not as
// an invocation error.
func Handler(ctx context.Context, event interface{}) (Response, error) {
	cfg, err := pipeline.LoadConfig("")
	if err != nil {
		return Response{StatusCode: 400, Message: err.Error()}, err
	}

	outDir := os.Getenv("OUTPUT_DIR")
	if outDir == "" {
		outDir = defaultOutputDir
	}
	cfg.Output.DataDir = filepath.Join(outDir, "data")
	cfg.Output.TranscriptDir = filepath.Join(outDir, "transcripts")
	// Lambda ships logs from stderr; no rotating file.
	cfg.Log.File = ""

	log, err := logger.New(cfg.Log)
	if err != nil {
		return Response{StatusCode: 500, Message: err.Error()}, err
	}
	defer func() { _ = log.Sync() }()

	reg, err := pipeline.NewRegistry(cfg.Sources)
	if err != nil {
		return Response{StatusCode: 400, Message: err.Error()}, err
	}
	if names := parseSources(os.Getenv("SOURCES")); len(names) > 0 {
		if reg, err = reg.Select(names); err != nil {
			return Response{StatusCode: 400, Message: err.Error()}, err
		}
		cfg.Community.Enabled = false
	}

	out, err := pipeline.RunBatch(ctx, cfg, reg, log, metrics.New())
	resp := Response{
		RunID:     out.Run.RunID,
		Collected: len(out.Run.Articles),
		Failed:    out.Report.FailedSources(),
		Report:    out.Report,
	}
	if err != nil {
		log.Error("writing run outputs failed", logger.Err(err))
		resp.StatusCode = 500
		resp.Message = err.Error()
		return resp, err
	}

	resp.StatusCode = 200
	resp.Message = fmt.Sprintf("collected %d articles from %d/%d sources",
		resp.Collected, out.Report.Successful, out.Report.TotalSources)
	log.Info("lambda run complete",
		logger.String("run_id", resp.RunID),
		logger.Int("collected", resp.Collected),
		logger.Strings("failed", resp.Failed))
	return resp, nil
}

// parseSources splits a comma separated list. "all" or empty selects every
// source.
func parseSources(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if strings.EqualFold(s, "all") {
			return nil
		}
		out = append(out, s)
	}
	return out
}

func main() {
	lambda.Start(Handler)
}
