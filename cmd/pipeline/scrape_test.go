package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ai-relay/internal/pipeline"
)

func TestPrintSummary(t *testing.T) {
	msg := "feed: status 502"
	start := time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)
	out := pipeline.BatchResult{
		Run: pipeline.RunResult{
			RunID:      "run-1",
			StartedAt:  start,
			FinishedAt: start.Add(1500 * time.Millisecond),
			Articles:   make([]pipeline.Article, 3),
		},
		Report: pipeline.Report(map[string]pipeline.SourceStatus{
			"A": {Status: pipeline.StatusSuccess, Count: 4},
			"B": {Status: pipeline.StatusFailed, Error: &msg},
		}),
		Files: pipeline.RunFiles{Articles: "data/raw.json", Status: "data/status.json"},
	}

	var buf bytes.Buffer
	printSummary(&buf, out)
	s := buf.String()

	assert.Contains(t, s, "Sources:    1 ok / 2 total")
	assert.Contains(t, s, "Articles:   4 collected, 3 after dedupe")
	assert.Contains(t, s, "Elapsed:    1.5s")
	assert.Contains(t, s, "  - B: feed: status 502")
	assert.Contains(t, s, "Data:        data/raw.json")
	assert.NotContains(t, s, "every source failed")
	assert.NotContains(t, s, "Newsletter:")
}

func TestRootCommandWiring(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"scrape", "transcripts", "merge"} {
		cmd, _, err := root.Find([]string{name})
		assert.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}
