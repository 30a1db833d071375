package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTranscripts(t *testing.T, dir, stamp string, articles []Article) map[string]string {
	t.Helper()
	w := NewTranscriptWriter(dir)
	w.now = func() time.Time { return fixedNow }
	saved, err := w.WriteAll(articles, stamp)
	require.NoError(t, err)
	return saved
}

func TestTranscriptArticles(t *testing.T) {
	t.Parallel()

	text := renderSourceTranscript("Src", []Article{{Title: "A", Content: "a"}, {Title: "B", Content: "b"}}, fixedNow)
	got := transcriptArticles(text)

	assert.True(t, strings.HasPrefix(got, "### ARTICLE 1/2 ###"))
	assert.Contains(t, got, "TITLE: B")
	assert.NotContains(t, got, "TRANSCRIPT - Src")
	assert.NotContains(t, got, footerPrefix)
	assert.Len(t, reArticleMarker.FindAllString(got, -1), 2)

	assert.Empty(t, transcriptArticles("no markers here"))
}

func TestFindTranscripts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTranscripts(t, dir, "20260228_090000", []Article{{Source: "Alpha", Title: "old"}, {Source: "Beta", Title: "old"}})
	writeTranscripts(t, dir, "20260301_083000", []Article{{Source: "Alpha", Title: "new"}})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Alpha", "notes.txt"), []byte("x"), 0o644))

	latest, err := FindLatestTranscripts(dir)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"Alpha": filepath.Join(dir, "Alpha", "transcript_20260301_083000.txt"),
		"Beta":  filepath.Join(dir, "Beta", "transcript_20260228_090000.txt"),
	}, latest)

	byStamp, err := FindTranscriptsByStamp(dir, "20260228")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Alpha", "transcript_20260228_090000.txt"), byStamp["Alpha"])
	assert.Len(t, byStamp, 2)

	_, err = FindTranscriptsByStamp(dir, "2025")
	assert.ErrorIs(t, err, ErrNoTranscripts)

	_, err = FindLatestTranscripts(filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, ErrNoTranscripts)
}

func TestMergeTranscripts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTranscripts(t, dir, "20260301_083000", []Article{
		{Source: "Tech Crunch", Title: "T1", Content: "one"},
		{Source: "Tech Crunch", Title: "T2", Content: "two"},
		{Source: "Alpha", Title: "A1", Content: "alpha"},
	})
	files, err := FindLatestTranscripts(dir)
	require.NoError(t, err)
	files["Ghost"] = filepath.Join(dir, "Ghost", "transcript_20260301_083000.txt")

	out := filepath.Join(dir, "merged_transcript_20260301_090000.txt")
	summary, err := MergeTranscripts(files, out, fixedNow)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Sources)
	assert.Equal(t, 3, summary.Articles)
	assert.Equal(t, map[string]int{"Alpha": 1, "Tech_Crunch": 2}, summary.PerSource)
	assert.Equal(t, []string{files["Ghost"]}, summary.Skipped)

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	text := string(raw)
	assert.Contains(t, text, "MERGED TRANSCRIPT - ALL SOURCES")
	assert.Contains(t, text, "  - Tech Crunch (2 articles)")
	assert.Contains(t, text, "### SOURCE: TECH CRUNCH ###")
	assert.Less(t, strings.Index(text, "### SOURCE: ALPHA ###"), strings.Index(text, "### SOURCE: TECH CRUNCH ###"))
	assert.NotContains(t, text, "TRANSCRIPT - Alpha\n", "per-file headers are dropped")
	assert.Contains(t, text, "2 sources, 3 articles")

	_, err = MergeTranscripts(nil, out, fixedNow)
	assert.ErrorIs(t, err, ErrNoTranscripts)
}
