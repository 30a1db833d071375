package pipeline

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-relay/internal/logger"
	"ai-relay/internal/metrics"
)

// stubPages returns a fixed page result and counts calls.
type stubPages struct {
	text  string
	ok    bool
	calls atomic.Int32
}

func (s *stubPages) ExtractFullContent(_ context.Context, _ string) (string, bool) {
	s.calls.Add(1)
	return s.text, s.ok
}

// stubPapers returns a fixed paper result and counts calls.
type stubPapers struct {
	text  string
	ok    bool
	calls atomic.Int32
}

func (s *stubPapers) ExtractPaper(_ context.Context, _ string) (string, bool) {
	s.calls.Add(1)
	return s.text, s.ok
}

var fixedNow = time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)

func newTestResolver(web PageExtractor, paper PDFExtractor, rec *metrics.Recorder) *Resolver {
	r := NewResolver(web, paper, DefaultConfig().Content, rec, logger.NewNop())
	r.now = func() time.Time { return fixedNow }
	return r
}

func TestResolveRSSPrecedence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		entry   FeedEntry
		longest bool
		want    string
	}{
		{"content first", FeedEntry{Content: "<p>c</p>", ContentDetail: "d", Description: "desc"}, false, "c"},
		{"content detail second", FeedEntry{ContentDetail: "detail", Description: "desc"}, false, "detail"},
		{"description third", FeedEntry{Description: "desc", SummaryDetail: "sd"}, false, "desc"},
		{"summary detail last", FeedEntry{SummaryDetail: "sd"}, false, "sd"},
		{"nothing", FeedEntry{}, false, ""},
		{"longest for rss-only sources", FeedEntry{Content: "stub", Description: "a much longer description"}, true, "a much longer description"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			web := &stubPages{}
			r := newTestResolver(web, &stubPapers{}, nil)
			policy := SourcePolicy{Name: "S", SpecialHandling: SpecialHandling{UseRSSContentOnly: tt.longest}}

			a := r.Resolve(context.Background(), policy, tt.entry)
			assert.Equal(t, tt.want, a.Content)
			assert.Zero(t, web.calls.Load())
		})
	}
}

func TestResolveRestrictedNeverFetches(t *testing.T) {
	t.Parallel()

	web := &stubPages{text: strings.Repeat("w", 3000), ok: true}
	paper := &stubPapers{text: "paper", ok: true}
	rec := metrics.New()
	r := newTestResolver(web, paper, rec)

	policy := SourcePolicy{Name: "VentureBeat AI", NeedsFullContent: true, Restricted: true, Paper: true}
	a := r.Resolve(context.Background(), policy, FeedEntry{Title: "t", Link: "https://x/a", Description: "short"})

	assert.Equal(t, "short", a.Content)
	assert.Zero(t, web.calls.Load())
	assert.Zero(t, paper.calls.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.Fallbacks.WithLabelValues(fallbackWeb, metrics.OutcomeSkipped)))
}

func TestResolveRestrictedStillCapped(t *testing.T) {
	t.Parallel()

	r := newTestResolver(&stubPages{}, &stubPapers{}, nil)
	policy := SourcePolicy{Name: "OpenAI Blog", Restricted: true}
	a := r.Resolve(context.Background(), policy, FeedEntry{Content: strings.Repeat("r", 9000)})
	assert.Equal(t, 5000, runeLen(a.Content))
}

func TestResolveWebFallback(t *testing.T) {
	t.Parallel()

	short := strings.Repeat("s", 100)
	tests := []struct {
		name     string
		rss      string
		page     string
		ok       bool
		want     string
		calls    int32
		outcome  string
		observed bool
	}{
		{"longer page replaces", short, strings.Repeat("p", 300), true, strings.Repeat("p", 300), 1, metrics.OutcomeReplaced, true},
		{"shorter page kept out", short, strings.Repeat("p", 50), true, short, 1, metrics.OutcomeKept, true},
		{"equal length keeps rss", short, strings.Repeat("p", 100), true, short, 1, metrics.OutcomeKept, true},
		{"failure keeps rss", short, "", false, short, 1, metrics.OutcomeFailed, true},
		{"empty rss uses page", "", "page text", true, "page text", 1, metrics.OutcomeReplaced, true},
		{"long rss skips fetch", strings.Repeat("l", 500), strings.Repeat("p", 900), true, strings.Repeat("l", 500), 0, "", false},
		{"page is capped", "", strings.Repeat("p", 7000), true, strings.Repeat("p", 5000), 1, metrics.OutcomeReplaced, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			web := &stubPages{text: tt.page, ok: tt.ok}
			rec := metrics.New()
			r := newTestResolver(web, &stubPapers{}, rec)
			policy := SourcePolicy{Name: "ActuIA", NeedsFullContent: true}

			a := r.Resolve(context.Background(), policy, FeedEntry{Link: "https://x/a", Description: tt.rss})
			assert.Equal(t, tt.want, a.Content)
			assert.Equal(t, tt.calls, web.calls.Load())
			if tt.observed {
				assert.Equal(t, 1.0, testutil.ToFloat64(rec.Fallbacks.WithLabelValues(fallbackWeb, tt.outcome)))
			}
		})
	}
}

func TestResolveNoLinkNoFetch(t *testing.T) {
	t.Parallel()

	web := &stubPages{text: "x", ok: true}
	paper := &stubPapers{text: "x", ok: true}
	r := newTestResolver(web, paper, nil)

	r.Resolve(context.Background(), SourcePolicy{Name: "A", NeedsFullContent: true}, FeedEntry{})
	r.Resolve(context.Background(), SourcePolicy{Name: "B", Paper: true}, FeedEntry{})
	assert.Zero(t, web.calls.Load())
	assert.Zero(t, paper.calls.Load())
}

func TestResolvePaper(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("z", 20000)

	t.Run("replaces unconditionally and is uncapped", func(t *testing.T) {
		t.Parallel()
		paper := &stubPapers{text: long, ok: true}
		web := &stubPages{}
		r := newTestResolver(web, paper, nil)

		a := r.Resolve(context.Background(), SourcePolicy{Name: "arXiv AI", Paper: true, NeedsFullContent: true},
			FeedEntry{Link: "https://arxiv.org/abs/1", Description: strings.Repeat("d", 4000)})
		assert.Equal(t, long, a.Content)
		assert.EqualValues(t, 1, paper.calls.Load())
		assert.Zero(t, web.calls.Load())
	})

	t.Run("failure keeps abstract", func(t *testing.T) {
		t.Parallel()
		r := newTestResolver(&stubPages{}, &stubPapers{}, nil)
		a := r.Resolve(context.Background(), SourcePolicy{Name: "arXiv ML", Paper: true},
			FeedEntry{Link: "https://arxiv.org/abs/2", Description: "<p>abstract</p>"})
		assert.Equal(t, "abstract", a.Content)
	})
}

func TestResolveArticleFields(t *testing.T) {
	t.Parallel()

	r := newTestResolver(&stubPages{}, &stubPapers{}, nil)
	entry := FeedEntry{
		Title:       "Title",
		Link:        "https://x/a",
		Updated:     "Mon, 02 Mar 2026 10:00:00 GMT",
		Author:      "Ada",
		Summary:     strings.Repeat("s", 800),
		Tags:        []string{"ml", "llm"},
		Description: "<b>body</b>",
	}
	a := r.Resolve(context.Background(), SourcePolicy{Name: "KDnuggets"}, entry)

	assert.Equal(t, "KDnuggets", a.Source)
	assert.Equal(t, "Title", a.Title)
	assert.Equal(t, "https://x/a", a.Link)
	assert.Equal(t, entry.Updated, a.Published, "updated is used when published is missing")
	assert.Equal(t, 500, runeLen(a.Summary))
	assert.Equal(t, "body", a.Content)
	assert.Equal(t, "Ada", a.Author)
	assert.Equal(t, []string{"ml", "llm"}, a.Tags)
	assert.Equal(t, "2026-03-01T08:30:00Z", a.ScrapedAt)
}

func TestDetectLanguage(t *testing.T) {
	t.Parallel()

	assert.Empty(t, detectLanguage("", ""))
	got := detectLanguage("Les modèles de langage",
		"Les grands modèles de langage transforment la manière dont les entreprises françaises travaillent au quotidien avec leurs données et leurs clients.")
	require.NotEmpty(t, got)
	assert.Equal(t, "fr", got)
}
