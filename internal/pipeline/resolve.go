// =============================================================================
// resolve.go - Content resolution
// =============================================================================
//
// Resolve decides, per feed entry, which body ends up in Article.Content:
//
//  1. RSS-native body (content -> content:encoded -> description ->
//     summary detail; the longest one for use_rss_content_only sources)
//  2. Sanitized with Clean
//  3. Restricted source: stop here, no outbound request
//  4. Paper source: extracted PDF text replaces the body
//  5. Source needing full content with a short body: page text replaces the
//     body when it is strictly longer
//  6. Capped at MaxContentLength runes, except for papers
//
// A failing extractor leaves the step-2 body in place. Entries are never
// dropped.
//
// =============================================================================
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/abadojack/whatlanggo"

	"ai-relay/internal/logger"
	"ai-relay/internal/metrics"
)

// PageExtractor fetches the main text of an article page.
type PageExtractor interface {
	ExtractFullContent(ctx context.Context, url string) (string, bool)
}

// PDFExtractor fetches the text of a paper from its abstract URL.
type PDFExtractor interface {
	ExtractPaper(ctx context.Context, absURL string) (string, bool)
}

// Fallback kinds reported to metrics.
const (
	fallbackWeb   = "web"
	fallbackPaper = "paper"
)

// Resolver turns feed entries into Articles. It holds no per-entry state and
// is safe for concurrent use.
type Resolver struct {
	web     PageExtractor
	paper   PDFExtractor
	content ContentConfig
	metrics *metrics.Recorder
	log     logger.Logger

	now func() time.Time
}

// NewResolver wires a resolver. rec may be nil.
func NewResolver(web PageExtractor, paper PDFExtractor, content ContentConfig, rec *metrics.Recorder, log logger.Logger) *Resolver {
	return &Resolver{
		web:     web,
		paper:   paper,
		content: content,
		metrics: rec,
		log:     log,
		now:     time.Now,
	}
}

// Resolve builds the Article for one entry of the given source.
func (r *Resolver) Resolve(ctx context.Context, policy SourcePolicy, entry FeedEntry) Article {
	log := r.log.With(logger.String("source", policy.Name), logger.String("link", entry.Link))

	content := Clean(rssBody(entry, policy.SpecialHandling.UseRSSContentOnly))

	switch {
	case policy.Restricted:
		if policy.NeedsFullContent && runeLen(content) < r.content.MinContentLength {
			r.metrics.ObserveFallback(fallbackWeb, metrics.OutcomeSkipped, 0)
		}

	case policy.Paper:
		if entry.Link == "" {
			break
		}
		start := time.Now()
		text, ok := r.paper.ExtractPaper(ctx, entry.Link)
		if ok {
			content = text
			r.metrics.ObserveFallback(fallbackPaper, metrics.OutcomeReplaced, time.Since(start))
		} else {
			log.Warn("paper extraction failed, keeping feed content")
			r.metrics.ObserveFallback(fallbackPaper, metrics.OutcomeFailed, time.Since(start))
		}

	case policy.NeedsFullContent:
		if entry.Link == "" || runeLen(content) >= r.content.MinContentLength {
			break
		}
		start := time.Now()
		text, ok := r.web.ExtractFullContent(ctx, entry.Link)
		switch {
		case !ok:
			log.Warn("page extraction failed, keeping feed content")
			r.metrics.ObserveFallback(fallbackWeb, metrics.OutcomeFailed, time.Since(start))
		case runeLen(text) > runeLen(content):
			content = text
			r.metrics.ObserveFallback(fallbackWeb, metrics.OutcomeReplaced, time.Since(start))
		default:
			r.metrics.ObserveFallback(fallbackWeb, metrics.OutcomeKept, time.Since(start))
		}
	}

	if !policy.Paper {
		content = truncateRunes(content, r.content.MaxContentLength)
	}

	return Article{
		Source:    policy.Name,
		Title:     entry.Title,
		Link:      entry.Link,
		Published: firstNonEmpty(entry.Published, entry.Updated),
		Summary:   truncateRunes(entry.Summary, r.content.SummaryLength),
		Content:   content,
		Author:    entry.Author,
		Tags:      entry.Tags,
		Language:  detectLanguage(entry.Title, content),
		ScrapedAt: r.now().Format(time.RFC3339),
	}
}

// rssBody picks the feed-native body: the first non-empty candidate, or the
// longest one when longest is set.
func rssBody(entry FeedEntry, longest bool) string {
	candidates := entry.bodyCandidates()
	if !longest {
		return firstNonEmpty(candidates...)
	}
	best := ""
	for _, c := range candidates {
		if runeLen(c) > runeLen(best) {
			best = c
		}
	}
	return best
}

// languageSampleWords bounds the text handed to the detector.
const languageSampleWords = 100

// detectLanguage returns the ISO 639-1 code of title+content, or "" when the
// detector is not confident.
func detectLanguage(title, content string) string {
	words := strings.Fields(content)
	if len(words) > languageSampleWords {
		words = words[:languageSampleWords]
	}
	sample := strings.TrimSpace(title + " " + strings.Join(words, " "))
	if sample == "" {
		return ""
	}
	info := whatlanggo.Detect(sample)
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.Iso6391()
}
