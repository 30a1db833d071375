// =============================================================================
// extract_web.go - Web content extractor
// =============================================================================
//
// Fetches an article page and pulls its main text out with a cascade of
// heuristics:
//
//  1. Ordered CSS selectors (article_selectors in sources.yaml); the first
//     match with more than MinSelectorText runes wins
//  2. Paragraphs of <main> (or <body>) longer than MinParagraphText runes,
//     minus boilerplate, when more than two qualify
//  3. Every paragraph of the document when more than three exist
//  4. go-readability over the original HTML
//
// The result is whitespace-normalized and capped at MaxContentLength runes.
// Failures are logged and reported as ("", false); they never propagate.
//
// =============================================================================
package pipeline

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"ai-relay/internal/logger"
)

// pageNoiseSelector is stripped from fetched pages before any selector runs.
const pageNoiseSelector = "script, style, nav, header, footer, aside, noscript"

// maxPageBytes bounds how much of a page body is read.
const maxPageBytes = 8 << 20

// WebExtractor extracts article text from HTML pages. It is safe for
// concurrent use.
type WebExtractor struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration

	selectors        []string
	markers          []string
	minSelectorText  int
	minParagraphText int
	maxLength        int

	log logger.Logger
}

// NewWebExtractor builds an extractor over the run's shared client.
func NewWebExtractor(client *http.Client, cfg Config, log logger.Logger) *WebExtractor {
	markers := make([]string, len(cfg.BoilerplateMarkers))
	for i, m := range cfg.BoilerplateMarkers {
		markers[i] = strings.ToLower(m)
	}
	return &WebExtractor{
		client:           client,
		userAgent:        cfg.HTTP.UserAgent,
		timeout:          cfg.HTTP.RequestTimeout,
		selectors:        cfg.ArticleSelectors,
		markers:          markers,
		minSelectorText:  cfg.Content.MinSelectorText,
		minParagraphText: cfg.Content.MinParagraphText,
		maxLength:        cfg.Content.MaxContentLength,
		log:              log,
	}
}

// ExtractFullContent downloads pageURL and returns its main text. ok is false
// when the page could not be fetched or yielded no text.
func (w *WebExtractor) ExtractFullContent(ctx context.Context, pageURL string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	resp, err := httpGet(ctx, w.client, pageURL, w.userAgent)
	if err != nil {
		w.log.Warn("page fetch failed", logger.String("url", pageURL), logger.Err(err))
		return "", false
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		w.log.Warn("page read failed", logger.String("url", pageURL), logger.Err(err))
		return "", false
	}

	text := w.extractFromHTML(body, pageURL)
	if text == "" {
		w.log.Debug("no article text found", logger.String("url", pageURL))
		return "", false
	}
	return text, true
}

// extractFromHTML runs the heuristic cascade over a page body.
func (w *WebExtractor) extractFromHTML(body []byte, pageURL string) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	doc.Find(pageNoiseSelector).Remove()
	doc.Find(boilerplateSelector).Remove()

	content := w.selectorText(doc)

	if runeLen(content) < w.minSelectorText {
		container := doc.Find("main").First()
		if container.Length() == 0 {
			container = doc.Find("body").First()
		}
		if kept := w.paragraphs(container, true); len(kept) > 2 {
			content = strings.Join(kept, "\n\n")
		}
	}

	if runeLen(content) < w.minSelectorText {
		if all := doc.Find("p"); all.Length() > 3 {
			content = strings.Join(w.paragraphs(doc.Selection, false), "\n")
		}
	}

	if strings.TrimSpace(content) == "" {
		content = readableText(body, pageURL)
	}

	content = reManyNewlines.ReplaceAllString(content, "\n\n")
	content = reMultiSpace.ReplaceAllString(content, " ")
	content = strings.TrimSpace(content)
	return truncateRunes(content, w.maxLength)
}

// selectorText returns the text of the first selector match longer than
// minSelectorText. If no match is long enough, the last match is returned.
func (w *WebExtractor) selectorText(doc *goquery.Document) string {
	var content string
	for _, sel := range w.selectors {
		found := doc.Find(sel).First()
		if found.Length() == 0 {
			continue
		}
		content = joinedText(found, "\n")
		if runeLen(content) > w.minSelectorText {
			break
		}
	}
	return content
}

// paragraphs collects the trimmed text of <p> elements under sel that are
// longer than minParagraphText, optionally skipping boilerplate.
func (w *WebExtractor) paragraphs(sel *goquery.Selection, skipBoilerplate bool) []string {
	var out []string
	sel.Find("p").Each(func(_ int, p *goquery.Selection) {
		text := strings.TrimSpace(p.Text())
		if runeLen(text) <= w.minParagraphText {
			return
		}
		if skipBoilerplate && w.isBoilerplate(text) {
			return
		}
		out = append(out, text)
	})
	return out
}

func (w *WebExtractor) isBoilerplate(text string) bool {
	lower := strings.ToLower(text)
	for _, m := range w.markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// readableText is the last resort: Mozilla-readability scoring over the
// untouched page.
func readableText(body []byte, pageURL string) string {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	article, err := readability.FromReader(bytes.NewReader(body), parsed)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(article.TextContent)
}
