// =============================================================================
// newsletter.go - Categorised newsletter digest
// =============================================================================
//
// Articles are bucketed by source name into research / news / tools /
// community / other, then rendered twice:
//   - newsletter_<stamp>.md    Markdown digest, top 5 per section
//   - newsletter_<stamp>.atom  Atom feed of every article (gorilla/feeds)
//
// =============================================================================
package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/gorilla/feeds"
)

const (
	CategoryResearch  = "research"
	CategoryNews      = "news"
	CategoryTools     = "tools"
	CategoryCommunity = "community"
	CategoryOther     = "other"

	newsletterTopN = 5
)

// categoryMatchers maps a category to source-name fragments. First match
// wins, so order matters.
var categoryMatchers = []struct {
	category  string
	fragments []string
}{
	{CategoryResearch, []string{"arXiv", "Papers With Code", "Google AI Blog", "OpenAI Blog", "ScienceDaily"}},
	{CategoryNews, []string{"MIT Tech Review", "TechCrunch", "VentureBeat", "AI Business", "AI Trends", "ActuIA", "L'Usine Digitale"}},
	{CategoryTools, []string{"Product Hunt", "Futurepedia", "FutureTools", "There's An AI For That", "Hugging Face"}},
	{CategoryCommunity, []string{"Reddit", "GitHub Trending", "KDnuggets", "MarkTechPost", "AIhub"}},
}

type newsletterSection struct {
	category string
	heading  string
	label    string
	excerpt  int
}

var newsletterSections = []newsletterSection{
	{CategoryResearch, "Research & Publications", "Summary", 300},
	{CategoryNews, "Industry News", "Summary", 300},
	{CategoryTools, "New Tools & Models", "Description", 200},
	{CategoryCommunity, "Community", "Preview", 200},
	{CategoryOther, "Other", "Summary", 200},
}

// Categorize returns the newsletter category of a source name.
func Categorize(source string) string {
	for _, m := range categoryMatchers {
		for _, f := range m.fragments {
			if strings.Contains(source, f) {
				return m.category
			}
		}
	}
	return CategoryOther
}

// CategorizeArticles buckets articles, preserving input order within each
// bucket.
func CategorizeArticles(articles []Article) map[string][]Article {
	out := map[string][]Article{}
	for _, a := range articles {
		c := Categorize(a.Source)
		out[c] = append(out[c], a)
	}
	return out
}

// NewsletterFiles lists the digest files of one run.
type NewsletterFiles struct {
	Markdown string
	Atom     string
}

// WriteNewsletter renders and writes both digest formats into dir.
func WriteNewsletter(dir, stamp string, articles []Article, now time.Time) (NewsletterFiles, error) {
	files := NewsletterFiles{
		Markdown: filepath.Join(dir, "newsletter_"+stamp+".md"),
		Atom:     filepath.Join(dir, "newsletter_"+stamp+".atom"),
	}

	if err := writeFileAtomic(files.Markdown, []byte(RenderNewsletter(articles, now))); err != nil {
		return NewsletterFiles{}, fmt.Errorf("write newsletter: %w", err)
	}

	atom, err := NewsletterFeed(articles, now).ToAtom()
	if err != nil {
		return NewsletterFiles{}, fmt.Errorf("render atom: %w", err)
	}
	if err := writeFileAtomic(files.Atom, []byte(atom)); err != nil {
		return NewsletterFiles{}, fmt.Errorf("write atom: %w", err)
	}
	return files, nil
}

// RenderNewsletter builds the Markdown digest.
func RenderNewsletter(articles []Article, now time.Time) string {
	buckets := CategorizeArticles(articles)

	var b strings.Builder
	fmt.Fprintf(&b, "# AI Newsletter - %s\n\n", now.Format("02 January 2006"))
	b.WriteString("## Summary\n")
	fmt.Fprintf(&b, "- **Total articles**: %d\n", len(articles))
	for _, s := range newsletterSections {
		if n := len(buckets[s.category]); n > 0 || s.category != CategoryOther {
			fmt.Fprintf(&b, "- **%s**: %d articles\n", s.heading, n)
		}
	}
	b.WriteString("\n---\n")

	for _, s := range newsletterSections {
		items := buckets[s.category]
		if len(items) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n## %s\n", s.heading)
		if len(items) > newsletterTopN {
			items = items[:newsletterTopN]
		}
		for _, a := range items {
			b.WriteString(renderNewsletterItem(a, s))
		}
		b.WriteString("\n---\n")
	}
	return b.String()
}

func renderNewsletterItem(a Article, s newsletterSection) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n### %s\n", firstNonEmpty(a.Title, "Untitled"))
	fmt.Fprintf(&b, "**Source**: %s\n", a.Source)
	if a.Link != "" {
		fmt.Fprintf(&b, "**Link**: %s\n", a.Link)
	}
	if a.Score != nil {
		fmt.Fprintf(&b, "**Score**: %d\n", *a.Score)
	}
	if text := excerpt(firstNonEmpty(a.Summary, a.Content), s.excerpt); text != "" {
		fmt.Fprintf(&b, "**%s**: %s\n", s.label, text)
	}
	return b.String()
}

// excerpt strips tags, collapses whitespace and cuts to n runes with "...".
func excerpt(s string, n int) string {
	s = strings.Join(strings.Fields(reHTMLTags.ReplaceAllString(s, " ")), " ")
	if runeLen(s) <= n {
		return s
	}
	return strings.TrimSpace(truncateRunes(s, n)) + "..."
}

// NewsletterFeed builds a feed of every article, newest first as collected.
func NewsletterFeed(articles []Article, now time.Time) *feeds.Feed {
	feed := &feeds.Feed{
		Title:       "AI Newsletter - " + now.Format("02 January 2006"),
		Link:        &feeds.Link{Href: "https://github.com/ai-relay"},
		Description: fmt.Sprintf("%d articles collected", len(articles)),
		Author:      &feeds.Author{Name: "ai-relay"},
		Created:     now,
	}
	for _, a := range articles {
		item := &feeds.Item{
			Title:       firstNonEmpty(a.Title, "Untitled"),
			Link:        &feeds.Link{Href: a.Link},
			Id:          a.Link,
			Description: excerpt(firstNonEmpty(a.Summary, a.Content), 300),
			Content:     a.Content,
			Created:     publishedTime(a, now),
		}
		if a.Author != "" {
			item.Author = &feeds.Author{Name: a.Author}
		}
		feed.Items = append(feed.Items, item)
	}
	return feed
}

// publishedTime parses whatever date format the feed used, falling back to
// the scrape time and then to now.
func publishedTime(a Article, now time.Time) time.Time {
	for _, s := range []string{a.Published, a.ScrapedAt} {
		if s == "" {
			continue
		}
		if t, err := dateparse.ParseAny(s); err == nil {
			return t
		}
	}
	return now
}
