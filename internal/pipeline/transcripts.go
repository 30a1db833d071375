// =============================================================================
// transcripts.go - Per-source text transcripts
// =============================================================================
//
// Layout under the transcript directory:
//
//	<Safe_Source_Name>/transcript_<stamp>.txt   one per source
//	index_<stamp>.txt                           list of the files above
//
// A transcript is a header, one block per article (### ARTICLE i/n ###) and
// a footer. merge.go relies on the article marker and the footer line.
//
// =============================================================================
package pipeline

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

const (
	transcriptPrefix = "transcript_"
	transcriptWidth  = 80
	footerPrefix     = "END OF TRANSCRIPT"
	humanTimeLayout  = "02/01/2006 15:04:05"
)

var (
	reUnsafeFilename = regexp.MustCompile(`[<>:"/\\|?*]`)
	reFilenameSpace  = regexp.MustCompile(`\s+`)
	reUnderscores    = regexp.MustCompile(`_+`)
	reParagraphSplit = regexp.MustCompile(`\n\s*\n`)
)

// SanitizeFilename turns a source name into a directory name.
func SanitizeFilename(name string) string {
	name = reUnsafeFilename.ReplaceAllString(name, "_")
	name = reFilenameSpace.ReplaceAllString(name, "_")
	name = reUnderscores.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")
	if name == "" {
		return "Unknown"
	}
	return name
}

// TranscriptWriter writes per-source transcripts.
type TranscriptWriter struct {
	baseDir string
	now     func() time.Time
}

// NewTranscriptWriter writes below baseDir.
func NewTranscriptWriter(baseDir string) *TranscriptWriter {
	return &TranscriptWriter{baseDir: baseDir, now: time.Now}
}

// WriteAll groups articles by source, writes one transcript per source plus
// an index, and returns source -> file path.
func (w *TranscriptWriter) WriteAll(articles []Article, stamp string) (map[string]string, error) {
	now := w.now()

	var order []string
	bySource := map[string][]Article{}
	for _, a := range articles {
		src := a.Source
		if src == "" {
			src = "Unknown"
		}
		if _, ok := bySource[src]; !ok {
			order = append(order, src)
		}
		bySource[src] = append(bySource[src], a)
	}

	saved := make(map[string]string, len(order))
	for _, src := range order {
		path := filepath.Join(w.baseDir, SanitizeFilename(src), transcriptPrefix+stamp+".txt")
		body := renderSourceTranscript(src, bySource[src], now)
		if err := writeFileAtomic(path, []byte(body)); err != nil {
			return saved, fmt.Errorf("transcript for %s: %w", src, err)
		}
		saved[src] = path
	}

	if err := w.writeIndex(saved, stamp, now); err != nil {
		return saved, err
	}
	return saved, nil
}

func (w *TranscriptWriter) writeIndex(saved map[string]string, stamp string, now time.Time) error {
	sources := make([]string, 0, len(saved))
	for s := range saved {
		sources = append(sources, s)
	}
	sort.Strings(sources)

	var b strings.Builder
	b.WriteString("TRANSCRIPT INDEX\n")
	fmt.Fprintf(&b, "Generated: %s\n", now.Format(humanTimeLayout))
	b.WriteString(strings.Repeat("=", 80) + "\n\n")
	for _, s := range sources {
		fmt.Fprintf(&b, "Source: %s\n", s)
		fmt.Fprintf(&b, "File: %s\n", saved[s])
		b.WriteString(strings.Repeat("-", 40) + "\n")
	}
	fmt.Fprintf(&b, "\nTotal: %d sources\n", len(saved))

	return writeFileAtomic(filepath.Join(w.baseDir, "index_"+stamp+".txt"), []byte(b.String()))
}

// -----------------------------------------------------------------------------
// Rendering
// -----------------------------------------------------------------------------

func renderSourceTranscript(source string, articles []Article, now time.Time) string {
	rule := strings.Repeat("=", 80)
	var b strings.Builder

	fmt.Fprintf(&b, "%s\nTRANSCRIPT - %s\nGenerated: %s\nArticles: %d\n%s\n",
		rule, source, now.Format(humanTimeLayout), len(articles), rule)

	for i, a := range articles {
		fmt.Fprintf(&b, "\n\n### ARTICLE %d/%d ###\n\n", i+1, len(articles))
		b.WriteString(renderArticle(a))
	}

	fmt.Fprintf(&b, "\n\n%s\n%s - %s\nGenerated %s\n%s", rule, footerPrefix, source, now.Format(humanTimeLayout), rule)
	return b.String()
}

func renderArticle(a Article) string {
	var lines []string
	title := a.Title
	if title == "" {
		title = "Untitled"
	}
	lines = append(lines, "TITLE: "+title, strings.Repeat("-", 80))

	if a.Author != "" {
		lines = append(lines, "AUTHOR: "+a.Author)
	}
	if a.Published != "" {
		lines = append(lines, "PUBLISHED: "+a.Published)
	}
	lines = append(lines, "LINK: "+firstNonEmpty(a.Link, "N/A"))
	if len(a.Tags) > 0 {
		lines = append(lines, "TAGS: "+strings.Join(a.Tags, ", "))
	}
	if a.Score != nil {
		lines = append(lines, fmt.Sprintf("SCORE: %d", *a.Score))
	}
	lines = append(lines, "")

	if a.Summary != "" {
		lines = append(lines, "SUMMARY:", a.Summary, "")
	}

	switch {
	case a.Content != "":
		lines = append(lines, "FULL CONTENT:", strings.Repeat("-", 40))
		for _, para := range reParagraphSplit.Split(a.Content, -1) {
			if para = strings.TrimSpace(para); para != "" {
				lines = append(lines, wrapText(para, transcriptWidth), "")
			}
		}
	case a.Summary != "":
		lines = append(lines, "CONTENT:", "(full content unavailable, summary shown above)")
	}

	lines = append(lines, strings.Repeat("=", 80), "")
	return strings.Join(lines, "\n")
}

// wrapText greedily fills lines of at most width runes. Words longer than
// width get a line of their own.
func wrapText(text string, width int) string {
	var (
		lines   []string
		current []string
		length  int
	)
	for _, word := range strings.Fields(text) {
		n := runeLen(word)
		if len(current) > 0 && length+n+len(current) > width {
			lines = append(lines, strings.Join(current, " "))
			current, length = nil, 0
		}
		current = append(current, word)
		length += n
	}
	if len(current) > 0 {
		lines = append(lines, strings.Join(current, " "))
	}
	return strings.Join(lines, "\n")
}
