// =============================================================================
// merge.go - Merge per-source transcripts into one file
// =============================================================================
//
// Two selection modes:
//   - latest:   newest transcript_<stamp>.txt in every source directory
//   - by stamp: transcripts whose name contains a given stamp fragment
//
// Each source block keeps its articles and drops the per-file header and
// footer.
//
// =============================================================================
package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

// ErrNoTranscripts is returned when nothing matches the selection.
var ErrNoTranscripts = errors.New("no transcripts found")

var (
	reTranscriptFile = regexp.MustCompile(`^transcript_(\d{8}_\d{6})\.txt$`)
	reArticleMarker  = regexp.MustCompile(`(?m)^### ARTICLE \d+/\d+ ###`)
)

// MergeSummary reports what a merge produced.
type MergeSummary struct {
	Output   string
	Sources  int
	Articles int
	// PerSource maps the source directory name to its article count.
	PerSource map[string]int
	// Skipped lists transcripts that could not be read.
	Skipped []string
}

// FindLatestTranscripts maps each source directory under dir to its newest
// transcript.
func FindLatestTranscripts(dir string) (map[string]string, error) {
	return findTranscripts(dir, func(string) bool { return true })
}

// FindTranscriptsByStamp maps each source directory to its newest transcript
// whose stamp contains fragment (e.g. "20260301" or "20260301_08").
func FindTranscriptsByStamp(dir, fragment string) (map[string]string, error) {
	return findTranscripts(dir, func(stamp string) bool { return strings.Contains(stamp, fragment) })
}

func findTranscripts(dir string, keep func(stamp string) bool) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoTranscripts
	}
	if err != nil {
		return nil, err
	}

	found := map[string]string{}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		files, err := os.ReadDir(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		best := ""
		for _, f := range files {
			m := reTranscriptFile.FindStringSubmatch(f.Name())
			if m == nil || !keep(m[1]) {
				continue
			}
			// Stamps sort lexically in time order.
			if m[1] > best {
				best = m[1]
			}
		}
		if best != "" {
			found[e.Name()] = filepath.Join(dir, e.Name(), transcriptPrefix+best+".txt")
		}
	}
	if len(found) == 0 {
		return nil, ErrNoTranscripts
	}
	return found, nil
}

// MergeTranscripts concatenates the selected transcripts into outPath,
// sources in name order.
func MergeTranscripts(files map[string]string, outPath string, now time.Time) (MergeSummary, error) {
	if len(files) == 0 {
		return MergeSummary{}, ErrNoTranscripts
	}

	sources := make([]string, 0, len(files))
	for s := range files {
		sources = append(sources, s)
	}
	sort.Strings(sources)

	summary := MergeSummary{Output: outPath, PerSource: map[string]int{}}
	rule := strings.Repeat("=", 100)

	var body strings.Builder
	for _, src := range sources {
		raw, err := os.ReadFile(files[src])
		if err != nil {
			summary.Skipped = append(summary.Skipped, files[src])
			continue
		}
		articles := transcriptArticles(string(raw))
		count := len(reArticleMarker.FindAllStringIndex(articles, -1))

		summary.PerSource[src] = count
		summary.Articles += count
		summary.Sources++

		fmt.Fprintf(&body, "\n\n%s\n### SOURCE: %s ###\n", rule, strings.ToUpper(strings.ReplaceAll(src, "_", " ")))
		fmt.Fprintf(&body, "File: %s\nArticles: %d\n%s\n\n", filepath.Base(files[src]), count, rule)
		body.WriteString(articles)
	}
	if summary.Sources == 0 {
		return summary, ErrNoTranscripts
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\nMERGED TRANSCRIPT - ALL SOURCES\nGenerated: %s\nSources: %d\nArticles: %d\n%s\n\nSOURCES INCLUDED:\n",
		rule, now.Format(humanTimeLayout), summary.Sources, summary.Articles, rule)
	for _, src := range sources {
		if n, ok := summary.PerSource[src]; ok {
			fmt.Fprintf(&b, "  - %s (%d articles)\n", strings.ReplaceAll(src, "_", " "), n)
		}
	}
	b.WriteString(body.String())
	fmt.Fprintf(&b, "\n\n%s\nEND OF MERGED TRANSCRIPT\n%d sources, %d articles\n%s\n", rule, summary.Sources, summary.Articles, rule)

	if err := writeFileAtomic(outPath, []byte(b.String())); err != nil {
		return summary, fmt.Errorf("write merged transcript: %w", err)
	}
	return summary, nil
}

// transcriptArticles returns the article blocks of one transcript: from the
// first article marker up to the rule that precedes the footer.
func transcriptArticles(transcript string) string {
	lines := strings.Split(transcript, "\n")
	start, end := -1, len(lines)
	for i, line := range lines {
		if start < 0 && strings.HasPrefix(line, "### ARTICLE 1/") {
			start = i
		}
		if strings.HasPrefix(line, footerPrefix) {
			end = i - 1
			break
		}
	}
	if start < 0 || end <= start {
		return ""
	}
	return strings.TrimRight(strings.Join(lines[start:end], "\n"), "\n") + "\n"
}
