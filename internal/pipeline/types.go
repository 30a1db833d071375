// =============================================================================
// types.go - Data structures
// =============================================================================
//
// Types shared by every stage of the relay.
//
//   - Article:       one resolved news item, the unit every consumer reads
//   - FeedEntry:     typed view over a parsed feed item
//   - SourcePolicy:  per-source fetch policy (registry entry)
//   - SourceStatus:  outcome of one source task
//   - RunResult:     everything one batch run produced
//
// =============================================================================
package pipeline

import (
	"time"
)

// -----------------------------------------------------------------------------
// Article
// -----------------------------------------------------------------------------
//
// Article is built once by a source task and never mutated afterwards.
// Content holds the resolved body: cleaned RSS text, extracted page text, or
// extracted paper text. Summary is the raw feed summary, truncated on its own.
//
// Title is the deduplication key. It is usually set but may be empty.
type Article struct {
	Source    string   `json:"source"`
	Title     string   `json:"title"`
	Link      string   `json:"link"`
	Published string   `json:"published"`
	Summary   string   `json:"summary"`
	Content   string   `json:"content"`
	Author    string   `json:"author,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	Language  string   `json:"language,omitempty"`
	Score     *int     `json:"score,omitempty"` // community sources only
	ScrapedAt string   `json:"scraped_at"`
}

// -----------------------------------------------------------------------------
// FeedEntry
// -----------------------------------------------------------------------------
//
// FeedEntry flattens the fields of a feed item the pipeline cares about.
// Missing fields are empty. Body candidates are listed in the precedence
// used by Resolver:
//
//	Content        structured content (content:encoded, Atom <content>)
//	ContentDetail  raw content:encoded extension value
//	Description    RSS <description> / Atom <summary>
//	SummaryDetail  iTunes summary or Dublin Core description
type FeedEntry struct {
	Title     string
	Link      string
	Published string
	Updated   string
	Author    string
	Summary   string
	Tags      []string

	Content       string
	ContentDetail string
	Description   string
	SummaryDetail string
}

// bodyCandidates returns the body fields in precedence order.
func (e FeedEntry) bodyCandidates() []string {
	return []string{e.Content, e.ContentDetail, e.Description, e.SummaryDetail}
}

// -----------------------------------------------------------------------------
// SourcePolicy
// -----------------------------------------------------------------------------

// SourcePolicy is one registry entry. It is loaded once and read-only for the
// rest of the run.
//
// Restricted sources block automated page fetches, so the resolver never
// issues a fallback request for them. Paper sources are arXiv-style feeds
// whose links resolve to PDFs; their content is exempt from the length cap.
type SourcePolicy struct {
	Name             string          `yaml:"name" json:"name"`
	FeedURL          string          `yaml:"feed_url" json:"feed_url"`
	NeedsFullContent bool            `yaml:"needs_full_content" json:"needs_full_content"`
	Restricted       bool            `yaml:"restricted" json:"restricted"`
	Paper            bool            `yaml:"paper" json:"paper"`
	SpecialHandling  SpecialHandling `yaml:"special_handling" json:"special_handling"`
}

// SpecialHandling carries per-source quirks.
type SpecialHandling struct {
	// UseRSSContentOnly picks the longest body candidate instead of the first
	// non-empty one. Some feeds ship a stub in content and the real text in
	// description.
	UseRSSContentOnly bool   `yaml:"use_rss_content_only" json:"use_rss_content_only"`
	Note              string `yaml:"note" json:"note,omitempty"`
}

// -----------------------------------------------------------------------------
// SourceStatus / RunResult
// -----------------------------------------------------------------------------

// Status values recorded per source.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// SourceStatus is written once per source by its task.
type SourceStatus struct {
	Status string  `json:"status"`
	Count  int     `json:"count"`
	Error  *string `json:"error"`
}

// RunResult is what one batch run produced. Articles are in source
// registration order, not chronological order.
type RunResult struct {
	RunID      string                  `json:"run_id"`
	StartedAt  time.Time               `json:"started_at"`
	FinishedAt time.Time               `json:"finished_at"`
	Articles   []Article               `json:"articles"`
	Statuses   map[string]SourceStatus `json:"statuses"`
	Order      []string                `json:"order"`
}
