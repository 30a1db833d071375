// =============================================================================
// sources_community.go - Community sources (non-feed)
// =============================================================================
//
// Three sources that are not RSS feeds and bypass the Resolver:
//
//	Reddit ML        r/MachineLearning JSON listing, self posts only
//	Hugging Face     Hub models API
//	GitHub Trending  daily trending page, scraped with goquery, plus a
//	                 README excerpt per repository
//
// Status keys (Name) differ from the Article.Source values they emit.
//
// =============================================================================
package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Status keys of the community sources.
const (
	RedditSourceName         = "Reddit ML"
	HuggingFaceSourceName    = "Hugging Face"
	GitHubTrendingSourceName = "GitHub Trending"
)

const (
	redditBaseURL      = "https://reddit.com"
	huggingFaceBaseURL = "https://huggingface.co"
	maxReadmeBytes     = 1 << 20
)

// CommunitySources returns the enabled community tasks in their fixed order.
func CommunitySources(client *http.Client, cfg Config) []Source {
	if !cfg.Community.Enabled {
		return nil
	}
	base := communityBase{client: client, cfg: cfg, now: time.Now}
	return []Source{
		&RedditSource{base},
		&HuggingFaceSource{base},
		&GitHubTrendingSource{base},
	}
}

type communityBase struct {
	client *http.Client
	cfg    Config
	now    func() time.Time
}

func (b communityBase) scrapedAt() string {
	return b.now().Format(time.RFC3339)
}

func (b communityBase) limit() int {
	if b.cfg.Community.Limit > 0 {
		return b.cfg.Community.Limit
	}
	return 10
}

func (b communityBase) getJSON(ctx context.Context, url, userAgent string, v any) error {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.HTTP.RequestTimeout)
	defer cancel()
	return httpGetJSON(ctx, b.client, url, userAgent, v)
}

// -----------------------------------------------------------------------------
// Reddit
// -----------------------------------------------------------------------------

// RedditSource collects text posts from r/MachineLearning.
type RedditSource struct{ communityBase }

func (s *RedditSource) Name() string { return RedditSourceName }

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	Title      string  `json:"title"`
	Permalink  string  `json:"permalink"`
	Selftext   string  `json:"selftext"`
	IsSelf     bool    `json:"is_self"`
	Score      int     `json:"score"`
	CreatedUTC float64 `json:"created_utc"`
}

// Fetch looks at the first posts of the listing and keeps the self posts.
func (s *RedditSource) Fetch(ctx context.Context) ([]Article, error) {
	var listing redditListing
	if err := s.getJSON(ctx, s.cfg.Community.RedditURL, s.cfg.HTTP.CommunityUserAgent, &listing); err != nil {
		return nil, fmt.Errorf("reddit listing: %w", err)
	}

	children := listing.Data.Children
	if len(children) > s.limit() {
		children = children[:s.limit()]
	}

	var out []Article
	for _, c := range children {
		p := c.Data
		if !p.IsSelf {
			continue
		}
		score := p.Score
		out = append(out, Article{
			Source:    "Reddit r/MachineLearning",
			Title:     p.Title,
			Link:      redditBaseURL + p.Permalink,
			Published: time.Unix(int64(p.CreatedUTC), 0).UTC().Format(time.RFC3339),
			Summary:   truncateRunes(p.Selftext, s.cfg.Content.SummaryLength),
			Content:   truncateRunes(p.Selftext, s.cfg.Content.MaxContentLength),
			Score:     &score,
			ScrapedAt: s.scrapedAt(),
		})
	}
	return out, nil
}

// -----------------------------------------------------------------------------
// Hugging Face
// -----------------------------------------------------------------------------

// HuggingFaceSource lists models from the Hub API.
type HuggingFaceSource struct{ communityBase }

func (s *HuggingFaceSource) Name() string { return HuggingFaceSourceName }

type hfModel struct {
	ModelID      string `json:"modelId"`
	ID           string `json:"id"`
	LastModified string `json:"lastModified"`
	CreatedAt    string `json:"createdAt"`
	Downloads    int    `json:"downloads"`
	Likes        int    `json:"likes"`
	PipelineTag  string `json:"pipeline_tag"`
}

// Fetch returns the first models of the API listing.
func (s *HuggingFaceSource) Fetch(ctx context.Context) ([]Article, error) {
	var models []hfModel
	if err := s.getJSON(ctx, s.cfg.Community.HuggingFaceURL, s.cfg.HTTP.CommunityUserAgent, &models); err != nil {
		return nil, fmt.Errorf("hugging face models: %w", err)
	}
	if len(models) > s.limit() {
		models = models[:s.limit()]
	}

	out := make([]Article, 0, len(models))
	for _, m := range models {
		id := firstNonEmpty(m.ModelID, m.ID)
		out = append(out, Article{
			Source:    "Hugging Face Hub",
			Title:     "Model: " + id,
			Link:      huggingFaceBaseURL + "/" + id,
			Published: firstNonEmpty(m.LastModified, m.CreatedAt),
			Summary:   fmt.Sprintf("Downloads: %d, Likes: %d", m.Downloads, m.Likes),
			Content:   m.PipelineTag,
			ScrapedAt: s.scrapedAt(),
		})
	}
	return out, nil
}

// -----------------------------------------------------------------------------
// GitHub Trending
// -----------------------------------------------------------------------------

// GitHubTrendingSource scrapes the daily trending repositories.
type GitHubTrendingSource struct{ communityBase }

func (s *GitHubTrendingSource) Name() string { return GitHubTrendingSourceName }

// Fetch parses the trending page. README excerpts are best effort.
func (s *GitHubTrendingSource) Fetch(ctx context.Context) ([]Article, error) {
	doc, err := s.fetchDoc(ctx, s.cfg.Community.GitHubTrendingURL)
	if err != nil {
		return nil, fmt.Errorf("github trending: %w", err)
	}

	var out []Article
	doc.Find("article.Box-row").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		if len(out) >= s.limit() {
			return false
		}
		href, ok := row.Find("h2.h3 a").First().Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return true
		}
		href = strings.TrimSpace(href)
		repo := strings.Trim(href, "/")

		stars := strings.TrimSpace(row.Find("span.d-inline-block.float-sm-right").First().Text())
		if stars == "" {
			stars = "0"
		}

		content := "Stars today: " + stars
		if readme := s.readmeExcerpt(ctx, repo); readme != "" {
			content += "\n\n" + readme
		}

		now := s.scrapedAt()
		out = append(out, Article{
			Source:    "GitHub Trending",
			Title:     repo,
			Link:      s.cfg.Community.GitHubBaseURL + href,
			Published: now,
			Summary:   strings.TrimSpace(row.Find("p.col-9").First().Text()),
			Content:   content,
			ScrapedAt: now,
		})
		return true
	})
	return out, nil
}

func (s *GitHubTrendingSource) fetchDoc(ctx context.Context, url string) (*goquery.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.HTTP.RequestTimeout)
	defer cancel()

	resp, err := httpGet(ctx, s.client, url, s.cfg.HTTP.UserAgent)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return goquery.NewDocumentFromReader(resp.Body)
}

// readmeExcerpt returns the start of the repository README, or "" when it
// cannot be fetched within the auxiliary timeout.
func (s *GitHubTrendingSource) readmeExcerpt(ctx context.Context, repo string) string {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.HTTP.AuxTimeout)
	defer cancel()

	url := strings.TrimRight(s.cfg.Community.GitHubRawURL, "/") + "/" + repo + "/HEAD/README.md"
	resp, err := httpGet(ctx, s.client, url, s.cfg.HTTP.UserAgent)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxReadmeBytes))
	if err != nil {
		return ""
	}
	return truncateRunes(normalizeText(string(b)), s.cfg.Community.ReadmeExcerpt)
}
