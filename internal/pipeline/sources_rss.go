// =============================================================================
// sources_rss.go - RSS/Atom feed sources
// =============================================================================
//
// Every registry entry becomes one FeedSource. A FeedSource downloads its
// feed with gofeed, takes the first ArticlesPerSource items and runs each
// one through the Resolver.
//
// gofeed.Item -> FeedEntry mapping:
//
//	Content        item.Content (content:encoded, Atom <content>)
//	ContentDetail  content:encoded extension, when gofeed kept it as one
//	Description    item.Description (RSS <description>, Atom <summary>)
//	SummaryDetail  iTunes summary, else Dublin Core description
//
// =============================================================================
package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// FeedSource collects one registered feed.
type FeedSource struct {
	policy    SourcePolicy
	client    *http.Client
	userAgent string
	timeout   time.Duration
	limit     int
	resolver  *Resolver
}

// NewFeedSource builds the task for one registry entry.
func NewFeedSource(policy SourcePolicy, client *http.Client, cfg Config, resolver *Resolver) *FeedSource {
	return &FeedSource{
		policy:    policy,
		client:    client,
		userAgent: cfg.HTTP.UserAgent,
		timeout:   cfg.HTTP.RequestTimeout,
		limit:     cfg.ArticlesPerSource,
		resolver:  resolver,
	}
}

// Name returns the registry name, which is also the status key.
func (s *FeedSource) Name() string { return s.policy.Name }

// Fetch downloads the feed and resolves its first entries. A feed-level
// failure is returned as an error; per-entry failures are absorbed by the
// resolver.
func (s *FeedSource) Fetch(ctx context.Context) ([]Article, error) {
	feed, err := fetchRSSFeed(ctx, s.client, s.policy.FeedURL, s.userAgent, s.timeout)
	if err != nil {
		return nil, err
	}

	items := feed.Items
	if len(items) > s.limit {
		items = items[:s.limit]
	}

	out := make([]Article, 0, len(items))
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, s.resolver.Resolve(ctx, s.policy, feedEntryFromItem(item)))
	}
	return out, nil
}

// fetchRSSFeed downloads and parses a feed. The timeout covers the feed
// download only.
func fetchRSSFeed(ctx context.Context, client *http.Client, feedURL, userAgent string, timeout time.Duration) (*gofeed.Feed, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := httpGet(ctx, client, feedURL, userAgent)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feed, nil
}

// feedEntryFromItem flattens a gofeed item. Missing fields stay empty.
func feedEntryFromItem(item *gofeed.Item) FeedEntry {
	if item == nil {
		return FeedEntry{}
	}

	e := FeedEntry{
		Title:       strings.TrimSpace(item.Title),
		Link:        strings.TrimSpace(item.Link),
		Published:   item.Published,
		Updated:     item.Updated,
		Summary:     item.Description,
		Tags:        uniqStrings(item.Categories),
		Content:     item.Content,
		Description: item.Description,
	}

	switch {
	case item.Author != nil && item.Author.Name != "":
		e.Author = item.Author.Name
	case len(item.Authors) > 0 && item.Authors[0] != nil:
		e.Author = item.Authors[0].Name
	case item.DublinCoreExt != nil && len(item.DublinCoreExt.Creator) > 0:
		e.Author = item.DublinCoreExt.Creator[0]
	}

	if ext, ok := item.Extensions["content"]; ok {
		if encoded := ext["encoded"]; len(encoded) > 0 {
			e.ContentDetail = encoded[0].Value
		}
	}

	switch {
	case item.ITunesExt != nil && item.ITunesExt.Summary != "":
		e.SummaryDetail = item.ITunesExt.Summary
	case item.DublinCoreExt != nil && len(item.DublinCoreExt.Description) > 0:
		e.SummaryDetail = item.DublinCoreExt.Description[0]
	}

	return e
}
