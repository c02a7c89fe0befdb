// Package feeds ingests RSS/Atom feeds and normalizes entries into raw
// articles tagged with the (site, section) pair of their configured source.
package feeds

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"

	"prepdeck/internal/config"
	"prepdeck/internal/core"
)

// Fetcher fetches and parses configured feed sources.
type Fetcher struct {
	parser *gofeed.Parser
	log    zerolog.Logger
}

// NewFetcher creates a feed fetcher.
func NewFetcher(log zerolog.Logger) *Fetcher {
	parser := gofeed.NewParser()
	parser.UserAgent = "prepdeck/1.0"
	return &Fetcher{parser: parser, log: log}
}

// FetchSource fetches one feed and converts its entries.
func (f *Fetcher) FetchSource(ctx context.Context, src config.FeedSource) ([]core.RawArticle, error) {
	feed, err := f.parser.ParseURLWithContext(src.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed %s: %w", src.URL, err)
	}

	articles := make([]core.RawArticle, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item.Link == "" {
			continue // no identity without a URL
		}
		articles = append(articles, itemToArticle(item, src))
	}
	return articles, nil
}

// FetchAll fetches every configured source, failing soft per source so one
// broken feed never blocks the rest of the day's ingestion.
func (f *Fetcher) FetchAll(ctx context.Context, sources []config.FeedSource) []core.RawArticle {
	var all []core.RawArticle
	for _, src := range sources {
		articles, err := f.FetchSource(ctx, src)
		if err != nil {
			f.log.Warn().Err(err).Str("url", src.URL).Msg("feed fetch failed, skipping source")
			continue
		}
		f.log.Info().
			Str("site", src.Site).
			Str("section", src.Section).
			Int("articles", len(articles)).
			Msg("fetched feed")
		all = append(all, articles...)
	}
	return all
}

func itemToArticle(item *gofeed.Item, src config.FeedSource) core.RawArticle {
	content := item.Content
	if content == "" {
		content = item.Description
	}

	published := item.Published
	if item.PublishedParsed != nil {
		published = item.PublishedParsed.Format("2006-01-02")
	}

	return core.RawArticle{
		Title:         strings.TrimSpace(item.Title),
		Content:       stripHTML(content),
		URL:           item.Link,
		SourceURL:     src.URL,
		SourceSite:    src.Site,
		Section:       src.Section,
		PublishedDate: published,
	}
}

// stripHTML flattens feed entry markup to plain text. Unparseable input is
// returned as-is rather than dropped.
func stripHTML(s string) string {
	if !strings.Contains(s, "<") {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
