package feeds

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"prepdeck/internal/config"
	"prepdeck/internal/logger"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>Editorials</title>
<item>
<title> RBI holds repo rate </title>
<link>https://example.com/rbi-holds</link>
<description>&lt;p&gt;The &lt;b&gt;MPC&lt;/b&gt; held the repo rate   at 6.5%.&lt;/p&gt;</description>
<pubDate>Fri, 29 Aug 2026 06:00:00 +0000</pubDate>
</item>
<item>
<title>No link entry</title>
<description>ignored</description>
</item>
</channel>
</rss>`

func TestFetchSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(sampleRSS))
	}))
	defer server.Close()

	f := NewFetcher(logger.With("feeds"))
	src := config.FeedSource{URL: server.URL, Site: "hindu", Section: "editorial"}

	articles, err := f.FetchSource(context.Background(), src)
	if err != nil {
		t.Fatalf("FetchSource failed: %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("Expected 1 article (link-less entry skipped), got %d", len(articles))
	}

	a := articles[0]
	if a.Title != "RBI holds repo rate" {
		t.Errorf("Expected trimmed title, got %q", a.Title)
	}
	if a.Content != "The MPC held the repo rate at 6.5%." {
		t.Errorf("Expected stripped, whitespace-collapsed content, got %q", a.Content)
	}
	if a.URL != "https://example.com/rbi-holds" {
		t.Errorf("Unexpected URL: %q", a.URL)
	}
	if a.SourceSite != "hindu" || a.Section != "editorial" {
		t.Errorf("Expected source tagging from config, got %s/%s", a.SourceSite, a.Section)
	}
	if a.PublishedDate != "2026-08-29" {
		t.Errorf("Expected normalized date, got %q", a.PublishedDate)
	}
}

func TestFetchAllFailsSoft(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleRSS))
	}))
	defer server.Close()

	f := NewFetcher(logger.With("feeds"))
	articles := f.FetchAll(context.Background(), []config.FeedSource{
		{URL: "http://127.0.0.1:1/broken", Site: "hindu", Section: "opinion"},
		{URL: server.URL, Site: "indianexpress", Section: "explained"},
	})

	if len(articles) != 1 {
		t.Fatalf("Expected 1 article from the healthy source, got %d", len(articles))
	}
	if articles[0].SourceSite != "indianexpress" {
		t.Errorf("Expected article from the healthy source, got %+v", articles[0])
	}
}

func TestStripHTML(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"plain text", "plain text"},
		{"  padded  ", "padded"},
		{"<p>hello <b>world</b></p>", "hello world"},
		{"<div>a\n\n  b</div>", "a b"},
	}
	for _, tc := range cases {
		if got := stripHTML(tc.in); got != tc.want {
			t.Errorf("stripHTML(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
