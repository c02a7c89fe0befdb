package core

import "testing"

func TestArticleID(t *testing.T) {
	a := RawArticle{URL: "https://example.com/news/repo-rate"}

	id := a.ArticleID()
	if len(id) != 8 {
		t.Fatalf("Expected 8-char ID, got %q (%d chars)", id, len(id))
	}

	// Stable across calls
	if a.ArticleID() != id {
		t.Errorf("Expected stable ID, got %q then %q", id, a.ArticleID())
	}

	// Distinct URLs should (almost always) produce distinct IDs
	b := RawArticle{URL: "https://example.com/news/monsoon-session"}
	if b.ArticleID() == id {
		t.Errorf("Expected distinct IDs for distinct URLs, both %q", id)
	}
}

func TestArticleIDSourceURLFallback(t *testing.T) {
	a := RawArticle{SourceURL: "https://example.com/syndicated"}
	b := RawArticle{URL: "https://example.com/syndicated"}

	if a.ArticleID() != b.ArticleID() {
		t.Errorf("Expected SourceURL fallback to hash identically: %q vs %q",
			a.ArticleID(), b.ArticleID())
	}
}

func TestArticleIDEmptyURL(t *testing.T) {
	var a RawArticle
	if len(a.ArticleID()) != 8 {
		t.Errorf("Expected 8-char ID even for empty URL, got %q", a.ArticleID())
	}
}
