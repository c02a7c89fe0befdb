package enrich

import (
	"context"
	"encoding/json"
	"testing"

	"prepdeck/internal/core"
	"prepdeck/internal/llm"
)

func batchResponse(scores ...llm.BatchScore) llm.Response {
	data, _ := json.Marshal(llm.BatchAnalysis{Articles: scores})
	return llm.Response{Success: true, Data: data, ProviderUsed: "mock"}
}

func TestBatchConsensusAveraging(t *testing.T) {
	a1 := core.RawArticle{Title: "one", Content: "c1", URL: "https://example.com/1"}
	a2 := core.RawArticle{Title: "two", Content: "c2", URL: "https://example.com/2"}

	mock := llm.NewMockClient()
	call := 0
	mock.Handle(llm.TaskBatchAnalysis, func(llm.Request) (llm.Response, error) {
		call++
		if call == 1 {
			return batchResponse(
				llm.BatchScore{ArticleID: a1.ArticleID(), UPSCRelevance: 80, KeyTopics: []string{"a"}},
				llm.BatchScore{ArticleID: a2.ArticleID(), UPSCRelevance: 70},
			), nil
		}
		return batchResponse(
			llm.BatchScore{ArticleID: a1.ArticleID(), UPSCRelevance: 90, KeyTopics: []string{"b"}},
			llm.BatchScore{ArticleID: a2.ArticleID(), UPSCRelevance: 75},
		), nil
	})
	eng := newTestEngine(t, mock, Options{})

	results := eng.RunPass1Batch(context.Background(), []core.RawArticle{a1, a2})
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if mock.CallCount(llm.TaskBatchAnalysis) != 2 {
		t.Errorf("Expected exactly 2 batch calls, got %d", mock.CallCount(llm.TaskBatchAnalysis))
	}

	// (80+90)/2 = 85, (70+75)/2 = 72.5 rounds to 73
	if results[0].Result.UPSCRelevance != 85 {
		t.Errorf("Expected consensus score 85, got %d", results[0].Result.UPSCRelevance)
	}
	if results[1].Result.UPSCRelevance != 73 {
		t.Errorf("Expected consensus score 73, got %d", results[1].Result.UPSCRelevance)
	}

	// Non-numeric fields come from the first pass
	if len(results[0].Result.Keywords) != 1 || results[0].Result.Keywords[0] != "a" {
		t.Errorf("Expected first-pass key topics preserved, got %+v", results[0].Result.Keywords)
	}
}

func TestBatchSinglePassScoreUsedAsIs(t *testing.T) {
	a1 := core.RawArticle{Title: "one", Content: "c", URL: "https://example.com/1"}

	mock := llm.NewMockClient()
	call := 0
	mock.Handle(llm.TaskBatchAnalysis, func(llm.Request) (llm.Response, error) {
		call++
		if call == 1 {
			return batchResponse(llm.BatchScore{ArticleID: a1.ArticleID(), UPSCRelevance: 77}), nil
		}
		return batchResponse(), nil // second pass omits the article
	})
	eng := newTestEngine(t, mock, Options{})

	results := eng.RunPass1Batch(context.Background(), []core.RawArticle{a1})
	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}
	if results[0].Result.UPSCRelevance != 77 {
		t.Errorf("Expected single-pass score unchanged, got %d", results[0].Result.UPSCRelevance)
	}
}

func TestBatchMissingFromBothPassesDropped(t *testing.T) {
	a1 := core.RawArticle{Title: "kept", Content: "c", URL: "https://example.com/1"}
	a2 := core.RawArticle{Title: "lost", Content: "c", URL: "https://example.com/2"}

	mock := llm.NewMockClient()
	mock.Respond(llm.TaskBatchAnalysis, llm.BatchAnalysis{Articles: []llm.BatchScore{
		{ArticleID: a1.ArticleID(), UPSCRelevance: 50},
	}})
	eng := newTestEngine(t, mock, Options{})

	results := eng.RunPass1Batch(context.Background(), []core.RawArticle{a1, a2})
	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}
	if results[0].Article.Title != "kept" {
		t.Errorf("Expected the scored article, got %q", results[0].Article.Title)
	}
}

func TestBatchFailureRecoversMustKnowOnly(t *testing.T) {
	mustKnow := core.RawArticle{
		Title: "editorial", Content: "c", URL: "https://example.com/ed",
		SourceSite: "hindu", Section: "editorial",
	}
	regular := core.RawArticle{
		Title: "regular", Content: "c", URL: "https://example.com/reg",
		SourceSite: "hindu", Section: "business",
	}

	mock := llm.NewMockClient()
	mock.Fail(llm.TaskBatchAnalysis, "model overloaded")
	mock.Respond(llm.TaskAnalysis, llm.Analysis{UPSCRelevance: 66})
	eng := newTestEngine(t, mock, Options{})

	results := eng.RunPass1Batch(context.Background(), []core.RawArticle{mustKnow, regular})

	// Initial attempt plus one retry, each failing on the first of its two calls
	if got := mock.CallCount(llm.TaskBatchAnalysis); got != 2 {
		t.Errorf("Expected 2 batch attempts, got %d", got)
	}
	if got := mock.CallCount(llm.TaskAnalysis); got != 1 {
		t.Errorf("Expected 1 individual recovery call, got %d", got)
	}
	if len(results) != 1 || results[0].Article.Title != "editorial" {
		t.Fatalf("Expected only the must-know article recovered, got %+v", results)
	}
	if results[0].Result.UPSCRelevance != 66 {
		t.Errorf("Expected individually scored relevance, got %d", results[0].Result.UPSCRelevance)
	}
}

func TestBatchSplitsByBatchSize(t *testing.T) {
	articles := make([]core.RawArticle, 5)
	scores := make([]llm.BatchScore, 5)
	for i := range articles {
		articles[i] = core.RawArticle{
			Title:   "t",
			Content: "c",
			URL:     "https://example.com/" + string(rune('a'+i)),
		}
		scores[i] = llm.BatchScore{ArticleID: articles[i].ArticleID(), UPSCRelevance: 50}
	}

	mock := llm.NewMockClient()
	mock.Respond(llm.TaskBatchAnalysis, llm.BatchAnalysis{Articles: scores})
	eng := newTestEngine(t, mock, Options{BatchSize: 2})

	results := eng.RunPass1Batch(context.Background(), articles)
	if len(results) != 5 {
		t.Fatalf("Expected all 5 articles scored, got %d", len(results))
	}

	// 3 batches (2+2+1), two passes each
	if got := mock.CallCount(llm.TaskBatchAnalysis); got != 6 {
		t.Errorf("Expected 6 batch calls, got %d", got)
	}
}

func TestBatchEmptyInput(t *testing.T) {
	eng := newTestEngine(t, llm.NewMockClient(), Options{})
	if got := eng.RunPass1Batch(context.Background(), nil); got != nil {
		t.Errorf("Expected nil for empty input, got %+v", got)
	}
}
