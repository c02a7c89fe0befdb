package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
)

// TaskType identifies the kind of structured analysis requested from the LLM.
type TaskType string

const (
	// TaskAnalysis scores a single article for exam relevance and extracts
	// category and key topics (Pass 1).
	TaskAnalysis TaskType = "upsc_analysis"
	// TaskBatchAnalysis scores many articles in one call, keyed by article ID.
	TaskBatchAnalysis TaskType = "upsc_batch_analysis"
	// TaskKnowledgeCard generates the LLM-authored layers of a knowledge card
	// (Pass 2).
	TaskKnowledgeCard TaskType = "knowledge_card"
	// TaskTournament ranks a candidate pool down to a fixed-size selection.
	TaskTournament TaskType = "tournament_select"
)

// Request is a single LLM call.
type Request struct {
	Task         TaskType // Selects the response schema and prompt framing
	Content      string   // Primary content to analyze
	Instructions string   // Optional task-specific grounding context
	Temperature  float32  // 0 means the provider default
	MaxTokens    int32    // 0 means the provider default
}

// Response is the generic envelope returned by every provider. Data must
// never be trusted unless Success is true.
type Response struct {
	Success      bool            `json:"success"`
	Data         json.RawMessage `json:"data"`
	ErrorMessage string          `json:"error_message,omitempty"`
	ProviderUsed string          `json:"provider_used"`
	TokensUsed   int             `json:"tokens_used"`
}

// Client is the minimal provider contract consumed by the pipeline. Provider
// selection, key rotation, and HTTP retry policy live behind this interface.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// Analysis is the decoded TaskAnalysis payload.
type Analysis struct {
	UPSCRelevance  int      `json:"upsc_relevance"`
	RelevantPapers []string `json:"relevant_papers"`
	KeyTopics      []string `json:"key_topics"`
	Summary        string   `json:"summary"`
}

// BatchItem is one article in a TaskBatchAnalysis payload.
type BatchItem struct {
	ArticleID string `json:"article_id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
}

// BatchScore is the per-article result of a TaskBatchAnalysis call.
type BatchScore struct {
	ArticleID      string   `json:"article_id"`
	UPSCRelevance  int      `json:"upsc_relevance"`
	RelevantPapers []string `json:"relevant_papers"`
	KeyTopics      []string `json:"key_topics"`
	Summary        string   `json:"summary"`
}

// BatchAnalysis is the decoded TaskBatchAnalysis payload.
type BatchAnalysis struct {
	Articles []BatchScore `json:"articles"`
}

// CardDraft is the decoded TaskKnowledgeCard payload: the four LLM-authored
// layers. The connections layer is assembled by the engine, never requested
// from the model.
type CardDraft struct {
	HeadlineLayer   string   `json:"headline_layer"`
	FactsLayer      []string `json:"facts_layer"`
	ContextLayer    string   `json:"context_layer"`
	MainsAngleLayer string   `json:"mains_angle_layer"`
}

// MinFacts is the contractual minimum for a card's facts layer. An
// under-filled response is a failed call, not something to pad.
const MinFacts = 5

// Selection is the decoded TaskTournament payload. Some providers answer
// with re-scored articles instead of an ID list; both forms are accepted.
type Selection struct {
	SelectedArticleIDs []string     `json:"selected_article_ids"`
	Articles           []BatchScore `json:"articles"`
}

func decode(resp Response, task TaskType, out any) error {
	if !resp.Success {
		return fmt.Errorf("%s call failed: %s", task, resp.ErrorMessage)
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("%s response is not valid JSON for its schema: %w", task, err)
	}
	return nil
}

// Analyze runs a TaskAnalysis call and decodes the result.
func Analyze(ctx context.Context, c Client, content string) (*Analysis, error) {
	resp, err := c.Complete(ctx, Request{
		Task:        TaskAnalysis,
		Content:     content,
		Temperature: 0.1,
	})
	if err != nil {
		return nil, err
	}

	var a Analysis
	if err := decode(resp, TaskAnalysis, &a); err != nil {
		return nil, err
	}
	a.UPSCRelevance = clampScore(a.UPSCRelevance)
	return &a, nil
}

// AnalyzeBatch runs a TaskBatchAnalysis call over a set of articles and
// decodes the per-article scores.
func AnalyzeBatch(ctx context.Context, c Client, items []BatchItem) (*BatchAnalysis, error) {
	payload, err := json.Marshal(map[string][]BatchItem{"articles": items})
	if err != nil {
		return nil, fmt.Errorf("failed to encode batch payload: %w", err)
	}

	resp, err := c.Complete(ctx, Request{
		Task:        TaskBatchAnalysis,
		Content:     string(payload),
		Temperature: 0.1,
	})
	if err != nil {
		return nil, err
	}

	var b BatchAnalysis
	if err := decode(resp, TaskBatchAnalysis, &b); err != nil {
		return nil, err
	}
	for i := range b.Articles {
		b.Articles[i].UPSCRelevance = clampScore(b.Articles[i].UPSCRelevance)
	}
	return &b, nil
}

// GenerateCard runs a TaskKnowledgeCard call and validates the draft at the
// boundary. A structurally deficient response (missing layers, fewer than
// MinFacts facts) is reported as an error.
func GenerateCard(ctx context.Context, c Client, content, instructions string) (*CardDraft, error) {
	resp, err := c.Complete(ctx, Request{
		Task:         TaskKnowledgeCard,
		Content:      content,
		Instructions: instructions,
		Temperature:  0.2,
	})
	if err != nil {
		return nil, err
	}

	var d CardDraft
	if err := decode(resp, TaskKnowledgeCard, &d); err != nil {
		return nil, err
	}

	if d.HeadlineLayer == "" || d.ContextLayer == "" || d.MainsAngleLayer == "" {
		return nil, fmt.Errorf("card response missing required layers")
	}
	if len(d.FactsLayer) < MinFacts {
		return nil, fmt.Errorf("card response has %d facts, need at least %d",
			len(d.FactsLayer), MinFacts)
	}
	return &d, nil
}

// SelectIDs runs a TaskTournament call and returns the ordered article IDs
// the model selected, accepting either response form.
func SelectIDs(ctx context.Context, c Client, content, instructions string) ([]string, error) {
	resp, err := c.Complete(ctx, Request{
		Task:         TaskTournament,
		Content:      content,
		Instructions: instructions,
		Temperature:  0.1,
	})
	if err != nil {
		return nil, err
	}

	var s Selection
	if err := decode(resp, TaskTournament, &s); err != nil {
		return nil, err
	}

	if len(s.SelectedArticleIDs) > 0 {
		return s.SelectedArticleIDs, nil
	}

	// Re-scored article form: order by the scores the model assigned
	sorted := make([]BatchScore, len(s.Articles))
	copy(sorted, s.Articles)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].UPSCRelevance > sorted[j].UPSCRelevance
	})
	ids := make([]string, 0, len(sorted))
	for _, a := range sorted {
		ids = append(ids, a.ArticleID)
	}
	return ids, nil
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
