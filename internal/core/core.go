package core

import (
	"crypto/md5"
	"fmt"
)

// Triage is the three-tier priority classification assigned to every
// enriched article. It is computed deterministically from the relevance
// score and the source allow-list, never by the LLM.
type Triage string

const (
	TriageMustKnow   Triage = "must_know"
	TriageShouldKnow Triage = "should_know"
	TriageGoodToKnow Triage = "good_to_know"
)

// RawArticle is the common record shape produced by the scraping and feed
// adapters. The enrichment pipeline treats it as read-only input.
type RawArticle struct {
	Title         string `json:"title"`          // Article headline
	Content       string `json:"content"`        // Body text (may be empty; falls back to title)
	URL           string `json:"url"`            // Canonical URL, identity source
	SourceURL     string `json:"source_url"`     // Fallback identity when URL is empty
	SourceSite    string `json:"source_site"`    // e.g. "hindu", "indianexpress"
	Section       string `json:"section"`        // e.g. "editorial", "explained"
	PublishedDate string `json:"published_date"` // As reported by the source
}

// ArticleID returns the stable 8-hex-char truncated MD5 of the article URL
// (SourceURL fallback). The truncated hash is the cross-call article identity
// used in batch LLM round-trips; the ~32-bit collision risk is an accepted
// part of that wire contract and must not be widened unilaterally.
func (a RawArticle) ArticleID() string {
	url := a.URL
	if url == "" {
		url = a.SourceURL
	}
	return fmt.Sprintf("%x", md5.Sum([]byte(url)))[:8]
}

// SyllabusMatch is one deterministic taxonomy classification with an
// explainable confidence score.
type SyllabusMatch struct {
	Paper      string  `json:"paper"`      // e.g. "GS3"
	Topic      string  `json:"topic"`      // Topic name within the paper
	SubTopic   string  `json:"sub_topic"`  // Matched sub-topic name
	Confidence float64 `json:"confidence"` // [0, 1], rounded to 4 decimals
}

// EnrichmentResult is the Pass 1 output attached to an article before the
// relevance filter and Pass 2 run.
type EnrichmentResult struct {
	UPSCRelevance   int             `json:"upsc_relevance"`   // Aggregate relevance score [0, 100]
	GSPaper         string          `json:"gs_paper"`         // Primary category; "GS2" when the LLM returns none
	KeyFacts        []string        `json:"key_facts"`        // From Pass 1 key_topics
	Keywords        []string        `json:"keywords"`         // Same source as KeyFacts; consumers read both names
	SyllabusMatches []SyllabusMatch `json:"syllabus_matches"` // Deterministic taxonomy matches
	RawPass1        map[string]any  `json:"raw_pass1_data"`   // Full LLM response, kept for audit and Pass 2 context
}

// ScoredQuestion is a historical exam question matched against article
// keywords, with a deterministic relevance score.
type ScoredQuestion struct {
	QuestionID     string   `json:"question_id"`
	QuestionText   string   `json:"question_text"`
	Year           int      `json:"year"`
	ExamType       string   `json:"exam_type"` // e.g. "Prelims", "Mains"
	Subject        string   `json:"subject"`
	Topics         []string `json:"topics"`
	RelevanceScore float64  `json:"relevance_score"` // [0, 1], rounded to 2 decimals
}

// RelatedQuestion is the compact per-question entry embedded in a card's
// connections layer. Summaries are truncated to keep the card payload small.
type RelatedQuestion struct {
	Year            int    `json:"year"`
	ExamType        string `json:"exam_type"`
	QuestionSummary string `json:"question_summary"` // First 150 chars, "..."-suffixed when truncated
	Subject         string `json:"subject"`
}

// QuestionDigest is the formatted historical-question block for card assembly.
type QuestionDigest struct {
	Related   []RelatedQuestion `json:"related_pyqs"`
	Count     int               `json:"pyq_count"`
	YearRange string            `json:"year_range"` // "min-max", single year, or "" when empty
	ExamTypes []string          `json:"exam_types"` // Sorted, deduplicated
}

// ConnectionsLayer cross-references the card with the syllabus and with
// historical questions. It is always assembled by the engine from
// deterministic data; the LLM is never trusted to produce it.
type ConnectionsLayer struct {
	SyllabusTopics []SyllabusMatch   `json:"syllabus_topics"`
	RelatedPYQs    []RelatedQuestion `json:"related_pyqs"`
	PYQCount       int               `json:"pyq_count"`
	YearRange      string            `json:"year_range"`
}

// KnowledgeCard is the final five-layer enriched article.
type KnowledgeCard struct {
	RawArticle
	EnrichmentResult

	HeadlineLayer   string           `json:"headline_layer"`
	FactsLayer      []string         `json:"facts_layer"` // At least 5 entries, enforced at the LLM boundary
	ContextLayer    string           `json:"context_layer"`
	Connections     ConnectionsLayer `json:"connections_layer"`
	MainsAngleLayer string           `json:"mains_angle_layer"`
	PriorityTriage  Triage           `json:"priority_triage"`
}

// Source identifies a (site, section) pair for the must-know allow-list.
type Source struct {
	Site    string `json:"site"`
	Section string `json:"section"`
}
