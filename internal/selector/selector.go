// Package selector reduces an unbounded set of enriched articles to a
// fixed-size daily selection in three stages: semantic deduplication,
// quota-balanced pooling, and a one-call LLM tournament. Every stage degrades
// to a deterministic fallback; selection never blocks the pipeline.
package selector

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"prepdeck/internal/core"
	"prepdeck/internal/llm"
	"prepdeck/internal/logger"
)

const (
	// DefaultTarget is the size of the final daily selection.
	DefaultTarget = 30
	// DefaultDedupThreshold is the cosine similarity above which two
	// articles are considered duplicates.
	DefaultDedupThreshold = 0.40
	// DefaultPoolSize is the minimum tournament pool size.
	DefaultPoolSize = 50
	// summaryLimit truncates summaries in the tournament payload.
	summaryLimit = 200
)

// DefaultGSMinimums reserves pool slots per paper. GS4 content is rare in
// daily news, hence the lower floor.
var DefaultGSMinimums = map[string]int{
	"GS1": 5,
	"GS2": 5,
	"GS3": 5,
	"GS4": 1,
}

// Options configures a Selector. Zero values select the defaults.
type Options struct {
	Target         int
	DedupThreshold float64
	GSMinimums     map[string]int
}

// Selector runs the three-stage selection pipeline.
type Selector struct {
	client     llm.Client
	target     int
	threshold  float64
	gsMinimums map[string]int
	log        zerolog.Logger
}

// New creates a selector. The client is used only for the tournament stage
// and may be nil, in which case the tournament falls back to top-N by score.
func New(client llm.Client, opts Options) *Selector {
	target := opts.Target
	if target <= 0 {
		target = DefaultTarget
	}
	threshold := opts.DedupThreshold
	if threshold <= 0 {
		threshold = DefaultDedupThreshold
	}
	minimums := opts.GSMinimums
	if minimums == nil {
		minimums = DefaultGSMinimums
	}
	return &Selector{
		client:     client,
		target:     target,
		threshold:  threshold,
		gsMinimums: minimums,
		log:        logger.With("selector"),
	}
}

// SelectTopArticles chains dedup, pool balancing, and tournament stages and logs the
// resulting per-paper distribution.
func (s *Selector) SelectTopArticles(ctx context.Context, cards []*core.KnowledgeCard) []*core.KnowledgeCard {
	poolSize := s.target + 20
	if poolSize < DefaultPoolSize {
		poolSize = DefaultPoolSize
	}

	deduped := s.DeduplicateSemantic(cards)
	pooled := s.BalanceGSPool(deduped, poolSize)
	selected := s.TournamentSelect(ctx, pooled)

	distribution := make(map[string]int)
	for _, card := range selected {
		distribution[card.GSPaper]++
	}
	s.log.Info().
		Int("input", len(cards)).
		Int("after_dedup", len(deduped)).
		Int("pool", len(pooled)).
		Int("selected", len(selected)).
		Interface("gs_distribution", distribution).
		Msg("selection complete")

	return selected
}

// DeduplicateSemantic removes near-duplicate articles, keeping the
// higher-relevance one of each similar pair. A degenerate corpus (no usable
// text anywhere) skips dedup and returns the input unchanged.
func (s *Selector) DeduplicateSemantic(cards []*core.KnowledgeCard) []*core.KnowledgeCard {
	if len(cards) <= 1 {
		return cards
	}

	docs := make([]string, len(cards))
	for i, card := range cards {
		topics := card.Keywords
		if len(topics) == 0 {
			topics = card.KeyFacts
		}
		docs[i] = card.Title + " " + strings.Join(topics, " ")
	}

	vectors, ok := tfidfVectors(docs)
	if !ok {
		s.log.Warn().Msg("degenerate corpus, skipping dedup")
		return cards
	}

	removed := make([]bool, len(cards))
	for i := 0; i < len(cards); i++ {
		if removed[i] {
			continue
		}
		for j := i + 1; j < len(cards); j++ {
			if removed[j] {
				continue
			}
			if cosine(vectors[i], vectors[j]) <= s.threshold {
				continue
			}
			if cards[i].UPSCRelevance >= cards[j].UPSCRelevance {
				removed[j] = true
			} else {
				removed[i] = true
				break // i's removal is final, stop comparing it
			}
		}
	}

	kept := make([]*core.KnowledgeCard, 0, len(cards))
	for i, card := range cards {
		if !removed[i] {
			kept = append(kept, card)
		}
	}
	if dropped := len(cards) - len(kept); dropped > 0 {
		s.log.Info().Int("dropped", dropped).Msg("removed near-duplicate articles")
	}
	return kept
}

// BalanceGSPool caps the candidate set at poolSize while reserving a minimum
// number of slots per paper, so rare categories keep a voice in the
// tournament. Remaining slots go to the globally highest-relevance articles.
func (s *Selector) BalanceGSPool(cards []*core.KnowledgeCard, poolSize int) []*core.KnowledgeCard {
	if len(cards) <= poolSize {
		return cards
	}

	byPaper := make(map[string][]*core.KnowledgeCard)
	for _, card := range cards {
		byPaper[card.GSPaper] = append(byPaper[card.GSPaper], card)
	}
	for _, group := range byPaper {
		sortByRelevance(group)
	}

	papers := make([]string, 0, len(s.gsMinimums))
	for paper := range s.gsMinimums {
		papers = append(papers, paper)
	}
	sort.Strings(papers)

	reserved := make(map[string]bool)
	var pool []*core.KnowledgeCard
	for _, paper := range papers {
		quota := s.gsMinimums[paper]
		for _, card := range byPaper[paper] {
			if quota == 0 {
				break
			}
			id := card.ArticleID()
			if reserved[id] {
				continue
			}
			reserved[id] = true
			pool = append(pool, card)
			quota--
		}
	}

	rest := make([]*core.KnowledgeCard, 0, len(cards))
	for _, card := range cards {
		if !reserved[card.ArticleID()] {
			rest = append(rest, card)
		}
	}
	sortByRelevance(rest)
	for _, card := range rest {
		if len(pool) >= poolSize {
			break
		}
		pool = append(pool, card)
	}
	return pool
}

// candidate is one entry of the tournament payload.
type candidate struct {
	ArticleID     string `json:"article_id"`
	Title         string `json:"title"`
	UPSCRelevance int    `json:"upsc_relevance"`
	GSPaper       string `json:"gs_paper"`
	Summary       string `json:"summary"`
}

// TournamentSelect asks the model to pick the final set in a single call.
// Partial compliance is padded with the highest-relevance remainder; total
// failure falls back to a deterministic top-N by score.
func (s *Selector) TournamentSelect(ctx context.Context, cards []*core.KnowledgeCard) []*core.KnowledgeCard {
	if len(cards) <= s.target {
		return cards
	}
	if s.client == nil {
		return topN(cards, s.target)
	}

	candidates := make([]candidate, len(cards))
	byID := make(map[string]*core.KnowledgeCard, len(cards))
	for i, card := range cards {
		summary, _ := card.RawPass1["summary"].(string)
		if len(summary) > summaryLimit {
			summary = summary[:summaryLimit]
		}
		id := card.ArticleID()
		candidates[i] = candidate{
			ArticleID:     id,
			Title:         card.Title,
			UPSCRelevance: card.UPSCRelevance,
			GSPaper:       card.GSPaper,
			Summary:       summary,
		}
		byID[id] = card
	}

	payload, err := json.Marshal(candidates)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to encode tournament payload")
		return topN(cards, s.target)
	}

	instructions := fmt.Sprintf(
		"From the candidate pool, select the %d articles most valuable for UPSC preparation, "+
			"weighing exam relevance, topic diversity, factual significance, and GS paper coverage. "+
			"Return selected_article_ids in priority order.", s.target)

	ids, err := llm.SelectIDs(ctx, s.client, string(payload), instructions)
	if err != nil {
		s.log.Warn().Err(err).Msg("tournament call failed, falling back to top-N by score")
		return topN(cards, s.target)
	}

	var selected []*core.KnowledgeCard
	seen := make(map[string]bool)
	for _, id := range ids {
		if len(selected) >= s.target {
			break
		}
		card, ok := byID[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		selected = append(selected, card)
	}

	if len(selected) < s.target {
		s.log.Warn().
			Int("returned", len(selected)).
			Int("target", s.target).
			Msg("tournament returned too few valid IDs, padding by score")
		rest := make([]*core.KnowledgeCard, 0, len(cards))
		for _, card := range cards {
			if !seen[card.ArticleID()] {
				rest = append(rest, card)
			}
		}
		sortByRelevance(rest)
		for _, card := range rest {
			if len(selected) >= s.target {
				break
			}
			selected = append(selected, card)
		}
	}
	return selected
}

func sortByRelevance(cards []*core.KnowledgeCard) {
	sort.SliceStable(cards, func(i, j int) bool {
		return cards[i].UPSCRelevance > cards[j].UPSCRelevance
	})
}

func topN(cards []*core.KnowledgeCard, n int) []*core.KnowledgeCard {
	sorted := make([]*core.KnowledgeCard, len(cards))
	copy(sorted, cards)
	sortByRelevance(sorted)
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
