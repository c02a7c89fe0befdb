// Package pyq finds previously-asked exam questions related to article
// keywords and topics. Matching is entirely keyword/metadata based, with no
// LLM involved, and every storage failure degrades to an empty result
// rather than an error.
package pyq

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"prepdeck/internal/core"
	"prepdeck/internal/logger"
)

// GSPaperSubjects maps a GS paper ID onto the subject values used in the
// question table. Unmapped papers simply skip the subject-filter strategy.
var GSPaperSubjects = map[string][]string{
	"GS1": {"History", "Geography", "Society"},
	"GS2": {"Polity", "Governance", "International Relations"},
	"GS3": {"Economy", "Science", "Environment", "Security"},
	"GS4": {"Ethics"},
}

// DefaultMaxResults caps FindRelated output when the caller passes 0.
const DefaultMaxResults = 5

// summaryLimit truncates question text embedded in cards.
const summaryLimit = 150

// Question is one row of the question table.
type Question struct {
	ID            string
	QuestionText  string
	Year          int
	ExamType      string
	Subject       string
	Topics        []string
	UPSCRelevance int
}

// Store is the row-store contract: equality/array-overlap/substring filters
// with year-descending ordering and a row limit.
type Store interface {
	ByTopicOverlap(ctx context.Context, topics []string, limit int) ([]Question, error)
	BySubjects(ctx context.Context, subjects []string, limit int) ([]Question, error)
	ByText(ctx context.Context, keyword string, limit int) ([]Question, error)
	All(ctx context.Context) ([]Question, error)
}

// Service queries the question store and scores matches for card assembly.
type Service struct {
	store Store
	log   zerolog.Logger
}

// NewService creates a lookup service over the given store.
func NewService(store Store) *Service {
	return &Service{
		store: store,
		log:   logger.With("pyq"),
	}
}

// FindRelated returns up to maxResults questions related to the keywords,
// merged from three query strategies and scored deterministically. An empty
// keyword list or any storage failure yields an empty result.
func (s *Service) FindRelated(ctx context.Context, keywords, topics []string, gsPaper string, maxResults int) []core.ScoredQuestion {
	if len(keywords) == 0 || s.store == nil {
		return nil
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	merged := s.query(ctx, keywords, topics, gsPaper, maxResults)
	return s.scoreAndSort(merged, keywords, maxResults)
}

// query runs the three strategies and merges results, deduplicating by
// question ID. Each strategy fails soft on its own.
func (s *Service) query(ctx context.Context, keywords, topics []string, gsPaper string, limit int) []Question {
	var merged []Question
	seen := make(map[string]bool)

	add := func(rows []Question) {
		for _, row := range rows {
			if row.ID == "" || seen[row.ID] {
				continue
			}
			seen[row.ID] = true
			merged = append(merged, row)
		}
	}

	// Strategy A: topic-tag array overlap
	if len(topics) > 0 {
		rows, err := s.store.ByTopicOverlap(ctx, topics, limit)
		if err != nil {
			s.log.Warn().Err(err).Msg("topic overlap query failed")
		} else {
			add(rows)
		}
	}

	// Strategy B: subject filter derived from the GS paper
	if subjects, ok := GSPaperSubjects[gsPaper]; ok {
		rows, err := s.store.BySubjects(ctx, subjects, limit)
		if err != nil {
			s.log.Warn().Err(err).Msg("subject filter query failed")
		} else {
			add(rows)
		}
	}

	// Strategy C: substring search on the top 3 keywords
	top := keywords
	if len(top) > 3 {
		top = top[:3]
	}
	for _, kw := range top {
		if len(kw) < 3 {
			continue
		}
		rows, err := s.store.ByText(ctx, kw, limit)
		if err != nil {
			s.log.Warn().Err(err).Str("keyword", kw).Msg("text search failed")
			continue
		}
		add(rows)
	}

	return merged
}

// scoreAndSort applies the deterministic scoring formula: 0.3 base, +0.1 per
// keyword found in the question text (cap +0.5), +0.1 for row relevance >= 70,
// +0.1 for year >= 2020, clamped to 1.0.
func (s *Service) scoreAndSort(rows []Question, keywords []string, maxResults int) []core.ScoredQuestion {
	lowered := make([]string, len(keywords))
	for i, kw := range keywords {
		lowered[i] = strings.ToLower(kw)
	}

	scored := make([]core.ScoredQuestion, 0, len(rows))
	for _, row := range rows {
		score := 0.3
		text := strings.ToLower(row.QuestionText)

		hits := 0
		for _, kw := range lowered {
			if kw != "" && strings.Contains(text, kw) {
				hits++
			}
		}
		score += math.Min(float64(hits)*0.1, 0.5)

		if row.UPSCRelevance >= 70 {
			score += 0.1
		}
		if row.Year >= 2020 {
			score += 0.1
		}
		score = math.Min(score, 1.0)

		scored = append(scored, core.ScoredQuestion{
			QuestionID:     row.ID,
			QuestionText:   row.QuestionText,
			Year:           row.Year,
			ExamType:       row.ExamType,
			Subject:        row.Subject,
			Topics:         row.Topics,
			RelevanceScore: math.Round(score*100) / 100,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].RelevanceScore != scored[j].RelevanceScore {
			return scored[i].RelevanceScore > scored[j].RelevanceScore
		}
		return scored[i].Year > scored[j].Year // prefer recent on ties
	})

	if len(scored) > maxResults {
		scored = scored[:maxResults]
	}
	return scored
}

// FormatForCard compacts scored questions into the connections-layer block.
// Question summaries are truncated so cards stay small.
func FormatForCard(questions []core.ScoredQuestion) core.QuestionDigest {
	if len(questions) == 0 {
		return core.QuestionDigest{Related: []core.RelatedQuestion{}, ExamTypes: []string{}}
	}

	related := make([]core.RelatedQuestion, 0, len(questions))
	var years []int
	examTypes := make(map[string]bool)

	for _, q := range questions {
		summary := q.QuestionText
		if len(summary) > summaryLimit {
			summary = summary[:summaryLimit] + "..."
		}
		related = append(related, core.RelatedQuestion{
			Year:            q.Year,
			ExamType:        q.ExamType,
			QuestionSummary: summary,
			Subject:         q.Subject,
		})
		if q.Year != 0 {
			years = append(years, q.Year)
		}
		if q.ExamType != "" {
			examTypes[q.ExamType] = true
		}
	}

	types := make([]string, 0, len(examTypes))
	for et := range examTypes {
		types = append(types, et)
	}
	sort.Strings(types)

	return core.QuestionDigest{
		Related:   related,
		Count:     len(related),
		YearRange: yearRange(years),
		ExamTypes: types,
	}
}

func yearRange(years []int) string {
	if len(years) == 0 {
		return ""
	}
	min, max := years[0], years[0]
	for _, y := range years[1:] {
		if y < min {
			min = y
		}
		if y > max {
			max = y
		}
	}
	if min != max {
		return fmt.Sprintf("%d-%d", min, max)
	}
	return strconv.Itoa(years[0])
}

// Stats summarizes the question table.
type Stats struct {
	TotalCount          int            `json:"total_count"`
	MinYear             int            `json:"min_year"`
	MaxYear             int            `json:"max_year"`
	SubjectDistribution map[string]int `json:"subject_distribution"`
}

// Stats aggregates count, year bounds, and per-subject histogram over the
// full table, failing soft to zero-valued defaults on storage error.
func (s *Service) Stats(ctx context.Context) Stats {
	empty := Stats{SubjectDistribution: map[string]int{}}
	if s.store == nil {
		return empty
	}

	rows, err := s.store.All(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to load question stats")
		return empty
	}
	if len(rows) == 0 {
		return empty
	}

	stats := Stats{
		TotalCount:          len(rows),
		SubjectDistribution: make(map[string]int),
	}
	for _, row := range rows {
		subject := row.Subject
		if subject == "" {
			subject = "Unknown"
		}
		stats.SubjectDistribution[subject]++

		if row.Year == 0 {
			continue
		}
		if stats.MinYear == 0 || row.Year < stats.MinYear {
			stats.MinYear = row.Year
		}
		if row.Year > stats.MaxYear {
			stats.MaxYear = row.Year
		}
	}
	return stats
}
