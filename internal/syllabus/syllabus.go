// Package syllabus provides deterministic, LLM-free classification of free
// text against the static UPSC syllabus taxonomy. It is safe for unlimited
// concurrent readers: the index is built once at construction and never
// mutated.
package syllabus

import (
	_ "embed"
	"fmt"
	"math"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"prepdeck/internal/core"
)

//go:embed data/upsc_syllabus.yaml
var defaultSyllabus []byte

const (
	// DefaultMinConfidence excludes weak matches from results.
	DefaultMinConfidence = 0.1
	// DefaultMaxResults caps the number of matches returned.
	DefaultMaxResults = 10
)

// Taxonomy is the static syllabus document: papers, topics, sub-topics, and
// keyword lists.
type Taxonomy struct {
	Version int              `yaml:"version"`
	Papers  map[string]Paper `yaml:"papers"`
}

// Paper is one top-level subject category (GS1..GS4).
type Paper struct {
	Name   string  `yaml:"name"`
	Topics []Topic `yaml:"topics"`
}

// Topic groups related sub-topics within a paper.
type Topic struct {
	Name      string     `yaml:"name"`
	SubTopics []SubTopic `yaml:"sub_topics"`
}

// SubTopic is the classification unit: a named syllabus entry with the
// keywords that identify it.
type SubTopic struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// indexEntry is one flattened sub-topic with its fully-qualified path and a
// pre-lowered keyword set.
type indexEntry struct {
	paper    string
	topic    string
	subTopic string
	keywords []string
}

// Service matches free text against the loaded taxonomy.
type Service struct {
	taxonomy Taxonomy
	index    []indexEntry
}

var tokenPattern = regexp.MustCompile(`[a-z0-9]+(?:[-'][a-z0-9]+)*`)

// New loads the taxonomy from path, or the embedded default syllabus when
// path is empty.
func New(path string) (*Service, error) {
	raw := defaultSyllabus
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read syllabus file: %w", err)
		}
		raw = data
	}

	var tax Taxonomy
	if err := yaml.Unmarshal(raw, &tax); err != nil {
		return nil, fmt.Errorf("failed to parse syllabus: %w", err)
	}
	if len(tax.Papers) == 0 {
		return nil, fmt.Errorf("syllabus has no papers")
	}

	s := &Service{taxonomy: tax}
	for paperID, paper := range tax.Papers {
		for _, topic := range paper.Topics {
			for _, sub := range topic.SubTopics {
				keywords := make([]string, 0, len(sub.Keywords))
				for _, kw := range sub.Keywords {
					keywords = append(keywords, strings.ToLower(kw))
				}
				s.index = append(s.index, indexEntry{
					paper:    paperID,
					topic:    topic.Name,
					subTopic: sub.Name,
					keywords: keywords,
				})
			}
		}
	}

	// Deterministic match order regardless of map iteration
	sort.Slice(s.index, func(i, j int) bool {
		if s.index[i].paper != s.index[j].paper {
			return s.index[i].paper < s.index[j].paper
		}
		if s.index[i].topic != s.index[j].topic {
			return s.index[i].topic < s.index[j].topic
		}
		return s.index[i].subTopic < s.index[j].subTopic
	})

	return s, nil
}

// MatchTopics returns syllabus sub-topics matching text, sorted by
// descending confidence and truncated to maxResults.
//
// A keyword hits when every one of its tokens appears in the text (multi-word
// keywords require all words present, not phrase adjacency). Each hit
// contributes 1.0 plus a term-frequency bonus capped at 1.0; confidence is
// the weighted hit total normalized by the sub-topic's keyword count, with a
// bonus of up to 0.15 for overlap with caller-supplied extraKeywords.
// Sub-topics with no raw hits are excluded entirely.
func (s *Service) MatchTopics(text string, extraKeywords []string, minConfidence float64, maxResults int) []core.SyllabusMatch {
	tokens := tokenize(text)
	freq := make(map[string]int, len(tokens))
	for _, t := range tokens {
		freq[t]++
	}

	extra := make(map[string]bool)
	for _, kw := range extraKeywords {
		for _, t := range tokenize(kw) {
			extra[t] = true
		}
	}

	var results []core.SyllabusMatch
	for _, entry := range s.index {
		if len(entry.keywords) == 0 {
			continue
		}

		weightedHits := 0.0
		rawHits := 0
		extraOverlap := 0
		for _, kw := range entry.keywords {
			if extra[kw] {
				extraOverlap++
			}
			kwTokens := strings.Fields(kw)
			maxFreq := 0
			hit := true
			for _, t := range kwTokens {
				f, ok := freq[t]
				if !ok {
					hit = false
					break
				}
				if f > maxFreq {
					maxFreq = f
				}
			}
			if hit && len(kwTokens) > 0 {
				rawHits++
				weightedHits += 1.0 + math.Min(float64(maxFreq)/5.0, 1.0)
			}
		}

		if rawHits == 0 {
			continue
		}

		confidence := weightedHits / float64(len(entry.keywords))
		if len(extra) > 0 && extraOverlap > 0 {
			confidence += 0.15 * (float64(extraOverlap) / float64(len(extra)))
		}
		confidence = math.Min(confidence, 1.0)

		if confidence < minConfidence {
			continue
		}

		results = append(results, core.SyllabusMatch{
			Paper:      entry.paper,
			Topic:      entry.topic,
			SubTopic:   entry.subTopic,
			Confidence: math.Round(confidence*10000) / 10000,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Confidence > results[j].Confidence
	})
	if maxResults > 0 && len(results) > maxResults {
		results = results[:maxResults]
	}
	return results
}

// Match runs MatchTopics with the default thresholds.
func (s *Service) Match(text string, extraKeywords []string) []core.SyllabusMatch {
	return s.MatchTopics(text, extraKeywords, DefaultMinConfidence, DefaultMaxResults)
}

// PaperTopics returns all topics with sub-topics for a paper ID. Unknown
// paper IDs yield nil rather than an error; paper IDs arrive from users and
// LLM output.
func (s *Service) PaperTopics(paperID string) []Topic {
	paper, ok := s.taxonomy.Papers[paperID]
	if !ok {
		return nil
	}
	return paper.Topics
}

// AllKeywords returns the deduplicated lowercase keyword set across all
// papers.
func (s *Service) AllKeywords() map[string]bool {
	kws := make(map[string]bool)
	for _, entry := range s.index {
		for _, kw := range entry.keywords {
			kws[kw] = true
		}
	}
	return kws
}

// tokenize lowercases and splits on non-alphanumeric boundaries, keeping
// hyphen/apostrophe-joined compounds as single tokens.
func tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}
