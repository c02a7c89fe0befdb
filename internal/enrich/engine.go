// Package enrich implements the two-pass enrichment engine that turns raw
// articles into five-layer knowledge cards: Pass 1 scores relevance and
// matches the syllabus, Pass 2 assembles the full card with deterministic
// cross-references.
package enrich

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"prepdeck/internal/core"
	"prepdeck/internal/llm"
	"prepdeck/internal/logger"
	"prepdeck/internal/pyq"
	"prepdeck/internal/syllabus"
)

// DefaultRelevanceThreshold filters articles below this Pass 1 score unless
// their source is must-know.
const DefaultRelevanceThreshold = 40

// DefaultMustKnowSources is the fixed allow-list of (site, section) pairs
// whose articles always bypass the relevance filter.
var DefaultMustKnowSources = map[core.Source]bool{
	{Site: "indianexpress", Section: "explained"}:  true,
	{Site: "indianexpress", Section: "editorials"}: true,
	{Site: "hindu", Section: "editorial"}:          true,
	{Site: "hindu", Section: "opinion"}:            true,
}

// Options configures an Engine. Zero values select the defaults.
type Options struct {
	RelevanceThreshold int
	MustKnowSources    map[core.Source]bool
	BatchSize          int
}

// Engine orchestrates Pass 1, Pass 2, and triage. It owns its matcher and
// question-lookup references; there are no hidden process-wide singletons.
type Engine struct {
	client    llm.Client
	syllabus  *syllabus.Service
	questions *pyq.Service
	threshold int
	mustKnow  map[core.Source]bool
	batchSize int
	log       zerolog.Logger
}

// New creates an enrichment engine.
func New(client llm.Client, syl *syllabus.Service, questions *pyq.Service, opts Options) *Engine {
	threshold := opts.RelevanceThreshold
	if threshold <= 0 {
		threshold = DefaultRelevanceThreshold
	}
	mustKnow := opts.MustKnowSources
	if mustKnow == nil {
		mustKnow = DefaultMustKnowSources
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Engine{
		client:    client,
		syllabus:  syl,
		questions: questions,
		threshold: threshold,
		mustKnow:  mustKnow,
		batchSize: batchSize,
		log:       logger.With("enrich"),
	}
}

// llmInput builds the Pass 1/Pass 2 content block, falling back to the title
// when the article body is empty so the model never receives an empty body.
func llmInput(article core.RawArticle) string {
	content := article.Content
	if content == "" {
		content = article.Title
	}
	return fmt.Sprintf("Title: %s\n\nContent: %s", article.Title, content)
}

// RunPass1 scores one article for relevance, extracts category and key
// topics, and attaches deterministic syllabus matches. There is no fallback:
// an LLM failure aborts this article.
func (e *Engine) RunPass1(ctx context.Context, article core.RawArticle) (core.EnrichmentResult, error) {
	if article.Content == "" {
		e.log.Warn().Str("title", article.Title).Msg("article has no content, using title only")
	}

	analysis, err := llm.Analyze(ctx, e.client, llmInput(article))
	if err != nil {
		return core.EnrichmentResult{}, fmt.Errorf("pass 1 failed for %q: %w", article.Title, err)
	}

	return e.buildResult(article, analysis.UPSCRelevance, analysis.RelevantPapers,
		analysis.KeyTopics, analysis.Summary), nil
}

// buildResult assembles an EnrichmentResult from Pass 1 fields, applying the
// GS2 category default and running the taxonomy matcher.
func (e *Engine) buildResult(article core.RawArticle, relevance int, papers, keyTopics []string, summary string) core.EnrichmentResult {
	gsPaper := "GS2"
	if len(papers) > 0 {
		gsPaper = papers[0]
	}

	matches := e.syllabus.Match(article.Title+" "+article.Content, keyTopics)

	return core.EnrichmentResult{
		UPSCRelevance:   relevance,
		GSPaper:         gsPaper,
		KeyFacts:        keyTopics,
		Keywords:        keyTopics,
		SyllabusMatches: matches,
		RawPass1: map[string]any{
			"upsc_relevance":  relevance,
			"relevant_papers": papers,
			"key_topics":      keyTopics,
			"summary":         summary,
		},
	}
}

// CardLayers is the Pass 2 output: the four LLM-authored layers plus the
// engine-assembled connections layer.
type CardLayers struct {
	Headline    string
	Facts       []string
	Context     string
	Connections core.ConnectionsLayer
	MainsAngle  string
}

// RunPass2 generates the remaining card layers. Related historical questions
// and syllabus matches are rendered into the prompt as grounding context, but
// the connections layer itself is built only from the deterministic data;
// cross-references that could be hallucinated never come from the model.
func (e *Engine) RunPass2(ctx context.Context, article core.RawArticle, pass1 core.EnrichmentResult) (CardLayers, error) {
	related := e.questions.FindRelated(ctx, pass1.Keywords, pass1.Keywords, pass1.GSPaper, pyq.DefaultMaxResults)
	digest := pyq.FormatForCard(related)

	draft, err := llm.GenerateCard(ctx, e.client, llmInput(article),
		e.pass2Instructions(article, pass1, digest))
	if err != nil {
		return CardLayers{}, fmt.Errorf("pass 2 failed for %q: %w", article.Title, err)
	}

	return CardLayers{
		Headline: draft.HeadlineLayer,
		Facts:    draft.FactsLayer,
		Context:  draft.ContextLayer,
		Connections: core.ConnectionsLayer{
			SyllabusTopics: pass1.SyllabusMatches,
			RelatedPYQs:    digest.Related,
			PYQCount:       digest.Count,
			YearRange:      digest.YearRange,
		},
		MainsAngle: draft.MainsAngleLayer,
	}, nil
}

func (e *Engine) pass2Instructions(article core.RawArticle, pass1 core.EnrichmentResult, digest core.QuestionDigest) string {
	var syllabusParts []string
	for i, m := range pass1.SyllabusMatches {
		if i >= 5 {
			break
		}
		syllabusParts = append(syllabusParts, fmt.Sprintf("%s/%s/%s", m.Paper, m.Topic, m.SubTopic))
	}
	syllabusContext := strings.Join(syllabusParts, ", ")
	if syllabusContext == "" {
		syllabusContext = "No syllabus matches"
	}

	var pyqLines []string
	for i, q := range digest.Related {
		if i >= 3 {
			break
		}
		pyqLines = append(pyqLines, fmt.Sprintf("- [%d %s] %s", q.Year, q.ExamType, q.QuestionSummary))
	}
	pyqContext := strings.Join(pyqLines, "\n")
	if pyqContext == "" {
		pyqContext = "No related questions found"
	}

	summary, _ := pass1.RawPass1["summary"].(string)

	return fmt.Sprintf(
		"Article title: %s\nGS Paper: %s\nKey topics: %s\nSummary: %s\n\nPYQ Context:\n%s\n\nSyllabus Context:\n%s",
		article.Title,
		pass1.GSPaper,
		strings.Join(pass1.Keywords, ", "),
		summary,
		pyqContext,
		syllabusContext,
	)
}

// IsMustKnow reports whether the article's source is in the allow-list.
func (e *Engine) IsMustKnow(article core.RawArticle) bool {
	return e.mustKnow[core.Source{Site: article.SourceSite, Section: article.Section}]
}

// ComputeTriage classifies priority deterministically, in this order:
// relevance >= 80 is must_know, then an allow-listed source is must_know,
// then relevance >= 65 is should_know, otherwise good_to_know.
func (e *Engine) ComputeTriage(pass1 core.EnrichmentResult, article core.RawArticle) core.Triage {
	if pass1.UPSCRelevance >= 80 {
		return core.TriageMustKnow
	}
	if e.IsMustKnow(article) {
		return core.TriageMustKnow
	}
	if pass1.UPSCRelevance >= 65 {
		return core.TriageShouldKnow
	}
	return core.TriageGoodToKnow
}

// ProcessArticle runs the full pipeline for one article. A nil card with a
// nil error means the article was filtered below the relevance threshold,
// a normal outcome rather than a failure. Must-know sources bypass the filter
// unconditionally.
func (e *Engine) ProcessArticle(ctx context.Context, article core.RawArticle) (*core.KnowledgeCard, error) {
	e.log.Info().Str("title", article.Title).Msg("processing article")

	pass1, err := e.RunPass1(ctx, article)
	if err != nil {
		return nil, err
	}
	return e.CompleteFromPass1(ctx, article, pass1)
}

// CompleteFromPass1 applies the relevance filter, runs Pass 2, and triages,
// starting from an already-computed Pass 1 result (the batch path). The
// nil-card/nil-error contract matches ProcessArticle.
func (e *Engine) CompleteFromPass1(ctx context.Context, article core.RawArticle, pass1 core.EnrichmentResult) (*core.KnowledgeCard, error) {
	if e.IsMustKnow(article) {
		e.log.Info().Str("title", article.Title).Msg("must-know source, bypassing threshold")
	} else if pass1.UPSCRelevance < e.threshold {
		e.log.Info().
			Str("title", article.Title).
			Int("relevance", pass1.UPSCRelevance).
			Int("threshold", e.threshold).
			Msg("filtered below relevance threshold")
		return nil, nil
	}

	layers, err := e.RunPass2(ctx, article, pass1)
	if err != nil {
		return nil, err
	}

	triage := e.ComputeTriage(pass1, article)
	card := &core.KnowledgeCard{
		RawArticle:       article,
		EnrichmentResult: pass1,
		HeadlineLayer:    layers.Headline,
		FactsLayer:       layers.Facts,
		ContextLayer:     layers.Context,
		Connections:      layers.Connections,
		MainsAngleLayer:  layers.MainsAngle,
		PriorityTriage:   triage,
	}

	e.log.Info().
		Str("title", article.Title).
		Str("triage", string(triage)).
		Int("relevance", pass1.UPSCRelevance).
		Msg("article enriched")
	return card, nil
}
