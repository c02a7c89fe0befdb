package enrich

import (
	"context"
	"math"
	"math/rand"

	"prepdeck/internal/core"
	"prepdeck/internal/llm"
)

// DefaultBatchSize is the number of articles scored per batch call.
const DefaultBatchSize = 10

// consensusShuffleSeed fixes the Pass B ordering so a rerun over the same
// article set produces the same permutation.
const consensusShuffleSeed = 42

// batchContentLimit truncates article bodies in batch payloads to keep the
// combined prompt within model limits.
const batchContentLimit = 2000

// BatchResult pairs an article with its consensus Pass 1 result.
type BatchResult struct {
	Article core.RawArticle
	Result  core.EnrichmentResult
}

// RunPass1Batch scores articles in batches, calling the model twice per batch
// with different article orderings and averaging the two scores. Re-ordering
// counteracts position bias: models tend to score items differently depending
// on where they sit in the list.
//
// Batches that fail both the initial attempt and one retry degrade
// asymmetrically: must-know articles are re-scored individually, the rest are
// dropped. Articles absent from both passes of a successful batch are dropped
// as well. The output preserves input order for the articles that survive.
func (e *Engine) RunPass1Batch(ctx context.Context, articles []core.RawArticle) []BatchResult {
	if len(articles) == 0 {
		return nil
	}

	rng := rand.New(rand.NewSource(consensusShuffleSeed))

	var results []BatchResult
	for start := 0; start < len(articles); start += e.batchSize {
		end := start + e.batchSize
		if end > len(articles) {
			end = len(articles)
		}
		results = append(results, e.scoreBatch(ctx, articles[start:end], rng)...)
	}
	return results
}

func (e *Engine) scoreBatch(ctx context.Context, batch []core.RawArticle, rng *rand.Rand) []BatchResult {
	items := make([]llm.BatchItem, len(batch))
	for i, article := range batch {
		content := article.Content
		if content == "" {
			content = article.Title
		}
		if len(content) > batchContentLimit {
			content = content[:batchContentLimit]
		}
		items[i] = llm.BatchItem{
			ArticleID: article.ArticleID(),
			Title:     article.Title,
			Content:   content,
		}
	}

	shuffled := make([]llm.BatchItem, len(items))
	copy(shuffled, items)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	passA, passB, err := e.runBothPasses(ctx, items, shuffled)
	if err != nil {
		e.log.Warn().Err(err).Int("batch_size", len(batch)).Msg("batch scoring failed, retrying once")
		passA, passB, err = e.runBothPasses(ctx, items, shuffled)
	}
	if err != nil {
		e.log.Error().Err(err).Int("batch_size", len(batch)).
			Msg("batch scoring failed after retry, recovering must-know articles individually")
		return e.recoverMustKnow(ctx, batch)
	}

	return e.reconcile(batch, passA, passB)
}

// runBothPasses makes the two scoring calls sequentially. Either failure
// fails the batch as a whole.
func (e *Engine) runBothPasses(ctx context.Context, original, shuffled []llm.BatchItem) (map[string]llm.BatchScore, map[string]llm.BatchScore, error) {
	respA, err := llm.AnalyzeBatch(ctx, e.client, original)
	if err != nil {
		return nil, nil, err
	}
	respB, err := llm.AnalyzeBatch(ctx, e.client, shuffled)
	if err != nil {
		return nil, nil, err
	}
	return indexScores(respA), indexScores(respB), nil
}

func indexScores(resp *llm.BatchAnalysis) map[string]llm.BatchScore {
	byID := make(map[string]llm.BatchScore, len(resp.Articles))
	for _, score := range resp.Articles {
		byID[score.ArticleID] = score
	}
	return byID
}

// reconcile merges the two passes per article: the score is the rounded mean
// of both passes (or the single available score), non-numeric fields come
// from Pass A when present. Articles missing from both passes are dropped.
func (e *Engine) reconcile(batch []core.RawArticle, passA, passB map[string]llm.BatchScore) []BatchResult {
	var results []BatchResult
	for _, article := range batch {
		id := article.ArticleID()
		scoreA, okA := passA[id]
		scoreB, okB := passB[id]

		var relevance int
		var chosen llm.BatchScore
		switch {
		case okA && okB:
			relevance = int(math.Round(float64(scoreA.UPSCRelevance+scoreB.UPSCRelevance) / 2.0))
			chosen = scoreA
			if diff := scoreA.UPSCRelevance - scoreB.UPSCRelevance; diff > 20 || diff < -20 {
				e.log.Warn().Str("article_id", id).
					Int("pass_a", scoreA.UPSCRelevance).
					Int("pass_b", scoreB.UPSCRelevance).
					Msg("large score divergence between passes")
			}
		case okA:
			relevance = scoreA.UPSCRelevance
			chosen = scoreA
		case okB:
			relevance = scoreB.UPSCRelevance
			chosen = scoreB
		default:
			e.log.Warn().Str("article_id", id).Str("title", article.Title).
				Msg("article missing from both scoring passes, dropping")
			continue
		}

		results = append(results, BatchResult{
			Article: article,
			Result: e.buildResult(article, relevance, chosen.RelevantPapers,
				chosen.KeyTopics, chosen.Summary),
		})
	}
	return results
}

// recoverMustKnow is the fallback for a batch that failed twice: must-know
// articles get an individual scoring call each, everything else is dropped.
func (e *Engine) recoverMustKnow(ctx context.Context, batch []core.RawArticle) []BatchResult {
	var results []BatchResult
	dropped := 0
	for _, article := range batch {
		if !e.IsMustKnow(article) {
			dropped++
			continue
		}
		result, err := e.RunPass1(ctx, article)
		if err != nil {
			e.log.Error().Err(err).Str("title", article.Title).
				Msg("individual recovery failed for must-know article")
			continue
		}
		results = append(results, BatchResult{Article: article, Result: result})
	}
	if dropped > 0 {
		e.log.Warn().Int("dropped", dropped).Msg("dropped non-must-know articles from failed batch")
	}
	return results
}
