package selector

import (
	"math"
	"regexp"
	"strings"
)

var wordPattern = regexp.MustCompile(`[a-z0-9]+`)

// tfidfVectors builds L2-normalized TF-IDF vectors over the documents,
// returned as sparse term-to-weight maps. The second return value is false when
// the corpus is degenerate (no document produced any token), which callers
// treat as "skip similarity entirely".
func tfidfVectors(docs []string) ([]map[string]float64, bool) {
	tokenized := make([][]string, len(docs))
	docFreq := make(map[string]int)
	anyTokens := false

	for i, doc := range docs {
		tokens := wordPattern.FindAllString(strings.ToLower(doc), -1)
		tokenized[i] = tokens
		if len(tokens) > 0 {
			anyTokens = true
		}
		seen := make(map[string]bool)
		for _, tok := range tokens {
			if !seen[tok] {
				seen[tok] = true
				docFreq[tok]++
			}
		}
	}
	if !anyTokens {
		return nil, false
	}

	n := float64(len(docs))
	vectors := make([]map[string]float64, len(docs))
	for i, tokens := range tokenized {
		counts := make(map[string]int)
		for _, tok := range tokens {
			counts[tok]++
		}

		vec := make(map[string]float64, len(counts))
		var norm float64
		for tok, count := range counts {
			idf := math.Log((1+n)/(1+float64(docFreq[tok]))) + 1
			w := float64(count) * idf
			vec[tok] = w
			norm += w * w
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for tok := range vec {
				vec[tok] /= norm
			}
		}
		vectors[i] = vec
	}
	return vectors, true
}

// cosine returns the cosine similarity of two L2-normalized sparse vectors.
func cosine(a, b map[string]float64) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var dot float64
	for tok, wa := range a {
		if wb, ok := b[tok]; ok {
			dot += wa * wb
		}
	}
	return dot
}
