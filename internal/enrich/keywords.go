package enrich

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/ziadkadry99/promptgenie/internal/embeddings"
)

// maxCandidates caps how many phrases are embedded per document.
const maxCandidates = 200

// KeywordExtractor picks the top n key phrases of a document.
type KeywordExtractor interface {
	Extract(ctx context.Context, text string, n int) ([]string, error)
}

// EmbeddingKeywordExtractor ranks candidate 1-2 word phrases by the cosine
// similarity of their embedding to the embedding of the whole document.
type EmbeddingKeywordExtractor struct {
	embedder embeddings.Embedder
}

// NewEmbeddingKeywordExtractor creates an extractor using embedder.
func NewEmbeddingKeywordExtractor(embedder embeddings.Embedder) *EmbeddingKeywordExtractor {
	return &EmbeddingKeywordExtractor{embedder: embedder}
}

func (e *EmbeddingKeywordExtractor) Extract(ctx context.Context, text string, n int) ([]string, error) {
	cands := topByCount(candidates(text), maxCandidates)
	if len(cands) == 0 || n <= 0 {
		return []string{}, nil
	}

	inputs := make([]string, 0, len(cands)+1)
	inputs = append(inputs, text)
	for _, c := range cands {
		inputs = append(inputs, c.phrase)
	}

	vecs, err := e.embedder.Embed(ctx, inputs)
	if err != nil {
		return nil, fmt.Errorf("embedding keyword candidates: %w", err)
	}
	if len(vecs) != len(inputs) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d inputs", len(vecs), len(inputs))
	}

	doc := vecs[0]
	type scored struct {
		phrase string
		score  float64
	}
	ranked := make([]scored, len(cands))
	for i, c := range cands {
		ranked[i] = scored{phrase: c.phrase, score: cosine(doc, vecs[i+1])}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	out := make([]string, 0, n)
	for _, r := range ranked[:min(n, len(ranked))] {
		out = append(out, r.phrase)
	}
	return out, nil
}

// FrequencyKeywordExtractor returns the most frequent candidate phrases.
// It needs no model.
type FrequencyKeywordExtractor struct{}

func (FrequencyKeywordExtractor) Extract(_ context.Context, text string, n int) ([]string, error) {
	out := []string{}
	for _, c := range topByCount(candidates(text), n) {
		out = append(out, c.phrase)
	}
	return out, nil
}

// topByCount returns the n most frequent candidates, earlier first on ties.
func topByCount(cands []candidate, n int) []candidate {
	sorted := append([]candidate(nil), cands...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].count != sorted[j].count {
			return sorted[i].count > sorted[j].count
		}
		return sorted[i].first < sorted[j].first
	})
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
