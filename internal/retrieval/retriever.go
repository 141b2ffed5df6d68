// Package retrieval looks up reference prompts for a query and renders them
// as context for generation.
package retrieval

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ziadkadry99/promptgenie/internal/embeddings"
	"github.com/ziadkadry99/promptgenie/internal/lazy"
	"github.com/ziadkadry99/promptgenie/internal/logging"
	"github.com/ziadkadry99/promptgenie/internal/vectordb"
)

// DefaultTopK is the number of reference chunks retrieved per query.
const DefaultTopK = 10

// NoReferences is the reference block used when nothing was retrieved.
const NoReferences = "No reference prompts found."

const (
	missingText   = "N/A"
	missingSource = "Unknown"
)

// Options configures a Retriever.
type Options struct {
	Namespace string
	TopK      int
}

// Result is the outcome of a retrieval.
type Result struct {
	Matches    []vectordb.Match
	References string   // formatted reference block, NoReferences when empty
	Sources    []string // distinct source paths in first-seen order, never nil
}

// Retriever embeds queries and looks up their nearest reference chunks.
// Both dependencies are resolved on first use.
type Retriever struct {
	embedder  *lazy.Handle[embeddings.Embedder]
	index     *lazy.Handle[vectordb.Index]
	namespace string
	topK      int
	logger    *zap.Logger
}

// New creates a Retriever.
func New(embedder *lazy.Handle[embeddings.Embedder], index *lazy.Handle[vectordb.Index], opts Options, logger *zap.Logger) *Retriever {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.Namespace == "" {
		opts.Namespace = vectordb.DefaultNamespace
	}
	return &Retriever{
		embedder:  embedder,
		index:     index,
		namespace: opts.Namespace,
		topK:      opts.TopK,
		logger:    logging.OrNop(logger),
	}
}

// Retrieve embeds query, fetches the top-K matches and formats them.
func (r *Retriever) Retrieve(ctx context.Context, query string) (*Result, error) {
	matches, err := r.Search(ctx, query, r.topK, nil)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("retrieved references", zap.Int("matches", len(matches)))
	return &Result{
		Matches:    matches,
		References: FormatReferences(matches),
		Sources:    Sources(matches),
	}, nil
}

// Search embeds query and returns up to topK matches. A non-empty filter
// restricts matches by metadata equality.
func (r *Retriever) Search(ctx context.Context, query string, topK int, filter map[string]string) ([]vectordb.Match, error) {
	if r.embedder == nil || r.index == nil {
		return nil, fmt.Errorf("retrieval is not configured")
	}
	if topK <= 0 {
		topK = r.topK
	}

	embedder, err := r.embedder.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load embedder: %w", err)
	}
	index, err := r.index.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect vector index: %w", err)
	}

	vec, err := embeddings.EmbedOne(ctx, embedder, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := index.Query(ctx, vectordb.QueryRequest{
		Vector:          vec,
		TopK:            topK,
		Namespace:       r.namespace,
		IncludeMetadata: true,
		Filter:          filter,
	})
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", index.Name(), err)
	}
	return matches, nil
}

// FormatReferences renders matches as numbered reference entries.
func FormatReferences(matches []vectordb.Match) string {
	if len(matches) == 0 {
		return NoReferences
	}
	var sb strings.Builder
	for i, m := range matches {
		text := m.Metadata.Text
		if text == "" {
			text = missingText
		}
		fmt.Fprintf(&sb, "[Reference %d (Score: %.2f)]:\n%s\n\n", i+1, m.Score, text)
	}
	return sb.String()
}

// Sources returns the distinct source paths of matches in first-seen order.
func Sources(matches []vectordb.Match) []string {
	sources := []string{}
	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		src := m.Metadata.SourcePath
		if src == "" {
			src = missingSource
		}
		if _, ok := seen[src]; ok {
			continue
		}
		seen[src] = struct{}{}
		sources = append(sources, src)
	}
	return sources
}
