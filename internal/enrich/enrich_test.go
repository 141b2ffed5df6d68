package enrich

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/promptgenie/internal/llm"
)

type summarizerFunc func(ctx context.Context, text string) (string, error)

func (f summarizerFunc) Summarize(ctx context.Context, text string) (string, error) {
	return f(ctx, text)
}

type extractorFunc func(ctx context.Context, text string, n int) ([]string, error)

func (f extractorFunc) Extract(ctx context.Context, text string, n int) ([]string, error) {
	return f(ctx, text, n)
}

// topicEmbedder maps any text mentioning "code" to one axis and everything
// else to the other.
type topicEmbedder struct{ err error }

func (topicEmbedder) Name() string    { return "topic" }
func (topicEmbedder) Dimensions() int { return 2 }

func (e topicEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if strings.Contains(strings.ToLower(t), "code") {
			out[i] = []float32{1, 0}
		} else {
			out[i] = []float32{0, 1}
		}
	}
	return out, nil
}

type stubProvider struct {
	content string
	err     error
	got     llm.CompletionRequest
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	s.got = req
	if s.err != nil {
		return nil, s.err
	}
	return &llm.CompletionResponse{Content: s.content}, nil
}

func TestEnrichAppliesPrefixLimits(t *testing.T) {
	var summaryInput, keywordInput string
	e := New(
		summarizerFunc(func(_ context.Context, text string) (string, error) {
			summaryInput = text
			return "a summary", nil
		}),
		extractorFunc(func(_ context.Context, text string, n int) ([]string, error) {
			keywordInput = text
			assert.Equal(t, 5, n)
			return []string{"k1", "k2"}, nil
		}),
		Options{},
		nil,
	)

	content := strings.Repeat("x", 5000)
	res := e.Enrich(context.Background(), content)

	assert.Len(t, summaryInput, 2500)
	assert.Len(t, keywordInput, 4000)
	assert.Equal(t, Metadata{Summary: "a summary", Keywords: []string{"k1", "k2"}}, res.Metadata)
	assert.False(t, res.Failed())
	require.Len(t, res.Stages, 2)
}

func TestEnrichSummaryFailureKeepsKeywords(t *testing.T) {
	e := New(
		summarizerFunc(func(context.Context, string) (string, error) {
			return "partial", errors.New("model unavailable")
		}),
		FrequencyKeywordExtractor{},
		Options{KeywordCount: 2},
		nil,
	)

	res := e.Enrich(context.Background(), "Agents call tools. Agents call tools often.")
	assert.True(t, res.Failed())
	assert.Empty(t, res.Metadata.Summary)
	assert.Equal(t, []string{"agents", "agents call"}, res.Metadata.Keywords)
	assert.Error(t, res.Stages[0].Err)
	assert.NoError(t, res.Stages[1].Err)
}

func TestEnrichKeywordPanicIsIsolated(t *testing.T) {
	e := New(
		summarizerFunc(func(context.Context, string) (string, error) { return "ok", nil }),
		extractorFunc(func(context.Context, string, int) ([]string, error) { panic("boom") }),
		Options{},
		nil,
	)

	res := e.Enrich(context.Background(), "text")
	assert.Equal(t, "ok", res.Metadata.Summary)
	assert.Equal(t, []string{}, res.Metadata.Keywords)
	require.Error(t, res.Stages[1].Err)
	assert.Contains(t, res.Stages[1].Err.Error(), "boom")
}

func TestEnrichSkippedStages(t *testing.T) {
	res := New(nil, nil, Options{}, nil).Enrich(context.Background(), "text")
	assert.False(t, res.Failed())
	assert.Equal(t, Metadata{Keywords: []string{}}, res.Metadata)
	for _, s := range res.Stages {
		assert.True(t, s.Skipped)
	}
}

func TestEmbeddingKeywordExtractorRanksBySimilarity(t *testing.T) {
	x := NewEmbeddingKeywordExtractor(topicEmbedder{})
	kws, err := x.Extract(context.Background(), "Write clean code. Review code changes. Bananas are yellow.", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"code", "clean code"}, kws)
}

func TestEmbeddingKeywordExtractorEdgeCases(t *testing.T) {
	x := NewEmbeddingKeywordExtractor(topicEmbedder{})

	kws, err := x.Extract(context.Background(), "the and of", 5)
	require.NoError(t, err)
	assert.Empty(t, kws)

	_, err = NewEmbeddingKeywordExtractor(topicEmbedder{err: errors.New("offline")}).Extract(context.Background(), "code review", 5)
	assert.Error(t, err)
}

func TestCandidatesDropStopWords(t *testing.T) {
	var phrases []string
	for _, c := range candidates("You are a Coding assistant") {
		phrases = append(phrases, c.phrase)
	}
	assert.Equal(t, []string{"coding", "coding assistant", "assistant"}, phrases)
}

func TestFrequencySummarizer(t *testing.T) {
	s := NewFrequencySummarizer(1)
	text := "The weather is nice. Agents use tools and tools help agents. Lunch was fine."
	got, err := s.Summarize(context.Background(), text)
	require.NoError(t, err)
	assert.Equal(t, "Agents use tools and tools help agents.", got)

	got, err = s.Summarize(context.Background(), "no  punctuation\nhere")
	require.NoError(t, err)
	assert.Equal(t, "no punctuation here", got)
}

func TestLLMSummarizer(t *testing.T) {
	p := &stubProvider{content: "  \"A coding agent prompt.\"\n"}
	s := NewLLMSummarizer(p, "summary-model")

	got, err := s.Summarize(context.Background(), "You are a coding agent.")
	require.NoError(t, err)
	assert.Equal(t, "A coding agent prompt.", got)
	assert.Equal(t, "summary-model", p.got.Model)
	require.Len(t, p.got.Messages, 2)
	assert.Equal(t, "You are a coding agent.", p.got.Messages[1].Content)

	p.content = "   "
	_, err = s.Summarize(context.Background(), "x")
	assert.Error(t, err)

	p.err = errors.New("unreachable")
	_, err = s.Summarize(context.Background(), "x")
	assert.Error(t, err)
}

func TestPrefix(t *testing.T) {
	assert.Equal(t, "héll", Prefix("héllo", 4))
	assert.True(t, utf8.ValidString(Prefix("日本語テキスト", 3)))
	assert.Equal(t, "日本語", Prefix("日本語テキスト", 3))
	assert.Equal(t, "short", Prefix("short", 100))
	assert.Equal(t, "unbounded", Prefix("unbounded", 0))
}
