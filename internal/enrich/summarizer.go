package enrich

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ziadkadry99/promptgenie/internal/llm"
)

// Summarizer produces a short abstract of a document.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

const summarySystemPrompt = `You summarize AI system prompts for a search index. Given a system prompt, write a neutral summary of 30 to 130 words describing who the assistant is, what it does, and any notable rules or tools. Reply with the summary text only, without a preamble or quotation marks.`

// LLMSummarizer asks a chat model for an abstractive summary.
type LLMSummarizer struct {
	provider llm.Provider
	model    string
}

// NewLLMSummarizer creates a summarizer backed by provider. An empty model
// uses the provider default.
func NewLLMSummarizer(provider llm.Provider, model string) *LLMSummarizer {
	return &LLMSummarizer{provider: provider, model: model}
}

func (s *LLMSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	resp, err := s.provider.Complete(ctx, llm.CompletionRequest{
		Model:       s.model,
		Messages:    []llm.Message{llm.System(summarySystemPrompt), llm.User(text)},
		MaxTokens:   300,
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("summary completion: %w", err)
	}

	summary := strings.Trim(strings.TrimSpace(resp.Content), `"`)
	if summary == "" {
		return "", errors.New("summary completion returned no text")
	}
	return summary, nil
}

// FrequencySummarizer is an extractive summarizer: it keeps the sentences
// whose non-stop-words are most frequent in the document.
type FrequencySummarizer struct {
	maxSentences int
}

// NewFrequencySummarizer keeps at most maxSentences sentences (default 3).
func NewFrequencySummarizer(maxSentences int) *FrequencySummarizer {
	if maxSentences <= 0 {
		maxSentences = 3
	}
	return &FrequencySummarizer{maxSentences: maxSentences}
}

func (s *FrequencySummarizer) Summarize(_ context.Context, text string) (string, error) {
	sentences := sentencePattern.FindAllString(text, -1)
	if len(sentences) == 0 {
		return strings.Join(strings.Fields(text), " "), nil
	}

	freq := map[string]float64{}
	maxF := 0.0
	for _, w := range words(text) {
		if isStopWord(w) {
			continue
		}
		freq[w]++
		maxF = math.Max(maxF, freq[w])
	}

	if maxF == 0 {
		maxF = 1
	}

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(sentences))
	for i, sent := range sentences {
		toks := words(sent)
		total := 0.0
		for _, tok := range toks {
			total += freq[tok] / maxF
		}
		// Dampen the advantage of long sentences.
		if len(toks) > 0 {
			total /= math.Sqrt(float64(len(toks)))
		}
		scores[i] = scored{idx: i, score: total}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	n := min(s.maxSentences, len(scores))
	selected := make([]int, n)
	for i := 0; i < n; i++ {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)

	out := make([]string, n)
	for i, idx := range selected {
		out[i] = strings.Join(strings.Fields(sentences[idx]), " ")
	}
	return strings.Join(out, " "), nil
}
