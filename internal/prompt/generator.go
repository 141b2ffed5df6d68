// Package prompt generates clarifying questions and final system prompts.
package prompt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ziadkadry99/promptgenie/internal/llm"
	"github.com/ziadkadry99/promptgenie/internal/logging"
	"github.com/ziadkadry99/promptgenie/internal/retrieval"
)

// Sampling defaults.
const (
	DefaultQuestionsTemperature = 0.3
	DefaultQuestionsMaxTokens   = 1024
	DefaultFinalTemperature     = 0.25
	DefaultFinalMaxTokens       = 32768
)

const blankAnswer = "N/A"

// Retriever supplies reference prompts for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string) (*retrieval.Result, error)
}

// Options holds the model and sampling parameters. Temperatures are sent as
// given, so 0 means greedy decoding; start from DefaultOptions to get the
// defaults above. Non-positive token limits take the defaults.
type Options struct {
	Model                string
	QuestionsTemperature float64
	QuestionsMaxTokens   int
	FinalTemperature     float64
	FinalMaxTokens       int
}

// DefaultOptions returns Options populated with the default sampling
// parameters.
func DefaultOptions() Options {
	return Options{
		QuestionsTemperature: DefaultQuestionsTemperature,
		QuestionsMaxTokens:   DefaultQuestionsMaxTokens,
		FinalTemperature:     DefaultFinalTemperature,
		FinalMaxTokens:       DefaultFinalMaxTokens,
	}
}

func (o Options) withDefaults() Options {
	if o.QuestionsMaxTokens <= 0 {
		o.QuestionsMaxTokens = DefaultQuestionsMaxTokens
	}
	if o.FinalMaxTokens <= 0 {
		o.FinalMaxTokens = DefaultFinalMaxTokens
	}
	return o
}

// Generator runs the two generation operations. It is safe for concurrent use.
type Generator struct {
	provider  llm.Provider
	retriever Retriever
	opts      Options
	logger    *zap.Logger
}

// NewGenerator creates a Generator. A nil retriever means every final prompt
// is generated without references.
func NewGenerator(provider llm.Provider, retriever Retriever, opts Options, logger *zap.Logger) *Generator {
	return &Generator{
		provider:  provider,
		retriever: retriever,
		opts:      opts.withDefaults(),
		logger:    logging.OrNop(logger),
	}
}

// AnalyzeQuery asks the model for clarifying questions about query.
func (g *Generator) AnalyzeQuery(ctx context.Context, query string) ([]FollowUpQuestion, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is empty", ErrInvalidRequest)
	}

	start := time.Now()
	resp, err := g.provider.Complete(ctx, llm.CompletionRequest{
		Model:       g.opts.Model,
		Messages:    []llm.Message{llm.System(questionsSystemPrompt), llm.User(query)},
		MaxTokens:   g.opts.QuestionsMaxTokens,
		Temperature: g.opts.QuestionsTemperature,
		JSONMode:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	if strings.TrimSpace(resp.Content) == "" {
		return nil, fmt.Errorf("%w: empty response from %s", ErrGeneration, g.provider.Name())
	}

	questions, err := parseQuestions(resp.Content)
	if err != nil {
		g.logger.Warn("rejected clarifying questions", zap.Error(err), zap.Int("output_tokens", resp.OutputTokens))
		return nil, err
	}

	g.logger.Info("generated clarifying questions",
		zap.Int("questions", len(questions)),
		zap.Int("input_tokens", resp.InputTokens),
		zap.Int("output_tokens", resp.OutputTokens),
		zap.Duration("duration", time.Since(start)),
	)
	return questions, nil
}

// GenerateFinalPrompt retrieves reference prompts for req.Query and asks the
// model to synthesize one system prompt. Retrieval failures only cost the
// references; generation failures are returned.
func (g *Generator) GenerateFinalPrompt(ctx context.Context, req FinalPromptRequest) (*FinalPrompt, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("%w: query is empty", ErrInvalidRequest)
	}

	references, sources := g.references(ctx, req.Query)

	start := time.Now()
	resp, err := g.provider.Complete(ctx, llm.CompletionRequest{
		Model: g.opts.Model,
		Messages: []llm.Message{
			llm.System(architectSystemPrompt),
			llm.User(BuildUserContent(req.Query, req.Answers, references)),
		},
		MaxTokens:   g.opts.FinalMaxTokens,
		Temperature: g.opts.FinalTemperature,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	if strings.TrimSpace(resp.Content) == "" {
		return nil, fmt.Errorf("%w: empty response from %s", ErrGeneration, g.provider.Name())
	}
	if resp.Truncated() {
		g.logger.Warn("final prompt hit the token limit", zap.Int("max_tokens", g.opts.FinalMaxTokens))
	}

	g.logger.Info("generated final prompt",
		zap.Int("sources", len(sources)),
		zap.Int("input_tokens", resp.InputTokens),
		zap.Int("output_tokens", resp.OutputTokens),
		zap.String("finish_reason", resp.FinishReason),
		zap.Duration("duration", time.Since(start)),
	)
	return &FinalPrompt{FinalPrompt: resp.Content, RetrievedSources: sources}, nil
}

func (g *Generator) references(ctx context.Context, query string) (string, []string) {
	if g.retriever == nil {
		return retrieval.NoReferences, []string{}
	}
	res, err := g.retriever.Retrieve(ctx, query)
	if err != nil {
		g.logger.Warn("retrieval failed, continuing without references", zap.Error(err))
		return retrieval.NoReferences, []string{}
	}
	sources := res.Sources
	if sources == nil {
		sources = []string{}
	}
	return res.References, sources
}

// BuildUserContent renders the user turn of the final-prompt request.
func BuildUserContent(query string, answers []Answer, references string) string {
	var sb strings.Builder
	for _, a := range answers {
		answer := strings.TrimSpace(a.Answer)
		if answer == "" {
			answer = blankAnswer
		}
		sb.WriteString("- ")
		sb.WriteString(answer)
		sb.WriteString("\n")
	}
	return fmt.Sprintf(architectUserTemplate, query, sb.String(), references)
}

// parseQuestions decodes and validates the model's JSON output.
func parseQuestions(content string) ([]FollowUpQuestion, error) {
	var out struct {
		Questions *[]FollowUpQuestion `json:"questions"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if out.Questions == nil {
		return nil, fmt.Errorf("%w: missing \"questions\" field", ErrMalformedOutput)
	}
	questions := *out.Questions
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: no questions returned", ErrMalformedOutput)
	}

	for i, q := range questions {
		if q.ID != i+1 {
			return nil, fmt.Errorf("%w: question %d has id %d", ErrMalformedOutput, i+1, q.ID)
		}
		if strings.TrimSpace(q.Question) == "" {
			return nil, fmt.Errorf("%w: question %d has no text", ErrMalformedOutput, q.ID)
		}
		var usable int
		for _, opt := range q.Options {
			if strings.TrimSpace(opt) != "" {
				usable++
			}
		}
		if usable < 2 {
			return nil, fmt.Errorf("%w: question %d has %d usable options", ErrMalformedOutput, q.ID, usable)
		}
	}
	return questions, nil
}

// stripCodeFence removes a surrounding markdown code fence, if any.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}
