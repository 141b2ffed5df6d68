package llm

import (
	"context"
	"fmt"
	"math"
	"sync"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/ziadkadry99/promptgenie/internal/keys"
	"github.com/ziadkadry99/promptgenie/internal/logging"
)

// Base URLs of OpenAI-compatible chat APIs.
const (
	GroqBaseURL       = "https://api.groq.com/openai/v1"
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
)

// OpenAICompatibleProvider implements Provider for any API speaking the
// OpenAI Chat Completions protocol (Groq, OpenAI, OpenRouter). Every call
// takes the next credential from the rotator, so load is spread across keys.
type OpenAICompatibleProvider struct {
	name    string
	model   string
	rotator keys.Rotator
	newFn   func(apiKey string) *openai.Client
	logger  *zap.Logger

	mu      sync.Mutex
	clients map[string]*openai.Client
}

// NewOpenAICompatibleProvider creates a provider named name talking to
// baseURL (empty means api.openai.com).
func NewOpenAICompatibleProvider(name, baseURL, model string, rotator keys.Rotator, logger *zap.Logger) *OpenAICompatibleProvider {
	return &OpenAICompatibleProvider{
		name:    name,
		model:   model,
		rotator: rotator,
		clients: make(map[string]*openai.Client),
		newFn: func(apiKey string) *openai.Client {
			cfg := openai.DefaultConfig(apiKey)
			if baseURL != "" {
				cfg.BaseURL = baseURL
			}
			return openai.NewClientWithConfig(cfg)
		},
		logger: logging.OrNop(logger),
	}
}

// NewGroqProvider creates a provider for Groq's OpenAI-compatible endpoint.
func NewGroqProvider(model string, rotator keys.Rotator, logger *zap.Logger) *OpenAICompatibleProvider {
	return NewOpenAICompatibleProvider("groq", GroqBaseURL, model, rotator, logger)
}

func (p *OpenAICompatibleProvider) Name() string {
	return p.name
}

// clientFor returns the client bound to a credential, creating it once.
func (p *OpenAICompatibleProvider) clientFor(cred keys.Credential) *openai.Client {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.clients[cred.Key]; ok {
		return c
	}
	c := p.newFn(cred.Key)
	p.clients[cred.Key] = c
	return c
}

func (p *OpenAICompatibleProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	cred, err := p.rotator.Acquire()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.name, err)
	}
	p.logger.Debug("using API key", zap.String("provider", p.name), zap.String("key", cred.Label))

	model := req.Model
	if model == "" {
		model = p.model
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	apiReq := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: wireTemperature(req.Temperature),
	}

	if req.JSONMode {
		apiReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := p.clientFor(cred).CreateChatCompletion(ctx, apiReq)
	if err != nil {
		return nil, fmt.Errorf("%s chat completion (key %s): %w", p.name, cred.Label, err)
	}

	var content, finishReason string
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
		finishReason = string(resp.Choices[0].FinishReason)
	}

	return &CompletionResponse{
		Content:      content,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		Model:        resp.Model,
		FinishReason: finishReason,
	}, nil
}

// wireTemperature maps a zero temperature to the smallest positive float32.
// go-openai omits a zero Temperature from the request body, which would leave
// the API default of 1 in effect.
func wireTemperature(t float64) float32 {
	if t <= 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}
