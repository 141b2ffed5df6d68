package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/promptgenie/internal/keys"
)

// MockProvider is a test provider that records calls and returns canned responses.
type MockProvider struct {
	mu       sync.Mutex
	Calls    []CompletionRequest
	Response *CompletionResponse
	Err      error
	ProvName string
}

func NewMockProvider(name string) *MockProvider {
	return &MockProvider{
		ProvName: name,
		Response: &CompletionResponse{
			Content:      "mock response",
			InputTokens:  10,
			OutputTokens: 20,
			Model:        "mock-model",
			FinishReason: "stop",
		},
	}
}

func (m *MockProvider) Name() string {
	return m.ProvName
}

func (m *MockProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, req)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Response, nil
}

func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// chatServer fakes an OpenAI-compatible /chat/completions endpoint and
// records the Authorization header and body of each request.
type chatServer struct {
	mu     sync.Mutex
	auths  []string
	bodies []map[string]any
}

func (c *chatServer) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		c.mu.Lock()
		c.auths = append(c.auths, r.Header.Get("Authorization"))
		c.bodies = append(c.bodies, body)
		c.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "llama-3.3-70b-versatile",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "hello"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 3, "total_tokens": 15}
		}`))
	}
}

func TestOpenAICompatibleRotatesKeysPerCall(t *testing.T) {
	fake := &chatServer{}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	pool := keys.NewPool([]keys.Credential{
		{Key: "key-a", Label: "GROQ_API_KEY_1"},
		{Key: "key-b", Label: "GROQ_API_KEY_2"},
	})
	p := NewOpenAICompatibleProvider("groq", srv.URL, "llama-3.3-70b-versatile", pool, nil)

	for i := 0; i < 3; i++ {
		resp, err := p.Complete(context.Background(), CompletionRequest{
			Messages: []Message{System("sys"), User("hi")},
		})
		require.NoError(t, err)
		assert.Equal(t, "hello", resp.Content)
		assert.Equal(t, 12, resp.InputTokens)
		assert.Equal(t, "stop", resp.FinishReason)
	}

	assert.Equal(t, []string{"Bearer key-a", "Bearer key-b", "Bearer key-a"}, fake.auths)
}

func TestOpenAICompatibleRequestShape(t *testing.T) {
	fake := &chatServer{}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	pool := keys.NewPool([]keys.Credential{{Key: "k", Label: "K"}})
	p := NewOpenAICompatibleProvider("openai", srv.URL, "default-model", pool, nil)

	_, err := p.Complete(context.Background(), CompletionRequest{
		Messages:    []Message{User("q")},
		MaxTokens:   1024,
		Temperature: 0.3,
		JSONMode:    true,
	})
	require.NoError(t, err)

	require.Len(t, fake.bodies, 1)
	body := fake.bodies[0]
	assert.Equal(t, "default-model", body["model"])
	assert.EqualValues(t, 1024, body["max_tokens"])
	assert.InDelta(t, 0.3, body["temperature"], 1e-6)
	format, ok := body["response_format"].(map[string]any)
	require.True(t, ok, "response_format missing")
	assert.Equal(t, "json_object", format["type"])
}

func TestOpenAICompatibleSendsZeroTemperature(t *testing.T) {
	fake := &chatServer{}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	pool := keys.NewPool([]keys.Credential{{Key: "k", Label: "K"}})
	p := NewOpenAICompatibleProvider("openai", srv.URL, "m", pool, nil)

	_, err := p.Complete(context.Background(), CompletionRequest{
		Messages:    []Message{User("q")},
		Temperature: 0,
	})
	require.NoError(t, err)

	require.Len(t, fake.bodies, 1)
	temp, ok := fake.bodies[0]["temperature"]
	require.True(t, ok, "temperature omitted from request body")
	assert.InDelta(t, 0, temp, 1e-6)
}

func TestOpenAICompatibleEmptyPool(t *testing.T) {
	p := NewGroqProvider("m", keys.NewPool(nil), nil)
	_, err := p.Complete(context.Background(), CompletionRequest{Messages: []Message{User("q")}})
	assert.ErrorIs(t, err, keys.ErrNoCredentials)
}

func TestOpenAICompatibleUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limit reached","type":"tokens"}}`))
	}))
	defer srv.Close()

	pool := keys.NewPool([]keys.Credential{{Key: "k", Label: "GROQ_API_KEY_1"}})
	p := NewOpenAICompatibleProvider("groq", srv.URL, "m", pool, nil)
	_, err := p.Complete(context.Background(), CompletionRequest{Messages: []Message{User("q")}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GROQ_API_KEY_1")
	assert.NotContains(t, err.Error(), "Bearer k")
}

func TestOllamaProviderComplete(t *testing.T) {
	var got ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"model":"llama3.3","message":{"role":"assistant","content":"{\"questions\":[]}"},"done":true,"done_reason":"stop","prompt_eval_count":5,"eval_count":7}`))
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "llama3.3")
	resp, err := p.Complete(context.Background(), CompletionRequest{
		Messages: []Message{User("q")},
		JSONMode: true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"questions":[]}`, resp.Content)
	assert.Equal(t, 7, resp.OutputTokens)
	assert.Equal(t, "json", got.Format)
	assert.False(t, got.Stream)
}

func TestOllamaProviderSendsZeroTemperature(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"model":"m","message":{"role":"assistant","content":"ok"},"done":true}`))
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "m")
	_, err := p.Complete(context.Background(), CompletionRequest{Messages: []Message{User("q")}})
	require.NoError(t, err)

	opts, ok := body["options"].(map[string]any)
	require.True(t, ok, "options missing")
	temp, ok := opts["temperature"]
	require.True(t, ok, "temperature omitted from options")
	assert.EqualValues(t, 0, temp)
}

func TestFactoryReturnsErrorForUnknownProvider(t *testing.T) {
	_, err := NewProvider(Options{Provider: "nonexistent"}, keys.NewPool(nil), nil)
	assert.Error(t, err)
}

func TestFactoryCreatesProviders(t *testing.T) {
	pool := keys.NewPool(nil)
	for _, name := range []string{"groq", "openai", "openrouter", "ollama"} {
		p, err := NewProvider(Options{Provider: name, Model: "m"}, pool, nil)
		require.NoError(t, err, name)
		assert.Equal(t, name, p.Name())
	}
}

func TestFactoryWrapsRateLimiter(t *testing.T) {
	p, err := NewProvider(Options{Provider: "ollama", Model: "m", RequestsPerMinute: 30}, nil, nil)
	require.NoError(t, err)
	_, ok := p.(*RateLimitedProvider)
	assert.True(t, ok)
	assert.Equal(t, "ollama", p.Name())
}

func TestRateLimiterPassesThrough(t *testing.T) {
	mock := NewMockProvider("inner")
	limited := NewRateLimitedProvider(mock, 600)

	for i := 0; i < 3; i++ {
		_, err := limited.Complete(context.Background(), CompletionRequest{})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, mock.CallCount())
	assert.Equal(t, "inner", limited.Name())
}

func TestRateLimiterHonoursContext(t *testing.T) {
	mock := NewMockProvider("inner")
	limited := NewRateLimitedProvider(mock, 1)

	_, err := limited.Complete(context.Background(), CompletionRequest{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = limited.Complete(ctx, CompletionRequest{})
	assert.Error(t, err)
	assert.Equal(t, 1, mock.CallCount())
}

func TestMessageHelpers(t *testing.T) {
	assert.Equal(t, Message{Role: RoleSystem, Content: "s"}, System("s"))
	assert.Equal(t, Message{Role: RoleUser, Content: "u"}, User("u"))
}

func TestCompletionResponseTruncated(t *testing.T) {
	assert.True(t, (&CompletionResponse{FinishReason: "length"}).Truncated())
	assert.False(t, (&CompletionResponse{FinishReason: "stop"}).Truncated())
}
