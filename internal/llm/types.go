// Package llm talks to chat-completion models.
package llm

import "context"

// Provider sends one chat completion per call. Implementations must be safe
// for concurrent use.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	Name() string
}

// Role is the author of a chat message.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Message is one turn of the conversation sent to the model.
type Message struct {
	Role    Role
	Content string
}

// CompletionRequest is a single non-streaming completion. An empty Model
// uses the provider's configured model; JSONMode asks for a single JSON object.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
	JSONMode    bool
}

// CompletionResponse is the model output plus usage figures for logging.
type CompletionResponse struct {
	Content      string
	InputTokens  int
	OutputTokens int
	Model        string
	FinishReason string
}

// Truncated reports whether the model stopped at the token limit.
func (r *CompletionResponse) Truncated() bool {
	return r.FinishReason == "length"
}

func System(content string) Message { return Message{Role: RoleSystem, Content: content} }

func User(content string) Message { return Message{Role: RoleUser, Content: content} }
