package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/ziadkadry99/promptgenie/internal/prompt"
)

// handleAnalyzeQuery returns clarifying questions for a prompt idea.
func (s *Server) handleAnalyzeQuery(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil || strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	questions, err := s.gen.AnalyzeQuery(ctx, query)
	if err != nil {
		s.logger.Warn("analyze_query failed", zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("analyze query failed: %v", err)), nil
	}

	return jsonResult(map[string]any{"questions": questions})
}

// handleGenerateFinalPrompt synthesizes the final system prompt.
func (s *Server) handleGenerateFinalPrompt(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil || strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	answers, err := parseAnswers(request.GetArguments()["answers"])
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	out, err := s.gen.GenerateFinalPrompt(ctx, prompt.FinalPromptRequest{Query: query, Answers: answers})
	if err != nil {
		s.logger.Warn("generate_final_prompt failed", zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("generate final prompt failed: %v", err)), nil
	}
	if out.RetrievedSources == nil {
		out.RetrievedSources = []string{}
	}

	return jsonResult(out)
}

// parseAnswers accepts either plain strings, numbered in order, or
// {"id", "answer"} objects.
func parseAnswers(raw any) ([]prompt.Answer, error) {
	if raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("answers must be an array")
	}

	answers := make([]prompt.Answer, 0, len(items))
	for i, item := range items {
		switch v := item.(type) {
		case string:
			answers = append(answers, prompt.Answer{ID: i + 1, Answer: v})
		case map[string]any:
			a := prompt.Answer{ID: i + 1}
			if id, ok := v["id"].(float64); ok {
				a.ID = int(id)
			}
			a.Answer, _ = v["answer"].(string)
			answers = append(answers, a)
		default:
			return nil, fmt.Errorf("answer %d must be a string", i+1)
		}
	}
	return answers, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
