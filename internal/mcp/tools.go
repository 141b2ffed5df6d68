package mcp

import "github.com/mark3labs/mcp-go/mcp"

// analyzeQueryTool defines the analyze_query MCP tool.
var analyzeQueryTool = mcp.NewTool("analyze_query",
	mcp.WithDescription("Analyze a prompt idea and return 3-4 clarifying questions, each with 3-4 answer options, as JSON."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("The user's prompt idea or goal"),
	),
)

// generateFinalPromptTool defines the generate_final_prompt MCP tool.
var generateFinalPromptTool = mcp.NewTool("generate_final_prompt",
	mcp.WithDescription("Synthesize a complete system prompt from a prompt idea and the answers to its clarifying questions, informed by a library of reference prompts. Returns JSON with final_prompt and retrieved_sources."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("The original prompt idea, exactly as passed to analyze_query"),
	),
	mcp.WithArray("answers",
		mcp.Description("Answers to the clarifying questions, in question order"),
		mcp.Items(map[string]any{"type": "string"}),
	),
)
