package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard, saves the result to
// path and returns it.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to promptgenie! Let's configure the service.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Chat provider.
	providerPrompt := promptui.Select{
		Label: "Select LLM provider",
		Items: []string{"groq", "openai", "openrouter", "ollama"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.LLM.Provider = ProviderType(providerStr)
	cfg.LLM.APIKeyEnv = defaultAPIKeyEnv(cfg.LLM.Provider)

	modelPrompt := promptui.Prompt{
		Label:   "Chat model",
		Default: DefaultModel(cfg.LLM.Provider),
	}
	if cfg.LLM.Model, err = modelPrompt.Run(); err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}

	// 2. Embeddings.
	embedPrompt := promptui.Select{
		Label: "Select embedding provider",
		Items: []string{"ollama", "openai"},
	}
	_, embedStr, err := embedPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("embedding provider selection: %w", err)
	}
	cfg.Embedding.Provider = ProviderType(embedStr)
	cfg.Embedding.Model = DefaultEmbeddingModel(cfg.Embedding.Provider)

	// 3. Vector index.
	backendPrompt := promptui.Select{
		Label: "Select vector index",
		Items: []string{
			"chromem  - embedded, stored on local disk",
			"pinecone - managed serverless index",
		},
	}
	backendIdx, _, err := backendPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("vector index selection: %w", err)
	}
	cfg.VectorStore.Backend = []VectorBackend{BackendChromem, BackendPinecone}[backendIdx]

	if cfg.VectorStore.Backend == BackendPinecone {
		indexPrompt := promptui.Prompt{
			Label:   "Pinecone index name",
			Default: cfg.VectorStore.Pinecone.Index,
		}
		if cfg.VectorStore.Pinecone.Index, err = indexPrompt.Run(); err != nil {
			return nil, fmt.Errorf("pinecone index: %w", err)
		}
	}

	// 4. Corpus.
	corpusPrompt := promptui.Prompt{
		Label:   "Reference prompt corpus directory",
		Default: cfg.Ingest.CorpusDir,
	}
	if cfg.Ingest.CorpusDir, err = corpusPrompt.Run(); err != nil {
		return nil, fmt.Errorf("corpus dir: %w", err)
	}

	extPrompt := promptui.Prompt{
		Label:   "File extensions to ingest (comma-separated)",
		Default: strings.Join(cfg.Ingest.Extensions, ","),
	}
	extStr, err := extPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("extensions: %w", err)
	}
	if exts := splitAndTrim(extStr); len(exts) > 0 {
		cfg.Ingest.Extensions = exts
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	for _, envVar := range requiredEnv(cfg) {
		if os.Getenv(envVar) == "" && os.Getenv(envVar+"_1") == "" {
			fmt.Printf("\nNote: set %s (or %s_1, %s_2, ...) in your environment or .env file.\n", envVar, envVar, envVar)
		}
	}

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

func defaultAPIKeyEnv(p ProviderType) string {
	switch p {
	case ProviderGroq:
		return "GROQ_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderOpenRouter:
		return "OPENROUTER_API_KEY"
	default:
		return ""
	}
}

// requiredEnv lists the credential variables the configuration depends on.
func requiredEnv(cfg *Config) []string {
	var vars []string
	if cfg.LLM.Provider != ProviderOllama {
		vars = append(vars, cfg.LLM.APIKeyEnv)
	}
	if cfg.Embedding.Provider == ProviderOpenAI {
		vars = append(vars, cfg.Embedding.APIKeyEnv)
	}
	if cfg.VectorStore.Backend == BackendPinecone {
		vars = append(vars, cfg.VectorStore.Pinecone.APIKeyEnv)
	}
	return vars
}

// splitAndTrim splits a comma-separated string and trims whitespace.
func splitAndTrim(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if token := strings.TrimSpace(part); token != "" {
			result = append(result, token)
		}
	}
	return result
}
