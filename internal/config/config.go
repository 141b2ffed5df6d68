// Package config loads promptgenie settings from YAML, the environment and .env files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides. Nested keys are separated by a
// double underscore: PROMPTGENIE_LLM__MODEL sets llm.model.
const EnvPrefix = "PROMPTGENIE_"

// LoadDotEnv loads variables from a .env file into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (PROMPTGENIE_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// envKey maps PROMPTGENIE_VECTOR_STORE__NAMESPACE to vector_store.namespace.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validLLMProviders = map[ProviderType]bool{
	ProviderGroq:       true,
	ProviderOpenAI:     true,
	ProviderOpenRouter: true,
	ProviderOllama:     true,
}

var validEmbeddingProviders = map[ProviderType]bool{
	ProviderOllama: true,
	ProviderOpenAI: true,
}

var validSummarizers = map[string]bool{SummarizerLLM: true, SummarizerFrequency: true, StrategyNone: true}

var validKeywordStrategies = map[string]bool{KeywordsEmbedding: true, KeywordsFrequency: true, StrategyNone: true}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if !validLLMProviders[c.LLM.Provider] {
		return fmt.Errorf("invalid llm.provider %q: must be one of groq, openai, openrouter, ollama", c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if c.LLM.Provider != ProviderOllama && c.LLM.APIKeyEnv == "" {
		return fmt.Errorf("llm.api_key_env is required for provider %s", c.LLM.Provider)
	}
	if c.LLM.RequestsPerMinute < 0 {
		return fmt.Errorf("llm.requests_per_minute must be non-negative")
	}

	g := c.Generation
	if g.TopK <= 0 {
		return fmt.Errorf("generation.top_k must be positive")
	}
	if g.QuestionsMaxTokens <= 0 || g.FinalMaxTokens <= 0 {
		return fmt.Errorf("generation max tokens must be positive")
	}
	if g.QuestionsTemperature < 0 || g.FinalTemperature < 0 {
		return fmt.Errorf("generation temperatures must be non-negative")
	}

	if !validEmbeddingProviders[c.Embedding.Provider] {
		return fmt.Errorf("invalid embedding.provider %q: must be one of ollama, openai", c.Embedding.Provider)
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive")
	}

	switch c.VectorStore.Backend {
	case BackendChromem:
	case BackendPinecone:
		if c.VectorStore.Pinecone.Index == "" {
			return fmt.Errorf("vector_store.pinecone.index is required")
		}
	default:
		return fmt.Errorf("invalid vector_store.backend %q: must be chromem or pinecone", c.VectorStore.Backend)
	}
	if c.VectorStore.Namespace == "" {
		return fmt.Errorf("vector_store.namespace is required")
	}

	in := c.Ingest
	if in.ChunkSize <= 0 {
		return fmt.Errorf("ingest.chunk_size must be positive")
	}
	if in.ChunkOverlap < 0 || in.ChunkOverlap >= in.ChunkSize {
		return fmt.Errorf("ingest.chunk_overlap must be in [0, chunk_size)")
	}
	if in.BatchSize <= 0 {
		return fmt.Errorf("ingest.batch_size must be positive")
	}
	if !validSummarizers[in.Summarizer] {
		return fmt.Errorf("invalid ingest.summarizer %q: must be one of llm, frequency, none", in.Summarizer)
	}
	if !validKeywordStrategies[in.Keywords] {
		return fmt.Errorf("invalid ingest.keywords %q: must be one of embedding, frequency, none", in.Keywords)
	}
	if in.SummaryChars < 0 || in.KeywordChars < 0 || in.KeywordCount < 0 {
		return fmt.Errorf("ingest summary/keyword limits must be non-negative")
	}

	return nil
}
