package config

import "github.com/ziadkadry99/promptgenie/internal/walker"

// DefaultConfigFile is the config path used when --config is not given.
const DefaultConfigFile = ".promptgenie.yml"

// defaultModels maps each chat provider to the model used when none is configured.
var defaultModels = map[ProviderType]string{
	ProviderGroq:       "llama-3.3-70b-versatile",
	ProviderOpenAI:     "gpt-4o",
	ProviderOpenRouter: "meta-llama/llama-3.3-70b-instruct",
	ProviderOllama:     "llama3.3",
}

// defaultEmbeddingModels maps each embedding provider to a model that can
// produce 768-dimensional vectors.
var defaultEmbeddingModels = map[ProviderType]string{
	ProviderOllama: "nomic-embed-text",
	ProviderOpenAI: "text-embedding-3-small",
}

// DefaultModel returns the default chat model for a provider.
func DefaultModel(p ProviderType) string {
	return defaultModels[p]
}

// DefaultEmbeddingModel returns the default embedding model for a provider.
func DefaultEmbeddingModel(p ProviderType) string {
	return defaultEmbeddingModels[p]
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8000,
			AllowedOrigins: []string{"*"},
			TimeoutSeconds: 120,
		},
		LLM: LLMConfig{
			Provider:  ProviderGroq,
			Model:     defaultModels[ProviderGroq],
			APIKeyEnv: "GROQ_API_KEY",
		},
		Generation: GenerationConfig{
			QuestionsTemperature: 0.3,
			QuestionsMaxTokens:   1024,
			FinalTemperature:     0.25,
			FinalMaxTokens:       32768,
			TopK:                 10,
		},
		Embedding: EmbeddingConfig{
			Provider:        ProviderOllama,
			Model:           defaultEmbeddingModels[ProviderOllama],
			Dimensions:      768,
			APIKeyEnv:       "OPENAI_API_KEY",
			CacheTTLSeconds: 600,
		},
		VectorStore: VectorStoreConfig{
			Backend:   BackendChromem,
			Namespace: "promptsdb",
			Chromem:   ChromemConfig{Dir: ".promptgenie/vectordb"},
			Pinecone: PineconeConfig{
				Index:     "quickstart",
				APIKeyEnv: "PINECONE_API_KEY",
			},
		},
		Ingest: IngestConfig{
			CorpusDir:    "system-prompts-and-models-of-ai-tools",
			Extensions:   append([]string(nil), walker.DefaultExtensions...),
			Tokenizer:    "cl100k_base",
			ChunkSize:    400,
			ChunkOverlap: 75,
			BatchSize:    50,
			Summarizer:   SummarizerLLM,
			Keywords:     KeywordsEmbedding,
			SummaryChars: 2500,
			KeywordChars: 4000,
			KeywordCount: 5,
			StateDB:      ".promptgenie/ingest.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
