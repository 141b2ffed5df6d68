package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/ziadkadry99/promptgenie/internal/config"
	"github.com/ziadkadry99/promptgenie/internal/embeddings"
	"github.com/ziadkadry99/promptgenie/internal/enrich"
	"github.com/ziadkadry99/promptgenie/internal/keys"
	"github.com/ziadkadry99/promptgenie/internal/lazy"
	"github.com/ziadkadry99/promptgenie/internal/llm"
	"github.com/ziadkadry99/promptgenie/internal/prompt"
	"github.com/ziadkadry99/promptgenie/internal/retrieval"
	"github.com/ziadkadry99/promptgenie/internal/vectordb"
)

// loadConfig loads and validates the config, and sets up the logger from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `promptgenie init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	if err := setupLogger(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newEmbedder creates the configured embedding backend, uncached.
func newEmbedder(cfg *config.Config) (embeddings.Embedder, error) {
	ec := cfg.Embedding
	model := ec.Model
	if model == "" {
		model = config.DefaultEmbeddingModel(ec.Provider)
	}

	var e embeddings.Embedder
	switch ec.Provider {
	case config.ProviderOllama:
		e = embeddings.NewOllamaEmbedder(model, ec.Dimensions, ec.BaseURL)
	case config.ProviderOpenAI:
		apiKey := os.Getenv(ec.APIKeyEnv)
		if apiKey == "" {
			return nil, fmt.Errorf("%s environment variable is required for OpenAI embeddings", ec.APIKeyEnv)
		}
		e = embeddings.NewOpenAIEmbedder(apiKey, embeddings.OpenAIModel(model), ec.Dimensions, ec.BaseURL)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", ec.Provider)
	}
	return e, nil
}

// newQueryEmbedder wraps the embedder in the query cache. Ingestion never
// goes through it.
func newQueryEmbedder(ctx context.Context, cfg *config.Config) (embeddings.Embedder, error) {
	e, err := newEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	ec := cfg.Embedding
	if ec.CacheTTLSeconds <= 0 {
		return e, nil
	}
	ttl := time.Duration(ec.CacheTTLSeconds) * time.Second
	if ec.CacheRedisURL != "" {
		rc, err := embeddings.NewRedisCache(ctx, ec.CacheRedisURL, e.Name(), ttl)
		if err == nil {
			return embeddings.NewCachedEmbedderWithStore(e, rc), nil
		}
		logger.Warn("redis embedding cache unavailable; using in-memory cache", zap.Error(err))
	}
	return embeddings.NewCachedEmbedder(e, ttl), nil
}

// newIndex opens the configured vector index.
func newIndex(ctx context.Context, cfg *config.Config) (vectordb.Index, error) {
	vs := cfg.VectorStore
	switch vs.Backend {
	case config.BackendChromem:
		return vectordb.NewChromemIndex(vs.Chromem.Dir)
	case config.BackendPinecone:
		apiKey := os.Getenv(vs.Pinecone.APIKeyEnv)
		if apiKey == "" {
			return nil, fmt.Errorf("%s environment variable is required for Pinecone", vs.Pinecone.APIKeyEnv)
		}
		return vectordb.NewPineconeIndex(ctx, apiKey, vs.Pinecone.Index)
	default:
		return nil, fmt.Errorf("unsupported vector backend: %s", vs.Backend)
	}
}

// closeIndex releases index connections when the backend holds any.
func closeIndex(index vectordb.Index) {
	if c, ok := index.(io.Closer); ok {
		if err := c.Close(); err != nil {
			logger.Warn("closing vector index", zap.Error(err))
		}
	}
}

// newProvider creates the chat model provider with a rotating key pool.
func newProvider(cfg *config.Config) (llm.Provider, *keys.Pool, error) {
	pool := keys.NewPool(config.CredentialsFromEnv(cfg.LLM.APIKeyEnv))
	if pool.Len() == 0 && cfg.LLM.Provider != config.ProviderOllama {
		logger.Warn("no API keys found; generation requests will fail",
			zap.String("provider", string(cfg.LLM.Provider)),
			zap.String("env", cfg.LLM.APIKeyEnv+"_1, "+cfg.LLM.APIKeyEnv+"_2, ..."))
	} else {
		logger.Debug("loaded API keys", zap.Strings("labels", pool.Labels()))
	}

	p, err := llm.NewProvider(llm.Options{
		Provider:          string(cfg.LLM.Provider),
		Model:             cfg.LLM.Model,
		BaseURL:           cfg.LLM.BaseURL,
		RequestsPerMinute: cfg.LLM.RequestsPerMinute,
	}, pool, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("creating LLM provider: %w", err)
	}
	return p, pool, nil
}

// newEnricher builds the metadata enricher from the configured strategies.
// An LLM summarizer without credentials falls back to the extractive one.
func newEnricher(cfg *config.Config, provider llm.Provider, pool *keys.Pool, embedder embeddings.Embedder) *enrich.Enricher {
	ic := cfg.Ingest

	var summarizer enrich.Summarizer
	switch ic.Summarizer {
	case config.SummarizerLLM:
		if pool.Len() == 0 && cfg.LLM.Provider != config.ProviderOllama {
			logger.Warn("no LLM credentials; using frequency summarizer")
			summarizer = enrich.NewFrequencySummarizer(0)
		} else {
			summarizer = enrich.NewLLMSummarizer(provider, cfg.LLM.Model)
		}
	case config.SummarizerFrequency:
		summarizer = enrich.NewFrequencySummarizer(0)
	}

	var extractor enrich.KeywordExtractor
	switch ic.Keywords {
	case config.KeywordsEmbedding:
		extractor = enrich.NewEmbeddingKeywordExtractor(embedder)
	case config.KeywordsFrequency:
		extractor = enrich.FrequencyKeywordExtractor{}
	}

	return enrich.New(summarizer, extractor, enrich.Options{
		SummaryChars: ic.SummaryChars,
		KeywordChars: ic.KeywordChars,
		KeywordCount: ic.KeywordCount,
	}, logger)
}

// newGenerator wires the prompt generator. The embedder and index are
// created on the first request that needs them, so the service starts even
// when the index is unreachable.
func newGenerator(cfg *config.Config) (*prompt.Generator, func(), error) {
	provider, _, err := newProvider(cfg)
	if err != nil {
		return nil, nil, err
	}

	embedderHandle := lazy.New(func(ctx context.Context) (embeddings.Embedder, error) {
		return newQueryEmbedder(ctx, cfg)
	})
	indexHandle := lazy.New(func(ctx context.Context) (vectordb.Index, error) {
		return newIndex(ctx, cfg)
	})
	cleanup := func() {
		if indexHandle.Loaded() {
			if index, err := indexHandle.Get(context.Background()); err == nil {
				closeIndex(index)
			}
		}
	}

	retriever := retrieval.New(embedderHandle, indexHandle, retrieval.Options{
		Namespace: cfg.VectorStore.Namespace,
		TopK:      cfg.Generation.TopK,
	}, logger)

	gen := prompt.NewGenerator(provider, retriever, prompt.Options{
		Model:                cfg.LLM.Model,
		QuestionsTemperature: cfg.Generation.QuestionsTemperature,
		QuestionsMaxTokens:   cfg.Generation.QuestionsMaxTokens,
		FinalTemperature:     cfg.Generation.FinalTemperature,
		FinalMaxTokens:       cfg.Generation.FinalMaxTokens,
	}, logger)
	return gen, cleanup, nil
}
