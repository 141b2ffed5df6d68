package config

// ProviderType identifies a model provider, for chat completions or embeddings.
type ProviderType string

const (
	ProviderGroq       ProviderType = "groq"
	ProviderOpenAI     ProviderType = "openai"
	ProviderOpenRouter ProviderType = "openrouter"
	ProviderOllama     ProviderType = "ollama"
)

// VectorBackend identifies a vector index implementation.
type VectorBackend string

const (
	BackendChromem  VectorBackend = "chromem"
	BackendPinecone VectorBackend = "pinecone"
)

// Enrichment strategies.
const (
	SummarizerLLM       = "llm"
	SummarizerFrequency = "frequency"
	KeywordsEmbedding   = "embedding"
	KeywordsFrequency   = "frequency"
	StrategyNone        = "none"
)

// Config is the top-level promptgenie configuration, corresponding to .promptgenie.yml.
type Config struct {
	Server      ServerConfig      `yaml:"server" koanf:"server"`
	LLM         LLMConfig         `yaml:"llm" koanf:"llm"`
	Generation  GenerationConfig  `yaml:"generation" koanf:"generation"`
	Embedding   EmbeddingConfig   `yaml:"embedding" koanf:"embedding"`
	VectorStore VectorStoreConfig `yaml:"vector_store" koanf:"vector_store"`
	Ingest      IngestConfig      `yaml:"ingest" koanf:"ingest"`
	Log         LogConfig         `yaml:"log" koanf:"log"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Port           int      `yaml:"port" koanf:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" koanf:"allowed_origins"`
	TimeoutSeconds int      `yaml:"timeout_seconds" koanf:"timeout_seconds"`
}

// LLMConfig selects the chat model. Keys are read from the environment:
// <api_key_env>_1, <api_key_env>_2, ... and then <api_key_env> itself.
type LLMConfig struct {
	Provider          ProviderType `yaml:"provider" koanf:"provider"`
	Model             string       `yaml:"model" koanf:"model"`
	BaseURL           string       `yaml:"base_url,omitempty" koanf:"base_url"`
	APIKeyEnv         string       `yaml:"api_key_env" koanf:"api_key_env"`
	RequestsPerMinute int          `yaml:"requests_per_minute" koanf:"requests_per_minute"`
}

// GenerationConfig holds the sampling parameters of the two generation calls.
type GenerationConfig struct {
	QuestionsTemperature float64 `yaml:"questions_temperature" koanf:"questions_temperature"`
	QuestionsMaxTokens   int     `yaml:"questions_max_tokens" koanf:"questions_max_tokens"`
	FinalTemperature     float64 `yaml:"final_temperature" koanf:"final_temperature"`
	FinalMaxTokens       int     `yaml:"final_max_tokens" koanf:"final_max_tokens"`
	TopK                 int     `yaml:"top_k" koanf:"top_k"`
}

// EmbeddingConfig selects the embedding model. Ingestion and querying must
// use the same model and dimensions.
type EmbeddingConfig struct {
	Provider        ProviderType `yaml:"provider" koanf:"provider"`
	Model           string       `yaml:"model" koanf:"model"`
	Dimensions      int          `yaml:"dimensions" koanf:"dimensions"`
	BaseURL         string       `yaml:"base_url,omitempty" koanf:"base_url"`
	APIKeyEnv       string       `yaml:"api_key_env" koanf:"api_key_env"`
	CacheTTLSeconds int          `yaml:"cache_ttl_seconds" koanf:"cache_ttl_seconds"`
	CacheRedisURL   string       `yaml:"cache_redis_url,omitempty" koanf:"cache_redis_url"` // shared cache; empty keeps it in memory
}

// VectorStoreConfig selects the vector index.
type VectorStoreConfig struct {
	Backend   VectorBackend  `yaml:"backend" koanf:"backend"`
	Namespace string         `yaml:"namespace" koanf:"namespace"`
	Chromem   ChromemConfig  `yaml:"chromem" koanf:"chromem"`
	Pinecone  PineconeConfig `yaml:"pinecone" koanf:"pinecone"`
}

// ChromemConfig holds settings for the embedded chromem index.
type ChromemConfig struct {
	Dir string `yaml:"dir" koanf:"dir"`
}

// PineconeConfig holds settings for a Pinecone serverless index.
type PineconeConfig struct {
	Index     string `yaml:"index" koanf:"index"`
	APIKeyEnv string `yaml:"api_key_env" koanf:"api_key_env"`
}

// IngestConfig controls the offline ingestion job.
type IngestConfig struct {
	CorpusDir    string   `yaml:"corpus_dir" koanf:"corpus_dir"`
	Extensions   []string `yaml:"extensions" koanf:"extensions"`
	Exclude      []string `yaml:"exclude" koanf:"exclude"`
	Tokenizer    string   `yaml:"tokenizer" koanf:"tokenizer"`
	ChunkSize    int      `yaml:"chunk_size" koanf:"chunk_size"`
	ChunkOverlap int      `yaml:"chunk_overlap" koanf:"chunk_overlap"`
	BatchSize    int      `yaml:"batch_size" koanf:"batch_size"`
	Summarizer   string   `yaml:"summarizer" koanf:"summarizer"`
	Keywords     string   `yaml:"keywords" koanf:"keywords"`
	SummaryChars int      `yaml:"summary_chars" koanf:"summary_chars"`
	KeywordChars int      `yaml:"keyword_chars" koanf:"keyword_chars"`
	KeywordCount int      `yaml:"keyword_count" koanf:"keyword_count"`
	StateDB      string   `yaml:"state_db" koanf:"state_db"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level  string `yaml:"level" koanf:"level"`
	Format string `yaml:"format" koanf:"format"`
	File   string `yaml:"file,omitempty" koanf:"file"`
}
