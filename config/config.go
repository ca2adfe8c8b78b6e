// Package config defines the service configuration and its YAML loader.
//
// Configuration is read from a single YAML file with ${VAR} and
// ${VAR:-default} environment expansion, then defaulted and validated.
// Secrets always arrive through the environment (optionally via .env).
package config

import (
	"fmt"
	"strings"

	"github.com/tamadze/tamada/observability"
)

// Config is the root configuration for the service.
type Config struct {
	// Server configures the HTTP listener.
	Server ServerConfig `yaml:"server,omitempty"`

	// Logging configures the process-wide logger.
	Logging LoggingConfig `yaml:"logging,omitempty"`

	// Qdrant configures the vector store holding the attraction corpus.
	Qdrant QdrantConfig `yaml:"qdrant,omitempty"`

	// Redis configures the remote cache tier. Optional; the service runs
	// memory-only without it.
	Redis RedisConfig `yaml:"redis,omitempty"`

	// Embedder configures query embedding generation.
	Embedder EmbedderConfig `yaml:"embedder,omitempty"`

	// Generator configures the answer-generation LLM.
	Generator GeneratorConfig `yaml:"generator,omitempty"`

	// Translator configures the translation/detection LLM.
	Translator TranslatorConfig `yaml:"translator,omitempty"`

	// Search configures retrieval behavior.
	Search SearchConfig `yaml:"search,omitempty"`

	// Enrichment configures live web enrichment.
	Enrichment EnrichmentConfig `yaml:"enrichment,omitempty"`

	// Conversation configures multi-turn history storage.
	Conversation ConversationConfig `yaml:"conversation,omitempty"`

	// Queue configures the background worker pool.
	Queue QueueConfig `yaml:"queue,omitempty"`

	// QueryLog configures the optional Postgres question/answer log.
	QueryLog QueryLogConfig `yaml:"query_log,omitempty"`

	// Observability configures tracing and metrics.
	Observability observability.Config `yaml:"observability,omitempty"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host              string `yaml:"host"`                // bind address
	Port              int    `yaml:"port"`                // listen port
	ReadHeaderTimeout int    `yaml:"read_header_timeout"` // seconds
	ShutdownTimeout   int    `yaml:"shutdown_timeout"`    // seconds for graceful drain
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // simple, verbose, json
	File   string `yaml:"file"`   // optional log file path; stderr when empty
}

// QdrantConfig configures the vector store connection.
type QdrantConfig struct {
	Host       string `yaml:"host"`       // qdrant host
	Port       int    `yaml:"port"`       // grpc port
	APIKey     string `yaml:"api_key"`    // optional
	UseTLS     bool   `yaml:"use_tls"`    // enable TLS
	Collection string `yaml:"collection"` // corpus collection name
	VectorSize int    `yaml:"vector_size"`
	Timeout    int    `yaml:"timeout"` // per-operation seconds
}

// RedisConfig configures the remote cache.
type RedisConfig struct {
	URL        string `yaml:"url"`     // redis:// or rediss:// URL
	Enabled    bool   `yaml:"enabled"` // disable to run memory-only
	DefaultTTL int    `yaml:"default_ttl"`
}

// EmbedderConfig configures query embedding.
type EmbedderConfig struct {
	// Provider selects the embedding backend: "gemini" or "openai"
	// (any OpenAI-compatible /v1/embeddings endpoint).
	Provider string `yaml:"provider"`

	// Model is the embedding model name.
	Model string `yaml:"model"`

	// APIKey authenticates against the provider.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the endpoint for OpenAI-compatible providers.
	BaseURL string `yaml:"base_url"`

	// Dimension must match the collection vector size.
	Dimension int `yaml:"dimension"`

	// BatchSize bounds texts per batch request.
	BatchSize int `yaml:"batch_size"`

	// Timeout is the per-request deadline in seconds.
	Timeout int `yaml:"timeout"`
}

// GeneratorConfig configures the answer LLM (Anthropic messages API).
type GeneratorConfig struct {
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	Timeout     int     `yaml:"timeout"` // seconds; answer deadline
}

// TranslatorConfig configures the translation/detection LLM (Gemini).
type TranslatorConfig struct {
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key"`
	Timeout int    `yaml:"timeout"` // seconds; best-effort budget
}

// SearchConfig configures the retrieval pipeline.
type SearchConfig struct {
	// TopK is the default number of fused results returned.
	TopK int `yaml:"top_k"`

	// PrefilterLimit bounds candidate ids harvested by the prefilter.
	PrefilterLimit int `yaml:"prefilter_limit"`

	// BM25K1 and BM25B are the Okapi BM25 parameters.
	BM25K1 float64 `yaml:"bm25_k1"`
	BM25B  float64 `yaml:"bm25_b"`

	// RRFK is the reciprocal-rank-fusion constant.
	RRFK int `yaml:"rrf_k"`

	// DenseMinScore drops low-similarity vector hits.
	DenseMinScore float64 `yaml:"dense_min_score"`

	// ExplicitLanguageFilter enables the "на русском"/"in english"
	// phrase filter in the analyzer. Off unless a deployment wants it.
	ExplicitLanguageFilter bool `yaml:"explicit_language_filter"`
}

// EnrichmentConfig configures live web enrichment.
type EnrichmentConfig struct {
	Enabled          bool   `yaml:"enabled"`
	WikipediaBaseURL string `yaml:"wikipedia_base_url"`
	UnsplashKey      string `yaml:"unsplash_key"`
	UnsplashPerPage  int    `yaml:"unsplash_per_page"`
	SerpAPIKey       string `yaml:"serpapi_key"`
	Timeout          int    `yaml:"timeout"`   // seconds; fan-out budget
	CacheTTL         int    `yaml:"cache_ttl"` // temp-tier TTL seconds
	UserAgent        string `yaml:"user_agent"`
}

// ConversationConfig configures multi-turn history.
type ConversationConfig struct {
	TTL          int  `yaml:"ttl"`           // seconds a conversation lives
	MaxHistory   int  `yaml:"max_history"`   // messages kept per conversation
	WindowTokens int  `yaml:"window_tokens"` // context window budget
	ExactTokens  bool `yaml:"exact_tokens"`  // use a real tokenizer instead of chars/4
}

// QueueConfig configures the background worker pool.
type QueueConfig struct {
	Workers     int `yaml:"workers"`
	Capacity    int `yaml:"capacity"`
	TaskTimeout int `yaml:"task_timeout"` // seconds per task
}

// QueryLogConfig configures the Postgres question/answer log.
// Empty DSN disables it.
type QueryLogConfig struct {
	DSN   string `yaml:"dsn"`
	Table string `yaml:"table"`
}

// SetDefaults applies defaults to every section.
func (c *Config) SetDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Server.ReadHeaderTimeout == 0 {
		c.Server.ReadHeaderTimeout = 10
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 15
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "simple"
	}

	if c.Qdrant.Host == "" {
		c.Qdrant.Host = "localhost"
	}
	if c.Qdrant.Port == 0 {
		c.Qdrant.Port = 6334
	}
	if c.Qdrant.Collection == "" {
		c.Qdrant.Collection = "georgian_attractions"
	}
	if c.Qdrant.VectorSize == 0 {
		c.Qdrant.VectorSize = 384
	}
	if c.Qdrant.Timeout == 0 {
		c.Qdrant.Timeout = 30
	}

	if c.Redis.DefaultTTL == 0 {
		c.Redis.DefaultTTL = 86400
	}

	if c.Embedder.Provider == "" {
		c.Embedder.Provider = "gemini"
	}
	if c.Embedder.Model == "" {
		switch c.Embedder.Provider {
		case "gemini":
			c.Embedder.Model = "gemini-embedding-001"
		default:
			c.Embedder.Model = "text-embedding-3-small"
		}
	}
	if c.Embedder.Dimension == 0 {
		c.Embedder.Dimension = c.Qdrant.VectorSize
	}
	if c.Embedder.BatchSize == 0 {
		c.Embedder.BatchSize = 32
	}
	if c.Embedder.Timeout == 0 {
		c.Embedder.Timeout = 15
	}

	if c.Generator.Model == "" {
		c.Generator.Model = "claude-3-5-haiku-latest"
	}
	if c.Generator.BaseURL == "" {
		c.Generator.BaseURL = "https://api.anthropic.com/v1"
	}
	if c.Generator.MaxTokens == 0 {
		c.Generator.MaxTokens = 800
	}
	if c.Generator.Temperature == 0 {
		c.Generator.Temperature = 0.7
	}
	if c.Generator.Timeout == 0 {
		c.Generator.Timeout = 30
	}

	if c.Translator.Model == "" {
		c.Translator.Model = "gemini-2.0-flash"
	}
	if c.Translator.Timeout == 0 {
		c.Translator.Timeout = 5
	}

	if c.Search.TopK == 0 {
		c.Search.TopK = 5
	}
	if c.Search.PrefilterLimit == 0 {
		c.Search.PrefilterLimit = 200
	}
	if c.Search.BM25K1 == 0 {
		c.Search.BM25K1 = 1.2
	}
	if c.Search.BM25B == 0 {
		c.Search.BM25B = 0.75
	}
	if c.Search.RRFK == 0 {
		c.Search.RRFK = 3
	}
	if c.Search.DenseMinScore == 0 {
		c.Search.DenseMinScore = 0.05
	}

	if c.Enrichment.WikipediaBaseURL == "" {
		c.Enrichment.WikipediaBaseURL = "https://en.wikipedia.org/api/rest_v1"
	}
	if c.Enrichment.UnsplashPerPage == 0 {
		c.Enrichment.UnsplashPerPage = 5
	}
	if c.Enrichment.Timeout == 0 {
		c.Enrichment.Timeout = 10
	}
	if c.Enrichment.CacheTTL == 0 {
		c.Enrichment.CacheTTL = 604800
	}
	if c.Enrichment.UserAgent == "" {
		c.Enrichment.UserAgent = "tamada/1.0 (tourism answer service)"
	}

	if c.Conversation.TTL == 0 {
		c.Conversation.TTL = 86400
	}
	if c.Conversation.MaxHistory == 0 {
		c.Conversation.MaxHistory = 20
	}
	if c.Conversation.WindowTokens == 0 {
		c.Conversation.WindowTokens = 2000
	}

	if c.Queue.Workers == 0 {
		c.Queue.Workers = 2
	}
	if c.Queue.Capacity == 0 {
		c.Queue.Capacity = 100
	}
	if c.Queue.TaskTimeout == 0 {
		c.Queue.TaskTimeout = 30
	}

	if c.QueryLog.Table == "" {
		c.QueryLog.Table = "query_log"
	}

	c.Observability.SetDefaults()
}

// Validate rejects configurations the service cannot start with.
// Validation failures are fatal at startup.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server: port must be between 1 and 65535, got %d", c.Server.Port)
	}

	switch c.Logging.Format {
	case "simple", "verbose", "json":
	default:
		return fmt.Errorf("logging: unknown format %q (valid: simple, verbose, json)", c.Logging.Format)
	}

	if c.Qdrant.Host == "" {
		return fmt.Errorf("qdrant: host is required")
	}
	if c.Qdrant.Collection == "" {
		return fmt.Errorf("qdrant: collection is required")
	}
	if c.Qdrant.VectorSize <= 0 {
		return fmt.Errorf("qdrant: vector_size must be positive")
	}

	if c.Redis.Enabled && c.Redis.URL == "" {
		return fmt.Errorf("redis: url is required when enabled")
	}
	if c.Redis.URL != "" && !strings.HasPrefix(c.Redis.URL, "redis://") && !strings.HasPrefix(c.Redis.URL, "rediss://") {
		return fmt.Errorf("redis: url must start with redis:// or rediss://")
	}

	switch c.Embedder.Provider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("embedder: unknown provider %q (valid: gemini, openai)", c.Embedder.Provider)
	}
	if c.Embedder.APIKey == "" {
		return fmt.Errorf("embedder: api_key is required")
	}
	if c.Embedder.Dimension != c.Qdrant.VectorSize {
		return fmt.Errorf("embedder: dimension %d does not match qdrant vector_size %d",
			c.Embedder.Dimension, c.Qdrant.VectorSize)
	}

	if c.Generator.APIKey == "" {
		return fmt.Errorf("generator: api_key is required")
	}
	if c.Generator.Temperature < 0 || c.Generator.Temperature > 1 {
		return fmt.Errorf("generator: temperature must be between 0 and 1")
	}
	if c.Generator.MaxTokens <= 0 {
		return fmt.Errorf("generator: max_tokens must be positive")
	}

	if c.Search.TopK < 1 || c.Search.TopK > 50 {
		return fmt.Errorf("search: top_k must be between 1 and 50")
	}
	if c.Search.BM25K1 <= 0 || c.Search.BM25B < 0 || c.Search.BM25B > 1 {
		return fmt.Errorf("search: bm25_k1 must be positive and bm25_b within [0,1]")
	}
	if c.Search.RRFK < 1 {
		return fmt.Errorf("search: rrf_k must be at least 1")
	}

	if c.Queue.Workers < 1 {
		return fmt.Errorf("queue: workers must be at least 1")
	}
	if c.Queue.Capacity < 1 {
		return fmt.Errorf("queue: capacity must be at least 1")
	}

	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("observability: %w", err)
	}

	return nil
}
