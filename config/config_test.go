package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	cfg.Embedder.APIKey = "embed-key"
	cfg.Generator.APIKey = "gen-key"
	return cfg
}

func TestSetDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.SetDefaults()

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "georgian_attractions", cfg.Qdrant.Collection)
	assert.Equal(t, 384, cfg.Qdrant.VectorSize)
	assert.Equal(t, 384, cfg.Embedder.Dimension)
	assert.Equal(t, 1.2, cfg.Search.BM25K1)
	assert.Equal(t, 0.75, cfg.Search.BM25B)
	assert.Equal(t, 3, cfg.Search.RRFK)
	assert.Equal(t, 200, cfg.Search.PrefilterLimit)
	assert.Equal(t, 5, cfg.Search.TopK)
	assert.False(t, cfg.Search.ExplicitLanguageFilter)
	assert.Equal(t, 2, cfg.Queue.Workers)
	assert.Equal(t, 100, cfg.Queue.Capacity)
	assert.Equal(t, 20, cfg.Conversation.MaxHistory)
	assert.Equal(t, 86400, cfg.Conversation.TTL)
	assert.Equal(t, 800, cfg.Generator.MaxTokens)
	assert.Equal(t, 30, cfg.Generator.Timeout)
	assert.Equal(t, 5, cfg.Translator.Timeout)
	assert.Equal(t, 10, cfg.Enrichment.Timeout)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(*Config) {},
		},
		{
			name:    "bad_port",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "port",
		},
		{
			name:    "bad_log_format",
			mutate:  func(c *Config) { c.Logging.Format = "fancy" },
			wantErr: "format",
		},
		{
			name:    "missing_collection",
			mutate:  func(c *Config) { c.Qdrant.Collection = "" },
			wantErr: "collection",
		},
		{
			name:    "redis_enabled_without_url",
			mutate:  func(c *Config) { c.Redis.Enabled = true },
			wantErr: "redis",
		},
		{
			name:    "bad_redis_scheme",
			mutate:  func(c *Config) { c.Redis.URL = "http://localhost:6379" },
			wantErr: "redis",
		},
		{
			name:    "unknown_embedder_provider",
			mutate:  func(c *Config) { c.Embedder.Provider = "cohere" },
			wantErr: "embedder",
		},
		{
			name:    "missing_embedder_key",
			mutate:  func(c *Config) { c.Embedder.APIKey = "" },
			wantErr: "api_key",
		},
		{
			name: "dimension_mismatch",
			mutate: func(c *Config) {
				c.Embedder.Dimension = 768
			},
			wantErr: "vector_size",
		},
		{
			name:    "missing_generator_key",
			mutate:  func(c *Config) { c.Generator.APIKey = "" },
			wantErr: "generator",
		},
		{
			name:    "top_k_out_of_range",
			mutate:  func(c *Config) { c.Search.TopK = 51 },
			wantErr: "top_k",
		},
		{
			name:    "zero_workers",
			mutate:  func(c *Config) { c.Queue.Workers = -1 },
			wantErr: "workers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestExpandEnvString(t *testing.T) {
	t.Setenv("TAMADA_TEST_KEY", "secret")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"braced", "${TAMADA_TEST_KEY}", "secret"},
		{"simple", "$TAMADA_TEST_KEY", "secret"},
		{"default_used", "${TAMADA_MISSING:-fallback}", "fallback"},
		{"default_ignored", "${TAMADA_TEST_KEY:-fallback}", "secret"},
		{"missing_empty", "${TAMADA_MISSING}", ""},
		{"no_vars", "plain text", "plain text"},
		{"embedded", "key=${TAMADA_TEST_KEY}!", "key=secret!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, expandEnvString(tt.input))
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	t.Setenv("TAMADA_TEST_ANTHROPIC", "anthropic-key")
	t.Setenv("TAMADA_TEST_EMBED", "embed-key")

	dir := t.TempDir()
	path := filepath.Join(dir, "tamada.yaml")
	content := `
server:
  port: 9001
qdrant:
  host: qdrant.internal
  collection: attractions_test
embedder:
  provider: gemini
  api_key: ${TAMADA_TEST_EMBED}
generator:
  api_key: ${TAMADA_TEST_ANTHROPIC}
  model: claude-3-5-haiku-latest
search:
  top_k: 7
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9001, cfg.Server.Port)
	assert.Equal(t, "qdrant.internal", cfg.Qdrant.Host)
	assert.Equal(t, "attractions_test", cfg.Qdrant.Collection)
	assert.Equal(t, "embed-key", cfg.Embedder.APIKey)
	assert.Equal(t, "anthropic-key", cfg.Generator.APIKey)
	assert.Equal(t, 7, cfg.Search.TopK)
	// Untouched sections still get defaults.
	assert.Equal(t, 1.2, cfg.Search.BM25K1)
	assert.Equal(t, 2, cfg.Queue.Workers)
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tamada.yaml")
	require.NoError(t, os.WriteFile(path, []byte("embedder:\n  provider: unknown\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestLoadDotEnvDoesNotOverwrite(t *testing.T) {
	t.Setenv("TAMADA_DOTENV_VAR", "from-env")

	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("TAMADA_DOTENV_VAR=from-file\nTAMADA_DOTENV_NEW=fresh\n"), 0o644))

	require.NoError(t, LoadDotEnv(envPath))

	assert.Equal(t, "from-env", os.Getenv("TAMADA_DOTENV_VAR"))
	assert.Equal(t, "fresh", os.Getenv("TAMADA_DOTENV_NEW"))
	t.Cleanup(func() { os.Unsetenv("TAMADA_DOTENV_NEW") })
}
