package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Load reads the YAML file at path, expands environment references,
// applies defaults and validates. An empty path yields a defaulted
// config built purely from the environment.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		var raw map[string]any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}

		expanded, err := yaml.Marshal(expandValue(raw))
		if err != nil {
			return nil, fmt.Errorf("failed to re-encode config: %w", err)
		}
		if err := yaml.Unmarshal(expanded, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides fills secrets from well-known environment variables
// when the file left them empty, so a bare config file still works.
func applyEnvOverrides(cfg *Config) {
	setIfEmpty := func(dst *string, envKey string) {
		if *dst == "" {
			*dst = os.Getenv(envKey)
		}
	}

	setIfEmpty(&cfg.Qdrant.APIKey, "QDRANT_API_KEY")
	setIfEmpty(&cfg.Redis.URL, "REDIS_URL")
	setIfEmpty(&cfg.Generator.APIKey, "ANTHROPIC_API_KEY")
	setIfEmpty(&cfg.Translator.APIKey, "GEMINI_API_KEY")
	setIfEmpty(&cfg.Enrichment.UnsplashKey, "UNSPLASH_ACCESS_KEY")
	setIfEmpty(&cfg.Enrichment.SerpAPIKey, "SERPAPI_KEY")
	setIfEmpty(&cfg.QueryLog.DSN, "QUERY_LOG_DSN")

	if cfg.Embedder.APIKey == "" {
		cfg.Embedder.APIKey = os.Getenv("EMBEDDER_API_KEY")
	}
	if cfg.Embedder.APIKey == "" && cfg.Embedder.Provider != "openai" {
		cfg.Embedder.APIKey = os.Getenv("GEMINI_API_KEY")
	}

	if cfg.Redis.URL != "" && !cfg.Redis.Enabled {
		cfg.Redis.Enabled = os.Getenv("CACHE_ENABLED") != "false"
	}
}

// envPattern matches ${VAR}, ${VAR:-default} and $VAR.
var envPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

func expandValue(v any) any {
	switch val := v.(type) {
	case string:
		return expandEnvString(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = expandValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = expandValue(item)
		}
		return out
	default:
		return v
	}
}

func expandEnvString(s string) string {
	if !strings.Contains(s, "$") {
		return s
	}
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		if strings.HasPrefix(match, "${") {
			inner := match[2 : len(match)-1]
			if idx := strings.Index(inner, ":-"); idx != -1 {
				if val := os.Getenv(inner[:idx]); val != "" {
					return val
				}
				return inner[idx+2:]
			}
			return os.Getenv(inner)
		}
		return os.Getenv(match[1:])
	})
}

// Watch blocks until ctx is done, invoking onChange with a freshly loaded
// config whenever the file at path is written. Reload failures are logged
// and the previous config stays in effect.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	if path == "" {
		<-ctx.Done()
		return ctx.Err()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors replace files on save, which drops
	// a watch registered on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch config directory: %w", err)
	}

	slog.Info("watching config file", "path", path)
	target := filepath.Clean(path)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			cfg, err := Load(path)
			if err != nil {
				slog.Error("failed to reload config", "error", err)
				continue
			}
			slog.Info("configuration reloaded")
			if onChange != nil {
				onChange(cfg)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("config watcher error", "error", err)
		}
	}
}
