package embedder

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tamadze/tamada/cache"
	"github.com/tamadze/tamada/config"
)

// Registry holds embedder instances for the process lifetime. First
// use constructs the provider; concurrent first users are collapsed
// into one construction by singleflight.
type Registry struct {
	cfg   config.EmbedderConfig
	store *cache.Store

	group     singleflight.Group
	mu        sync.RWMutex
	instances map[string]*loadedModel

	cacheHits atomic.Int64
	totalGets atomic.Int64
}

type loadedModel struct {
	embedder Embedder
	loadTime time.Duration
	loadedAt time.Time
	useCount atomic.Int64
}

// NewRegistry creates an empty registry; nothing is constructed until
// the first Get.
func NewRegistry(cfg config.EmbedderConfig, store *cache.Store) *Registry {
	return &Registry{
		cfg:       cfg,
		store:     store,
		instances: make(map[string]*loadedModel),
	}
}

// Default returns the configured model's embedder.
func (r *Registry) Default(ctx context.Context) (Embedder, error) {
	return r.Get(ctx, r.cfg.Model)
}

// Get returns the embedder for a model, constructing it on first use.
func (r *Registry) Get(ctx context.Context, model string) (Embedder, error) {
	r.totalGets.Add(1)

	r.mu.RLock()
	lm, ok := r.instances[model]
	r.mu.RUnlock()
	if ok {
		r.cacheHits.Add(1)
		lm.useCount.Add(1)
		return lm.embedder, nil
	}

	v, err, _ := r.group.Do(model, func() (any, error) {
		r.mu.RLock()
		lm, ok := r.instances[model]
		r.mu.RUnlock()
		if ok {
			return lm, nil
		}

		start := time.Now()
		emb, err := r.build(ctx, model)
		if err != nil {
			return nil, err
		}

		lm = &loadedModel{
			embedder: emb,
			loadTime: time.Since(start),
			loadedAt: time.Now().UTC(),
		}
		r.mu.Lock()
		r.instances[model] = lm
		r.mu.Unlock()

		slog.Info("Embedder loaded",
			"provider", r.cfg.Provider,
			"model", model,
			"dimension", emb.Dimension(),
			"load_time", lm.loadTime)
		return lm, nil
	})
	if err != nil {
		return nil, err
	}

	lm = v.(*loadedModel)
	lm.useCount.Add(1)
	return lm.embedder, nil
}

func (r *Registry) build(ctx context.Context, model string) (Embedder, error) {
	switch r.cfg.Provider {
	case "gemini":
		return NewGeminiEmbedder(ctx, GeminiConfig{
			APIKey:    r.cfg.APIKey,
			Model:     model,
			Dimension: r.cfg.Dimension,
			Timeout:   time.Duration(r.cfg.Timeout) * time.Second,
		})
	case "openai":
		return NewOpenAIEmbedder(OpenAIConfig{
			APIKey:    r.cfg.APIKey,
			BaseURL:   r.cfg.BaseURL,
			Model:     model,
			Dimension: r.cfg.Dimension,
			Timeout:   time.Duration(r.cfg.Timeout) * time.Second,
			BatchSize: r.cfg.BatchSize,
		})
	default:
		return nil, fmt.Errorf("unsupported embedder provider: %s (supported: gemini, openai)", r.cfg.Provider)
	}
}

// EmbedCached embeds a text through the query-embedding cache. The
// second return value reports whether the vector came from cache.
func (r *Registry) EmbedCached(ctx context.Context, text string) ([]float32, bool, error) {
	key := cache.Key(strings.ToLower(strings.TrimSpace(text)))

	if r.store != nil {
		if vector, ok := cache.GetJSON[[]float32](ctx, r.store, cache.NSDenseEmbeddings, key); ok {
			return vector, true, nil
		}
	}

	emb, err := r.Default(ctx)
	if err != nil {
		return nil, false, err
	}
	vector, err := emb.Embed(ctx, strings.TrimSpace(text))
	if err != nil {
		return nil, false, err
	}

	if r.store != nil {
		if err := r.store.SetJSON(ctx, cache.NSDenseEmbeddings, key, vector, 0); err != nil {
			slog.Warn("Failed to cache embedding", "error", err)
		}
	}
	return vector, false, nil
}

// Close tears down every loaded provider.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for model, lm := range r.instances {
		if err := lm.embedder.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close embedder %s: %w", model, err)
		}
	}
	r.instances = make(map[string]*loadedModel)
	return firstErr
}

// ModelStats describes one loaded model.
type ModelStats struct {
	LoadTimeSeconds float64 `json:"load_time_seconds"`
	LoadedAt        string  `json:"loaded_at"`
	UseCount        int64   `json:"use_count"`
	Dimension       int     `json:"dimension"`
}

// Stats describes registry activity.
type Stats struct {
	Models         map[string]ModelStats `json:"models"`
	CacheHits      int64                 `json:"cache_hits"`
	TotalGets      int64                 `json:"total_gets"`
	HitRatePercent float64               `json:"hit_rate_percent"`
}

// Stats returns a snapshot of loaded models and holder hit rate.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := Stats{
		Models:    make(map[string]ModelStats, len(r.instances)),
		CacheHits: r.cacheHits.Load(),
		TotalGets: r.totalGets.Load(),
	}
	if out.TotalGets > 0 {
		out.HitRatePercent = math.Round(float64(out.CacheHits)/float64(out.TotalGets)*10000) / 100
	}
	for model, lm := range r.instances {
		out.Models[model] = ModelStats{
			LoadTimeSeconds: lm.loadTime.Seconds(),
			LoadedAt:        lm.loadedAt.Format(time.RFC3339),
			UseCount:        lm.useCount.Load(),
			Dimension:       lm.embedder.Dimension(),
		}
	}
	return out
}
