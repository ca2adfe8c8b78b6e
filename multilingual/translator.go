package multilingual

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"google.golang.org/genai"

	"github.com/tamadze/tamada/cache"
	"github.com/tamadze/tamada/config"
)

const (
	translateMaxTokens = 150
	detectMaxTokens    = 10
	detectSampleRunes  = 200
)

// Translator performs query translation and remote language detection
// through the Gemini API. Both are best-effort: a failed translation
// returns the original text and the pipeline continues.
type Translator struct {
	client  *genai.Client
	model   string
	store   *cache.Store
	timeout time.Duration

	hits   atomic.Int64
	misses atomic.Int64
	errors atomic.Int64
	total  atomic.Int64
}

// NewTranslator builds the translator. store may be nil, which
// disables translation caching.
func NewTranslator(ctx context.Context, cfg config.TranslatorConfig, store *cache.Store) (*Translator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create translator client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Translator{
		client:  client,
		model:   model,
		store:   store,
		timeout: timeout,
	}, nil
}

// Translate converts text between languages with write-through
// caching. On any failure the original text comes back.
func (t *Translator) Translate(ctx context.Context, text, source, target string) string {
	return t.translate(ctx, text, source, target, false)
}

// TranslatePermanent is Translate with a permanent cache entry, used
// for texts that never change (attraction names, fixed labels).
func (t *Translator) TranslatePermanent(ctx context.Context, text, source, target string) string {
	return t.translate(ctx, text, source, target, true)
}

func (t *Translator) translate(ctx context.Context, text, source, target string, permanent bool) string {
	if strings.TrimSpace(text) == "" || source == target {
		return text
	}
	t.total.Add(1)

	key := cache.Key(text, source, target)
	if t.store != nil {
		if cached, ok := cache.GetJSON[string](ctx, t.store, cache.NSTranslationPermanent, key); ok {
			t.hits.Add(1)
			return cached
		}
		if cached, ok := cache.GetJSON[string](ctx, t.store, cache.NSTranslationTemp, key); ok {
			t.hits.Add(1)
			return cached
		}
	}
	t.misses.Add(1)

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	prompt := fmt.Sprintf("Translate this to %s. Return ONLY the translation:\n\n%s", LanguageName(target), text)
	resp, err := t.client.Models.GenerateContent(ctx, t.model, genai.Text(prompt), &genai.GenerateContentConfig{
		MaxOutputTokens: translateMaxTokens,
		Temperature:     genai.Ptr(float32(0.3)),
	})
	if err != nil {
		t.errors.Add(1)
		slog.Warn("Translation failed, keeping original text",
			"source", source, "target", target, "error", err)
		return text
	}

	translated := strings.TrimSpace(resp.Text())
	translated = strings.Trim(translated, `"'`)
	if translated == "" {
		t.errors.Add(1)
		return text
	}

	if t.store != nil {
		if permanent {
			_ = t.store.SetJSONPermanent(ctx, cache.NSTranslationPermanent, key, translated)
		} else {
			_ = t.store.SetJSON(ctx, cache.NSTranslationTemp, key, translated, 24*time.Hour)
		}
	}

	slog.Debug("Translated query", "source", source, "target", target)
	return translated
}

// ResolveLanguage asks the model for an ISO 639-1 code. The reply is
// validated against the supported set before anyone trusts it.
func (t *Translator) ResolveLanguage(ctx context.Context, text string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	sample := text
	if runes := []rune(sample); len(runes) > detectSampleRunes {
		sample = string(runes[:detectSampleRunes])
	}

	prompt := fmt.Sprintf("What language is this? Reply with ONLY the ISO 639-1 code "+
		"(en, ru, ka, ko, ja, zh, ar, de, fr, es, it, nl, pl, cs, tr, hi, hy, az):\n\n%s", sample)

	resp, err := t.client.Models.GenerateContent(ctx, t.model, genai.Text(prompt), &genai.GenerateContentConfig{
		MaxOutputTokens: detectMaxTokens,
		Temperature:     genai.Ptr(float32(0)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to detect language: %w", err)
	}

	code := strings.ToLower(strings.TrimSpace(resp.Text()))
	if !IsSupported(code) {
		return "", fmt.Errorf("model returned unsupported language code %q", code)
	}
	return code, nil
}

// Stats describes translation cache behavior.
type Stats struct {
	TranslationHits     int64   `json:"translation_hits"`
	TranslationMisses   int64   `json:"translation_misses"`
	TranslationErrors   int64   `json:"translation_errors"`
	TotalTranslations   int64   `json:"total_translations"`
	TotalCacheRequests  int64   `json:"total_cache_requests"`
	CacheHitRatePercent float64 `json:"cache_hit_rate_percent"`
}

func (t *Translator) Stats() Stats {
	out := Stats{
		TranslationHits:   t.hits.Load(),
		TranslationMisses: t.misses.Load(),
		TranslationErrors: t.errors.Load(),
		TotalTranslations: t.total.Load(),
	}
	out.TotalCacheRequests = out.TranslationHits + out.TranslationMisses
	if out.TotalCacheRequests > 0 {
		out.CacheHitRatePercent = math.Round(float64(out.TranslationHits)/float64(out.TotalCacheRequests)*10000) / 100
	}
	return out
}

var _ LanguageResolver = (*Translator)(nil)
