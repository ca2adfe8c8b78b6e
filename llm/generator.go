// Package llm turns assembled retrieval context into tourism answers.
// The generator fills an intent-specific English prompt, pins the output
// language with an instruction block and calls the Anthropic Messages
// API. Degraded paths (timeout, API failure) still produce a localized
// answer so the HTTP surface never shows a raw error to the user.
package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/tamadze/tamada/multilingual"
	"github.com/tamadze/tamada/observability"
)

const defaultGenerateTimeout = 30 * time.Second

// TokenUsage is the model's token accounting for one answer.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Total is input plus output tokens.
func (u TokenUsage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// GenerationInfo describes how the answer was produced. Generation is
// always direct: the model writes in the target language, nothing is
// translated afterwards.
type GenerationInfo struct {
	DirectGeneration bool   `json:"direct_generation"`
	LLMLanguage      string `json:"llm_language"`
	TranslationUsed  bool   `json:"translation_used"`
}

// Answer is the generation result. It is always usable: degraded paths
// fill Response with a localized message and set Err.
type Answer struct {
	Response        string         `json:"response"`
	Language        string         `json:"language"`
	TokenUsage      TokenUsage     `json:"token_usage"`
	EnrichmentUsed  bool           `json:"enrichment_used"`
	ImagesAvailable int            `json:"images_available"`
	Generation      GenerationInfo `json:"generation_info"`
	Model           string         `json:"model,omitempty"`
	WithDisclaimer  bool           `json:"with_disclaimer"`
	Err             string         `json:"error,omitempty"`
}

// Generator produces answers in the user's language from a Context.
type Generator struct {
	client      Completer
	disclaimers *Disclaimers
	tracer      *observability.Tracer
	timeout     time.Duration
}

// NewGenerator wraps a Completer. A nil disclaimers skips the advisory
// pass; timeout <= 0 means the 30s default.
func NewGenerator(client Completer, disclaimers *Disclaimers, tracer *observability.Tracer, timeout time.Duration) *Generator {
	if timeout <= 0 {
		timeout = defaultGenerateTimeout
	}
	return &Generator{
		client:      client,
		disclaimers: disclaimers,
		tracer:      tracer,
		timeout:     timeout,
	}
}

// Generate answers in the context's target language. The returned Answer
// is never nil; when err is non-nil the Answer carries a localized
// fallback message and Answer.Err names the failure.
func (g *Generator) Generate(ctx context.Context, c *Context) (*Answer, error) {
	target := c.QueryInfo.TargetLanguage
	if target == "" {
		target = "en"
	}

	ctx, span := g.tracer.StartStage(ctx, observability.SpanGenerate)
	defer span.End()

	prompt := buildPrompt(c, target)

	cctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	completion, err := g.client.Complete(cctx, "", []Message{{Role: "user", Content: prompt}})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(cctx.Err(), context.DeadlineExceeded) {
			slog.Error("answer generation timed out", "language", target)
			return &Answer{Response: TimeoutMessage(target), Language: target, Err: "timeout"}, err
		}
		slog.Error("answer generation failed", "language", target, "error", err)
		return &Answer{Response: ErrorMessage(target), Language: target, Err: err.Error()}, err
	}

	g.tracer.AddLLMUsage(span, completion.InputTokens, completion.OutputTokens)

	text := completion.Text
	withDisclaimer := false
	if g.disclaimers != nil {
		text, withDisclaimer = g.disclaimers.Apply(text, target)
	}

	slog.Info("answer generated",
		"language", target,
		"chars", len(text),
		"input_tokens", completion.InputTokens,
		"output_tokens", completion.OutputTokens)

	return &Answer{
		Response:        text,
		Language:        target,
		TokenUsage:      TokenUsage{InputTokens: completion.InputTokens, OutputTokens: completion.OutputTokens},
		EnrichmentUsed:  c.Enrichment != nil,
		ImagesAvailable: len(c.Images),
		Model:           completion.Model,
		WithDisclaimer:  withDisclaimer,
		Generation: GenerationInfo{
			DirectGeneration: true,
			LLMLanguage:      target,
			TranslationUsed:  false,
		},
	}, nil
}

// buildPrompt glues the language instruction onto the filled intent
// template. The instruction comes first so it wins over anything the
// document text might suggest.
func buildPrompt(c *Context, target string) string {
	filled := fillTemplate(promptTemplate(c.QueryInfo.Intent), c)
	return multilingual.LanguageInstruction(target) + "\n\n" + filled
}
