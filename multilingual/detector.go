// Package multilingual detects query languages, translates queries for
// retrieval and renders the language instructions the generator needs.
// Eighteen languages are served; corpus documents stay in their
// original Russian or English.
package multilingual

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"unicode"
)

// LanguageResolver is the remote fallback consulted when neither
// scripts nor vocabularies decide. The Translator implements it.
type LanguageResolver interface {
	ResolveLanguage(ctx context.Context, text string) (string, error)
}

// Detector identifies the language of a query. Detection is layered:
// script ranges first, distinctive whole words second, a remote model
// third, English as the final default.
type Detector struct {
	fallback LanguageResolver
}

// NewDetector builds a detector. fallback may be nil, which disables
// the remote stage. Vocabulary overlaps are reported once here.
func NewDetector(fallback LanguageResolver) *Detector {
	if overlaps := VerifyNoOverlaps(); len(overlaps) > 0 {
		slog.Error("Language vocabularies overlap, detection may be unreliable", "overlaps", overlaps)
	}
	return &Detector{fallback: fallback}
}

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Detect returns the ISO 639-1 code for text, "en" when undecidable.
func (d *Detector) Detect(ctx context.Context, text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "en"
	}

	if lang, ok := detectByScript(trimmed); ok {
		slog.Debug("Language detected by script", "language", lang)
		return lang
	}

	tokens := make(map[string]struct{})
	for _, word := range wordPattern.FindAllString(strings.ToLower(trimmed), -1) {
		tokens[word] = struct{}{}
	}
	if lang, ok := matchVocabulary(tokens); ok {
		slog.Debug("Language detected by vocabulary", "language", lang)
		return lang
	}

	if d.fallback != nil {
		lang, err := d.fallback.ResolveLanguage(ctx, trimmed)
		if err != nil {
			slog.Warn("Remote language detection failed", "error", err)
		} else if IsSupported(lang) {
			slog.Debug("Language detected by model", "language", lang)
			return lang
		}
	}

	slog.Debug("Language detection fell through, defaulting to en")
	return "en"
}

// detectByScript decides from character ranges alone. Georgian wins on
// a single rune; Armenian and Cyrillic need 30% of the letters; Han
// with kana means Japanese, Han alone Chinese.
func detectByScript(text string) (string, bool) {
	var (
		georgian, armenian, han, kana  bool
		hangul, arabic, devanagari     bool
		armenianCount, cyrillicCount   int
		letters                        int
	)

	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
		}
		switch {
		case r >= 0x10A0 && r <= 0x10FF:
			georgian = true
		case r >= 0x0530 && r <= 0x058F:
			armenian = true
			armenianCount++
		case r >= 0x4E00 && r <= 0x9FFF:
			han = true
		case (r >= 0x3040 && r <= 0x309F) || (r >= 0x30A0 && r <= 0x30FF):
			kana = true
		case r >= 0xAC00 && r <= 0xD7AF:
			hangul = true
		case r >= 0x0600 && r <= 0x06FF:
			arabic = true
		case r >= 0x0900 && r <= 0x097F:
			devanagari = true
		case r >= 0x0400 && r <= 0x04FF:
			cyrillicCount++
		}
	}

	switch {
	case georgian:
		return "ka", true
	case armenian && letters > 0 && float64(armenianCount)/float64(letters) > 0.3:
		return "hy", true
	case han && kana:
		return "ja", true
	case han:
		return "zh", true
	case hangul:
		return "ko", true
	case arabic:
		return "ar", true
	case devanagari:
		return "hi", true
	case letters > 0 && float64(cyrillicCount)/float64(letters) > 0.3:
		return "ru", true
	}
	return "", false
}

// ShouldTranslate reports whether a query in lang needs translation
// before retrieval. The corpus is Russian and English, so only those
// two skip it; unknown codes translate.
func ShouldTranslate(lang string) bool {
	return lang != "en" && lang != "ru"
}
