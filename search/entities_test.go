package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizeRussian(t *testing.T) {
	tokens := tokenize("Что посмотреть в старинной крепости", "ru")

	// "что" is a stopword, "в" too short, the rest is lemmatized.
	assert.NotContains(t, tokens, "что")
	assert.Contains(t, tokens, "посмотрет")
	assert.Contains(t, tokens, "старинн")
	assert.Contains(t, tokens, "крепост")
}

func TestTokenizeEnglish(t *testing.T) {
	tokens := tokenize("the beautiful churches near Tbilisi", "en")

	assert.NotContains(t, tokens, "the")
	assert.Contains(t, tokens, "beauti")
	assert.Contains(t, tokens, "church")
	// Place names survive stemming untouched.
	assert.Contains(t, tokens, "tbilisi")
}

func TestTokenizeDefaultLanguage(t *testing.T) {
	tokens := tokenize("ციხე ნარიყალა ka", "ka")

	assert.Equal(t, []string{"ციხე", "ნარიყალა"}, tokens)
}

func TestNormalizeTokenKeepsPlaceNames(t *testing.T) {
	tests := []struct {
		word     string
		language string
		want     string
	}{
		{"нарикала", "ru", "нарикала"},
		{"светицховели", "ru", "светицховели"},
		{"tbilisi", "en", "tbilisi"},
		{"крепости", "ru", "крепост"},
		{"museums", "en", "museum"},
	}
	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeToken(tt.word, tt.language))
		})
	}
}

func TestLemmatizeRussian(t *testing.T) {
	tests := []struct {
		word string
		want string
	}{
		{"крепости", "крепост"},
		{"церкви", "церкв"},
		{"красивая", "красив"},
		{"музеями", "музе"},
		{"дом", "дом"},
		// Too short to strip: at least three runes must remain.
		{"еда", "еда"},
	}
	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			assert.Equal(t, tt.want, lemmatizeRussian(tt.word))
		})
	}
}

func TestStemEnglish(t *testing.T) {
	tests := []struct {
		word string
		want string
	}{
		{"churches", "church"},
		{"galleries", "gallery"},
		{"fortress", "fortress"},
		{"walking", "walk"},
		{"cat", "cat"},
	}
	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			assert.Equal(t, tt.want, stemEnglish(tt.word))
		})
	}
}

func TestContainsWord(t *testing.T) {
	tests := []struct {
		name     string
		haystack string
		needle   string
		want     bool
	}{
		{"exact match", "нарикала", "нарикала", true},
		{"word in phrase", "крепость нарикала вечером", "нарикала", true},
		{"prefix of longer word", "нарикалаский район", "нарикала", false},
		{"suffix of longer word", "принарикала", "нарикала", false},
		{"latin word boundary", "visit old town today", "old town", true},
		{"empty needle", "нарикала", "", false},
		{"absent", "крепость", "нарикала", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, containsWord(tt.haystack, tt.needle))
		})
	}
}

func TestCapitalize(t *testing.T) {
	assert.Equal(t, "Нарикала", capitalize("нарикала"))
	assert.Equal(t, "Narikala", capitalize("nARIKALA"))
	assert.Equal(t, "", capitalize(""))
}

func TestTitleWords(t *testing.T) {
	assert.Equal(t, "Old Town", titleWords("old town"))
	assert.Equal(t, "Мост Мира", titleWords("мост мира"))
}

func TestIntentSuffix(t *testing.T) {
	assert.Equal(t,
		" информация история описание Грузия",
		intentSuffix(denseSuffixes, IntentFactual, "ru"))
	// Unknown language falls back to the default suffix.
	assert.Equal(t,
		" information history description Georgia",
		intentSuffix(denseSuffixes, IntentFactual, "mixed"))
	assert.Equal(t, "", intentSuffix(semanticSuffixes, IntentNavigational, "ru"))
}

func TestSynonymsFor(t *testing.T) {
	syns, ok := synonymsFor("тбилиси")
	assert.True(t, ok)
	assert.Contains(t, syns, "tbilisi")

	_, ok = synonymsFor("марс")
	assert.False(t, ok)
}
