package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedRand(v float64) func() float64 {
	return func() float64 { return v }
}

func TestNewDisclaimers(t *testing.T) {
	require.NotNil(t, NewDisclaimers().rand)
}

func TestApplyPriceDisclaimer(t *testing.T) {
	d := &Disclaimers{rand: fixedRand(0.99)}

	answer := "Вход в крепость стоит 10 лари."
	out, added := d.Apply(answer, "ru")

	assert.True(t, added)
	assert.True(t, strings.HasPrefix(out, answer+"\n\n---\n\n"))
	assert.Contains(t, out, disclaimerHeaders["ru"])
	assert.Contains(t, out, disclaimerTexts["ru"]["price"])
	assert.NotContains(t, out, disclaimerTexts["ru"]["transport"])
}

func TestApplyJoinsSectionsInDetectionOrder(t *testing.T) {
	d := &Disclaimers{rand: fixedRand(0.99)}

	// "билет" -> price, "открыта" -> schedule, "дорога" -> transport.
	out, added := d.Apply("Канатная дорога открыта весь день, билет стоит 5 лари.", "ru")

	require.True(t, added)
	price := strings.Index(out, disclaimerTexts["ru"]["price"])
	schedule := strings.Index(out, disclaimerTexts["ru"]["schedule"])
	transport := strings.Index(out, disclaimerTexts["ru"]["transport"])
	require.True(t, price >= 0 && schedule >= 0 && transport >= 0)
	assert.Less(t, price, schedule)
	assert.Less(t, schedule, transport)
	assert.NotContains(t, out, disclaimerTexts["ru"]["seasonal"])
}

func TestApplyGeneralDisclaimerProbability(t *testing.T) {
	answer := "Welcome to Georgia!"

	hit := &Disclaimers{rand: fixedRand(0.1)}
	out, added := hit.Apply(answer, "en")
	assert.True(t, added)
	assert.Equal(t, answer+"\n\n"+disclaimerTexts["en"]["general"], out)

	miss := &Disclaimers{rand: fixedRand(0.9)}
	out, added = miss.Apply(answer, "en")
	assert.False(t, added)
	assert.Equal(t, answer, out)
}

func TestApplyUnknownLanguageFallsBackToEnglish(t *testing.T) {
	d := &Disclaimers{rand: fixedRand(0.99)}

	out, added := d.Apply("Tickets cost 5 GEL.", "sw")

	assert.True(t, added)
	assert.Contains(t, out, disclaimerHeaders["en"])
	assert.Contains(t, out, disclaimerTexts["en"]["price"])
}

func TestApplyLocalizedHeaders(t *testing.T) {
	d := &Disclaimers{rand: fixedRand(0.99)}

	for _, lang := range []string{"ka", "de", "fr", "ja", "ar"} {
		out, added := d.Apply("The ticket price is 5 GEL.", lang)
		assert.True(t, added, lang)
		assert.Contains(t, out, disclaimerHeaders[lang], lang)
		assert.Contains(t, out, disclaimerTexts[lang]["price"], lang)
	}
}

func TestDetectContentTypes(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		want   []string
	}{
		{"price english", "The entrance fee is 5 GEL", []string{"price"}},
		{"price symbol", "Entry costs 3₾ per person", []string{"price"}},
		{"schedule german", "Die Öffnungszeiten ändern sich im Dezember", []string{"schedule"}},
		{"seasonal russian", "Перевал закрыт из-за снега", []string{"schedule", "seasonal"}},
		{"transport english", "Take the bus from the station", []string{"transport"}},
		{"case folding", "OPEN daily", []string{"schedule"}},
		{"nothing", "Добро пожаловать в Грузию!", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := detectContentTypes(tt.answer)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDisclaimerTablesCoverSameLanguages(t *testing.T) {
	for lang, texts := range disclaimerTexts {
		assert.Contains(t, disclaimerHeaders, lang)
		for _, ct := range []string{"price", "schedule", "seasonal", "transport", "general"} {
			assert.NotEmpty(t, texts[ct], "%s/%s", lang, ct)
		}
	}
}
