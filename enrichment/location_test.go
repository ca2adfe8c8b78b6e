package enrichment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractLocationFromAddress(t *testing.T) {
	loc := ExtractLocation(map[string]any{
		"location": "22 Pavle Ingorokva Street, Tbilisi, Georgia",
	})

	assert.Equal(t, "Tbilisi", loc.Primary)
	assert.Equal(t, []string{"Tbilisi"}, loc.All)
	assert.Equal(t, "тбилиси", loc.Region)
	assert.InDelta(t, 0.95, loc.Confidence, 1e-9)
}

func TestExtractLocationFromAddressWithRegion(t *testing.T) {
	loc := ExtractLocation(map[string]any{
		"location": "100 David Aghmashenebeli Ave, Kobuleti, Adjara, Georgia",
	})

	assert.Equal(t, "Kobuleti", loc.Primary)
	assert.Equal(t, "аджария", loc.Region)
	assert.InDelta(t, 0.95, loc.Confidence, 1e-9)
}

func TestExtractLocationUnlistedCityFromAddressParts(t *testing.T) {
	// Second comma part is taken as the city when no known name matches.
	loc := ExtractLocation(map[string]any{
		"location": "12 Main Street, Stepantsminda, Georgia",
	})

	assert.Equal(t, "Stepantsminda", loc.Primary)
	assert.InDelta(t, 0.95, loc.Confidence, 1e-9)
}

func TestExtractLocationFromFlags(t *testing.T) {
	loc := ExtractLocation(map[string]any{
		"is_tbilisi_related": true,
	})

	assert.Equal(t, "Тбилиси", loc.Primary)
	assert.Equal(t, "тбилиси", loc.Region)
	assert.InDelta(t, 0.8, loc.Confidence, 1e-9)
}

func TestExtractLocationFromNER(t *testing.T) {
	loc := ExtractLocation(map[string]any{
		"ner_locations": []any{"25 км", "Сигнахи"},
	})

	assert.Equal(t, "Сигнахи", loc.Primary)
	assert.Equal(t, "кахетия", loc.Region)
	assert.InDelta(t, 0.9, loc.Confidence, 1e-9)
	assert.NotContains(t, loc.All, "25 км")
}

func TestExtractLocationFromTags(t *testing.T) {
	loc := ExtractLocation(map[string]any{
		"tags": []any{"кахетия", "вино"},
	})

	assert.Equal(t, "Кахетия", loc.Primary)
	assert.Equal(t, "кахетия", loc.Region)
	assert.InDelta(t, 0.6, loc.Confidence, 1e-9)
	assert.Equal(t, []string{"кахетия", "вино"}, loc.All)
}

func TestExtractLocationFromName(t *testing.T) {
	loc := ExtractLocation(map[string]any{
		"name": "Ботанический сад, Батуми",
	})

	assert.Equal(t, "Батуми", loc.Primary)
	assert.Equal(t, "аджария", loc.Region)
	assert.InDelta(t, 0.5, loc.Confidence, 1e-9)
}

func TestExtractLocationUnknown(t *testing.T) {
	loc := ExtractLocation(map[string]any{})

	assert.Equal(t, "неизвестно", loc.Primary)
	assert.Empty(t, loc.All)
	assert.Empty(t, loc.Region)
	assert.Zero(t, loc.Confidence)
}

func TestExtractLocationPrefersAddressOverFlags(t *testing.T) {
	loc := ExtractLocation(map[string]any{
		"location":           "Rike Park, Tbilisi, Georgia",
		"is_mtskheta_related": true,
	})

	// The address wins outright; flags are never consulted.
	assert.Equal(t, "Tbilisi", loc.Primary)
	assert.InDelta(t, 0.95, loc.Confidence, 1e-9)
}

func TestCleanLocationName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Тбилиси  ", "Тбилиси"},
		{"3136", ""},
		{"25 км", ""},
		{"x", ""},
		{"12345", ""},
		{"комплекс эрозионных форм", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cleanLocationName(tt.in), "input %q", tt.in)
	}
}

func TestIsValidLocation(t *testing.T) {
	assert.True(t, isValidLocation("тбилиси"))
	assert.True(t, isValidLocation("kakheti"))
	assert.True(t, isValidLocation("თბილისი"))
	assert.True(t, isValidLocation("Гока")) // cyrillic letters pass the heuristic
	assert.False(t, isValidLocation("x"))
	assert.False(t, isValidLocation("12"))
}

func TestSortByPriorityOrdersCitiesFirst(t *testing.T) {
	got := sortByPriority([]string{"вино", "кахетия", "тбилиси", "вино"})

	require.Len(t, got, 3)
	assert.Equal(t, "тбилиси", got[0])
	assert.Equal(t, "кахетия", got[1])
	assert.Equal(t, "вино", got[2])
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "Кобулети", titleCase("кобулети"))
	assert.Equal(t, "Shida Kartli", titleCase("shida kartli"))
	assert.Equal(t, "Самцхе-Джавахети", titleCase("самцхе-джавахети"))
	assert.Equal(t, "Old Tbilisi", titleCase("OLD TBILISI"))
}
