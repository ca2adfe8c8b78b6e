package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamadze/tamada/config"
)

func TestCleanQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"punctuation stripped", "Как добраться до Нарикала?!", "как добраться до нарикала"},
		{"spaces collapsed", "крепость    нарикала", "крепость нарикала"},
		{"hyphen kept", "горнолыжный курорт Гудаури-2", "горнолыжный курорт гудаури-2"},
		{"georgian preserved", "ნარიყალა ციხე", "ნარიყალა ციხე"},
		{"emoji removed", "тбилиси 🏰 вечером", "тбилиси вечером"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanQuery(tt.query))
		})
	}
}

func TestDetectScript(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"russian", "крепость нарикала", "ru"},
		{"english", "narikala fortress", "en"},
		{"georgian", "ნარიყალა", "ka"},
		{"georgian with latin", "ნარიყალა fortress", "ka"},
		{"balanced mix", "тбилиси tbilisi", "mixed"},
		{"empty", "", "mixed"},
		{"digits only", "12345", "mixed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detectScript(tt.query))
		})
	}
}

func TestClassifyIntent(t *testing.T) {
	tests := []struct {
		query string
		want  Intent
	}{
		{"что такое вардзия", IntentFactual},
		{"где находится светицховели", IntentFactual},
		{"как добраться до мцхеты", IntentNavigational},
		{"похожие на вардзию места", IntentComparative},
		{"красивые места грузии", IntentExploratory},
		{"только музеи", IntentFiltered},
		// No marker at all defaults to exploratory.
		{"крепость нарикала", IntentExploratory},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyIntent(tt.query))
		})
	}
}

func TestExtractEntities(t *testing.T) {
	e := extractEntities("церковь в тбилиси")
	assert.Equal(t, []string{"тбилиси"}, e.Locations)
	assert.Equal(t, []string{"церковь"}, e.Categories)

	e = extractEntities("batumi museum")
	assert.Equal(t, []string{"батуми"}, e.Locations)
	assert.Equal(t, []string{"музей"}, e.Categories)

	e = extractEntities("озеро рица")
	assert.Empty(t, e.Locations)
	assert.Empty(t, e.Categories)
}

func TestSuggestWeights(t *testing.T) {
	tests := []struct {
		intent Intent
		want   Weights
	}{
		{IntentFactual, Weights{BM25: 0.7, Dense: 0.2, Metadata: 0.1}},
		{IntentNavigational, Weights{BM25: 0.6, Dense: 0.3, Metadata: 0.1}},
		{IntentFiltered, Weights{BM25: 0.4, Dense: 0.3, Metadata: 0.3}},
		{IntentExploratory, Weights{BM25: 0.4, Dense: 0.5, Metadata: 0.1}},
		{IntentComparative, Weights{BM25: 0.4, Dense: 0.5, Metadata: 0.1}},
	}
	for _, tt := range tests {
		t.Run(string(tt.intent), func(t *testing.T) {
			w := suggestWeights(tt.intent)
			assert.Equal(t, tt.want, w)
			assert.InDelta(t, 1.0, w.BM25+w.Dense+w.Metadata, 1e-9)
		})
	}
}

func TestAssessComplexity(t *testing.T) {
	assert.Equal(t, "simple", assessComplexity("нарикала"))
	assert.Equal(t, "moderate", assessComplexity("как добраться до нарикала"))
	assert.Equal(t, "complex", assessComplexity("какие красивые места стоит посмотреть в старом тбилиси"))
}

func TestExtractKeywords(t *testing.T) {
	kws := extractKeywords("крепость нарикала", "ru")

	// The place name stays verbatim and pulls in its transliterations;
	// the common noun is lemmatized.
	assert.Contains(t, kws, "крепост")
	assert.Contains(t, kws, "нарикала")
	assert.Contains(t, kws, "narikala")
	assert.NotContains(t, kws, "крепость")
}

func TestExtractKeywordsDropsStopwords(t *testing.T) {
	kws := extractKeywords("что посмотреть в тбилиси", "ru")

	assert.NotContains(t, kws, "что")
	assert.Contains(t, kws, "тбилиси")
	assert.Contains(t, kws, "tbilisi")
}

func TestBuildSemanticQuery(t *testing.T) {
	got := buildSemanticQuery("красивые места тбилиси", "ru", IntentExploratory)

	// Intent suffix plus the first two synonyms of the matched ring.
	assert.Contains(t, got, "красивые места тбилиси")
	assert.Contains(t, got, "достопримечательность")
	assert.Contains(t, got, "tbilisi")
	assert.Contains(t, got, "тифлис")
}

func TestBuildDenseQuery(t *testing.T) {
	entities := extractEntities("церковь в тбилиси")
	got := buildDenseQuery("церковь в тбилиси", "ru", IntentExploratory, entities)

	assert.Contains(t, got, "церковь в тбилиси")
	assert.Contains(t, got, "туристическая достопримечательность")
	assert.Contains(t, got, "tbilisi")
	assert.Contains(t, got, "религиозный храм православный")
}

func TestBuildConditions(t *testing.T) {
	a := NewAnalyzer(config.SearchConfig{})

	conds, logical := a.buildConditions("крепость нарикала")
	require.Len(t, conds, 3)
	assert.Equal(t, 2, logical)

	assert.Equal(t, "is_historical_site", conds[0].Field)
	assert.Equal(t, true, conds[0].Match)

	assert.Equal(t, "name", conds[1].Field)
	assert.Contains(t, conds[1].MatchAny, "нарикала")
	assert.Contains(t, conds[1].MatchAny, "narikala")
	assert.Contains(t, conds[1].MatchAny, "ნარიყალა")

	assert.Equal(t, "tags", conds[2].Field)
	assert.Equal(t, conds[1].MatchAny, conds[2].MatchAny)
}

func TestBuildConditionsLanguageFilterOff(t *testing.T) {
	a := NewAnalyzer(config.SearchConfig{})
	conds, _ := a.buildConditions("музеи на русском")
	for _, c := range conds {
		assert.NotEqual(t, "language", c.Field)
	}
}

func TestBuildConditionsLanguageFilterOn(t *testing.T) {
	a := NewAnalyzer(config.SearchConfig{ExplicitLanguageFilter: true})
	conds, logical := a.buildConditions("музеи на русском")

	require.Len(t, conds, 1)
	assert.Equal(t, "language", conds[0].Field)
	assert.Equal(t, "RU", conds[0].Match)
	assert.Equal(t, 1, logical)
}

func TestDetermineStrategy(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		filters int
		want    string
	}{
		{"no filters", "красивые места", 0, "loose"},
		{"entity with few filters", "крепость нарикала", 2, "moderate"},
		{"entity with many filters", "крепость нарикала", 3, "loose"},
		{"filters without entity", "красивые церкви", 1, "loose"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, determineStrategy(tt.query, tt.filters))
		})
	}
}

func TestAnalyzeIntegration(t *testing.T) {
	a := NewAnalyzer(config.SearchConfig{})

	analysis := a.Analyze("Где находится крепость Нарикала?", "ru")

	assert.Equal(t, "Где находится крепость Нарикала?", analysis.OriginalQuery)
	assert.Equal(t, "где находится крепость нарикала", analysis.CleanedQuery)
	assert.Equal(t, "ru", analysis.Language)
	assert.Equal(t, "ru", analysis.DetectedLanguage)
	assert.Equal(t, IntentFactual, analysis.Intent)
	assert.Equal(t, Weights{BM25: 0.7, Dense: 0.2, Metadata: 0.1}, analysis.SuggestedWeights)

	// "крепость" triggers the historical flag, "нарикала" the entity
	// pair; two logical filters with a known entity mean moderate.
	assert.Equal(t, "moderate", analysis.FilterStrategy)
	require.Len(t, analysis.Conditions, 3)

	assert.Contains(t, analysis.Keywords, "нарикала")
	assert.Contains(t, analysis.Keywords, "narikala")
	assert.NotEmpty(t, analysis.SemanticQuery)
	assert.Contains(t, analysis.DenseQuery, "информация история описание Грузия")
}

func TestAnalyzeEnglishQuery(t *testing.T) {
	a := NewAnalyzer(config.SearchConfig{})

	analysis := a.Analyze("best museums in Tbilisi", "en")

	assert.Equal(t, "en", analysis.Language)
	assert.Equal(t, IntentExploratory, analysis.Intent)
	assert.Equal(t, []string{"тбилиси"}, analysis.Entities.Locations)
	assert.Equal(t, []string{"музей"}, analysis.Entities.Categories)
	assert.Contains(t, analysis.EnhancedQuery, "tourist attraction Georgia")
	assert.Contains(t, analysis.Keywords, "tbilisi")
	assert.Contains(t, analysis.Keywords, "тбилиси")
}
