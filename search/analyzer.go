package search

import (
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/tamadze/tamada/config"
	"github.com/tamadze/tamada/vectorstore"
)

// Analyzer turns a raw query into retrieval instructions: cleaned and
// expanded query strings, intent, entities, metadata conditions and a
// filter strategy. It holds no per-query state and is safe for
// concurrent use.
type Analyzer struct {
	explicitLanguageFilter bool
}

func NewAnalyzer(cfg config.SearchConfig) *Analyzer {
	return &Analyzer{explicitLanguageFilter: cfg.ExplicitLanguageFilter}
}

// Analyze derives the full retrieval plan for one query. detectedLang
// is the user-facing language from the multilingual detector; the
// analysis language is re-derived from script ratios because retrieval
// only distinguishes ru, en, ka and mixed.
func (a *Analyzer) Analyze(query, detectedLang string) QueryAnalysis {
	clean := cleanQuery(query)
	lang := detectScript(clean)
	intent := classifyIntent(clean)
	entities := extractEntities(clean)
	conditions, logicalFilters := a.buildConditions(clean)
	strategy := determineStrategy(clean, logicalFilters)

	analysis := QueryAnalysis{
		OriginalQuery:    query,
		CleanedQuery:     clean,
		Language:         lang,
		DetectedLanguage: detectedLang,
		Intent:           intent,
		Entities:         entities,
		Complexity:       assessComplexity(clean),
		SuggestedWeights: suggestWeights(intent),
		EnhancedQuery:    enhanceQuery(clean, lang, intent),
		ImplicitFilters:  extractImplicitFilters(clean),
		SemanticQuery:    buildSemanticQuery(clean, lang, intent),
		Keywords:         extractKeywords(clean, lang),
		Conditions:       conditions,
		FilterStrategy:   strategy,
		DenseQuery:       buildDenseQuery(clean, lang, intent, entities),
	}

	slog.Debug("Query analyzed",
		"intent", intent,
		"language", lang,
		"filters", logicalFilters,
		"strategy", strategy)
	return analysis
}

var (
	punctRE = regexp.MustCompile(`[^\p{L}\p{N}\s\-]+`)
	spaceRE = regexp.MustCompile(`\s+`)
)

func cleanQuery(query string) string {
	q := punctRE.ReplaceAllString(query, " ")
	q = spaceRE.ReplaceAllString(q, " ")
	return strings.ToLower(strings.TrimSpace(q))
}

// detectScript classifies the query by character ratios. Georgian wins
// at a lower threshold because Georgian queries often carry latin
// place spellings.
func detectScript(query string) string {
	var cyrillic, latin, georgian, total int
	for _, r := range strings.ToLower(query) {
		switch {
		case r >= 'а' && r <= 'я' || r == 'ё':
			cyrillic++
			total++
		case r >= 'a' && r <= 'z':
			latin++
			total++
		case r >= 'ა' && r <= 'ჿ':
			georgian++
			total++
		}
	}
	if total == 0 {
		return "mixed"
	}
	switch {
	case float64(georgian)/float64(total) > 0.3:
		return "ka"
	case float64(cyrillic)/float64(total) > 0.5:
		return "ru"
	case float64(latin)/float64(total) > 0.5:
		return "en"
	default:
		return "mixed"
	}
}

func classifyIntent(query string) Intent {
	for _, group := range intentMarkers {
		if containsAny(query, group.markers) {
			return group.intent
		}
	}
	return IntentExploratory
}

func extractEntities(query string) Entities {
	var e Entities
	for _, loc := range locationPatterns {
		if strings.Contains(query, loc.canon) || containsAny(query, loc.variants) {
			e.Locations = append(e.Locations, loc.canon)
		}
	}
	for _, cat := range categoryPatterns {
		if containsAny(query, cat.triggers) {
			e.Categories = append(e.Categories, cat.canon)
		}
	}
	return e
}

func assessComplexity(query string) string {
	switch words := len(strings.Fields(query)); {
	case words <= 2:
		return "simple"
	case words <= 5:
		return "moderate"
	default:
		return "complex"
	}
}

func enhanceQuery(query, language string, intent Intent) string {
	if intent != IntentExploratory {
		return query
	}
	switch language {
	case "ru":
		return query + " туристическая достопримечательность Грузия"
	case "en":
		return query + " tourist attraction Georgia"
	}
	return query
}

func extractImplicitFilters(query string) map[string]bool {
	var filters map[string]bool
	for _, m := range implicitFilterMarkers {
		if containsAny(query, m.markers) {
			if filters == nil {
				filters = make(map[string]bool)
			}
			filters[m.flag] = true
		}
	}
	return filters
}

func suggestWeights(intent Intent) Weights {
	switch intent {
	case IntentFactual:
		return Weights{BM25: 0.7, Dense: 0.2, Metadata: 0.1}
	case IntentNavigational:
		return Weights{BM25: 0.6, Dense: 0.3, Metadata: 0.1}
	case IntentFiltered:
		return Weights{BM25: 0.4, Dense: 0.3, Metadata: 0.3}
	default:
		// Exploratory and comparative queries lean on semantics.
		return Weights{BM25: 0.4, Dense: 0.5, Metadata: 0.1}
	}
}

func buildSemanticQuery(query, language string, intent Intent) string {
	semantic := query + intentSuffix(semanticSuffixes, intent, language)
	for _, ring := range georgianSynonyms {
		if strings.Contains(query, ring.canon) {
			semantic += " " + strings.Join(ring.synonyms[:min(2, len(ring.synonyms))], " ")
			break
		}
	}
	return strings.TrimSpace(semantic)
}

func buildDenseQuery(query, language string, intent Intent, entities Entities) string {
	dense := query + intentSuffix(denseSuffixes, intent, language)
	for _, loc := range entities.Locations {
		if syns, ok := synonymsFor(loc); ok {
			dense += " " + strings.Join(syns[:min(2, len(syns))], " ")
			break
		}
	}
	for _, cat := range entities.Categories {
		if ctx, ok := categoryContext[cat]; ok {
			dense += " " + ctx
			break
		}
	}
	return strings.TrimSpace(dense)
}

// extractKeywords keeps place names verbatim together with their
// transliteration variants, and normalizes everything else.
func extractKeywords(query, language string) []string {
	var keywords []string
	for _, word := range wordRE.FindAllString(strings.ToLower(query), -1) {
		if utf8.RuneCountInString(word) <= 2 {
			continue
		}
		if (language == "ru" && stopwordsRU[word]) || (language == "en" && stopwordsEN[word]) {
			continue
		}

		if isPlaceToken(word) {
			keywords = append(keywords, word)
			for _, v := range translitMap[word] {
				lv := strings.ToLower(v)
				if !slices.Contains(keywords, lv) {
					keywords = append(keywords, lv)
				}
			}
			continue
		}

		keywords = append(keywords, normalizeToken(word, language))
	}
	return keywords
}

// buildConditions returns the metadata conditions plus the logical
// filter count used for strategy selection. The two entity conditions
// (name, tags) count as one filter.
func (a *Analyzer) buildConditions(query string) ([]vectorstore.Condition, int) {
	var conds []vectorstore.Condition
	logical := 0

	for _, fk := range flagKeywords {
		if containsAny(query, fk.keywords) {
			conds = append(conds, vectorstore.MatchValue(fk.flag, true))
			logical++
		}
	}

	for _, entity := range knownEntities {
		if containsWord(query, entity) {
			variants := entityVariants(entity)
			conds = append(conds,
				vectorstore.MatchAnyOf("name", variants...),
				vectorstore.MatchAnyOf("tags", variants...))
			logical++
			slog.Debug("Known entity filter", "entity", entity, "variants", len(variants))
			break
		}
	}

	if a.explicitLanguageFilter {
		switch {
		case strings.Contains(query, "на русском"):
			conds = append(conds, vectorstore.MatchValue("language", "RU"))
			logical++
		case strings.Contains(query, "in english"):
			conds = append(conds, vectorstore.MatchValue("language", "EN"))
			logical++
		}
	}

	return conds, logical
}

func determineStrategy(query string, logicalFilters int) string {
	if logicalFilters == 0 {
		return "loose"
	}
	for _, entity := range knownEntities {
		if strings.Contains(query, entity) {
			if logicalFilters <= 2 {
				return "moderate"
			}
			return "loose"
		}
	}
	return "loose"
}

// entityVariants expands an entity into the case and script variants
// the corpus may use in name or tags fields.
func entityVariants(entity string) []string {
	var variants []string
	seen := make(map[string]bool)
	add := func(vs ...string) {
		for _, v := range vs {
			if v != "" && !seen[v] {
				seen[v] = true
				variants = append(variants, v)
			}
		}
	}

	add(strings.ToLower(entity), strings.ToUpper(entity), capitalize(entity), entity)

	if trans, ok := translitMap[strings.ToLower(entity)]; ok {
		for _, t := range trans {
			add(t, strings.ToLower(t), strings.ToUpper(t), capitalize(t))
		}
	}
	for _, e := range translitTable {
		for _, v := range e.to {
			if strings.EqualFold(v, entity) {
				add(e.from, strings.ToLower(e.from), strings.ToUpper(e.from), capitalize(e.from))
				break
			}
		}
	}
	return variants
}
