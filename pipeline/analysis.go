package pipeline

import "strings"

// Intent is the conversational intent of a question. It picks the
// prompt template and drives the enrichment decision; it is coarser
// than the retrieval-strategy analysis the search engine runs.
type Intent string

const (
	IntentInfoRequest    Intent = "info_request"
	IntentRecommendation Intent = "recommendation"
	IntentRoutePlanning  Intent = "route_planning"
	IntentFollowUp       Intent = "follow_up"
	IntentGeneral        Intent = "general"
)

// Analysis is the per-question plan: what the user wants, which places
// and interests the question names, and whether live web data should
// back the answer.
type Analysis struct {
	OriginalQuery    string   `json:"original_query"`
	Intent           Intent   `json:"intent"`
	DetectedLanguage string   `json:"detected_language"`
	TargetLanguage   string   `json:"target_language"`
	Entities         []string `json:"entities"`
	Preferences      []string `json:"preferences"`
	NeedsEnrichment  bool     `json:"needs_enrichment"`
}

// Analyze classifies one question. Keyword matching is substring-based
// against the lowercased query, in Russian and English. An empty
// target means answer in the detected language.
func Analyze(query, detected, target string) Analysis {
	if target == "" {
		target = detected
	}
	intent := classifyIntent(query)
	entities := extractEntities(query)
	return Analysis{
		OriginalQuery:    query,
		Intent:           intent,
		DetectedLanguage: detected,
		TargetLanguage:   target,
		Entities:         entities,
		Preferences:      extractPreferences(query),
		NeedsEnrichment:  needsEnrichment(query, intent, entities),
	}
}

// Route questions are checked first: "recommend the best route" is a
// routing question, not a recommendation.
var intentKeywords = []struct {
	intent   Intent
	keywords []string
}{
	{IntentRoutePlanning, []string{"how to get", "route", "directions", "как добраться", "маршрут", "путь"}},
	{IntentRecommendation, []string{"recommend", "suggest", "best", "top", "рекомендуете", "посоветуйте", "лучшие"}},
	{IntentInfoRequest, []string{"what is", "tell me about", "information", "что такое", "расскажи о", "информация"}},
	{IntentFollowUp, []string{"more about", "also", "and what about", "еще о", "также", "а что насчет"}},
}

func classifyIntent(query string) Intent {
	q := strings.ToLower(query)
	for _, group := range intentKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(q, kw) {
				return group.intent
			}
		}
	}
	return IntentGeneral
}

// commonPlaces is the fixed gazetteer of corpus places, Russian and
// English spellings side by side.
var commonPlaces = []string{
	"тбилиси", "tbilisi",
	"батуми", "batumi",
	"светицховели", "svetitskhoveli",
	"сванети", "svaneti",
	"кахетия", "kakheti",
	"нарикала", "narikala",
	"вардзия", "vardzia",
	"мцхета", "mtskheta",
	"казбеги", "kazbegi",
	"гудаури", "gudauri",
	"боржоми", "borjomi",
	"уреки", "ureki",
	"пляж уреки",
}

func extractEntities(query string) []string {
	q := strings.ToLower(query)
	entities := []string{}
	for _, place := range commonPlaces {
		if strings.Contains(q, place) {
			entities = append(entities, place)
		}
	}
	return entities
}

var preferenceKeywords = []struct {
	preference string
	keywords   []string
}{
	{"wine", []string{"wine", "вино", "винодельня", "winery"}},
	{"history", []string{"history", "история", "historical", "исторический"}},
	{"nature", []string{"nature", "природа", "mountain", "горы", "озеро", "lake", "пляж", "beach"}},
	{"culture", []string{"culture", "культура", "traditional", "традиционный"}},
	{"architecture", []string{"architecture", "архитектура", "building", "здание"}},
	{"food", []string{"food", "еда", "cuisine", "кухня", "restaurant", "ресторан"}},
	{"adventure", []string{"джипы", "jeep", "off-road", "приключения", "активный отдых"}},
}

func extractPreferences(query string) []string {
	q := strings.ToLower(query)
	prefs := []string{}
	for _, group := range preferenceKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(q, kw) {
				prefs = append(prefs, group.preference)
				break
			}
		}
	}
	return prefs
}

// currentInfoKeywords mark questions about prices and opening hours,
// which go stale in the corpus and always warrant a live lookup.
var currentInfoKeywords = []string{
	"price", "cost", "hours", "open", "closed", "ticket",
	"цена", "стоимость", "часы", "открыт", "закрыт", "билет",
}

var infoRequestKeywords = []string{
	"пляж", "beach", "озеро", "lake", "гора", "mountain",
	"монастырь", "monastery", "церковь", "church", "крепость", "fortress",
	"парк", "park", "музей", "museum", "площадь", "square",
	"расскажи", "tell", "покажи", "show", "что такое", "what is",
}

func needsEnrichment(query string, intent Intent, entities []string) bool {
	q := strings.ToLower(query)
	for _, kw := range currentInfoKeywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	switch intent {
	case IntentRoutePlanning:
		return true
	case IntentRecommendation:
		return len(entities) == 0
	case IntentInfoRequest:
		for _, kw := range infoRequestKeywords {
			if strings.Contains(q, kw) {
				return true
			}
		}
	}
	return false
}
