package search

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// The gazetteer below is tuned to the corpus: a fixed set of Georgian
// attractions described in Russian with English and Georgian spellings
// in names and tags. Tables are slices, not maps, wherever iteration
// order feeds a query string or a cache key.

type synonymRing struct {
	canon    string
	synonyms []string
}

var georgianSynonyms = []synonymRing{
	{"тбилиси", []string{"tbilisi", "тифлис", "თბილისი"}},
	{"светицховели", []string{"svetitskhoveli", "სვეტიცხოველი"}},
	{"церковь", []string{"храм", "собор", "монастырь", "church", "cathedral"}},
	{"крепость", []string{"fortress", "castle", "ციხე", "замок"}},
	{"мцхета", []string{"mtskheta", "მცხეთა"}},
	{"вардзия", []string{"vardzia", "ვარძია"}},
	{"сванетия", []string{"svaneti", "სვანეთი"}},
	{"батуми", []string{"batumi", "ბათუმი"}},
	{"кутаиси", []string{"kutaisi", "ქუთაისი"}},
	{"гори", []string{"gori", "გორი"}},
	{"боржоми", []string{"borjomi", "ბორჯომი"}},
}

func synonymsFor(location string) ([]string, bool) {
	for _, ring := range georgianSynonyms {
		if ring.canon == location {
			return ring.synonyms, true
		}
	}
	return nil, false
}

// flagKeywords maps query vocabulary to the corpus boolean payload
// flags used by the prefilter strategies.
var flagKeywords = []struct {
	flag     string
	keywords []string
}{
	{"is_religious_site", []string{
		"церковь", "храм", "монастырь", "собор", "church", "cathedral", "monastery",
		"ტაძარი", "ეკლესია", "მონასტერი", "ღვთისმშობლის", "წმინდა",
	}},
	{"is_historical_site", []string{
		"крепость", "fortress", "castle", "замок", "дворец", "palace",
	}},
	{"is_nature_tourism", []string{
		"водопад", "waterfall", "заповедник", "wildlife", "термальный", "thermal",
		"горнолыжный", "ski resort",
	}},
	{"is_cultural_heritage", []string{
		"винодельня", "winery", "дегустация", "tasting", "музей", "museum",
		"галерея", "gallery", "театр", "theater", "опера", "opera",
	}},
}

// knownEntities are places confirmed to exist in the collection, in all
// spellings the corpus uses. Matching one yields a targeted name/tags
// filter instead of broad metadata flags.
var knownEntities = []string{
	"светицховели", "svetitskhoveli", "სვეტიცხოველი", "sveticxoveli",
	"нарикала", "narikala", "ნარიყალა",
	"уплисцихе", "uplistsikhe", "უფლისციხე", "upliscixe",
	"вардзия", "vardzia", "ვარძია", "вардзиа",
	"батуми", "batumi", "ბათუმი",
	"тбилиси", "tbilisi", "თბილისი",
	"боржоми", "borjomi", "ბორჯომი",
	"мцхета", "mtskheta", "მცხეთა",
	"мост мира", "bridge of peace", "мирис хиди",
	"старый город", "old town", "дзвели калаки",
	"площадь европы", "europe square",
	"мтацминда", "mtatsminda", "მთაწმინდა",
	"сололаки", "sololaki",
	"авлабари", "avlabari",
}

type translitEntry struct {
	from string
	to   []string
}

// translitTable carries spellings across the three scripts, in both
// directions. Georgian generic nouns map onto their ru/en category words.
var translitTable = []translitEntry{
	{"светицховели", []string{"svetitskhoveli", "Svetitskhoveli", "sveticxoveli"}},
	{"svetitskhoveli", []string{"светицховели", "Светицховели"}},
	{"სვეტიცხოველი", []string{"svetitskhoveli", "Svetitskhoveli", "светицховели"}},
	{"нарикала", []string{"narikala", "Narikala", "нарикала"}},
	{"narikala", []string{"нарикала", "Нарикала"}},
	{"ნარიყალა", []string{"narikala", "Narikala", "нарикала"}},
	{"тбилиси", []string{"tbilisi", "Tbilisi"}},
	{"tbilisi", []string{"тбилиси", "Тбилиси"}},
	{"თბილისი", []string{"tbilisi", "Tbilisi", "тбилиси"}},
	{"мцхета", []string{"mtskheta", "Mtskheta"}},
	{"მცხეთა", []string{"mtskheta", "Mtskheta", "мцхета"}},
	{"батуми", []string{"batumi", "Batumi"}},
	{"ბათუმი", []string{"batumi", "Batumi", "батуми"}},
	{"боржоми", []string{"borjomi", "Borjomi"}},
	{"ბორჯომი", []string{"borjomi", "Borjomi", "боржоми"}},
	{"уплисцихе", []string{"uplistsikhe", "Uplistsikhe"}},
	{"უფლისციხე", []string{"uplistsikhe", "Uplistsikhe", "уплисцихе"}},
	{"вардзия", []string{"vardzia", "Vardzia"}},
	{"ვარძია", []string{"vardzia", "Vardzia", "вардзия"}},
	{"ტაძარი", []string{"cathedral", "собор", "church"}},
	{"ეკლესია", []string{"church", "церковь"}},
	{"მონასტერი", []string{"monastery", "монастырь"}},
}

var translitMap = func() map[string][]string {
	m := make(map[string][]string, len(translitTable))
	for _, e := range translitTable {
		m[e.from] = e.to
	}
	return m
}()

var locationPatterns = []struct {
	canon    string
	variants []string
}{
	{"тбилиси", []string{"tbilisi", "თბილისი"}},
	{"батуми", []string{"batumi", "ბათუმი"}},
	{"мцхета", []string{"mtskheta", "მცხეთა"}},
	{"боржоми", []string{"borjomi", "ბორჯომი"}},
}

var categoryPatterns = []struct {
	canon    string
	triggers []string
}{
	{"церковь", []string{"церковь", "храм", "собор", "church", "cathedral"}},
	{"крепость", []string{"крепость", "замок", "fortress", "castle"}},
	{"музей", []string{"музей", "museum"}},
}

// categoryContext widens the dense query with corpus vocabulary for a
// recognized category.
var categoryContext = map[string]string{
	"церковь":  "религиозный храм православный",
	"крепость": "историческая архитектура фортификация",
	"музей":    "культурное наследие экспозиция",
	"парк":     "природа отдых прогулка",
	"гора":     "альпинизм походы природа",
	"озеро":    "водоем природа рыбалка",
	"водопад":  "природа каскад вода",
}

// intentMarkers are checked in order; the first list with a match wins.
var intentMarkers = []struct {
	intent  Intent
	markers []string
}{
	{IntentFactual, []string{"где", "when", "что такое", "what is", "где находится", "where is"}},
	{IntentNavigational, []string{"как добраться", "how to get", "маршрут", "route", "дорога"}},
	{IntentComparative, []string{"похожие", "similar", "как", "like", "сравнить", "compare"}},
	{IntentExploratory, []string{"красивые", "интересные", "лучшие", "beautiful", "interesting", "best"}},
	{IntentFiltered, []string{"фильтр", "filter", "только", "only", "тип", "type"}},
}

var implicitFilterMarkers = []struct {
	flag    string
	markers []string
}{
	{"has_images", []string{"с фото", "with photo", "изображение", "картинка"}},
	{"is_recent", []string{"новинка", "новое", "recent", "new"}},
	{"has_religion_tags", []string{"церковь", "храм", "монастырь", "church", "cathedral", "monastery"}},
	{"has_nature_tags", []string{"гора", "озеро", "водопад", "парк", "mountain", "lake", "waterfall", "park"}},
	{"is_historical_site", []string{"крепость", "замок", "музей", "fortress", "castle", "museum"}},
}

// denseSuffixes extend the dense query per intent and language. The
// empty key is the default for languages without a dedicated suffix.
var denseSuffixes = map[Intent]map[string]string{
	IntentExploratory: {
		"ru": " красивая туристическая достопримечательность Грузия туризм",
		"ka": " ლამაზი ტურისტული ღირსშესანიშნაობა საქართველო ტურიზმი beautiful tourist attraction Georgia",
		"":   " beautiful tourist attraction Georgia tourism",
	},
	IntentFactual: {
		"ru": " информация история описание Грузия",
		"ka": " ინფორმაცია ისტორია აღწერა საქართველო information history Georgia",
		"":   " information history description Georgia",
	},
	IntentComparative: {
		"ru": " похожий архитектура стиль",
		"ka": " მსგავსი არქიტექტურა სტილი similar architecture style",
		"":   " similar architecture style",
	},
	IntentNavigational: {
		"ru": " как добраться маршрут дорога Грузия",
		"ka": " როგორ მივიდე მარშრუტი გზა საქართველო how to get route Georgia",
		"":   " how to get route directions Georgia",
	},
}

var semanticSuffixes = map[Intent]map[string]string{
	IntentExploratory: {
		"ru": " красивая туристическая достопримечательность Грузия туризм",
		"":   " beautiful tourist attraction Georgia tourism",
	},
	IntentFactual: {
		"ru": " информация история описание Грузия",
		"":   " information history description Georgia",
	},
}

func intentSuffix(table map[Intent]map[string]string, intent Intent, language string) string {
	byLang, ok := table[intent]
	if !ok {
		return ""
	}
	if s, ok := byLang[language]; ok {
		return s
	}
	return byLang[""]
}

// Stopword sets hold only words longer than two runes; shorter tokens
// are dropped before the stopword check.
var stopwordsRU = newSet(
	"что", "как", "все", "она", "так", "его", "только", "мне", "было", "вот",
	"меня", "еще", "нет", "ему", "теперь", "когда", "даже", "вдруг", "если",
	"уже", "или", "быть", "был", "него", "вас", "нибудь", "опять", "вам",
	"ведь", "там", "потом", "себя", "ничего", "может", "они", "тут", "где",
	"есть", "надо", "ней", "для", "тебя", "чем", "была", "сам", "чтоб", "без",
	"будто", "чего", "раз", "тоже", "себе", "под", "будет", "тогда", "кто",
	"этот", "того", "потому", "этого", "какой", "совсем", "ним", "здесь",
	"этом", "один", "почти", "мой", "тем", "чтобы", "нее", "сейчас", "были",
	"куда", "зачем", "всех", "никогда", "можно", "при", "наконец", "два",
	"другой", "хоть", "после", "над", "больше", "тот", "через", "эти", "нас",
	"про", "всего", "них", "какая", "много", "разве", "три", "эту", "моя",
	"впрочем", "хорошо", "свою", "этой", "перед", "иногда", "лучше", "чуть",
	"том", "нельзя", "такой", "более", "всегда", "конечно", "всю", "между",
)

var stopwordsEN = newSet(
	"the", "and", "for", "are", "was", "were", "been", "being", "have", "has",
	"had", "having", "does", "did", "doing", "but", "because", "until",
	"while", "about", "against", "between", "into", "through", "during",
	"before", "after", "above", "below", "from", "down", "out", "off", "over",
	"under", "again", "further", "then", "once", "here", "there", "when",
	"where", "why", "how", "all", "any", "both", "each", "few", "more",
	"most", "other", "some", "such", "nor", "not", "only", "own", "same",
	"than", "too", "very", "can", "will", "just", "should", "now", "you",
	"your", "yours", "yourself", "him", "his", "himself", "she", "her",
	"hers", "herself", "its", "itself", "they", "them", "their", "theirs",
	"themselves", "what", "which", "who", "whom", "this", "that", "these",
	"those",
)

func newSet(words ...string) map[string]bool {
	s := make(map[string]bool, len(words))
	for _, w := range words {
		s[w] = true
	}
	return s
}

var wordRE = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// tokenize splits text into normalized terms. Russian gets light suffix
// stripping and English a rough stemmer; the same normalizers run over
// queries and documents, so internal agreement matters more than
// linguistic accuracy.
func tokenize(text, language string) []string {
	switch language {
	case "ru":
		return tokenizeWith(text, stopwordsRU, language)
	case "en":
		return tokenizeWith(text, stopwordsEN, language)
	default:
		var tokens []string
		for _, w := range strings.Fields(strings.ToLower(text)) {
			if utf8.RuneCountInString(w) > 2 {
				tokens = append(tokens, w)
			}
		}
		return tokens
	}
}

func tokenizeWith(text string, stop map[string]bool, language string) []string {
	var tokens []string
	for _, w := range wordRE.FindAllString(strings.ToLower(text), -1) {
		if utf8.RuneCountInString(w) <= 2 || stop[w] {
			continue
		}
		tokens = append(tokens, normalizeToken(w, language))
	}
	return tokens
}

// normalizeToken lemmatizes or stems a lowered token, except place
// names and transliteration keys, which must survive verbatim so
// query keywords keep matching document tokens.
func normalizeToken(word, language string) string {
	if isPlaceToken(word) {
		return word
	}
	switch language {
	case "ru":
		return lemmatizeRussian(word)
	case "en":
		return stemEnglish(word)
	}
	return word
}

func isPlaceToken(word string) bool {
	if _, ok := translitMap[word]; ok {
		return true
	}
	for _, entity := range knownEntities {
		if strings.Contains(word, entity) {
			return true
		}
	}
	return false
}

// ruSuffixes is ordered longest-first; only the first match is stripped
// and at least three runes of stem must remain.
var ruSuffixes = []string{
	"иями", "ями", "ами", "иях", "ием", "иям",
	"ого", "его", "ому", "ему", "ыми", "ими",
	"ая", "яя", "ую", "юю", "ое", "ее", "ые", "ие",
	"ой", "ей", "ый", "ий", "ом", "ем", "ым", "им",
	"ах", "ях", "ам", "ям", "ов", "ев", "ия", "ья", "ье",
	"а", "я", "о", "е", "у", "ю", "ы", "и", "ь",
}

func lemmatizeRussian(word string) string {
	runes := []rune(word)
	for _, suf := range ruSuffixes {
		s := []rune(suf)
		if len(runes)-len(s) >= 3 && hasRuneSuffix(runes, s) {
			return string(runes[:len(runes)-len(s)])
		}
	}
	return word
}

func hasRuneSuffix(runes, suffix []rune) bool {
	if len(suffix) > len(runes) {
		return false
	}
	offset := len(runes) - len(suffix)
	for i, r := range suffix {
		if runes[offset+i] != r {
			return false
		}
	}
	return true
}

var enSuffixes = []string{
	"ational", "ization", "fulness", "iveness",
	"ement", "ation", "ness", "ment",
	"ing", "est", "ful", "ed", "ly",
}

func stemEnglish(word string) string {
	if len(word) <= 3 {
		return word
	}
	switch {
	case strings.HasSuffix(word, "sses"):
		word = word[:len(word)-2]
	case strings.HasSuffix(word, "ies"):
		word = word[:len(word)-3] + "y"
	case strings.HasSuffix(word, "ss"):
	case strings.HasSuffix(word, "s") && !strings.HasSuffix(word, "us"):
		word = word[:len(word)-1]
	}
	for _, suf := range enSuffixes {
		if strings.HasSuffix(word, suf) && len(word)-len(suf) >= 3 {
			word = word[:len(word)-len(suf)]
			break
		}
	}
	if len(word) > 4 && strings.HasSuffix(word, "e") {
		word = word[:len(word)-1]
	}
	return word
}

// containsWord reports whether needle occurs in haystack bounded by
// non-word runes. Both strings must already be lowercased.
func containsWord(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	for start := 0; ; {
		i := strings.Index(haystack[start:], needle)
		if i < 0 {
			return false
		}
		i += start
		before, _ := utf8.DecodeLastRuneInString(haystack[:i])
		after, _ := utf8.DecodeRuneInString(haystack[i+len(needle):])
		if !isWordRune(before) && !isWordRune(after) {
			return true
		}
		start = i + len(needle)
	}
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// capitalize uppercases the first rune and lowercases the rest.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

// titleWords capitalizes every space-separated word.
func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = capitalize(w)
	}
	return strings.Join(words, " ")
}
