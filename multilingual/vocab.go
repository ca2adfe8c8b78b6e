package multilingual

import (
	"fmt"
	"sort"
	"strings"
)

// SupportedLanguages is the full set the service answers in.
var SupportedLanguages = []string{
	"en", "ru", "ka", "de", "fr", "es", "it", "nl", "pl",
	"cs", "zh", "ja", "ko", "ar", "tr", "hi", "hy", "az",
}

// IsSupported reports whether code is one of the 18 served languages.
func IsSupported(code string) bool {
	for _, lang := range SupportedLanguages {
		if lang == code {
			return true
		}
	}
	return false
}

// distinctiveWords maps a language to words that occur in that language
// only. The sets are pairwise disjoint; VerifyNoOverlaps guards the
// property whenever someone extends a list.
var distinctiveWords = map[string][]string{
	"ka": {"რა", "როგორ", "სად", "როდის", "რატომ", "მითხარი", "აჩვენე", "ახსენი", "ქართული", "გთხოვთ"},
	"hy": {"պատմիր", "պատմեք", "ասիր", "ասեք", "ինչպես", "որտեղ", "մասին", "հայերեն", "ցույց", "օգնիր"},
	"az": {"danış", "haqqında", "harada", "necə", "niyə", "azərbaycan", "göstər", "izah", "kömək", "gözəl", "yerlər", "milli"},
	"it": {"parlami", "dimmi", "raccontami", "perché", "cosa", "dove", "quando", "della", "degli", "italiano"},
	"fr": {"parlez", "dites", "racontez", "pourquoi", "église", "château", "quoi", "où", "français", "voulez"},
	"de": {"erzählen", "erzähl", "über", "können", "würde", "möchte", "sehenswürdigkeiten", "deutsch", "ihnen", "welche"},
	"es": {"cuéntame", "háblame", "sobre", "dónde", "cuándo", "cómo", "qué", "español", "ayúdame", "muéstrame"},
	"nl": {"vertel", "vertellen", "waarom", "wanneer", "welke", "nederlands", "graag", "alsjeblieft", "natuurlijk", "geef"},
	"pl": {"opowiedz", "powiedz", "gdzie", "kiedy", "dlaczego", "który", "polska", "polski", "proszę", "dziękuję"},
	"cs": {"řekni", "řekněte", "pověz", "proč", "který", "čeština", "prosím", "děkuji", "není", "jste"},
	"ru": {"расскажи", "покажи", "объясни", "помоги", "который", "русский", "пожалуйста", "спасибо", "здравствуй", "хорошо"},
	"tr": {"anlat", "anlatın", "söyle", "hakkında", "nerede", "neden", "nasıl", "türkçe", "lütfen", "teşekkür"},
	"hi": {"बताएं", "बताइए", "दिखाएं", "समझाएं", "कहाँ", "कैसे", "कृपया", "धन्यवाद", "हिंदी"},
	"en": {"tell", "show", "explain", "describe", "about", "where", "when", "english", "please", "thank"},
}

// vocabularyOrder is the matching priority. Georgian first, English
// last so its common words cannot shadow anything.
var vocabularyOrder = []string{"ka", "hy", "hi", "az", "tr", "it", "fr", "de", "es", "nl", "pl", "cs", "ru"}

// VerifyNoOverlaps checks the disjointness property and returns every
// word claimed by more than one language. Startup logs the violations;
// detection still runs, first claim wins.
func VerifyNoOverlaps() []string {
	seen := make(map[string]string)
	var overlaps []string

	langs := make([]string, 0, len(distinctiveWords))
	for lang := range distinctiveWords {
		langs = append(langs, lang)
	}
	sort.Strings(langs)

	for _, lang := range langs {
		for _, word := range distinctiveWords[lang] {
			lower := strings.ToLower(word)
			if owner, dup := seen[lower]; dup {
				overlaps = append(overlaps, fmt.Sprintf("%q in both %s and %s", word, owner, lang))
				continue
			}
			seen[lower] = lang
		}
	}
	return overlaps
}

// matchVocabulary returns the first language whose distinctive words
// intersect the token set, English checked last.
func matchVocabulary(tokens map[string]struct{}) (string, bool) {
	for _, lang := range vocabularyOrder {
		for _, word := range distinctiveWords[lang] {
			if _, ok := tokens[strings.ToLower(word)]; ok {
				return lang, true
			}
		}
	}
	for _, word := range distinctiveWords["en"] {
		if _, ok := tokens[word]; ok {
			return "en", true
		}
	}
	return "", false
}
