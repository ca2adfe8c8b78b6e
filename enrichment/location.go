package enrichment

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// unknownLocation is the Russian display default; the corpus is
// predominantly Russian-labeled.
const unknownLocation = "неизвестно"

// Location is a resolved display location for an attraction.
type Location struct {
	Primary    string   `json:"primary_location"`
	All        []string `json:"all_locations"`
	Region     string   `json:"region,omitempty"`
	Confidence float64  `json:"confidence"`
}

// priorityLocations are the cities recognized anywhere in an address or
// name, in Russian, Latin and Georgian spellings.
var priorityLocations = []string{
	"тбилиси", "tbilisi", "თბილისი",
	"мцхета", "mtskheta", "მცხეთა",
	"батуми", "batumi", "ბათუმი",
	"кутаиси", "kutaisi", "ქუთაისი",
	"сигнахи", "signagi", "სიღნაღი",
	"гори", "gori", "გორი",
	"ахалкалаки", "akhalkalaki",
	"боржоми", "borjomi", "ბორჯომი",
	"кобулети", "kobuleti",
	"ахалцихе", "akhaltsikhe",
	"зугдиди", "zugdidi",
	"телави", "telavi",
	"поти", "poti",
	"рустави", "rustavi",
}

var regionalMarkers = []struct {
	region  string
	markers []string
}{
	{"кахетия", []string{"кахетия", "kakheti", "კახეთი"}},
	{"самегрело", []string{"самегрело", "samegrelo", "სამეგრელო"}},
	{"сванетия", []string{"сванетия", "svaneti", "სვანეთი"}},
	{"аджария", []string{"аджария", "adjara", "აჭარა"}},
	{"имеретия", []string{"имеретия", "imereti", "იმერეთი"}},
	{"шида-картли", []string{"шида картли", "shida kartli", "inner kartli"}},
	{"самцхе-джавахети", []string{"самцхе", "javakheti", "джавахети"}},
}

var locationFlags = []struct {
	flag     string
	location string
}{
	{"is_tbilisi_related", "Тбилиси"},
	{"is_mtskheta_related", "Мцхета"},
	{"is_tbilisi_attraction", "Тбилиси"},
	{"is_mtskheta_attraction", "Мцхета"},
}

var cityToRegion = []struct {
	city   string
	region string
}{
	{"тбилиси", "тбилиси"},
	{"tbilisi", "тбилиси"},
	{"мцхета", "мцхета-мтианети"},
	{"mtskheta", "мцхета-мтианети"},
	{"батуми", "аджария"},
	{"batumi", "аджария"},
	{"кутаиси", "имеретия"},
	{"kutaisi", "имеретия"},
	{"сигнахи", "кахетия"},
	{"signagi", "кахетия"},
	{"telavi", "кахетия"},
	{"телави", "кахетия"},
	{"гори", "шида-картли"},
	{"gori", "шида-картли"},
	{"кобулети", "аджария"},
	{"kobuleti", "аджария"},
}

// locationArtifacts mark NER noise; a candidate containing any of them
// is rejected outright.
var locationArtifacts = []string{"3136", "см", "км", "м", "комплекс эрозионных"}

// ExtractLocation resolves a display city or region from a document
// payload. Sources are tried from most to least reliable: the address
// field, NER annotations, location flags, tags, then the name itself.
func ExtractLocation(payload map[string]any) Location {
	result := Location{Primary: unknownLocation}

	if address := strings.TrimSpace(asString(payload["location"])); address != "" {
		if city := extractCityFromAddress(address); city != "" {
			result.Primary = city
			result.All = append(result.All, city)
			result.Region = determineRegion(result.All)
			result.Confidence = 0.95
			return normalizeLocation(result)
		}
	}

	if ner := extractFromNER(payload); len(ner) > 0 {
		result.All = append(result.All, ner...)
		result.Primary = ner[0]
		result.Confidence = 0.9
	}

	if loc := extractFromFlags(payload); loc != "" && result.Confidence < 0.7 {
		result.Primary = loc
		result.Confidence = 0.8
		if !containsString(result.All, loc) {
			result.All = append(result.All, loc)
		}
	}

	if tagLocs := extractFromTags(payload); len(tagLocs) > 0 {
		for _, loc := range tagLocs {
			if !containsString(result.All, loc) {
				result.All = append(result.All, loc)
			}
		}
		if result.Confidence < 0.5 {
			result.Primary = tagLocs[0]
			result.Confidence = 0.6
		}
	}

	if loc := extractFromName(payload); loc != "" && result.Confidence < 0.4 {
		result.Primary = loc
		result.Confidence = 0.5
		if !containsString(result.All, loc) {
			result.All = append(result.All, loc)
		}
	}

	if result.Region == "" {
		result.Region = determineRegion(result.All)
	}
	return normalizeLocation(result)
}

// extractCityFromAddress pulls a city out of a comma-separated address:
// "100 David Aghmashenebeli Ave, Kobuleti, Adjara, Georgia" -> "Kobuleti".
func extractCityFromAddress(address string) string {
	lower := strings.ToLower(address)
	for _, loc := range priorityLocations {
		if strings.Contains(lower, loc) {
			return titleCase(loc)
		}
	}

	parts := strings.Split(address, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	for _, part := range parts {
		partLower := strings.ToLower(part)
		if strings.Contains(partLower, "georgia") || strings.Contains(partLower, "грузия") {
			continue
		}
		if strings.Contains(partLower, "region") || strings.Contains(partLower, "регион") {
			continue
		}
		if utf8.RuneCountInString(part) > 50 {
			continue
		}
		for _, loc := range priorityLocations {
			if strings.Contains(partLower, loc) {
				return titleCase(loc)
			}
		}
		for _, rm := range regionalMarkers {
			for _, marker := range rm.markers {
				if strings.Contains(partLower, marker) {
					return titleCase(marker)
				}
			}
		}
	}

	// Addresses usually run street, city, region, country.
	if len(parts) >= 2 {
		city := parts[1]
		if city != "" && utf8.RuneCountInString(city) < 30 {
			cityLower := strings.ToLower(city)
			for _, skip := range []string{"georgia", "грузия", "region", "регион", "municipality", "муниципалитет"} {
				if strings.Contains(cityLower, skip) {
					return ""
				}
			}
			return titleCase(city)
		}
	}
	return ""
}

func extractFromNER(payload map[string]any) []string {
	var locations []string
	for _, field := range []string{"ner_locations", "ner", "locations"} {
		switch data := payload[field].(type) {
		case []any:
			for _, item := range data {
				s, ok := item.(string)
				if !ok || utf8.RuneCountInString(s) <= 1 {
					continue
				}
				if cleaned := cleanLocationName(s); cleaned != "" && isValidLocation(cleaned) {
					locations = append(locations, cleaned)
				}
			}
		case map[string]any:
			if nested, ok := data["locations"].([]any); ok {
				for _, item := range nested {
					s, ok := item.(string)
					if !ok {
						continue
					}
					if cleaned := cleanLocationName(s); cleaned != "" && isValidLocation(cleaned) {
						locations = append(locations, cleaned)
					}
				}
			}
		}
	}
	return sortByPriority(locations)
}

func extractFromFlags(payload map[string]any) string {
	for _, lf := range locationFlags {
		if set, _ := payload[lf.flag].(bool); set {
			return lf.location
		}
	}
	return ""
}

func extractFromTags(payload map[string]any) []string {
	var locations []string
	for _, field := range []string{"tags", "tags_other"} {
		tags, ok := payload[field].([]any)
		if !ok {
			continue
		}
		for _, tag := range tags {
			s, ok := tag.(string)
			if !ok {
				continue
			}
			if cleaned := cleanLocationName(s); cleaned != "" && isValidLocation(cleaned) {
				locations = append(locations, cleaned)
			}
		}
	}
	return sortByPriority(locations)
}

func extractFromName(payload map[string]any) string {
	name := asString(payload["name"])
	if name == "" {
		return ""
	}
	lower := strings.ToLower(name)
	for _, loc := range priorityLocations {
		if strings.Contains(lower, loc) {
			return titleCase(loc)
		}
	}
	for _, rm := range regionalMarkers {
		for _, marker := range rm.markers {
			if strings.Contains(lower, marker) {
				return titleCase(marker)
			}
		}
	}
	return ""
}

func cleanLocationName(loc string) string {
	cleaned := strings.TrimSpace(loc)
	for _, artifact := range locationArtifacts {
		if strings.Contains(cleaned, artifact) {
			return ""
		}
	}
	n := utf8.RuneCountInString(cleaned)
	if n < 2 || n > 50 {
		return ""
	}
	if isDigits(cleaned) {
		return ""
	}
	return cleaned
}

func isValidLocation(loc string) bool {
	if utf8.RuneCountInString(loc) < 2 {
		return false
	}
	lower := strings.ToLower(loc)
	for _, p := range priorityLocations {
		if lower == p {
			return true
		}
	}
	for _, rm := range regionalMarkers {
		for _, marker := range rm.markers {
			if lower == marker {
				return true
			}
		}
	}
	for _, r := range loc {
		if (r >= 0x10A0 && r <= 0x10FF) || (r >= 0x0400 && r <= 0x04FF) || (r < 256 && unicode.IsLetter(r)) {
			return true
		}
	}
	return false
}

// sortByPriority dedupes and orders candidates: known cities first,
// regions next, everything else last. Stable within a tier.
func sortByPriority(locations []string) []string {
	if len(locations) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(locations))
	unique := make([]string, 0, len(locations))
	for _, loc := range locations {
		if !seen[loc] {
			seen[loc] = true
			unique = append(unique, loc)
		}
	}
	sort.SliceStable(unique, func(i, j int) bool {
		return priorityScore(unique[i]) > priorityScore(unique[j])
	})
	return unique
}

func priorityScore(loc string) int {
	lower := strings.ToLower(loc)
	for _, p := range priorityLocations {
		if lower == p {
			return 100
		}
	}
	for _, rm := range regionalMarkers {
		for _, marker := range rm.markers {
			if lower == marker {
				return 50
			}
		}
	}
	return 1
}

func determineRegion(locations []string) string {
	for _, loc := range locations {
		lower := strings.ToLower(loc)
		for _, rm := range regionalMarkers {
			for _, marker := range rm.markers {
				if lower == marker {
					return rm.region
				}
			}
		}
		for _, cr := range cityToRegion {
			if strings.Contains(lower, cr.city) {
				return cr.region
			}
		}
	}
	return ""
}

func normalizeLocation(result Location) Location {
	seen := make(map[string]bool, len(result.All))
	all := make([]string, 0, len(result.All))
	for _, loc := range result.All {
		if strings.TrimSpace(loc) == "" || seen[loc] {
			continue
		}
		seen[loc] = true
		all = append(all, loc)
	}
	result.All = all
	if result.Primary != unknownLocation {
		result.Primary = titleCase(result.Primary)
	}
	return result
}

// titleCase uppercases the letter opening each word and lowercases the
// rest, treating any non-letter as a word boundary.
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToTitle(r))
			}
			prevLetter = true
		} else {
			b.WriteRune(r)
			prevLetter = false
		}
	}
	return b.String()
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func containsString(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}
