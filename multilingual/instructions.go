package multilingual

import (
	"fmt"
	"strings"
)

var languageNames = map[string]string{
	"en": "English", "ru": "Russian", "ka": "Georgian",
	"de": "German", "fr": "French", "es": "Spanish",
	"it": "Italian", "nl": "Dutch", "pl": "Polish",
	"cs": "Czech", "zh": "Chinese", "ja": "Japanese",
	"ko": "Korean", "ar": "Arabic", "tr": "Turkish",
	"hi": "Hindi", "hy": "Armenian", "az": "Azerbaijani",
}

var nativeLanguageNames = map[string]string{
	"en": "English", "ru": "Русский", "ka": "ქართული",
	"de": "Deutsch", "fr": "Français", "es": "Español",
	"it": "Italiano", "nl": "Nederlands", "pl": "Polski",
	"cs": "Čeština", "zh": "中文", "ja": "日本語",
	"ko": "한국어", "ar": "العربية", "tr": "Türkçe",
	"hi": "हिन्दी", "hy": "Հայերեն", "az": "Azərbaycanca",
}

// LanguageName returns the English name of a language code, "English"
// for anything unknown.
func LanguageName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	return "English"
}

// NativeLanguageName returns the language's name in the language itself,
// empty for anything unknown.
func NativeLanguageName(code string) string {
	return nativeLanguageNames[code]
}

// LanguageInstruction renders the system block that pins the response
// language. The context documents stay in their source language, so
// the instruction has to be blunt about not mixing.
func LanguageInstruction(target string) string {
	name := LanguageName(target)

	return fmt.Sprintf(`---
SYSTEM: ROLE AND LANGUAGE INSTRUCTIONS

ROLE: You are an expert Georgian tourism guide. Your tone is engaging, helpful, and inspiring.

CONTEXT LANGUAGE: The context below is in its original language (Russian or English) for maximum accuracy.

TASK: Read the context and user's query carefully. Then generate a comprehensive, structured, and helpful response.

---
CRITICAL: LANGUAGE REQUIREMENT

Your ENTIRE response MUST be written in: **%s**

RULES:
- Do NOT mix languages
- Exception: Keep proper nouns, names, titles (e.g., "Svetitskhoveli", "Narikala") in their original script if no common translation exists
- Write ALL headers, descriptions, and explanations in %s

EXAMPLE (if target is French):
CORRECT: "La cathédrale de Svetitskhoveli a été construite au 11ème siècle..."
WRONG: "The Svetitskhoveli cathedral was built in the 11th century..."

---
NOW BEGIN YOUR RESPONSE IN **%s**:
`, strings.ToUpper(name), name, name)
}
