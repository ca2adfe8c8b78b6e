package pipeline

import (
	"fmt"
	"strings"
)

// Localized fallback texts for the three degraded outcomes the answer
// path can hit before generation: an unusable question, an empty
// result set, and an internal failure. Coverage matches the languages
// the corpus serves most; everything else falls back to English.

var errorResponses = map[string]string{
	"en": "I apologize, but I encountered an error while processing your request. Please try again. (Error: %s)",
	"ru": "Извините, при обработке вашего запроса произошла ошибка. Пожалуйста, попробуйте еще раз. (Ошибка: %s)",
	"ka": "ვწუხვარ, თქვენი მოთხოვნის დამუშავებისას მოხდა შეცდომა. გთხოვთ, სცადოთ ხელახლა.",
	"de": "Entschuldigung, bei der Bearbeitung Ihrer Anfrage ist ein Fehler aufgetreten. Bitte versuchen Sie es erneut.",
	"fr": "Désolé, une erreur s'est produite lors du traitement de votre demande. Veuillez réessayer.",
}

var rephraseMessages = map[string]string{
	"en": "I couldn't process that question. Please rephrase it and try again.",
	"ru": "Не удалось обработать ваш вопрос. Пожалуйста, переформулируйте его и попробуйте еще раз.",
	"ka": "თქვენი კითხვის დამუშავება ვერ მოხერხდა. გთხოვთ, გადააფორმულიროთ და სცადოთ ხელახლა.",
	"de": "Ihre Frage konnte nicht verarbeitet werden. Bitte formulieren Sie sie um und versuchen Sie es erneut.",
	"fr": "Votre question n'a pas pu être traitée. Veuillez la reformuler et réessayer.",
}

var noInformationMessages = map[string]string{
	"en": "I couldn't find information about that among Georgian attractions. Please try a different question about Georgia.",
	"ru": "Я не нашел информации об этом среди грузинских достопримечательностей. Попробуйте задать другой вопрос о Грузии.",
	"ka": "ამის შესახებ ინფორმაცია ვერ მოვძებნე. სცადეთ სხვა კითხვა საქართველოს შესახებ.",
	"de": "Dazu habe ich keine Informationen über georgische Sehenswürdigkeiten gefunden. Versuchen Sie eine andere Frage über Georgien.",
	"fr": "Je n'ai pas trouvé d'informations à ce sujet parmi les attractions géorgiennes. Essayez une autre question sur la Géorgie.",
}

// errorResponse renders the localized failure text. The English and
// Russian variants carry the error detail, the rest stay clean.
func errorResponse(language string, err error) string {
	msg := localized(errorResponses, language)
	if !strings.Contains(msg, "%s") {
		return msg
	}
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	return fmt.Sprintf(msg, detail)
}

func rephraseMessage(language string) string {
	return localized(rephraseMessages, language)
}

func noInformationMessage(language string) string {
	return localized(noInformationMessages, language)
}

func localized(table map[string]string, language string) string {
	if msg, ok := table[language]; ok {
		return msg
	}
	return table["en"]
}
