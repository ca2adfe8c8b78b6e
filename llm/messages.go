package llm

// Canned answers for degraded paths, in all 18 supported languages.
// Unsupported codes fall back to English.

var errorMessages = map[string]string{
	"en": "I apologize, but I encountered a technical error. Please try again.",
	"ru": "Извините, произошла техническая ошибка. Пожалуйста, попробуйте еще раз.",
	"ka": "ვწუხვარ, მოხდა ტექნიკური შეცდომა. გთხოვთ, სცადოთ ხელახლა.",
	"de": "Entschuldigung, es ist ein technischer Fehler aufgetreten. Bitte versuchen Sie es erneut.",
	"fr": "Désolé, une erreur technique s'est produite. Veuillez réessayer.",
	"es": "Lo siento, ha ocurrido un error técnico. Por favor, inténtelo de nuevo.",
	"it": "Mi dispiaccio, si è verificato un errore tecnico. Per favore, riprova.",
	"nl": "Sorry, er is een technische fout opgetreden. Probeer het opnieuw.",
	"pl": "Przepraszam, wystąpił błąd techniczny. Proszę spróbować ponownie.",
	"cs": "Omlouváme se, došlo k technické chybě. Zkuste to prosím znovu.",
	"zh": "抱歉，发生了技术错误。请重试。",
	"ja": "申し訳ございません。技術的なエラーが発生しました。もう一度お試しください。",
	"ko": "죄송합니다. 기술적 오류가 발생했습니다. 다시 시도해 주세요.",
	"ar": "عذراً، حدث خطأ تقني. يرجى المحاولة مرة أخرى.",
	"tr": "Üzgünüm, teknik bir hata oluştu. Lütfen tekrar deneyin.",
	"hi": "क्षमा करें, एक तकनीकी त्रुटि हुई। कृपया पुनः प्रयास करें।",
	"hy": "Ներողություն, տեխնիկական սխալ է տեղի ունեցել: Խնդրում ենք նորից փորձել:",
	"az": "Üzr istəyirik, texniki xəta baş verdi. Zəhmət olmasa yenidən cəhd edin.",
}

var timeoutMessages = map[string]string{
	"en": "I apologize, but the request timed out. Please try again with a simpler question.",
	"ru": "Извините, запрос превысил время ожидания. Пожалуйста, попробуйте задать более простой вопрос.",
	"ka": "ვწუხვარ, მოთხოვნის დრო ამოიწურა. გთხოვთ, სცადოთ უფრო მარტივი კითხვა.",
	"de": "Entschuldigung, die Anfrage hat das Zeitlimit überschritten. Bitte versuchen Sie es mit einer einfacheren Frage.",
	"fr": "Désolé, la demande a expiré. Veuillez réessayer avec une question plus simple.",
	"es": "Lo siento, la solicitud ha excedido el tiempo. Por favor, intente con una pregunta más simple.",
	"it": "Mi dispiaccio, la richiesta è scaduta. Per favore, riprova con una domanda più semplice.",
	"nl": "Sorry, het verzoek is verlopen. Probeer het opnieuw met een eenvoudigere vraag.",
	"pl": "Przepraszam, żądanie przekroczyło czas. Proszę spróbować prostsze pytanie.",
	"cs": "Omlouváme se, požadavek vypršel. Zkuste to prosím s jednoduší otázkou.",
	"zh": "抱歉，请求超时。请尝试更简单的问题。",
	"ja": "申し訳ございません。リクエストがタイムアウトしました。より簡単な質問でお試しください。",
	"ko": "죄송합니다. 요청 시간이 초과되었습니다. 더 간단한 질문으로 다시 시도해 주세요.",
	"ar": "عذراً، انتهت مهلة الطلب. يرجى المحاولة بسؤال أبسط.",
	"tr": "Üzgünüm, istek zaman aşımına uğradı. Lütfen daha basit bir soruyla tekrar deneyin.",
	"hi": "क्षमा करें, अनुरोध समय समाप्त हो गया। कृपया एक सरल प्रश्न के साथ पुनः प्रयास करें।",
	"hy": "Ներողություն, հարցումը ժամանակից դուրս է: Խնդրում ենք փորձել ավելի պարզ հարցով:",
	"az": "Üzr istəyirik, sorğunun vaxtı bitdi. Zəhmət olmasa daha sadə bir sualla yenidən cəhd edin.",
}

// ErrorMessage returns the localized generic failure answer.
func ErrorMessage(language string) string {
	if msg, ok := errorMessages[language]; ok {
		return msg
	}
	return errorMessages["en"]
}

// TimeoutMessage returns the localized deadline answer.
func TimeoutMessage(language string) string {
	if msg, ok := timeoutMessages[language]; ok {
		return msg
	}
	return timeoutMessages["en"]
}
