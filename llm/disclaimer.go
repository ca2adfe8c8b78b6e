package llm

import (
	"log/slog"
	"math/rand"
	"strings"
)

// Keyword lists for content detection, multilingual on purpose: the
// answer text is in the user's language.
var (
	priceKeywords = []string{
		"лари", "цена", "стоимость", "билет", "$", "₾", "euro", "доллар",
		"бесплатно", "платно", "тариф", "cost", "price", "fee", "free", "рубль",
		"preis", "kostenlos", "prix", "gratuit", "precio", "gratis", "prezzo",
		"ticket", "entrance", "admission",
	}

	scheduleKeywords = []string{
		"время работы", "открыт", "график", "часы", "расписание", "закрыт",
		"opening hours", "schedule", "closed", "open", "working time", "hours",
		"öffnungszeiten", "geschlossen", "horaires", "fermé", "horario", "cerrado",
		"orari", "chiuso",
	}

	seasonalKeywords = []string{
		"зима", "снег", "горы", "трекинг", "лыжи", "альпинизм", "сезон",
		"winter", "snow", "hiking", "climbing", "ski", "mountain", "season",
		"sommer", "hiver", "invierno", "inverno", "estate",
	}

	transportKeywords = []string{
		"маршрут", "добраться", "транспорт", "автобус", "поезд", "дорога",
		"route", "transport", "bus", "train", "car", "taxi", "road",
		"verkehr", "transports", "transporte",
	}
)

var disclaimerTexts = map[string]map[string]string{
	"en": {
		"price":     "⚠️ **Note**: Prices may change. Please verify current costs before visiting.",
		"schedule":  "🕒 **Note**: Opening hours may vary by season and holidays. Please check current schedule.",
		"seasonal":  "🌨️ **Important**: Mountain route accessibility depends on weather and season. Check conditions before traveling.",
		"transport": "🚌 **Tip**: Public transport routes may change. Verify current schedules and routes.",
		"general":   "🗺️ **Please note**: Information may be incomplete or outdated. Always verify current details before planning your trip.",
	},
	"ru": {
		"price":     "⚠️ **Внимание**: Цены могут изменяться. Рекомендуем уточнить актуальную стоимость перед посещением.",
		"schedule":  "🕒 **Примечание**: Время работы может изменяться в зависимости от сезона и праздников. Уточняйте актуальное расписание.",
		"seasonal":  "🌨️ **Важно**: Доступность горных маршрутов зависит от погодных условий и сезона. Проверяйте условия перед поездкой.",
		"transport": "🚌 **Совет**: Маршруты общественного транспорта могут изменяться. Проверьте актуальное расписание и маршруты.",
		"general":   "🗺️ **Обратите внимание**: Информация может быть неполной или устаревшей. Всегда проверяйте актуальные данные перед планированием поездки.",
	},
	"ka": {
		"price":     "⚠️ **ყურადღება**: ფასები შეიძლება შეიცვალოს. გთხოვთ, გადაამოწმოთ ფასები ვიზიტამდე.",
		"schedule":  "🕒 **შენიშვნა**: სამუშაო საათები შეიძლება იცვლებოდეს სეზონისა და დღესასწაულების მიხედვით.",
		"seasonal":  "🌨️ **მნიშვნელოვანი**: მთის მარშრუტების ხელმისაწვდომობა დამოკიდებულია ამინდსა და სეზონზე.",
		"transport": "🚌 **რჩევა**: საზოგადოებრივი ტრანსპორტის მარშრუტები შეიძლება შეიცვალოს.",
		"general":   "🗺️ **გთხოვთ გაითვალისწინოთ**: ინფორმაცია შეიძლება იყოს არასრული ან მოძველებული.",
	},
	"de": {
		"price":     "⚠️ **Hinweis**: Preise können sich ändern. Bitte aktuelle Kosten vor dem Besuch prüfen.",
		"schedule":  "🕒 **Hinweis**: Öffnungszeiten können saisonal und an Feiertagen variieren.",
		"seasonal":  "🌨️ **Wichtig**: Bergwege-Zugänglichkeit hängt von Wetter und Jahreszeit ab.",
		"transport": "🚌 **Tipp**: Öffentliche Verkehrsmittel können sich ändern. Aktuelle Fahrpläne prüfen.",
		"general":   "🗺️ **Bitte beachten**: Informationen können unvollständig oder veraltet sein.",
	},
	"fr": {
		"price":     "⚠️ **Attention**: Les prix peuvent changer. Vérifiez les tarifs actuels avant votre visite.",
		"schedule":  "🕒 **Note**: Les horaires peuvent varier selon la saison et les jours fériés.",
		"seasonal":  "🌨️ **Important**: L'accès aux itinéraires de montagne dépend de la météo et de la saison.",
		"transport": "🚌 **Conseil**: Les itinéraires de transport public peuvent changer. Vérifiez les horaires actuels.",
		"general":   "🗺️ **Veuillez noter**: Les informations peuvent être incomplètes ou obsolètes.",
	},
	"es": {
		"price":     "⚠️ **Atención**: Los precios pueden cambiar. Verifique los costos actuales antes de visitar.",
		"schedule":  "🕒 **Nota**: Los horarios pueden variar según la temporada y los días festivos.",
		"seasonal":  "🌨️ **Importante**: La accesibilidad de las rutas de montaña depende del clima y la temporada.",
		"transport": "🚌 **Consejo**: Las rutas de transporte público pueden cambiar. Verifique los horarios actuales.",
		"general":   "🗺️ **Por favor note**: La información puede estar incompleta o desactualizada.",
	},
	"it": {
		"price":     "⚠️ **Attenzione**: I prezzi possono cambiare. Verificare i costi attuali prima della visita.",
		"schedule":  "🕒 **Nota**: Gli orari di apertura possono variare per stagione e festività.",
		"seasonal":  "🌨️ **Importante**: L'accessibilità dei percorsi montani dipende dal meteo e dalla stagione.",
		"transport": "🚌 **Suggerimento**: Le rotte dei trasporti pubblici possono cambiare. Verificare gli orari attuali.",
		"general":   "🗺️ **Si prega di notare**: Le informazioni potrebbero essere incomplete o obsolete.",
	},
	"nl": {
		"price":     "⚠️ **Let op**: Prijzen kunnen veranderen. Controleer de huidige kosten voor uw bezoek.",
		"schedule":  "🕒 **Opmerking**: Openingstijden kunnen variëren per seizoen en feestdagen.",
		"seasonal":  "🌨️ **Belangrijk**: Toegankelijkheid van bergroutes hangt af van het weer en seizoen.",
		"transport": "🚌 **Tip**: Openbaar vervoerroutes kunnen wijzigen. Controleer actuele dienstregelingen.",
		"general":   "🗺️ **Let op**: Informatie kan onvolledig of verouderd zijn.",
	},
	"pl": {
		"price":     "⚠️ **Uwaga**: Ceny mogą się zmieniać. Sprawdź aktualne koszty przed wizytą.",
		"schedule":  "🕒 **Uwaga**: Godziny otwarcia mogą się zmieniać w zależności od sezonu i świąt.",
		"seasonal":  "🌨️ **Ważne**: Dostępność tras górskich zależy od pogody i sezonu.",
		"transport": "🚌 **Wskazówka**: Trasy transportu publicznego mogą się zmieniać. Sprawdź aktualne rozkłady.",
		"general":   "🗺️ **Proszę zauważyć**: Informacje mogą być niekompletne lub nieaktualne.",
	},
	"cs": {
		"price":     "⚠️ **Upozornění**: Ceny se mohou měnit. Ověřte aktuální náklady před návštěvou.",
		"schedule":  "🕒 **Poznámka**: Otevírací doba se může měnit podle sezóny a svátků.",
		"seasonal":  "🌨️ **Důležité**: Přístupnost horských tras závisí na počasí a sezóně.",
		"transport": "🚌 **Tip**: Trasy veřejné dopravy se mohou měnit. Ověřte aktuální jízdní řády.",
		"general":   "🗺️ **Upozornění**: Informace mohou být neúplné nebo zastaralé.",
	},
	"zh": {
		"price":     "⚠️ **注意**：价格可能会变化。请在访问前确认最新价格。",
		"schedule":  "🕒 **注意**：营业时间可能因季节和节假日而异。",
		"seasonal":  "🌨️ **重要**：山区路线的可达性取决于天气和季节。",
		"transport": "🚌 **提示**：公共交通路线可能会变化。请确认最新时刻表。",
		"general":   "🗺️ **请注意**：信息可能不完整或过时。",
	},
	"ja": {
		"price":     "⚠️ **注意**：料金は変更される場合があります。訪問前に最新の料金をご確認ください。",
		"schedule":  "🕒 **注意**：営業時間は季節や祝日により変更される場合があります。",
		"seasonal":  "🌨️ **重要**：山岳ルートへのアクセスは天候と季節によります。",
		"transport": "🚌 **ヒント**：公共交通機関のルートは変更される場合があります。",
		"general":   "🗺️ **ご注意ください**：情報は不完全または古い可能性があります。",
	},
	"ko": {
		"price":     "⚠️ **주의**: 가격은 변경될 수 있습니다. 방문 전 최신 요금을 확인하세요.",
		"schedule":  "🕒 **참고**: 운영 시간은 계절과 공휴일에 따라 달라질 수 있습니다.",
		"seasonal":  "🌨️ **중요**: 산악 경로 접근성은 날씨와 계절에 따라 다릅니다.",
		"transport": "🚌 **팁**: 대중교통 노선은 변경될 수 있습니다. 최신 시간표를 확인하세요.",
		"general":   "🗺️ **참고하세요**: 정보가 불완전하거나 오래되었을 수 있습니다.",
	},
	"ar": {
		"price":     "⚠️ **تنبيه**: قد تتغير الأسعار. يرجى التحقق من التكاليف الحالية قبل الزيارة.",
		"schedule":  "🕒 **ملاحظة**: قد تختلف ساعات العمل حسب الموسم والعطلات.",
		"seasonal":  "🌨️ **هام**: تعتمد إمكانية الوصول إلى الطرق الجبلية على الطقس والموسم.",
		"transport": "🚌 **نصيحة**: قد تتغير خطوط النقل العام. تحقق من الجداول الحالية.",
		"general":   "🗺️ **يرجى ملاحظة**: قد تكون المعلومات غير كاملة أو قديمة.",
	},
	"tr": {
		"price":     "⚠️ **Dikkat**: Fiyatlar değişebilir. Ziyaretten önce güncel fiyatları kontrol edin.",
		"schedule":  "🕒 **Not**: Açılış saatleri mevsime ve tatil günlerine göre değişebilir.",
		"seasonal":  "🌨️ **Önemli**: Dağ rotalarına erişim hava durumu ve mevsime bağlıdır.",
		"transport": "🚌 **İpucu**: Toplu taşıma güzergahları değişebilir. Güncel tarifeleri kontrol edin.",
		"general":   "🗺️ **Lütfen dikkat**: Bilgiler eksik veya güncel olmayabilir.",
	},
	"hi": {
		"price":     "⚠️ **ध्यान दें**: कीमतें बदल सकती हैं। यात्रा से पहले वर्तमान लागत सत्यापित करें।",
		"schedule":  "🕒 **नोट**: खुलने का समय मौसम और छुट्टियों के अनुसार भिन्न हो सकता है।",
		"seasonal":  "🌨️ **महत्वपूर्ण**: पहाड़ी मार्गों की पहुंच मौसम और ऋतु पर निर्भर करती है।",
		"transport": "🚌 **सुझाव**: सार्वजनिक परिवहन मार्ग बदल सकते हैं। वर्तमान समय सारणी जांचें।",
		"general":   "🗺️ **कृपया ध्यान दें**: जानकारी अधूरी या पुरानी हो सकती है।",
	},
	"hy": {
		"price":     "⚠️ **Ուշադրություն**: Գները կարող են փոխվել։ Այցից առաջ ստուգեք ընթացիկ գները։",
		"schedule":  "🕒 **Նշում**: Աշխատանքային ժամերը կարող են տարբերվել սեզոնի և տոների համաձայն։",
		"seasonal":  "🌨️ **Կարևոր**: Լեռնային երթուղիների հասանելիությունը կախված է եղանակից և սեզոնից։",
		"transport": "🚌 **Խորհուրդ**: Հասարակական տրանսպորտի երթուղիները կարող են փոխվել։",
		"general":   "🗺️ **Խնդրում ենք նկատի ունենալ**: Տեղեկատվությունը կարող է անամբողջական կամ հնացած լինել։",
	},
	"az": {
		"price":     "⚠️ **Diqqət**: Qiymətlər dəyişə bilər. Ziyarətdən əvvəl cari xərcləri yoxlayın.",
		"schedule":  "🕒 **Qeyd**: İş saatları mövsümə və bayramlara görə dəyişə bilər.",
		"seasonal":  "🌨️ **Vacib**: Dağ marşrutlarına çıxış hava şəraiti və mövsümdən asılıdır.",
		"transport": "🚌 **Məsləhət**: İctimai nəqliyyat marşrutları dəyişə bilər.",
		"general":   "🗺️ **Nəzərə alın**: Məlumat natamam və ya köhnəlmiş ola bilər.",
	},
}

var disclaimerHeaders = map[string]string{
	"en": "### ⚠️ Important Information:",
	"ru": "### ⚠️ Важная информация:",
	"ka": "### ⚠️ მნიშვნელოვანი ინფორმაცია:",
	"de": "### ⚠️ Wichtige Information:",
	"fr": "### ⚠️ Information importante:",
	"es": "### ⚠️ Información importante:",
	"it": "### ⚠️ Informazioni importanti:",
	"nl": "### ⚠️ Belangrijke informatie:",
	"pl": "### ⚠️ Ważne informacje:",
	"cs": "### ⚠️ Důležité informace:",
	"zh": "### ⚠️ 重要信息：",
	"ja": "### ⚠️ 重要な情報：",
	"ko": "### ⚠️ 중요 정보:",
	"ar": "### ⚠️ معلومات هامة:",
	"tr": "### ⚠️ Önemli Bilgi:",
	"hi": "### ⚠️ महत्वपूर्ण जानकारी:",
	"hy": "### ⚠️ Կարևոր տեղեկատվություն:",
	"az": "### ⚠️ Vacib məlumat:",
}

// generalDisclaimerChance is how often an answer with no detected
// advisory content still gets the general note.
const generalDisclaimerChance = 0.3

// Disclaimers appends advisory notes to answers that mention prices,
// schedules, seasonal access or transport, in the answer's language.
type Disclaimers struct {
	rand func() float64
}

func NewDisclaimers() *Disclaimers {
	return &Disclaimers{rand: rand.Float64}
}

// Apply scans the answer and appends matching disclaimers. Returns the
// augmented answer and whether anything was added.
func (d *Disclaimers) Apply(answer, language string) (string, bool) {
	texts, ok := disclaimerTexts[language]
	if !ok {
		slog.Warn("no disclaimers for language, using English", "language", language)
		language = "en"
		texts = disclaimerTexts[language]
	}

	types := detectContentTypes(answer)
	if len(types) == 0 {
		if d.rand() < generalDisclaimerChance {
			return answer + "\n\n" + texts["general"], true
		}
		return answer, false
	}

	sections := make([]string, 0, len(types))
	for _, ct := range types {
		if text, ok := texts[ct]; ok {
			sections = append(sections, text)
		}
	}
	if len(sections) == 0 {
		return answer, false
	}

	header := disclaimerHeaders[language]
	return answer + "\n\n---\n\n" + header + "\n\n" + strings.Join(sections, "\n\n"), true
}

// detectContentTypes reports which advisory topics the answer touches,
// in a fixed order so output is stable.
func detectContentTypes(answer string) []string {
	lower := strings.ToLower(answer)

	var types []string
	if containsAny(lower, priceKeywords) {
		types = append(types, "price")
	}
	if containsAny(lower, scheduleKeywords) {
		types = append(types, "schedule")
	}
	if containsAny(lower, seasonalKeywords) {
		types = append(types, "seasonal")
	}
	if containsAny(lower, transportKeywords) {
		types = append(types, "transport")
	}
	return types
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
