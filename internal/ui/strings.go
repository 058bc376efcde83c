package ui

import "strings"

// Strings holds the user-facing texts of the doctors browser.
type Strings struct {
	OurSpecialists string
	ShowMore       string
	Loading        string
	Error          string
	TryAgain       string
	NoResults      string
	SearchPrompt   string
}

var translations = map[string]Strings{
	"ru": {
		OurSpecialists: "Наши специалисты",
		ShowMore:       "Показать еще",
		Loading:        "Загрузка...",
		Error:          "Произошла ошибка при загрузке данных",
		TryAgain:       "Попробовать снова",
		NoResults:      "Врачи не найдены",
		SearchPrompt:   "Поиск: ",
	},
	"uz": {
		OurSpecialists: "Bizning mutaxassislar",
		ShowMore:       "Ko'proq ko'rsatish",
		Loading:        "Yuklanmoqda...",
		Error:          "Ma'lumotlarni yuklashda xatolik yuz berdi",
		TryAgain:       "Qayta urinib ko'ring",
		NoResults:      "Shifokorlar topilmadi",
		SearchPrompt:   "Qidiruv: ",
	},
}

// StringsFor returns the texts for locale, falling back to Russian.
func StringsFor(locale string) Strings {
	if s, ok := translations[strings.ToLower(strings.TrimSpace(locale))]; ok {
		return s
	}
	return translations["ru"]
}
