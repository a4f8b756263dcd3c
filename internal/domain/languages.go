package domain

// DefaultLanguage is assumed for callers that do not state a preference.
const DefaultLanguage = "zh"

// builtinLanguages is the supported language set. The languages table is
// seeded from it and the translation facade normalises onto it; unknown tags
// collapse to English.
var builtinLanguages = []Language{
	{Code: "zh", TranslateTo: "zh-TW", SpeechTag: "cmn-TW", DisplayName: "中文"},
	{Code: "en", TranslateTo: "en", SpeechTag: "en-US", DisplayName: "English"},
	{Code: "ja", TranslateTo: "ja", SpeechTag: "ja-JP", DisplayName: "日本語"},
	{Code: "ko", TranslateTo: "ko", SpeechTag: "ko-KR", DisplayName: "한국어"},
	{Code: "th", TranslateTo: "th", SpeechTag: "th-TH", DisplayName: "ไทย"},
	{Code: "vi", TranslateTo: "vi", SpeechTag: "vi-VN", DisplayName: "Tiếng Việt"},
	{Code: "id", TranslateTo: "id", SpeechTag: "id-ID", DisplayName: "Bahasa Indonesia"},
	{Code: "ms", TranslateTo: "ms", SpeechTag: "ms-MY", DisplayName: "Bahasa Melayu"},
	{Code: "es", TranslateTo: "es", SpeechTag: "es-ES", DisplayName: "Español"},
	{Code: "fr", TranslateTo: "fr", SpeechTag: "fr-FR", DisplayName: "Français"},
	{Code: "de", TranslateTo: "de", SpeechTag: "de-DE", DisplayName: "Deutsch"},
	{Code: "it", TranslateTo: "it", SpeechTag: "it-IT", DisplayName: "Italiano"},
	{Code: "pt", TranslateTo: "pt", SpeechTag: "pt-BR", DisplayName: "Português"},
	{Code: "ru", TranslateTo: "ru", SpeechTag: "ru-RU", DisplayName: "Русский"},
	{Code: "ar", TranslateTo: "ar", SpeechTag: "ar-XA", DisplayName: "العربية"},
}

// DefaultLanguages returns a copy of the built-in language set.
func DefaultLanguages() []Language {
	out := make([]Language, len(builtinLanguages))
	copy(out, builtinLanguages)
	return out
}

// SupportedLanguage reports whether code is in the built-in set.
func SupportedLanguage(code string) bool {
	for _, l := range builtinLanguages {
		if l.Code == code {
			return true
		}
	}
	return false
}
