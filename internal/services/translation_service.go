package services

import (
	"context"
	"errors"
	"strings"
)

// supportedTags is the short tag set the translation backend is addressed
// with. Unknown tags collapse to English.
var supportedTags = map[string]string{
	"en": "en", "zh-tw": "zh-tw", "zh-cn": "zh-cn", "ja": "ja", "ko": "ko",
	"fr": "fr", "de": "de", "es": "es", "it": "it", "pt": "pt",
	"ru": "ru", "ar": "ar", "hi": "hi", "th": "th", "vi": "vi",
}

// aliasTags maps common BCP-47 spellings onto the supported set.
var aliasTags = map[string]string{
	"zh":      "zh-tw",
	"zh-hant": "zh-tw",
	"zh-hans": "zh-cn",
	"zh-hk":   "zh-tw",
	"zh-mo":   "zh-tw",
	"zh-sg":   "zh-cn",
}

// TranslationServiceDeps bundles collaborators for the translation facade.
type TranslationServiceDeps struct {
	Backend Translator
	Logger  Logger
}

// TranslationService normalises language tags and translates strings,
// degrading to identity on any backend failure. It never propagates errors
// into the pipeline.
type TranslationService struct {
	backend Translator
	logger  Logger
}

// NewTranslationService constructs the facade. A nil backend is allowed and
// yields identity translations.
func NewTranslationService(deps TranslationServiceDeps) (*TranslationService, error) {
	return &TranslationService{
		backend: deps.Backend,
		logger:  normalizeLogger(deps.Logger),
	}, nil
}

// NormalizeLang maps a BCP-47 tag onto the supported short set. Unknown tags
// fall back to en. The function is idempotent.
func NormalizeLang(tag string) string {
	lower := strings.ToLower(strings.TrimSpace(tag))
	if lower == "" {
		return "en"
	}
	if canonical, ok := supportedTags[lower]; ok {
		return canonical
	}
	if canonical, ok := aliasTags[lower]; ok {
		return canonical
	}
	// Try the primary subtag: ja-JP -> ja.
	if idx := strings.IndexByte(lower, '-'); idx > 0 {
		primary := lower[:idx]
		if canonical, ok := supportedTags[primary]; ok {
			return canonical
		}
		if canonical, ok := aliasTags[primary]; ok {
			return canonical
		}
	}
	return "en"
}

// Translate renders one string into the target language. Failures return the
// input unchanged.
func (s *TranslationService) Translate(ctx context.Context, text, target string) string {
	out := s.TranslateBatch(ctx, []string{text}, target)
	if len(out) != 1 {
		return text
	}
	return out[0]
}

// TranslateBatch renders the texts into the target language, positionally
// aligned. Failures return the inputs unchanged.
func (s *TranslationService) TranslateBatch(ctx context.Context, texts []string, target string) []string {
	if len(texts) == 0 {
		return nil
	}
	out := make([]string, len(texts))
	copy(out, texts)

	target = NormalizeLang(target)
	if s.backend == nil || strings.HasPrefix(target, "zh") {
		return out
	}

	// Skip blanks but keep positions stable.
	indices := make([]int, 0, len(texts))
	payload := make([]string, 0, len(texts))
	for i, t := range texts {
		if strings.TrimSpace(t) != "" {
			indices = append(indices, i)
			payload = append(payload, t)
		}
	}
	if len(payload) == 0 {
		return out
	}

	translated, err := s.backend.Translate(ctx, payload, target)
	if err != nil || len(translated) != len(payload) {
		if err == nil {
			err = errors.New("result count mismatch")
		}
		s.logger(ctx, "translate.fallback", map[string]any{
			"target": target,
			"count":  len(payload),
			"error":  err.Error(),
		})
		return out
	}
	for pos, i := range indices {
		if strings.TrimSpace(translated[pos]) != "" {
			out[i] = translated[pos]
		}
	}
	return out
}
