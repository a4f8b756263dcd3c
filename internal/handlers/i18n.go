package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/leonyu5566/ordering-helper-backend-sub000/internal/domain"
	"github.com/leonyu5566/ordering-helper-backend-sub000/internal/platform/httpx"
	"github.com/leonyu5566/ordering-helper-backend-sub000/internal/repositories"
	"github.com/leonyu5566/ordering-helper-backend-sub000/internal/services"
)

// I18nHandlers serves the language lookup and the translation endpoint. Both
// fail open: they always answer 200 with a usable payload so the LIFF client
// never stalls on load.
type I18nHandlers struct {
	languages   repositories.LanguageRepository
	translation *services.TranslationService
}

// NewI18nHandlers constructs the i18n endpoints.
func NewI18nHandlers(languages repositories.LanguageRepository, translation *services.TranslationService) *I18nHandlers {
	return &I18nHandlers{languages: languages, translation: translation}
}

// Routes registers the /languages and /translate endpoints.
func (h *I18nHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/languages", h.listLanguages)
	r.Post("/translate", h.translate)
}

func (h *I18nHandlers) listLanguages(w http.ResponseWriter, r *http.Request) {
	languages := domain.DefaultLanguages()
	if h.languages != nil {
		if stored, err := h.languages.List(r.Context()); err == nil && len(stored) > 0 {
			languages = stored
		}
	}

	payload := make([]map[string]any, 0, len(languages))
	for _, lang := range languages {
		payload = append(payload, map[string]any{
			"code":         lang.Code,
			"translate_to": lang.TranslateTo,
			"speech_tag":   lang.SpeechTag,
			"display_name": lang.DisplayName,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"languages": payload})
}

type translateBody struct {
	Text   string   `json:"text"`
	Texts  []string `json:"texts"`
	Target string   `json:"target"`
	Lang   string   `json:"lang"`
}

// translate accepts a single text or a batch; any failure degrades to the
// inputs unchanged.
func (h *I18nHandlers) translate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body translateBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"success":      false,
			"translations": []string{},
		})
		return
	}
	target := body.Target
	if strings.TrimSpace(target) == "" {
		target = body.Lang
	}
	target = services.NormalizeLang(target)

	texts := body.Texts
	single := false
	if len(texts) == 0 && strings.TrimSpace(body.Text) != "" {
		texts = []string{body.Text}
		single = true
	}

	translated := h.translation.TranslateBatch(ctx, texts, target)
	payload := map[string]any{
		"success": true,
		"target":  target,
	}
	if single && len(translated) == 1 {
		payload["translation"] = translated[0]
	}
	payload["translations"] = translated
	httpx.WriteJSON(w, http.StatusOK, payload)
}
