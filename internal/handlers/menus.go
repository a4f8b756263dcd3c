package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/leonyu5566/ordering-helper-backend-sub000/internal/platform/httpx"
	"github.com/leonyu5566/ordering-helper-backend-sub000/internal/services"
)

// maxOCRUploadBytes caps the multipart body; the image field itself is
// checked again by the service.
const maxOCRUploadBytes = 12 << 20

// MenuHandlers serves partner menus and the OCR ingestion endpoint.
type MenuHandlers struct {
	catalog *services.CatalogService
	ocr     *services.OCRService
}

// NewMenuHandlers constructs the menu endpoints.
func NewMenuHandlers(catalog *services.CatalogService, ocr *services.OCRService) *MenuHandlers {
	return &MenuHandlers{catalog: catalog, ocr: ocr}
}

// Routes registers the /menu endpoints on the public group.
func (h *MenuHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/menu/{storeID}", h.getMenu)
	r.Post("/menu/process-ocr", h.processOCR)
}

func (h *MenuHandlers) getMenu(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	storeID, err := strconv.ParseInt(chi.URLParam(r, "storeID"), 10, 64)
	if err != nil || storeID <= 0 {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "store id must be a positive integer", http.StatusBadRequest))
		return
	}

	entries, err := h.catalog.Menu(ctx, storeID, r.URL.Query().Get("lang"))
	if err != nil {
		if errors.Is(err, services.ErrStoreNotFound) {
			httpx.WriteError(ctx, w, httpx.NewError("menu_not_found", "store has no active menu", http.StatusNotFound))
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("menu_read_failed", "unable to load menu", http.StatusInternalServerError))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"store_id":   storeID,
		"menu_items": entries,
		"count":      len(entries),
	})
}

func (h *MenuHandlers) processOCR(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, maxOCRUploadBytes)
	if err := r.ParseMultipartForm(maxOCRUploadBytes); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "multipart form with an image field is required", http.StatusBadRequest))
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "image field is required", http.StatusBadRequest))
		return
	}
	defer file.Close()
	image, err := io.ReadAll(file)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "unable to read image", http.StatusBadRequest))
		return
	}

	input := services.OCRInput{
		Image:      image,
		StoreRaw:   r.FormValue("store_id"),
		LineUserID: r.FormValue("user_id"),
		Lang:       r.FormValue("lang"),
		SimpleMode: strings.EqualFold(r.FormValue("simple_mode"), "true"),
	}

	result, err := h.ocr.Ingest(ctx, input)
	if err != nil {
		writeOCRError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"success":       true,
		"processing_id": result.ProcessingID,
		"store_id":      result.StoreID,
		"store_name":    result.StoreName,
		"store_info": map[string]any{
			"name":    result.StoreName,
			"address": result.StoreAddress,
			"phone":   result.StorePhone,
		},
		"target_lang": result.TargetLang,
		"menu_items":  result.Items,
		"count":       len(result.Items),
	})
}

// writeOCRError maps ingestion failures onto the status-code policy: bad
// input 400, unreadable image 422 with processing notes, backend trouble 500.
func writeOCRError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrImageTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("image_too_large", "image exceeds the 10 MB limit", http.StatusBadRequest))
	case errors.Is(err, services.ErrOCRInvalidInput), errors.Is(err, services.ErrInvalidStoreID):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOCRUnrecognised):
		notes := "無法辨識菜單內容,請嘗試清晰的菜單照片"
		var unrecognised *services.OCRUnrecognisedError
		if errors.As(err, &unrecognised) && strings.TrimSpace(unrecognised.Notes) != "" {
			notes = unrecognised.Notes
		}
		httpx.WriteError(ctx, w, httpx.NewError("menu_not_recognised", "no legible menu found in the image", http.StatusUnprocessableEntity).
			WithDetails(map[string]any{"processing_notes": notes}))
	case errors.Is(err, services.ErrOCRResponseInvalid):
		httpx.WriteError(ctx, w, httpx.NewError("menu_not_recognised", "vision reply could not be parsed", http.StatusUnprocessableEntity).
			WithDetails(map[string]any{"processing_notes": "無法辨識菜單內容,請嘗試清晰的菜單照片"}))
	case errors.Is(err, services.ErrOCRTimeout):
		httpx.WriteError(ctx, w, httpx.NewError("ocr_timeout", "vision processing timed out", http.StatusInternalServerError).
			WithDetails(map[string]any{"processing_notes": services.OCRTimeoutNote}))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("ocr_failed", "menu processing failed", http.StatusInternalServerError))
	}
}
