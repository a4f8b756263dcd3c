package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/leonyu5566/ordering-helper-backend-sub000/internal/platform/httpx"
	"github.com/leonyu5566/ordering-helper-backend-sub000/internal/services"
)

const maxOrderBodyBytes = 256 * 1024

// flexString decodes JSON fields that arrive as either a string or a number.
type flexString string

// UnmarshalJSON keeps numbers as their literal text.
func (s *flexString) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*s = ""
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = flexString(str)
		return nil
	}
	*s = flexString(trimmed)
	return nil
}

// submitBody covers both caller dialects; the adapter collapses the aliases.
type submitBody struct {
	StoreID    flexString                `json:"store_id"`
	PlaceID    string                    `json:"place_id"`
	StoreName  string                    `json:"store_name"`
	LineUserID string                    `json:"line_user_id"`
	UserID     flexString                `json:"user_id"`
	Lang       string                    `json:"lang"`
	Language   string                    `json:"language"`
	Items      []services.SubmissionItem `json:"items"`
}

func (b submitBody) toRequest(sync bool) services.SubmitRequest {
	storeRaw := strings.TrimSpace(string(b.StoreID))
	if storeRaw == "" {
		storeRaw = strings.TrimSpace(b.PlaceID)
	}
	lineUserID := strings.TrimSpace(b.LineUserID)
	if lineUserID == "" {
		lineUserID = strings.TrimSpace(string(b.UserID))
	}
	lang := strings.TrimSpace(b.Lang)
	if lang == "" {
		lang = strings.TrimSpace(b.Language)
	}
	return services.SubmitRequest{
		StoreRaw:   storeRaw,
		StoreName:  strings.TrimSpace(b.StoreName),
		LineUserID: lineUserID,
		Lang:       lang,
		Items:      b.Items,
		Sync:       sync,
	}
}

// OrderHandlers serves submission and polling.
type OrderHandlers struct {
	orders *services.OrderService
}

// NewOrderHandlers constructs the order endpoints.
func NewOrderHandlers(orders *services.OrderService) *OrderHandlers {
	return &OrderHandlers{orders: orders}
}

// Routes registers the order endpoints. The quick-submit + poll pair is
// canonical; the legacy endpoints accept the same dialects and an optional
// ?sync=true inline mode.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/quick", h.submit(false))
	r.Get("/status/{orderID}", h.status)
	r.Post("/", h.submit(false))
	r.Post("/simple", h.submitLegacy)
	r.Post("/ocr", h.submitLegacy)
	r.Post("/ocr-optimized", h.submitLegacy)
}

func (h *OrderHandlers) submit(sync bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.handleSubmit(w, r, sync)
	}
}

func (h *OrderHandlers) submitLegacy(w http.ResponseWriter, r *http.Request) {
	sync := strings.EqualFold(r.URL.Query().Get("sync"), "true")
	h.handleSubmit(w, r, sync)
}

func (h *OrderHandlers) handleSubmit(w http.ResponseWriter, r *http.Request, sync bool) {
	ctx := r.Context()

	var body submitBody
	r.Body = http.MaxBytesReader(w, r.Body, maxOrderBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	result, err := h.orders.Submit(ctx, body.toRequest(sync))
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"order_id": result.OrderID,
		"status":   string(result.Status),
		"poll_url": result.PollURL,
	})
}

// status always answers 200; unknown ids come back as not_found so pollers
// stay simple.
func (h *OrderHandlers) status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil || orderID <= 0 {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"status":     "not_found",
			"processing": false,
		})
		return
	}

	result, err := h.orders.Status(ctx, orderID)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("status_read_failed", "unable to read order status", http.StatusInternalServerError))
		return
	}
	if !result.Found {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"order_id":   orderID,
			"status":     "not_found",
			"processing": false,
		})
		return
	}

	payload := map[string]any{
		"order_id":      result.OrderID,
		"status":        string(result.Status),
		"processing":    result.Processing,
		"store_name":    result.StoreName,
		"total_amount":  result.TotalAmount,
		"order_time":    result.OrderTime.UTC().Format("2006-01-02T15:04:05Z07:00"),
		"voice_ready":   result.VoiceReady,
		"summary_ready": result.SummaryReady,
	}
	if result.VoiceReady {
		payload["voice_url"] = result.VoiceURL
	}
	if result.SummaryReady {
		payload["summary"] = map[string]any{
			"chinese":    result.ChineseSummary,
			"translated": result.UserSummary,
		}
	}
	httpx.WriteJSON(w, http.StatusOK, payload)
}

func writeOrderError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrOrderInvalidInput),
		errors.Is(err, services.ErrCartEmpty),
		errors.Is(err, services.ErrInvalidStoreID):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("order_submit_failed", "unable to submit order", http.StatusInternalServerError))
	}
}
