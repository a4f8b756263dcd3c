package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/leonyu5566/ordering-helper-backend-sub000/internal/platform/httpx"
	"github.com/leonyu5566/ordering-helper-backend-sub000/internal/services"
)

// TaskHandlers serves the internal endpoint the task dispatcher calls back
// into. OIDC verification is applied as group middleware by the router.
type TaskHandlers struct {
	pipeline services.OrderProcessor
}

// NewTaskHandlers constructs the task endpoints.
func NewTaskHandlers(pipeline services.OrderProcessor) *TaskHandlers {
	return &TaskHandlers{pipeline: pipeline}
}

// Routes registers the process-task endpoint.
func (h *TaskHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/process-task", h.processTask)
}

func (h *TaskHandlers) processTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload struct {
		OrderID int64 `json:"order_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.OrderID <= 0 {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "body must carry a positive order_id", http.StatusBadRequest))
		return
	}

	if err := h.pipeline.Process(ctx, payload.OrderID); err != nil {
		// The order is already marked failed; a 500 makes the queue retry,
		// and the status claim keeps duplicates harmless.
		httpx.WriteError(ctx, w, httpx.NewError("process_failed", "order processing failed", http.StatusInternalServerError))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"order_id": payload.OrderID,
		"done":     true,
	})
}
