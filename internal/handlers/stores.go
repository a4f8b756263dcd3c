package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/leonyu5566/ordering-helper-backend-sub000/internal/platform/httpx"
	"github.com/leonyu5566/ordering-helper-backend-sub000/internal/services"
)

// StoreHandlers serves the store directory and the identity resolver.
type StoreHandlers struct {
	catalog  *services.CatalogService
	resolver *services.StoreResolver
}

// NewStoreHandlers constructs the store endpoints.
func NewStoreHandlers(catalog *services.CatalogService, resolver *services.StoreResolver) *StoreHandlers {
	return &StoreHandlers{catalog: catalog, resolver: resolver}
}

// Routes registers the /stores endpoints on the public group.
func (h *StoreHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/stores", h.listStores)
	r.Get("/stores/check-partner-status", h.checkPartnerStatus)
	r.Get("/stores/resolve", h.resolveStore)
}

func (h *StoreHandlers) listStores(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stores, err := h.catalog.ListStores(ctx, r.URL.Query().Get("lang"))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("store_list_failed", "unable to list stores", http.StatusInternalServerError))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"stores": stores, "count": len(stores)})
}

// checkPartnerStatus never returns non-200; unknown stores come back as
// non-partner so the client falls through to OCR without stalling.
func (h *StoreHandlers) checkPartnerStatus(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	status := h.catalog.CheckPartnerStatus(r.Context(), query.Get("place_id"), query.Get("name"), query.Get("lang"))
	httpx.WriteJSON(w, http.StatusOK, status)
}

func (h *StoreHandlers) resolveStore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()
	placeID := strings.TrimSpace(query.Get("place_id"))
	if placeID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "place_id is required", http.StatusBadRequest))
		return
	}

	storeID, err := h.resolver.ResolveWithName(ctx, placeID, query.Get("name"))
	if err != nil {
		if errors.Is(err, services.ErrInvalidStoreID) {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_store_id", err.Error(), http.StatusBadRequest))
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("store_resolve_failed", "unable to resolve store", http.StatusInternalServerError))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"place_id": placeID,
		"store_id": storeID,
	})
}
