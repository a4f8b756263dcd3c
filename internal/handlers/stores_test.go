package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	domain "github.com/leonyu5566/ordering-helper-backend-sub000/internal/domain"
)

func newStoreServer(t *testing.T, registry *fakeRegistry) http.Handler {
	t.Helper()
	h := NewStoreHandlers(newTestCatalog(t, registry), newTestResolver(t, registry))
	return NewRouter(WithPublicRoutes(h.Routes))
}

func TestListStoresEndpoint(t *testing.T) {
	registry := newFakeRegistry()
	registry.stores.listFn = func(context.Context) ([]domain.Store, error) {
		return []domain.Store{
			{ID: 3, Name: "鼎泰豐", PartnerLevel: domain.PartnerLevelPartner},
			{ID: 4, Name: "阿婆麵攤"},
		}, nil
	}
	server := newStoreServer(t, registry)

	req := httptest.NewRequest(http.MethodGet, "/api/stores?lang=zh-TW", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["count"].(float64) != 2 {
		t.Fatalf("unexpected count %v", body)
	}
	stores := body["stores"].([]any)
	first := stores[0].(map[string]any)
	if first["store_name"] != "鼎泰豐" || first["is_partner"] != true {
		t.Fatalf("unexpected row %v", first)
	}
}

func TestCheckPartnerStatusAlways200(t *testing.T) {
	server := newStoreServer(t, newFakeRegistry())

	req := httptest.NewRequest(http.MethodGet, "/api/stores/check-partner-status?place_id=ChIJunknownplace&name=somewhere", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("partner checks must never fail, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["is_partner"] != false || body["has_menu"] != false {
		t.Fatalf("unknown store must come back non-partner: %v", body)
	}
}

func TestResolveStoreCreatesFromPlaceID(t *testing.T) {
	server := newStoreServer(t, newFakeRegistry())

	req := httptest.NewRequest(http.MethodGet, "/api/stores/resolve?place_id=ChIJabcdefghij&name=%E9%BC%8E%E6%B3%B0%E8%B1%90", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["success"] != true || body["store_id"].(float64) != 3 {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestResolveStoreRequiresPlaceID(t *testing.T) {
	server := newStoreServer(t, newFakeRegistry())

	req := httptest.NewRequest(http.MethodGet, "/api/stores/resolve", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestResolveStoreRejectsMalformedID(t *testing.T) {
	server := newStoreServer(t, newFakeRegistry())

	req := httptest.NewRequest(http.MethodGet, "/api/stores/resolve?place_id=bogus", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	if body := decodeBody(t, rec); body["error"] != "invalid_store_id" {
		t.Fatalf("unexpected error code %v", body["error"])
	}
}
