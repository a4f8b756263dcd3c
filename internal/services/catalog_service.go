package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	domain "github.com/leonyu5566/ordering-helper-backend-sub000/internal/domain"
	"github.com/leonyu5566/ordering-helper-backend-sub000/internal/repositories"
)

// ErrStoreNotFound indicates a menu read for an unknown store.
var ErrStoreNotFound = errors.New("catalog: store not found")

// CatalogServiceDeps bundles collaborators for the catalog reads.
type CatalogServiceDeps struct {
	Registry    repositories.Registry
	Translation *TranslationService
	Logger      Logger
}

// CatalogService serves the store directory and partner menus. Reads are
// fail-open where the client would otherwise stall on load.
type CatalogService struct {
	registry    repositories.Registry
	translation *TranslationService
	sanitizer   *bluemonday.Policy
	logger      Logger
}

// NewCatalogService constructs the catalog reads.
func NewCatalogService(deps CatalogServiceDeps) (*CatalogService, error) {
	if deps.Registry == nil {
		return nil, errors.New("catalog service: registry is required")
	}
	if deps.Translation == nil {
		return nil, errors.New("catalog service: translation service is required")
	}
	return &CatalogService{
		registry:    deps.Registry,
		translation: deps.Translation,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      normalizeLogger(deps.Logger),
	}, nil
}

// StoreSummary is one directory row.
type StoreSummary struct {
	StoreID      int64    `json:"store_id"`
	StoreName    string   `json:"store_name"`
	DisplayName  string   `json:"display_name"`
	PartnerLevel int      `json:"partner_level"`
	IsPartner    bool     `json:"is_partner"`
	PlaceID      string   `json:"place_id,omitempty"`
	ReviewText   string   `json:"review_text,omitempty"`
	TopDishes    []string `json:"top_dishes,omitempty"`
}

// ListStores returns the directory, translating display names for
// non-Chinese callers. Curated review text is sanitised before serving.
func (s *CatalogService) ListStores(ctx context.Context, lang string) ([]StoreSummary, error) {
	stores, err := s.registry.Stores().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: list stores: %w", err)
	}
	lang = NormalizeLang(lang)

	out := make([]StoreSummary, 0, len(stores))
	names := make([]string, 0, len(stores))
	for _, store := range stores {
		out = append(out, StoreSummary{
			StoreID:      store.ID,
			StoreName:    store.Name,
			DisplayName:  store.Name,
			PartnerLevel: store.PartnerLevel,
			IsPartner:    store.IsPartner(),
			PlaceID:      store.PlaceID,
			ReviewText:   s.sanitizer.Sanitize(store.ReviewText),
			TopDishes:    store.TopDishes,
		})
		names = append(names, store.Name)
	}
	if !domain.IsChineseTag(lang) && len(names) > 0 {
		translated := s.translation.TranslateBatch(ctx, names, lang)
		for i := range out {
			if i < len(translated) && strings.TrimSpace(translated[i]) != "" {
				out[i].DisplayName = translated[i]
			}
		}
	}
	return out, nil
}

// PartnerStatus is the fail-open partner lookup payload.
type PartnerStatus struct {
	StoreID        int64  `json:"store_id"`
	StoreName      string `json:"store_name"`
	DisplayName    string `json:"display_name"`
	TranslatedName string `json:"translated_name"`
	OriginalName   string `json:"original_name"`
	PlaceID        string `json:"place_id,omitempty"`
	PartnerLevel   int    `json:"partner_level"`
	IsPartner      bool   `json:"is_partner"`
	HasMenu        bool   `json:"has_menu"`
}

// CheckPartnerStatus reports the partner standing of a store keyed by Place
// ID or name. The lookup never fails: unknown stores come back as
// non-partner with HasMenu false so the client can proceed with OCR.
func (s *CatalogService) CheckPartnerStatus(ctx context.Context, placeID, name, lang string) PartnerStatus {
	placeID = strings.TrimSpace(placeID)
	name = strings.TrimSpace(name)
	status := PartnerStatus{
		StoreName:      name,
		DisplayName:    name,
		TranslatedName: name,
		OriginalName:   name,
		PlaceID:        placeID,
	}

	var store domain.Store
	var err error
	switch {
	case placeID != "":
		store, err = s.registry.Stores().FindByPlaceID(ctx, placeID)
	case name != "":
		store, err = s.registry.Stores().FindByName(ctx, name)
	default:
		return status
	}
	if err != nil {
		if !isNotFound(err) {
			s.logger(ctx, "catalog.partner_status.degraded", map[string]any{
				"place_id": placeID,
				"error":    err.Error(),
			})
		}
		return status
	}

	status.StoreID = store.ID
	status.StoreName = store.Name
	status.OriginalName = store.Name
	status.DisplayName = store.Name
	status.TranslatedName = store.Name
	status.PlaceID = store.PlaceID
	status.PartnerLevel = store.PartnerLevel
	status.IsPartner = store.IsPartner()
	status.HasMenu = s.hasPricedMenu(ctx, store.ID)

	if lang = NormalizeLang(lang); !domain.IsChineseTag(lang) {
		translated := s.translation.Translate(ctx, store.Name, lang)
		status.DisplayName = translated
		status.TranslatedName = translated
	}
	return status
}

// hasPricedMenu reports whether the store carries at least one priced item
// on its active menu.
func (s *CatalogService) hasPricedMenu(ctx context.Context, storeID int64) bool {
	menu, err := s.registry.Menus().FindActiveByStore(ctx, storeID)
	if err != nil {
		return false
	}
	items, err := s.registry.Menus().ListItems(ctx, menu.ID)
	if err != nil {
		return false
	}
	for _, item := range items {
		if item.PriceSmall > 0 {
			return true
		}
	}
	return false
}

// MenuEntry is one served menu row.
type MenuEntry struct {
	ID               int64  `json:"id"`
	NameNative       string `json:"name_native"`
	Name             string `json:"name"`
	OriginalName     string `json:"original_name"`
	TranslatedName   string `json:"translated_name"`
	PriceSmall       int    `json:"price_small"`
	PriceLarge       int    `json:"price_large,omitempty"`
	Category         string `json:"category,omitempty"`
	OriginalCategory string `json:"original_category,omitempty"`
	ShowImage        bool   `json:"show_image"`
}

// Menu returns the store's active menu with user-language names. Items
// without a positive price are excluded.
func (s *CatalogService) Menu(ctx context.Context, storeID int64, lang string) ([]MenuEntry, error) {
	menu, err := s.registry.Menus().FindActiveByStore(ctx, storeID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrStoreNotFound
		}
		return nil, fmt.Errorf("catalog: find menu: %w", err)
	}
	items, err := s.registry.Menus().ListItems(ctx, menu.ID)
	if err != nil {
		return nil, fmt.Errorf("catalog: list menu items: %w", err)
	}
	lang = NormalizeLang(lang)

	entries := make([]MenuEntry, 0, len(items))
	names := make([]string, 0, len(items))
	for _, item := range items {
		if item.PriceSmall <= 0 {
			continue
		}
		entry := MenuEntry{
			ID:               item.ID,
			NameNative:       item.ItemName,
			Name:             item.ItemName,
			OriginalName:     item.ItemName,
			TranslatedName:   item.ItemName,
			PriceSmall:       item.PriceSmall,
			Category:         item.Category,
			OriginalCategory: item.Category,
		}
		if item.PriceBig != nil {
			entry.PriceLarge = *item.PriceBig
		}
		entries = append(entries, entry)
		names = append(names, item.ItemName)
	}

	if !domain.IsChineseTag(lang) && len(names) > 0 {
		translated := s.translation.TranslateBatch(ctx, names, lang)
		for i := range entries {
			if i < len(translated) && strings.TrimSpace(translated[i]) != "" {
				entries[i].Name = translated[i]
				entries[i].TranslatedName = translated[i]
			}
		}
	}
	return entries, nil
}
