package bun

import (
	"time"

	"github.com/uptrace/bun"

	domain "github.com/leonyu5566/ordering-helper-backend-sub000/internal/domain"
)

type userModel struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID            int64     `bun:"user_id,pk,autoincrement"`
	LineUserID    string    `bun:"line_user_id,notnull,unique"`
	PreferredLang string    `bun:"preferred_lang,notnull"`
	State         string    `bun:"state"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
}

func (m *userModel) toDomain() domain.User {
	return domain.User{
		ID:            m.ID,
		LineUserID:    m.LineUserID,
		PreferredLang: m.PreferredLang,
		State:         m.State,
		CreatedAt:     m.CreatedAt,
	}
}

func userFromDomain(u domain.User) userModel {
	return userModel{
		ID:            u.ID,
		LineUserID:    u.LineUserID,
		PreferredLang: u.PreferredLang,
		State:         u.State,
		CreatedAt:     u.CreatedAt,
	}
}

type storeModel struct {
	bun.BaseModel `bun:"table:stores,alias:s"`

	ID           int64     `bun:"store_id,pk,autoincrement"`
	Name         string    `bun:"store_name,notnull"`
	PartnerLevel int       `bun:"partner_level,notnull"`
	PlaceID      string    `bun:"place_id,nullzero,unique"`
	Latitude     *float64  `bun:"latitude"`
	Longitude    *float64  `bun:"longitude"`
	ReviewText   string    `bun:"review_summary"`
	TopDishes    []string  `bun:"top_dishes,type:jsonb,nullzero"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
}

func (m *storeModel) toDomain() domain.Store {
	return domain.Store{
		ID:           m.ID,
		Name:         m.Name,
		PartnerLevel: m.PartnerLevel,
		PlaceID:      m.PlaceID,
		Latitude:     m.Latitude,
		Longitude:    m.Longitude,
		ReviewText:   m.ReviewText,
		TopDishes:    m.TopDishes,
		CreatedAt:    m.CreatedAt,
	}
}

func storeFromDomain(s domain.Store) storeModel {
	return storeModel{
		ID:           s.ID,
		Name:         s.Name,
		PartnerLevel: s.PartnerLevel,
		PlaceID:      s.PlaceID,
		Latitude:     s.Latitude,
		Longitude:    s.Longitude,
		ReviewText:   s.ReviewText,
		TopDishes:    s.TopDishes,
		CreatedAt:    s.CreatedAt,
	}
}

type menuModel struct {
	bun.BaseModel `bun:"table:menus,alias:m"`

	ID            int64     `bun:"menu_id,pk,autoincrement"`
	StoreID       int64     `bun:"store_id,notnull"`
	Version       int       `bun:"version,notnull"`
	EffectiveDate time.Time `bun:"effective_date"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
}

func (m *menuModel) toDomain() domain.Menu {
	return domain.Menu{
		ID:            m.ID,
		StoreID:       m.StoreID,
		Version:       m.Version,
		EffectiveDate: m.EffectiveDate,
		CreatedAt:     m.CreatedAt,
	}
}

type menuItemModel struct {
	bun.BaseModel `bun:"table:menu_items,alias:mi"`

	ID         int64  `bun:"menu_item_id,pk,autoincrement"`
	MenuID     int64  `bun:"menu_id,notnull"`
	ItemName   string `bun:"item_name,notnull"`
	PriceSmall int    `bun:"price_small,notnull"`
	PriceBig   *int   `bun:"price_big"`
	Category   string `bun:"category"`
}

func (m *menuItemModel) toDomain() domain.MenuItem {
	return domain.MenuItem{
		ID:         m.ID,
		MenuID:     m.MenuID,
		ItemName:   m.ItemName,
		PriceSmall: m.PriceSmall,
		PriceBig:   m.PriceBig,
		Category:   m.Category,
	}
}

func menuItemFromDomain(i domain.MenuItem) menuItemModel {
	return menuItemModel{
		ID:         i.ID,
		MenuID:     i.MenuID,
		ItemName:   i.ItemName,
		PriceSmall: i.PriceSmall,
		PriceBig:   i.PriceBig,
		Category:   i.Category,
	}
}

type ocrMenuModel struct {
	bun.BaseModel `bun:"table:ocr_menus,alias:om"`

	ID         int64     `bun:"ocr_menu_id,pk,autoincrement"`
	UserID     int64     `bun:"user_id,notnull"`
	StoreID    *int64    `bun:"store_id"`
	StoreName  string    `bun:"store_name"`
	UploadTime time.Time `bun:"upload_time,notnull"`
}

func (m *ocrMenuModel) toDomain() domain.OCRMenu {
	return domain.OCRMenu{
		ID:         m.ID,
		UserID:     m.UserID,
		StoreID:    m.StoreID,
		StoreName:  m.StoreName,
		UploadTime: m.UploadTime,
	}
}

type ocrMenuItemModel struct {
	bun.BaseModel `bun:"table:ocr_menu_items,alias:omi"`

	ID             int64  `bun:"ocr_menu_item_id,pk,autoincrement"`
	OCRMenuID      int64  `bun:"ocr_menu_id,notnull"`
	ItemName       string `bun:"item_name,notnull"`
	PriceSmall     int    `bun:"price_small,notnull"`
	PriceBig       int    `bun:"price_big"`
	TranslatedDesc string `bun:"translated_desc"`
}

func (m *ocrMenuItemModel) toDomain() domain.OCRMenuItem {
	return domain.OCRMenuItem{
		ID:             m.ID,
		OCRMenuID:      m.OCRMenuID,
		ItemName:       m.ItemName,
		PriceSmall:     m.PriceSmall,
		PriceBig:       m.PriceBig,
		TranslatedDesc: m.TranslatedDesc,
	}
}

type ocrMenuTranslationModel struct {
	bun.BaseModel `bun:"table:ocr_menu_translations,alias:omt"`

	ID             int64  `bun:"ocr_menu_translation_id,pk,autoincrement"`
	OCRMenuItemID  int64  `bun:"ocr_menu_item_id,notnull"`
	LangCode       string `bun:"lang_code,notnull"`
	TranslatedName string `bun:"translated_name,notnull"`
	TranslatedDesc string `bun:"translated_desc"`
}

type orderModel struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	ID          int64     `bun:"order_id,pk,autoincrement"`
	UserID      int64     `bun:"user_id,notnull"`
	StoreID     int64     `bun:"store_id,notnull"`
	OrderTime   time.Time `bun:"order_time,notnull"`
	TotalAmount int       `bun:"total_amount,notnull"`
	Status      string    `bun:"status,notnull"`
}

func (m *orderModel) toDomain() domain.Order {
	return domain.Order{
		ID:          m.ID,
		UserID:      m.UserID,
		StoreID:     m.StoreID,
		OrderTime:   m.OrderTime,
		TotalAmount: m.TotalAmount,
		Status:      domain.OrderStatus(m.Status),
	}
}

func orderFromDomain(o domain.Order) orderModel {
	return orderModel{
		ID:          o.ID,
		UserID:      o.UserID,
		StoreID:     o.StoreID,
		OrderTime:   o.OrderTime,
		TotalAmount: o.TotalAmount,
		Status:      string(o.Status),
	}
}

type orderItemModel struct {
	bun.BaseModel `bun:"table:order_items,alias:oi"`

	ID             int64  `bun:"order_item_id,pk,autoincrement"`
	OrderID        int64  `bun:"order_id,notnull"`
	MenuItemID     int64  `bun:"menu_item_id,notnull"`
	Quantity       int    `bun:"quantity_small,notnull"`
	Subtotal       int    `bun:"subtotal,notnull"`
	OriginalName   string `bun:"original_name"`
	TranslatedName string `bun:"translated_name"`
}

func (m *orderItemModel) toDomain() domain.OrderItem {
	return domain.OrderItem{
		ID:             m.ID,
		OrderID:        m.OrderID,
		MenuItemID:     m.MenuItemID,
		Quantity:       m.Quantity,
		Subtotal:       m.Subtotal,
		OriginalName:   m.OriginalName,
		TranslatedName: m.TranslatedName,
	}
}

func orderItemFromDomain(i domain.OrderItem) orderItemModel {
	return orderItemModel{
		ID:             i.ID,
		OrderID:        i.OrderID,
		MenuItemID:     i.MenuItemID,
		Quantity:       i.Quantity,
		Subtotal:       i.Subtotal,
		OriginalName:   i.OriginalName,
		TranslatedName: i.TranslatedName,
	}
}

type orderSummaryModel struct {
	bun.BaseModel `bun:"table:order_summaries,alias:os"`

	ID              int64     `bun:"summary_id,pk,autoincrement"`
	OrderID         int64     `bun:"order_id,notnull,unique"`
	ChineseSummary  string    `bun:"chinese_summary,notnull"`
	UserSummary     string    `bun:"user_summary,notnull"`
	UserLanguage    string    `bun:"user_language,notnull"`
	TotalAmount     int       `bun:"total_amount,notnull"`
	VoiceURL        string    `bun:"voice_url"`
	VoiceDurationMS int       `bun:"voice_duration_ms"`
	CreatedAt       time.Time `bun:"created_at,notnull"`
}

func (m *orderSummaryModel) toDomain() domain.OrderSummary {
	return domain.OrderSummary{
		ID:              m.ID,
		OrderID:         m.OrderID,
		ChineseSummary:  m.ChineseSummary,
		UserSummary:     m.UserSummary,
		UserLanguage:    m.UserLanguage,
		TotalAmount:     m.TotalAmount,
		VoiceURL:        m.VoiceURL,
		VoiceDurationMS: m.VoiceDurationMS,
		CreatedAt:       m.CreatedAt,
	}
}

type languageModel struct {
	bun.BaseModel `bun:"table:languages,alias:l"`

	Code        string `bun:"lang_code,pk"`
	TranslateTo string `bun:"translate_to,notnull"`
	SpeechTag   string `bun:"speech_tag,notnull"`
	DisplayName string `bun:"display_name,notnull"`
}

func (m *languageModel) toDomain() domain.Language {
	return domain.Language{
		Code:        m.Code,
		TranslateTo: m.TranslateTo,
		SpeechTag:   m.SpeechTag,
		DisplayName: m.DisplayName,
	}
}

// schemaModels lists every model in dependency order for table creation.
func schemaModels() []any {
	return []any{
		(*userModel)(nil),
		(*storeModel)(nil),
		(*menuModel)(nil),
		(*menuItemModel)(nil),
		(*ocrMenuModel)(nil),
		(*ocrMenuItemModel)(nil),
		(*ocrMenuTranslationModel)(nil),
		(*orderModel)(nil),
		(*orderItemModel)(nil),
		(*orderSummaryModel)(nil),
		(*languageModel)(nil),
	}
}
