package domain

import (
	"regexp"
	"strings"
	"time"
)

// OrderStatus enumerates the lifecycle states of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusFailed     OrderStatus = "failed"
)

var orderStateTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusFailed},
	OrderStatusProcessing: {OrderStatusCompleted, OrderStatusFailed},
}

// CanTransition reports whether an order may move from current to target.
// Terminal states (completed, failed) never re-open.
func CanTransition(current, target OrderStatus) bool {
	if current == target {
		return false
	}
	for _, next := range orderStateTransitions[current] {
		if next == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status is final.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusFailed
}

// Partner tiers for stores.
const (
	PartnerLevelNone    = 0
	PartnerLevelPartner = 1
	PartnerLevelVIP     = 2
)

// DefaultStoreName is used when a store is created from a bare Place ID.
const DefaultStoreName = "未命名店家"

// GuestUserPrefix marks transient users created for submissions without a
// LINE identifier. Guest ids never pass LINE push validation.
const GuestUserPrefix = "temp_guest_"

var lineUserIDPattern = regexp.MustCompile(`^U[0-9a-f]{32}$`)

// ValidLineUserID reports whether the id is a well-formed LINE user id.
// Guest tokens and placeholders fail this check by design of the format.
func ValidLineUserID(id string) bool {
	return lineUserIDPattern.MatchString(strings.TrimSpace(id))
}

// IsGuestUserID reports whether the id is a transient guest token.
func IsGuestUserID(id string) bool {
	return strings.HasPrefix(strings.TrimSpace(id), GuestUserPrefix)
}

// Place ID shapes accepted by the store resolver. "ChlJ" (lower-case L) is a
// quirk carried over from historical data; both prefixes are accepted.
const minPlaceIDLength = 10

var placeIDPrefixes = []string{"ChIJ", "ChlJ"}

// LooksLikePlaceID reports whether raw has the shape of a Google Place ID.
func LooksLikePlaceID(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) < minPlaceIDLength {
		return false
	}
	for _, prefix := range placeIDPrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}

// User is an end user keyed by their LINE identifier.
type User struct {
	ID            int64
	LineUserID    string
	PreferredLang string
	State         string
	CreatedAt     time.Time
}

// Store is a restaurant; partner stores carry structured menus, non-partner
// stores are reached through OCR.
type Store struct {
	ID           int64
	Name         string
	PartnerLevel int
	PlaceID      string
	Latitude     *float64
	Longitude    *float64
	ReviewText   string
	TopDishes    []string
	CreatedAt    time.Time
}

// IsPartner reports whether the store has a partner relationship.
func (s Store) IsPartner() bool {
	return s.PartnerLevel >= PartnerLevelPartner
}

// Menu is a versioned menu belonging to a partner store.
type Menu struct {
	ID            int64
	StoreID       int64
	Version       int
	EffectiveDate time.Time
	CreatedAt     time.Time
}

// MenuItem is a dish on a partner menu. Prices are integer currency units.
type MenuItem struct {
	ID         int64
	MenuID     int64
	ItemName   string
	PriceSmall int
	PriceBig   *int
	Category   string
}

// OCRMenu captures one successful OCR ingestion of a menu photo.
type OCRMenu struct {
	ID         int64
	UserID     int64
	StoreID    *int64
	StoreName  string
	UploadTime time.Time
}

// OCRMenuItem is one recognised row of an OCR menu. Immutable after creation.
type OCRMenuItem struct {
	ID             int64
	OCRMenuID      int64
	ItemName       string
	PriceSmall     int
	PriceBig       int
	TranslatedDesc string
}

// OCRMenuTranslation stores an additional language rendering of an OCR row.
type OCRMenuTranslation struct {
	ID             int64
	OCRMenuItemID  int64
	LangCode       string
	TranslatedName string
	TranslatedDesc string
}

// Order is a submitted cart. Totals are integer currency units.
type Order struct {
	ID          int64
	UserID      int64
	StoreID     int64
	OrderTime   time.Time
	TotalAmount int
	Status      OrderStatus
}

// OrderItem snapshots both name renderings at write time so later display
// does not depend on mutable menu rows.
type OrderItem struct {
	ID             int64
	OrderID        int64
	MenuItemID     int64
	Quantity       int
	Subtotal       int
	OriginalName   string
	TranslatedName string
}

// OrderSummary holds the fully-rendered bilingual summary of a completed
// order plus the voice artefact location. Insert-only; one row per order.
type OrderSummary struct {
	ID              int64
	OrderID         int64
	ChineseSummary  string
	UserSummary     string
	UserLanguage    string
	TotalAmount     int
	VoiceURL        string
	VoiceDurationMS int
	CreatedAt       time.Time
}

// Language is a row of the static language lookup table.
type Language struct {
	Code        string
	TranslateTo string
	SpeechTag   string
	DisplayName string
}
