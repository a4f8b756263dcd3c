package repositories

import (
	"context"
	"time"

	domain "github.com/leonyu5566/ordering-helper-backend-sub000/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Users() UserRepository
	Stores() StoreRepository
	Menus() MenuRepository
	OCRMenus() OCRMenuRepository
	Orders() OrderRepository
	Summaries() SummaryRepository
	Languages() LanguageRepository
	Health() HealthRepository
	UnitOfWork
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// UnitOfWork allows grouping repository operations in a transactional boundary when supported.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserRepository stores LINE users and transient guests.
type UserRepository interface {
	Insert(ctx context.Context, user domain.User) (domain.User, error)
	FindByID(ctx context.Context, userID int64) (domain.User, error)
	FindByLineID(ctx context.Context, lineUserID string) (domain.User, error)
}

// StoreRepository persists stores keyed by Place ID.
type StoreRepository interface {
	Insert(ctx context.Context, store domain.Store) (domain.Store, error)
	FindByID(ctx context.Context, storeID int64) (domain.Store, error)
	FindByPlaceID(ctx context.Context, placeID string) (domain.Store, error)
	FindByName(ctx context.Context, name string) (domain.Store, error)
	List(ctx context.Context) ([]domain.Store, error)
}

// MenuRepository owns partner menus and their items, including the catch-all
// menu that backs synthetic rows for non-partner orders.
type MenuRepository interface {
	FindActiveByStore(ctx context.Context, storeID int64) (domain.Menu, error)
	ListItems(ctx context.Context, menuID int64) ([]domain.MenuItem, error)
	FindItem(ctx context.Context, itemID int64) (domain.MenuItem, error)
	EnsureCatchAll(ctx context.Context, storeID int64, now time.Time) (domain.Menu, error)
	InsertItem(ctx context.Context, item domain.MenuItem) (domain.MenuItem, error)
}

// OCRMenuRepository stores OCR ingestion results. Rows are immutable after
// creation; only translations may be appended.
type OCRMenuRepository interface {
	Insert(ctx context.Context, menu domain.OCRMenu, items []domain.OCRMenuItem) (domain.OCRMenu, []domain.OCRMenuItem, error)
	FindByID(ctx context.Context, ocrMenuID int64) (domain.OCRMenu, error)
	FindItem(ctx context.Context, ocrMenuItemID int64) (domain.OCRMenuItem, error)
	ListItems(ctx context.Context, ocrMenuID int64) ([]domain.OCRMenuItem, error)
	InsertTranslations(ctx context.Context, translations []domain.OCRMenuTranslation) error
}

// OrderRepository persists order headers and item snapshots.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order, items []domain.OrderItem) (domain.Order, error)
	FindByID(ctx context.Context, orderID int64) (domain.Order, error)
	ListItems(ctx context.Context, orderID int64) ([]domain.OrderItem, error)
	// CompareAndSetStatus moves the order from one status to another in a
	// single conditional update and reports whether the claim won.
	CompareAndSetStatus(ctx context.Context, orderID int64, from, to domain.OrderStatus) (bool, error)
	SetStatus(ctx context.Context, orderID int64, to domain.OrderStatus) error
}

// SummaryRepository is insert-only; one summary row per order.
type SummaryRepository interface {
	Insert(ctx context.Context, summary domain.OrderSummary) (domain.OrderSummary, error)
	FindByOrder(ctx context.Context, orderID int64) (domain.OrderSummary, error)
}

// LanguageRepository reads the static language lookup table.
type LanguageRepository interface {
	List(ctx context.Context) ([]domain.Language, error)
}

// HealthRepository exposes status of downstream dependencies for health checks.
type HealthRepository interface {
	Ping(ctx context.Context) error
}
