package handlers

import (
	"context"
	"testing"
	"time"

	domain "github.com/leonyu5566/ordering-helper-backend-sub000/internal/domain"
	"github.com/leonyu5566/ordering-helper-backend-sub000/internal/repositories"
	"github.com/leonyu5566/ordering-helper-backend-sub000/internal/services"
)

// repoErr satisfies repositories.RepositoryError for the handler tests.
type repoErr struct {
	msg      string
	notFound bool
}

func (e *repoErr) Error() string       { return e.msg }
func (e *repoErr) IsNotFound() bool    { return e.notFound }
func (e *repoErr) IsConflict() bool    { return false }
func (e *repoErr) IsUnavailable() bool { return false }

func notFoundErr(msg string) error { return &repoErr{msg: msg, notFound: true} }

type fakeUserRepo struct{}

func (fakeUserRepo) Insert(_ context.Context, user domain.User) (domain.User, error) {
	user.ID = 1
	return user, nil
}

func (fakeUserRepo) FindByID(context.Context, int64) (domain.User, error) {
	return domain.User{}, notFoundErr("user not found")
}

func (fakeUserRepo) FindByLineID(context.Context, string) (domain.User, error) {
	return domain.User{}, notFoundErr("user not found")
}

type fakeStoreRepo struct {
	findByIDFn    func(context.Context, int64) (domain.Store, error)
	findByPlaceFn func(context.Context, string) (domain.Store, error)
	listFn        func(context.Context) ([]domain.Store, error)
}

func (f *fakeStoreRepo) Insert(_ context.Context, store domain.Store) (domain.Store, error) {
	store.ID = 3
	return store, nil
}

func (f *fakeStoreRepo) FindByID(ctx context.Context, storeID int64) (domain.Store, error) {
	if f.findByIDFn != nil {
		return f.findByIDFn(ctx, storeID)
	}
	return domain.Store{}, notFoundErr("store not found")
}

func (f *fakeStoreRepo) FindByPlaceID(ctx context.Context, placeID string) (domain.Store, error) {
	if f.findByPlaceFn != nil {
		return f.findByPlaceFn(ctx, placeID)
	}
	return domain.Store{}, notFoundErr("store not found")
}

func (f *fakeStoreRepo) FindByName(context.Context, string) (domain.Store, error) {
	return domain.Store{}, notFoundErr("store not found")
}

func (f *fakeStoreRepo) List(ctx context.Context) ([]domain.Store, error) {
	if f.listFn != nil {
		return f.listFn(ctx)
	}
	return nil, nil
}

type fakeMenuRepo struct {
	findActiveFn func(context.Context, int64) (domain.Menu, error)
	listItemsFn  func(context.Context, int64) ([]domain.MenuItem, error)
}

func (f *fakeMenuRepo) FindActiveByStore(ctx context.Context, storeID int64) (domain.Menu, error) {
	if f.findActiveFn != nil {
		return f.findActiveFn(ctx, storeID)
	}
	return domain.Menu{}, notFoundErr("menu not found")
}

func (f *fakeMenuRepo) ListItems(ctx context.Context, menuID int64) ([]domain.MenuItem, error) {
	if f.listItemsFn != nil {
		return f.listItemsFn(ctx, menuID)
	}
	return nil, nil
}

func (f *fakeMenuRepo) FindItem(context.Context, int64) (domain.MenuItem, error) {
	return domain.MenuItem{}, notFoundErr("menu item not found")
}

func (f *fakeMenuRepo) EnsureCatchAll(_ context.Context, storeID int64, _ time.Time) (domain.Menu, error) {
	return domain.Menu{ID: 900, StoreID: storeID}, nil
}

func (f *fakeMenuRepo) InsertItem(_ context.Context, item domain.MenuItem) (domain.MenuItem, error) {
	item.ID = 9001
	return item, nil
}

type fakeOCRMenuRepo struct{}

func (fakeOCRMenuRepo) Insert(_ context.Context, menu domain.OCRMenu, items []domain.OCRMenuItem) (domain.OCRMenu, []domain.OCRMenuItem, error) {
	menu.ID = 55
	for i := range items {
		items[i].ID = int64(100 + i)
		items[i].OCRMenuID = menu.ID
	}
	return menu, items, nil
}

func (fakeOCRMenuRepo) FindByID(context.Context, int64) (domain.OCRMenu, error) {
	return domain.OCRMenu{}, notFoundErr("ocr menu not found")
}

func (fakeOCRMenuRepo) FindItem(context.Context, int64) (domain.OCRMenuItem, error) {
	return domain.OCRMenuItem{}, notFoundErr("ocr menu item not found")
}

func (fakeOCRMenuRepo) ListItems(context.Context, int64) ([]domain.OCRMenuItem, error) {
	return nil, nil
}

func (fakeOCRMenuRepo) InsertTranslations(context.Context, []domain.OCRMenuTranslation) error {
	return nil
}

type fakeOrderRepo struct {
	findByIDFn func(context.Context, int64) (domain.Order, error)
}

func (f *fakeOrderRepo) Insert(_ context.Context, order domain.Order, _ []domain.OrderItem) (domain.Order, error) {
	order.ID = 77
	return order, nil
}

func (f *fakeOrderRepo) FindByID(ctx context.Context, orderID int64) (domain.Order, error) {
	if f.findByIDFn != nil {
		return f.findByIDFn(ctx, orderID)
	}
	return domain.Order{}, notFoundErr("order not found")
}

func (f *fakeOrderRepo) ListItems(context.Context, int64) ([]domain.OrderItem, error) {
	return nil, nil
}

func (f *fakeOrderRepo) CompareAndSetStatus(context.Context, int64, domain.OrderStatus, domain.OrderStatus) (bool, error) {
	return true, nil
}

func (f *fakeOrderRepo) SetStatus(context.Context, int64, domain.OrderStatus) error {
	return nil
}

type fakeSummaryRepo struct {
	findFn func(context.Context, int64) (domain.OrderSummary, error)
}

func (f *fakeSummaryRepo) Insert(_ context.Context, summary domain.OrderSummary) (domain.OrderSummary, error) {
	summary.ID = 1
	return summary, nil
}

func (f *fakeSummaryRepo) FindByOrder(ctx context.Context, orderID int64) (domain.OrderSummary, error) {
	if f.findFn != nil {
		return f.findFn(ctx, orderID)
	}
	return domain.OrderSummary{}, notFoundErr("summary not found")
}

type fakeLanguageRepo struct {
	listFn func(context.Context) ([]domain.Language, error)
}

func (f *fakeLanguageRepo) List(ctx context.Context) ([]domain.Language, error) {
	if f.listFn != nil {
		return f.listFn(ctx)
	}
	return nil, nil
}

type fakeHealthRepo struct {
	pingFn func(context.Context) error
}

func (f *fakeHealthRepo) Ping(ctx context.Context) error {
	if f.pingFn != nil {
		return f.pingFn(ctx)
	}
	return nil
}

// fakeRegistry backs the handler tests with canned repositories.
type fakeRegistry struct {
	users     fakeUserRepo
	stores    *fakeStoreRepo
	menus     *fakeMenuRepo
	ocrMenus  fakeOCRMenuRepo
	orders    *fakeOrderRepo
	summaries *fakeSummaryRepo
	languages *fakeLanguageRepo
	health    *fakeHealthRepo
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		stores:    &fakeStoreRepo{},
		menus:     &fakeMenuRepo{},
		orders:    &fakeOrderRepo{},
		summaries: &fakeSummaryRepo{},
		languages: &fakeLanguageRepo{},
		health:    &fakeHealthRepo{},
	}
}

func (r *fakeRegistry) Close(context.Context) error { return nil }

func (r *fakeRegistry) Users() repositories.UserRepository         { return r.users }
func (r *fakeRegistry) Stores() repositories.StoreRepository       { return r.stores }
func (r *fakeRegistry) Menus() repositories.MenuRepository         { return r.menus }
func (r *fakeRegistry) OCRMenus() repositories.OCRMenuRepository   { return r.ocrMenus }
func (r *fakeRegistry) Orders() repositories.OrderRepository       { return r.orders }
func (r *fakeRegistry) Summaries() repositories.SummaryRepository  { return r.summaries }
func (r *fakeRegistry) Languages() repositories.LanguageRepository { return r.languages }
func (r *fakeRegistry) Health() repositories.HealthRepository      { return r.health }

func (r *fakeRegistry) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

var _ repositories.Registry = (*fakeRegistry)(nil)

func newTestResolver(t *testing.T, registry *fakeRegistry) *services.StoreResolver {
	t.Helper()
	resolver, err := services.NewStoreResolver(services.StoreResolverDeps{
		Stores:     registry.Stores(),
		UnitOfWork: registry,
	})
	if err != nil {
		t.Fatalf("new store resolver: %v", err)
	}
	return resolver
}

func newTestTranslation(t *testing.T) *services.TranslationService {
	t.Helper()
	translation, err := services.NewTranslationService(services.TranslationServiceDeps{})
	if err != nil {
		t.Fatalf("new translation service: %v", err)
	}
	return translation
}

func newTestCatalog(t *testing.T, registry *fakeRegistry) *services.CatalogService {
	t.Helper()
	catalog, err := services.NewCatalogService(services.CatalogServiceDeps{
		Registry:    registry,
		Translation: newTestTranslation(t),
	})
	if err != nil {
		t.Fatalf("new catalog service: %v", err)
	}
	return catalog
}

func newTestOrders(t *testing.T, registry *fakeRegistry) *services.OrderService {
	t.Helper()
	orders, err := services.NewOrderService(services.OrderServiceDeps{
		Registry: registry,
		Resolver: newTestResolver(t, registry),
		Tasks:    fakeEnqueuer{},
		BaseURL:  "https://orders.example.com",
	})
	if err != nil {
		t.Fatalf("new order service: %v", err)
	}
	return orders
}

type fakeEnqueuer struct{}

func (fakeEnqueuer) EnqueueOrder(context.Context, int64) (string, error) {
	return "tasks/1", nil
}

type fakeProcessor struct {
	fn    func(context.Context, int64) error
	calls []int64
}

func (f *fakeProcessor) Process(ctx context.Context, orderID int64) error {
	f.calls = append(f.calls, orderID)
	if f.fn != nil {
		return f.fn(ctx, orderID)
	}
	return nil
}
