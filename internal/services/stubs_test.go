package services

import (
	"context"
	"sync"
	"time"

	domain "github.com/leonyu5566/ordering-helper-backend-sub000/internal/domain"
	"github.com/leonyu5566/ordering-helper-backend-sub000/internal/repositories"
)

// stubRepoError satisfies repositories.RepositoryError for the service tests.
type stubRepoError struct {
	msg         string
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e *stubRepoError) Error() string       { return e.msg }
func (e *stubRepoError) IsNotFound() bool    { return e.notFound }
func (e *stubRepoError) IsConflict() bool    { return e.conflict }
func (e *stubRepoError) IsUnavailable() bool { return e.unavailable }

func notFoundErr(msg string) error { return &stubRepoError{msg: msg, notFound: true} }
func conflictErr(msg string) error { return &stubRepoError{msg: msg, conflict: true} }

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

type stubUserRepo struct {
	insertFn       func(context.Context, domain.User) (domain.User, error)
	findByIDFn     func(context.Context, int64) (domain.User, error)
	findByLineIDFn func(context.Context, string) (domain.User, error)
}

func (s *stubUserRepo) Insert(ctx context.Context, user domain.User) (domain.User, error) {
	if s.insertFn != nil {
		return s.insertFn(ctx, user)
	}
	user.ID = 1
	return user, nil
}

func (s *stubUserRepo) FindByID(ctx context.Context, userID int64) (domain.User, error) {
	if s.findByIDFn != nil {
		return s.findByIDFn(ctx, userID)
	}
	return domain.User{}, notFoundErr("user not found")
}

func (s *stubUserRepo) FindByLineID(ctx context.Context, lineUserID string) (domain.User, error) {
	if s.findByLineIDFn != nil {
		return s.findByLineIDFn(ctx, lineUserID)
	}
	return domain.User{}, notFoundErr("user not found")
}

type stubStoreRepo struct {
	mu            sync.Mutex
	insertFn      func(context.Context, domain.Store) (domain.Store, error)
	findByIDFn    func(context.Context, int64) (domain.Store, error)
	findByPlaceFn func(context.Context, string) (domain.Store, error)
	findByNameFn  func(context.Context, string) (domain.Store, error)
	listFn        func(context.Context) ([]domain.Store, error)
	inserted      []domain.Store
}

func (s *stubStoreRepo) Insert(ctx context.Context, store domain.Store) (domain.Store, error) {
	s.mu.Lock()
	s.inserted = append(s.inserted, store)
	s.mu.Unlock()
	if s.insertFn != nil {
		return s.insertFn(ctx, store)
	}
	store.ID = int64(len(s.inserted))
	return store, nil
}

func (s *stubStoreRepo) FindByID(ctx context.Context, storeID int64) (domain.Store, error) {
	if s.findByIDFn != nil {
		return s.findByIDFn(ctx, storeID)
	}
	return domain.Store{}, notFoundErr("store not found")
}

func (s *stubStoreRepo) FindByPlaceID(ctx context.Context, placeID string) (domain.Store, error) {
	if s.findByPlaceFn != nil {
		return s.findByPlaceFn(ctx, placeID)
	}
	return domain.Store{}, notFoundErr("store not found")
}

func (s *stubStoreRepo) FindByName(ctx context.Context, name string) (domain.Store, error) {
	if s.findByNameFn != nil {
		return s.findByNameFn(ctx, name)
	}
	return domain.Store{}, notFoundErr("store not found")
}

func (s *stubStoreRepo) List(ctx context.Context) ([]domain.Store, error) {
	if s.listFn != nil {
		return s.listFn(ctx)
	}
	return nil, nil
}

type stubMenuRepo struct {
	mu              sync.Mutex
	findActiveFn    func(context.Context, int64) (domain.Menu, error)
	listItemsFn     func(context.Context, int64) ([]domain.MenuItem, error)
	findItemFn      func(context.Context, int64) (domain.MenuItem, error)
	ensureCatchFn   func(context.Context, int64, time.Time) (domain.Menu, error)
	insertItemFn    func(context.Context, domain.MenuItem) (domain.MenuItem, error)
	insertedItems   []domain.MenuItem
	catchAllCreated int
}

func (s *stubMenuRepo) FindActiveByStore(ctx context.Context, storeID int64) (domain.Menu, error) {
	if s.findActiveFn != nil {
		return s.findActiveFn(ctx, storeID)
	}
	return domain.Menu{}, notFoundErr("menu not found")
}

func (s *stubMenuRepo) ListItems(ctx context.Context, menuID int64) ([]domain.MenuItem, error) {
	if s.listItemsFn != nil {
		return s.listItemsFn(ctx, menuID)
	}
	return nil, nil
}

func (s *stubMenuRepo) FindItem(ctx context.Context, itemID int64) (domain.MenuItem, error) {
	if s.findItemFn != nil {
		return s.findItemFn(ctx, itemID)
	}
	return domain.MenuItem{}, notFoundErr("menu item not found")
}

func (s *stubMenuRepo) EnsureCatchAll(ctx context.Context, storeID int64, now time.Time) (domain.Menu, error) {
	s.mu.Lock()
	s.catchAllCreated++
	s.mu.Unlock()
	if s.ensureCatchFn != nil {
		return s.ensureCatchFn(ctx, storeID, now)
	}
	return domain.Menu{ID: 900, StoreID: storeID, Version: 0}, nil
}

func (s *stubMenuRepo) InsertItem(ctx context.Context, item domain.MenuItem) (domain.MenuItem, error) {
	s.mu.Lock()
	s.insertedItems = append(s.insertedItems, item)
	next := int64(9000 + len(s.insertedItems))
	s.mu.Unlock()
	if s.insertItemFn != nil {
		return s.insertItemFn(ctx, item)
	}
	item.ID = next
	return item, nil
}

type stubOCRMenuRepo struct {
	mu                   sync.Mutex
	insertFn             func(context.Context, domain.OCRMenu, []domain.OCRMenuItem) (domain.OCRMenu, []domain.OCRMenuItem, error)
	findByIDFn           func(context.Context, int64) (domain.OCRMenu, error)
	findItemFn           func(context.Context, int64) (domain.OCRMenuItem, error)
	listItemsFn          func(context.Context, int64) ([]domain.OCRMenuItem, error)
	insertTranslationsFn func(context.Context, []domain.OCRMenuTranslation) error
	translations         []domain.OCRMenuTranslation
}

func (s *stubOCRMenuRepo) Insert(ctx context.Context, menu domain.OCRMenu, items []domain.OCRMenuItem) (domain.OCRMenu, []domain.OCRMenuItem, error) {
	if s.insertFn != nil {
		return s.insertFn(ctx, menu, items)
	}
	menu.ID = 55
	for i := range items {
		items[i].ID = int64(100 + i)
		items[i].OCRMenuID = menu.ID
	}
	return menu, items, nil
}

func (s *stubOCRMenuRepo) FindByID(ctx context.Context, ocrMenuID int64) (domain.OCRMenu, error) {
	if s.findByIDFn != nil {
		return s.findByIDFn(ctx, ocrMenuID)
	}
	return domain.OCRMenu{}, notFoundErr("ocr menu not found")
}

func (s *stubOCRMenuRepo) FindItem(ctx context.Context, ocrMenuItemID int64) (domain.OCRMenuItem, error) {
	if s.findItemFn != nil {
		return s.findItemFn(ctx, ocrMenuItemID)
	}
	return domain.OCRMenuItem{}, notFoundErr("ocr menu item not found")
}

func (s *stubOCRMenuRepo) ListItems(ctx context.Context, ocrMenuID int64) ([]domain.OCRMenuItem, error) {
	if s.listItemsFn != nil {
		return s.listItemsFn(ctx, ocrMenuID)
	}
	return nil, nil
}

func (s *stubOCRMenuRepo) InsertTranslations(ctx context.Context, translations []domain.OCRMenuTranslation) error {
	s.mu.Lock()
	s.translations = append(s.translations, translations...)
	s.mu.Unlock()
	if s.insertTranslationsFn != nil {
		return s.insertTranslationsFn(ctx, translations)
	}
	return nil
}

type statusChange struct {
	OrderID int64
	From    domain.OrderStatus
	To      domain.OrderStatus
}

type stubOrderRepo struct {
	mu           sync.Mutex
	insertFn     func(context.Context, domain.Order, []domain.OrderItem) (domain.Order, error)
	findByIDFn   func(context.Context, int64) (domain.Order, error)
	listItemsFn  func(context.Context, int64) ([]domain.OrderItem, error)
	casFn        func(context.Context, int64, domain.OrderStatus, domain.OrderStatus) (bool, error)
	setStatusFn  func(context.Context, int64, domain.OrderStatus) error
	inserted     []domain.Order
	insertedSets [][]domain.OrderItem
	casCalls     []statusChange
	setCalls     []statusChange
}

func (s *stubOrderRepo) Insert(ctx context.Context, order domain.Order, items []domain.OrderItem) (domain.Order, error) {
	s.mu.Lock()
	s.inserted = append(s.inserted, order)
	s.insertedSets = append(s.insertedSets, items)
	s.mu.Unlock()
	if s.insertFn != nil {
		return s.insertFn(ctx, order, items)
	}
	order.ID = 77
	return order, nil
}

func (s *stubOrderRepo) FindByID(ctx context.Context, orderID int64) (domain.Order, error) {
	if s.findByIDFn != nil {
		return s.findByIDFn(ctx, orderID)
	}
	return domain.Order{}, notFoundErr("order not found")
}

func (s *stubOrderRepo) ListItems(ctx context.Context, orderID int64) ([]domain.OrderItem, error) {
	if s.listItemsFn != nil {
		return s.listItemsFn(ctx, orderID)
	}
	return nil, nil
}

func (s *stubOrderRepo) CompareAndSetStatus(ctx context.Context, orderID int64, from, to domain.OrderStatus) (bool, error) {
	s.mu.Lock()
	s.casCalls = append(s.casCalls, statusChange{OrderID: orderID, From: from, To: to})
	s.mu.Unlock()
	if s.casFn != nil {
		return s.casFn(ctx, orderID, from, to)
	}
	return true, nil
}

func (s *stubOrderRepo) SetStatus(ctx context.Context, orderID int64, to domain.OrderStatus) error {
	s.mu.Lock()
	s.setCalls = append(s.setCalls, statusChange{OrderID: orderID, To: to})
	s.mu.Unlock()
	if s.setStatusFn != nil {
		return s.setStatusFn(ctx, orderID, to)
	}
	return nil
}

type stubSummaryRepo struct {
	mu          sync.Mutex
	insertFn    func(context.Context, domain.OrderSummary) (domain.OrderSummary, error)
	findFn      func(context.Context, int64) (domain.OrderSummary, error)
	inserted    []domain.OrderSummary
	insertCount int
}

func (s *stubSummaryRepo) Insert(ctx context.Context, summary domain.OrderSummary) (domain.OrderSummary, error) {
	s.mu.Lock()
	s.inserted = append(s.inserted, summary)
	s.insertCount++
	s.mu.Unlock()
	if s.insertFn != nil {
		return s.insertFn(ctx, summary)
	}
	summary.ID = 1
	return summary, nil
}

func (s *stubSummaryRepo) FindByOrder(ctx context.Context, orderID int64) (domain.OrderSummary, error) {
	if s.findFn != nil {
		return s.findFn(ctx, orderID)
	}
	return domain.OrderSummary{}, notFoundErr("summary not found")
}

type stubLanguageRepo struct {
	listFn func(context.Context) ([]domain.Language, error)
}

func (s *stubLanguageRepo) List(ctx context.Context) ([]domain.Language, error) {
	if s.listFn != nil {
		return s.listFn(ctx)
	}
	return nil, nil
}

type stubHealthRepo struct {
	pingFn func(context.Context) error
}

func (s *stubHealthRepo) Ping(ctx context.Context) error {
	if s.pingFn != nil {
		return s.pingFn(ctx)
	}
	return nil
}

// stubRegistry wires the stub repositories behind the Registry interface.
// RunInTx runs the callback directly unless a test overrides it.
type stubRegistry struct {
	users     *stubUserRepo
	stores    *stubStoreRepo
	menus     *stubMenuRepo
	ocrMenus  *stubOCRMenuRepo
	orders    *stubOrderRepo
	summaries *stubSummaryRepo
	languages *stubLanguageRepo
	health    *stubHealthRepo
	runInTxFn func(context.Context, func(context.Context) error) error
}

func newStubRegistry() *stubRegistry {
	return &stubRegistry{
		users:     &stubUserRepo{},
		stores:    &stubStoreRepo{},
		menus:     &stubMenuRepo{},
		ocrMenus:  &stubOCRMenuRepo{},
		orders:    &stubOrderRepo{},
		summaries: &stubSummaryRepo{},
		languages: &stubLanguageRepo{},
		health:    &stubHealthRepo{},
	}
}

func (r *stubRegistry) Close(context.Context) error { return nil }

func (r *stubRegistry) Users() repositories.UserRepository         { return r.users }
func (r *stubRegistry) Stores() repositories.StoreRepository       { return r.stores }
func (r *stubRegistry) Menus() repositories.MenuRepository         { return r.menus }
func (r *stubRegistry) OCRMenus() repositories.OCRMenuRepository   { return r.ocrMenus }
func (r *stubRegistry) Orders() repositories.OrderRepository       { return r.orders }
func (r *stubRegistry) Summaries() repositories.SummaryRepository  { return r.summaries }
func (r *stubRegistry) Languages() repositories.LanguageRepository { return r.languages }
func (r *stubRegistry) Health() repositories.HealthRepository      { return r.health }

func (r *stubRegistry) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	if r.runInTxFn != nil {
		return r.runInTxFn(ctx, fn)
	}
	return fn(ctx)
}

var _ repositories.Registry = (*stubRegistry)(nil)

// stubTranslator translates by prefixing so tests can tell originals from
// translations without a backend.
type stubTranslator struct {
	fn    func(context.Context, []string, string) ([]string, error)
	calls int
}

func (s *stubTranslator) Translate(ctx context.Context, texts []string, target string) ([]string, error) {
	s.calls++
	if s.fn != nil {
		return s.fn(ctx, texts, target)
	}
	out := make([]string, len(texts))
	for i, text := range texts {
		out[i] = "[" + target + "]" + text
	}
	return out, nil
}

func newIdentityTranslation(t interface{ Fatalf(string, ...any) }) *TranslationService {
	svc, err := NewTranslationService(TranslationServiceDeps{})
	if err != nil {
		t.Fatalf("new translation service: %v", err)
	}
	return svc
}

func newPrefixTranslation(t interface{ Fatalf(string, ...any) }) *TranslationService {
	svc, err := NewTranslationService(TranslationServiceDeps{Backend: &stubTranslator{}})
	if err != nil {
		t.Fatalf("new translation service: %v", err)
	}
	return svc
}
