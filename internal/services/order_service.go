package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	domain "github.com/leonyu5566/ordering-helper-backend-sub000/internal/domain"
	"github.com/leonyu5566/ordering-helper-backend-sub000/internal/repositories"
)

var (
	// ErrOrderInvalidInput indicates a malformed submission.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderEnqueue indicates the background task could not be scheduled
	// and no inline fallback was available.
	ErrOrderEnqueue = errors.New("order: enqueue failed")
)

// OrderServiceDeps bundles collaborators for the order coordinator.
type OrderServiceDeps struct {
	Registry  repositories.Registry
	Resolver  *StoreResolver
	Tasks     TaskEnqueuer
	Processor OrderProcessor
	BaseURL   string
	Clock     Clock
	Logger    Logger
}

// OrderService owns the short-request side of the pipeline: it persists a
// pending order with foreign-key-safe items and hands processing to the
// background task queue.
type OrderService struct {
	registry  repositories.Registry
	resolver  *StoreResolver
	tasks     TaskEnqueuer
	processor OrderProcessor
	baseURL   string
	clock     Clock
	logger    Logger
}

// NewOrderService constructs the coordinator.
func NewOrderService(deps OrderServiceDeps) (*OrderService, error) {
	if deps.Registry == nil {
		return nil, errors.New("order service: registry is required")
	}
	if deps.Resolver == nil {
		return nil, errors.New("order service: store resolver is required")
	}
	return &OrderService{
		registry:  deps.Registry,
		resolver:  deps.Resolver,
		tasks:     deps.Tasks,
		processor: deps.Processor,
		baseURL:   strings.TrimRight(strings.TrimSpace(deps.BaseURL), "/"),
		clock:     normalizeClock(deps.Clock),
		logger:    normalizeLogger(deps.Logger),
	}, nil
}

// SubmitRequest is the canonical submission after the HTTP edge has collapsed
// the caller dialects.
type SubmitRequest struct {
	StoreRaw   string
	StoreName  string
	LineUserID string
	Lang       string
	Items      []SubmissionItem
	// Sync drives the pipeline inline before returning. Kept for the legacy
	// synchronous endpoints; the quick-submit + poll split is canonical.
	Sync bool
}

// SubmitResult is the short-request response.
type SubmitResult struct {
	OrderID int64
	Status  domain.OrderStatus
	PollURL string
}

// Submit resolves the store and user, normalises the cart, writes a pending
// order in one transaction, and schedules background processing.
func (s *OrderService) Submit(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	if strings.TrimSpace(req.StoreRaw) == "" {
		return SubmitResult{}, fmt.Errorf("%w: store id is required", ErrOrderInvalidInput)
	}
	lang := NormalizeLang(req.Lang)

	storeID, err := s.resolver.ResolveWithName(ctx, req.StoreRaw, req.StoreName)
	if err != nil {
		return SubmitResult{}, err
	}
	user, err := s.ensureUser(ctx, req.LineUserID, lang)
	if err != nil {
		return SubmitResult{}, err
	}
	cart, err := NormalizeCart(ctx, req.Items, s.logger)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("%w: %v", ErrOrderInvalidInput, err)
	}

	order, err := s.writeOrder(ctx, user.ID, storeID, cart)
	if err != nil {
		return SubmitResult{}, err
	}
	s.logger(ctx, "order.submitted", map[string]any{
		"order_id": order.ID,
		"store_id": storeID,
		"user_id":  user.ID,
		"total":    order.TotalAmount,
	})

	if req.Sync && s.processor != nil {
		if err := s.processor.Process(ctx, order.ID); err != nil {
			s.logger(ctx, "order.sync_process.failed", map[string]any{
				"order_id": order.ID,
				"error":    err.Error(),
			})
		}
	} else if err := s.schedule(ctx, order.ID); err != nil {
		return SubmitResult{}, err
	}

	return SubmitResult{
		OrderID: order.ID,
		Status:  domain.OrderStatusPending,
		PollURL: fmt.Sprintf("%s/api/orders/status/%d", s.baseURL, order.ID),
	}, nil
}

// writeOrder persists the order header and items in one transaction. OCR and
// ad-hoc items receive synthetic menu item rows under the store's catch-all
// menu so the NOT NULL foreign key holds.
func (s *OrderService) writeOrder(ctx context.Context, userID, storeID int64, cart []CanonicalItem) (domain.Order, error) {
	now := s.clock()
	var saved domain.Order
	err := s.registry.RunInTx(ctx, func(ctx context.Context) error {
		items := make([]domain.OrderItem, 0, len(cart))
		total := 0
		for _, entry := range cart {
			menuItemID, err := s.resolveMenuItem(ctx, storeID, entry, now)
			if err != nil {
				return err
			}
			items = append(items, domain.OrderItem{
				MenuItemID:     menuItemID,
				Quantity:       entry.Quantity,
				Subtotal:       entry.Subtotal(),
				OriginalName:   entry.Name.Original,
				TranslatedName: entry.Name.Translated,
			})
			total += entry.Subtotal()
		}

		var txErr error
		saved, txErr = s.registry.Orders().Insert(ctx, domain.Order{
			UserID:      userID,
			StoreID:     storeID,
			OrderTime:   now,
			TotalAmount: total,
			Status:      domain.OrderStatusPending,
		}, items)
		return txErr
	})
	if err != nil {
		return domain.Order{}, fmt.Errorf("order: write: %w", err)
	}
	return saved, nil
}

// resolveMenuItem maps a canonical item onto an existing menu item id,
// materialising synthetic rows for OCR-sourced and ad-hoc items.
func (s *OrderService) resolveMenuItem(ctx context.Context, storeID int64, entry CanonicalItem, now time.Time) (int64, error) {
	if entry.MenuItemID > 0 {
		if _, err := s.registry.Menus().FindItem(ctx, entry.MenuItemID); err == nil {
			return entry.MenuItemID, nil
		} else if !isNotFound(err) {
			return 0, err
		}
		// A stale id degrades to a synthetic row rather than failing the cart.
	}

	name := entry.Name.Original
	price := entry.Price
	if entry.TempID != "" {
		row, err := s.lookupOCRItem(ctx, entry.TempID)
		if err != nil {
			if !isNotFound(err) {
				return 0, err
			}
			s.logger(ctx, "order.temp_id.miss", map[string]any{"temp_id": entry.TempID})
		} else {
			if strings.TrimSpace(row.ItemName) != "" {
				name = row.ItemName
			}
			if row.PriceSmall > 0 {
				price = row.PriceSmall
			}
		}
	}

	menu, err := s.registry.Menus().EnsureCatchAll(ctx, storeID, now)
	if err != nil {
		return 0, err
	}
	item, err := s.registry.Menus().InsertItem(ctx, domain.MenuItem{
		MenuID:     menu.ID,
		ItemName:   name,
		PriceSmall: price,
	})
	if err != nil {
		return 0, err
	}
	return item.ID, nil
}

// lookupOCRItem resolves a temporary item id back to its OCR row. Accepted
// forms: temp_{ocrMenuID}_{idx}, ocr_{ocrMenuID}_{idx}, ocr_{ocrMenuItemID}.
func (s *OrderService) lookupOCRItem(ctx context.Context, tempID string) (domain.OCRMenuItem, error) {
	parts := strings.Split(strings.TrimSpace(tempID), "_")
	switch {
	case len(parts) == 3 && (parts[0] == "temp" || parts[0] == "ocr"):
		menuID, err1 := strconv.ParseInt(parts[1], 10, 64)
		idx, err2 := strconv.Atoi(parts[2])
		if err1 != nil || err2 != nil || idx < 0 {
			return domain.OCRMenuItem{}, notFoundTempID(tempID)
		}
		rows, err := s.registry.OCRMenus().ListItems(ctx, menuID)
		if err != nil {
			return domain.OCRMenuItem{}, err
		}
		if idx >= len(rows) {
			return domain.OCRMenuItem{}, notFoundTempID(tempID)
		}
		return rows[idx], nil
	case len(parts) == 2 && parts[0] == "ocr":
		itemID, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return domain.OCRMenuItem{}, notFoundTempID(tempID)
		}
		return s.registry.OCRMenus().FindItem(ctx, itemID)
	default:
		return domain.OCRMenuItem{}, notFoundTempID(tempID)
	}
}

// schedule hands the order to the task queue, degrading to inline background
// processing when the queue is unavailable.
func (s *OrderService) schedule(ctx context.Context, orderID int64) error {
	if s.tasks != nil {
		if _, err := s.tasks.EnqueueOrder(ctx, orderID); err == nil {
			return nil
		} else {
			s.logger(ctx, "order.enqueue.failed", map[string]any{
				"order_id": orderID,
				"error":    err.Error(),
			})
		}
	}
	if s.processor == nil {
		if s.tasks == nil {
			return fmt.Errorf("%w: no task queue configured", ErrOrderEnqueue)
		}
		return ErrOrderEnqueue
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := s.processor.Process(ctx, orderID); err != nil {
			s.logger(ctx, "order.inline_process.failed", map[string]any{
				"order_id": orderID,
				"error":    err.Error(),
			})
		}
	}()
	return nil
}

// ensureUser finds or creates the submitting user, minting a transient guest
// row when no LINE id was supplied.
func (s *OrderService) ensureUser(ctx context.Context, lineUserID, lang string) (domain.User, error) {
	lineUserID = strings.TrimSpace(lineUserID)
	if lineUserID == "" {
		lineUserID = fmt.Sprintf("%s%d", domain.GuestUserPrefix, s.clock().UnixMilli())
	}
	user, err := s.registry.Users().FindByLineID(ctx, lineUserID)
	if err == nil {
		return user, nil
	}
	if !isNotFound(err) {
		return domain.User{}, err
	}
	created, err := s.registry.Users().Insert(ctx, domain.User{
		LineUserID:    lineUserID,
		PreferredLang: lang,
		State:         "active",
		CreatedAt:     s.clock(),
	})
	if err == nil {
		return created, nil
	}
	if isConflict(err) {
		return s.registry.Users().FindByLineID(ctx, lineUserID)
	}
	return domain.User{}, err
}

// OrderStatusResult is the polling payload. Found false maps to the
// never-404 not_found body at the HTTP edge.
type OrderStatusResult struct {
	Found          bool
	OrderID        int64
	Status         domain.OrderStatus
	Processing     bool
	StoreName      string
	TotalAmount    int
	OrderTime      time.Time
	SummaryReady   bool
	ChineseSummary string
	UserSummary    string
	VoiceReady     bool
	VoiceURL       string
}

// Status reads the order and its summary for polling. Unknown ids report
// Found false without error.
func (s *OrderService) Status(ctx context.Context, orderID int64) (OrderStatusResult, error) {
	order, err := s.registry.Orders().FindByID(ctx, orderID)
	if err != nil {
		if isNotFound(err) {
			return OrderStatusResult{OrderID: orderID}, nil
		}
		return OrderStatusResult{}, err
	}

	result := OrderStatusResult{
		Found:       true,
		OrderID:     order.ID,
		Status:      order.Status,
		Processing:  order.Status == domain.OrderStatusPending || order.Status == domain.OrderStatusProcessing,
		TotalAmount: order.TotalAmount,
		OrderTime:   order.OrderTime,
	}
	if store, err := s.registry.Stores().FindByID(ctx, order.StoreID); err == nil {
		result.StoreName = store.Name
	}

	summary, err := s.registry.Summaries().FindByOrder(ctx, orderID)
	if err != nil {
		if isNotFound(err) {
			return result, nil
		}
		return OrderStatusResult{}, err
	}
	result.SummaryReady = true
	result.ChineseSummary = summary.ChineseSummary
	result.UserSummary = summary.UserSummary
	result.TotalAmount = summary.TotalAmount
	if strings.HasPrefix(summary.VoiceURL, "https://") {
		result.VoiceReady = true
		result.VoiceURL = summary.VoiceURL
	}
	return result, nil
}

func notFoundTempID(tempID string) error {
	return &tempIDError{tempID: tempID}
}

// tempIDError satisfies repositories.RepositoryError so resolveMenuItem can
// treat an unparseable temp id like a missing row.
type tempIDError struct {
	tempID string
}

func (e *tempIDError) Error() string       { return fmt.Sprintf("order: temp id %q not found", e.tempID) }
func (e *tempIDError) IsNotFound() bool    { return true }
func (e *tempIDError) IsConflict() bool    { return false }
func (e *tempIDError) IsUnavailable() bool { return false }
