package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/leonyu5566/ordering-helper-backend-sub000/internal/domain"
	"github.com/leonyu5566/ordering-helper-backend-sub000/internal/repositories"
)

const defaultPipelineDeadline = 5 * time.Minute

// VoiceGenerator produces the audio artefact for one voice text. Implemented
// by VoiceService.
type VoiceGenerator interface {
	Generate(ctx context.Context, text string, speakingRate float64) VoiceResult
}

// PipelineServiceDeps bundles collaborators for the background pipeline.
type PipelineServiceDeps struct {
	Registry    repositories.Registry
	Translation *TranslationService
	Voice       VoiceGenerator
	Push        *PushService
	Events      EventPublisher
	Deadline    time.Duration
	Clock       Clock
	Logger      Logger
}

// PipelineService runs the background half of an order: claim, render,
// synthesize, persist the summary, push, and finish. Duplicate invocations
// for the same order are idempotent.
type PipelineService struct {
	registry    repositories.Registry
	translation *TranslationService
	voice       VoiceGenerator
	push        *PushService
	events      EventPublisher
	deadline    time.Duration
	clock       Clock
	logger      Logger
}

// NewPipelineService constructs the pipeline.
func NewPipelineService(deps PipelineServiceDeps) (*PipelineService, error) {
	if deps.Registry == nil {
		return nil, errors.New("pipeline service: registry is required")
	}
	if deps.Translation == nil {
		return nil, errors.New("pipeline service: translation service is required")
	}
	deadline := deps.Deadline
	if deadline <= 0 {
		deadline = defaultPipelineDeadline
	}
	return &PipelineService{
		registry:    deps.Registry,
		translation: deps.Translation,
		voice:       deps.Voice,
		push:        deps.Push,
		events:      deps.Events,
		deadline:    deadline,
		clock:       normalizeClock(deps.Clock),
		logger:      normalizeLogger(deps.Logger),
	}, nil
}

// Process drives one order from pending to a terminal state. It claims the
// order with a conditional status update first; losing the claim means
// another invocation owns or owned the order and the call returns nil.
func (s *PipelineService) Process(ctx context.Context, orderID int64) error {
	ctx, cancel := context.WithTimeout(ctx, s.deadline)
	defer cancel()

	claimed, err := s.registry.Orders().CompareAndSetStatus(ctx, orderID, domain.OrderStatusPending, domain.OrderStatusProcessing)
	if err != nil {
		return fmt.Errorf("pipeline: claim order %d: %w", orderID, err)
	}
	if !claimed {
		s.logger(ctx, "pipeline.claim.lost", map[string]any{"order_id": orderID})
		return nil
	}

	if err := s.run(ctx, orderID); err != nil {
		s.fail(ctx, orderID, err)
		return err
	}
	return nil
}

func (s *PipelineService) run(ctx context.Context, orderID int64) error {
	order, err := s.registry.Orders().FindByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("pipeline: load order: %w", err)
	}
	items, err := s.registry.Orders().ListItems(ctx, orderID)
	if err != nil {
		return fmt.Errorf("pipeline: load items: %w", err)
	}
	if len(items) == 0 {
		return errors.New("pipeline: order has no items")
	}
	user, err := s.registry.Users().FindByID(ctx, order.UserID)
	if err != nil {
		return fmt.Errorf("pipeline: load user: %w", err)
	}
	storeName := ""
	if store, err := s.registry.Stores().FindByID(ctx, order.StoreID); err == nil {
		storeName = store.Name
	}

	lang := NormalizeLang(user.PreferredLang)
	native, display := s.buildViews(ctx, storeName, items, order.TotalAmount, lang)

	chineseSummary := domain.RenderChineseSummary(native)
	userSummary := domain.RenderUserSummary(display, lang)
	voiceText := domain.BuildVoiceText(native)
	if chineseSummary == domain.FallbackSummary {
		s.logger(ctx, "pipeline.render.fallback", map[string]any{"order_id": orderID})
	}

	var voice VoiceResult
	if s.voice != nil {
		voice = s.voice.Generate(ctx, voiceText, 1.0)
	} else {
		voice = VoiceResult{Text: voiceText, Fallback: true}
	}

	summary := domain.OrderSummary{
		OrderID:        orderID,
		ChineseSummary: chineseSummary,
		UserSummary:    userSummary,
		UserLanguage:   lang,
		TotalAmount:    order.TotalAmount,
		CreatedAt:      s.clock(),
	}
	if !voice.Fallback {
		summary.VoiceURL = voice.URL
		summary.VoiceDurationMS = voice.DurationMS
	}

	// Summary insert and completion commit together so a completed order
	// always has its summary row.
	err = s.registry.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.registry.Summaries().Insert(ctx, summary); err != nil {
			return err
		}
		done, err := s.registry.Orders().CompareAndSetStatus(ctx, orderID, domain.OrderStatusProcessing, domain.OrderStatusCompleted)
		if err != nil {
			return err
		}
		if !done {
			return fmt.Errorf("pipeline: order %d left processing concurrently", orderID)
		}
		return nil
	})
	if err != nil {
		if isConflict(err) {
			// A duplicate delivery already wrote the summary and finished.
			s.logger(ctx, "pipeline.duplicate", map[string]any{"order_id": orderID})
			return nil
		}
		return fmt.Errorf("pipeline: finalize order %d: %w", orderID, err)
	}

	if s.push != nil {
		pushErr := s.push.Notify(ctx, PushInput{
			LineUserID:     user.LineUserID,
			UserSummary:    userSummary,
			ChineseSummary: chineseSummary,
			TotalAmount:    order.TotalAmount,
			VoiceURL:       summary.VoiceURL,
			DurationMS:     summary.VoiceDurationMS,
		})
		if pushErr != nil {
			// Non-fatal: the summary is durable and retrievable by polling.
			s.logger(ctx, "pipeline.push.nonfatal", map[string]any{
				"order_id": orderID,
				"error":    pushErr.Error(),
			})
		}
	}

	s.publish(ctx, OrderLifecycleEvent{
		Type:       "order.completed",
		OrderID:    orderID,
		StoreID:    order.StoreID,
		LineUserID: user.LineUserID,
		Total:      order.TotalAmount,
		OccurredAt: s.clock(),
	})
	s.logger(ctx, "pipeline.completed", map[string]any{
		"order_id":    orderID,
		"voice_ready": summary.VoiceURL != "",
	})
	return nil
}

// buildViews projects the order items into two independent views. The native
// view keeps the Chinese originals; the display view swaps in user-language
// names, translating any that were not snapshotted at submit time.
func (s *PipelineService) buildViews(ctx context.Context, storeName string, items []domain.OrderItem, total int, lang string) (domain.OrderView, domain.OrderView) {
	base := domain.OrderView{StoreName: storeName, Total: total}
	for _, item := range items {
		price := 0
		if item.Quantity > 0 {
			price = item.Subtotal / item.Quantity
		}
		base.Items = append(base.Items, domain.OrderViewItem{
			Name:     item.OriginalName,
			Quantity: item.Quantity,
			Price:    price,
		})
	}
	native := base.Clone()
	display := base.Clone()

	if domain.IsChineseTag(lang) {
		return native, display
	}

	missing := make([]int, 0, len(items))
	pending := make([]string, 0, len(items))
	for i, item := range items {
		translated := strings.TrimSpace(item.TranslatedName)
		if translated != "" && !domain.ContainsCJK(translated) {
			display.Items[i].Name = translated
			continue
		}
		if strings.TrimSpace(item.OriginalName) == "" {
			continue
		}
		missing = append(missing, i)
		pending = append(pending, item.OriginalName)
	}
	if len(pending) > 0 {
		translated := s.translation.TranslateBatch(ctx, pending, lang)
		for pos, i := range missing {
			if pos < len(translated) && strings.TrimSpace(translated[pos]) != "" {
				display.Items[i].Name = translated[pos]
			}
		}
	}
	if strings.TrimSpace(storeName) != "" {
		display.StoreName = s.translation.Translate(ctx, storeName, lang)
	}
	return native, display
}

// fail moves the order to its terminal failed state and records why.
func (s *PipelineService) fail(ctx context.Context, orderID int64, cause error) {
	// The deadline may already be spent; give the terminal write its own.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := s.registry.Orders().SetStatus(ctx, orderID, domain.OrderStatusFailed); err != nil {
		s.logger(ctx, "pipeline.fail_mark.error", map[string]any{
			"order_id": orderID,
			"error":    err.Error(),
		})
	}
	s.publish(ctx, OrderLifecycleEvent{
		Type:       "order.failed",
		OrderID:    orderID,
		Reason:     cause.Error(),
		OccurredAt: s.clock(),
	})
	s.logger(ctx, "pipeline.failed", map[string]any{
		"order_id": orderID,
		"error":    cause.Error(),
	})
}

// publish emits a lifecycle event. Best-effort only.
func (s *PipelineService) publish(ctx context.Context, event OrderLifecycleEvent) {
	if s.events == nil {
		return
	}
	if _, err := s.events.PublishOrderEvent(ctx, event); err != nil {
		s.logger(ctx, "pipeline.event.dropped", map[string]any{
			"type":     event.Type,
			"order_id": event.OrderID,
			"error":    err.Error(),
		})
	}
}
