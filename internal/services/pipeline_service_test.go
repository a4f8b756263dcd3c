package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	domain "github.com/leonyu5566/ordering-helper-backend-sub000/internal/domain"
)

type stubVoice struct {
	mu    sync.Mutex
	fn    func(context.Context, string, float64) VoiceResult
	texts []string
}

func (s *stubVoice) Generate(ctx context.Context, text string, speakingRate float64) VoiceResult {
	s.mu.Lock()
	s.texts = append(s.texts, text)
	s.mu.Unlock()
	if s.fn != nil {
		return s.fn(ctx, text, speakingRate)
	}
	return VoiceResult{
		Text:       text,
		Filename:   "a.mp3",
		URL:        "https://storage.example.com/voices/a.mp3",
		DurationMS: 2500,
	}
}

type stubEvents struct {
	mu     sync.Mutex
	fn     func(context.Context, OrderLifecycleEvent) (string, error)
	events []OrderLifecycleEvent
}

func (s *stubEvents) PublishOrderEvent(ctx context.Context, event OrderLifecycleEvent) (string, error) {
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
	if s.fn != nil {
		return s.fn(ctx, event)
	}
	return "msg-1", nil
}

type pushCall struct {
	UserID     string
	Text       string
	AudioURL   string
	DurationMS int
}

type stubPusher struct {
	mu    sync.Mutex
	fn    func(context.Context, string, string, string, int) error
	calls []pushCall
}

func (s *stubPusher) Push(ctx context.Context, userID, text, audioURL string, durationMS int) error {
	s.mu.Lock()
	s.calls = append(s.calls, pushCall{UserID: userID, Text: text, AudioURL: audioURL, DurationMS: durationMS})
	s.mu.Unlock()
	if s.fn != nil {
		return s.fn(ctx, userID, text, audioURL, durationMS)
	}
	return nil
}

const testLineUserID = "Uabcdefabcdefabcdefabcdefabcdefab"

// seedProcessableOrder primes the stub registry with one pending order ready
// for the pipeline.
func seedProcessableOrder(registry *stubRegistry) {
	registry.orders.findByIDFn = func(_ context.Context, orderID int64) (domain.Order, error) {
		return domain.Order{ID: orderID, UserID: 4, StoreID: 3, TotalAmount: 280, Status: domain.OrderStatusProcessing}, nil
	}
	registry.orders.listItemsFn = func(context.Context, int64) ([]domain.OrderItem, error) {
		return []domain.OrderItem{
			{MenuItemID: 10, Quantity: 2, Subtotal: 240, OriginalName: "牛肉麵", TranslatedName: "Beef Noodles"},
			{MenuItemID: 11, Quantity: 1, Subtotal: 40, OriginalName: "小菜"},
		}, nil
	}
	registry.users.findByIDFn = func(context.Context, int64) (domain.User, error) {
		return domain.User{ID: 4, LineUserID: testLineUserID, PreferredLang: "en"}, nil
	}
	registry.stores.findByIDFn = func(context.Context, int64) (domain.Store, error) {
		return domain.Store{ID: 3, Name: "鼎泰豐"}, nil
	}
}

func newTestPipeline(t *testing.T, registry *stubRegistry, voice VoiceGenerator, pusher LinePusher, events EventPublisher) *PipelineService {
	t.Helper()
	push, err := NewPushService(PushServiceDeps{Pusher: pusher})
	if err != nil {
		t.Fatalf("new push service: %v", err)
	}
	pipeline, err := NewPipelineService(PipelineServiceDeps{
		Registry:    registry,
		Translation: newPrefixTranslation(t),
		Voice:       voice,
		Push:        push,
		Events:      events,
		Clock:       fixedClock(time.Date(2025, 7, 1, 10, 30, 0, 0, time.UTC)),
	})
	if err != nil {
		t.Fatalf("new pipeline service: %v", err)
	}
	return pipeline
}

func TestProcessCompletesOrderEndToEnd(t *testing.T) {
	registry := newStubRegistry()
	seedProcessableOrder(registry)
	voice := &stubVoice{}
	pusher := &stubPusher{}
	events := &stubEvents{}
	pipeline := newTestPipeline(t, registry, voice, pusher, events)

	if err := pipeline.Process(context.Background(), 77); err != nil {
		t.Fatalf("process: %v", err)
	}

	cas := registry.orders.casCalls
	if len(cas) != 2 {
		t.Fatalf("expected claim and completion, got %d status changes", len(cas))
	}
	if cas[0].From != domain.OrderStatusPending || cas[0].To != domain.OrderStatusProcessing {
		t.Fatalf("unexpected claim %+v", cas[0])
	}
	if cas[1].From != domain.OrderStatusProcessing || cas[1].To != domain.OrderStatusCompleted {
		t.Fatalf("unexpected completion %+v", cas[1])
	}

	if len(registry.summaries.inserted) != 1 {
		t.Fatalf("expected one summary row, got %d", len(registry.summaries.inserted))
	}
	summary := registry.summaries.inserted[0]
	if summary.ChineseSummary != "牛肉麵 x 2、小菜 x 1" {
		t.Fatalf("unexpected chinese summary %q", summary.ChineseSummary)
	}
	// The snapshotted translation serves item one; item two is translated live.
	if !strings.Contains(summary.UserSummary, "Beef Noodles x 2") {
		t.Fatalf("expected snapshotted translation in %q", summary.UserSummary)
	}
	if !strings.Contains(summary.UserSummary, "[en]小菜 x 1") {
		t.Fatalf("expected live translation in %q", summary.UserSummary)
	}
	if summary.UserLanguage != "en" {
		t.Fatalf("unexpected user language %q", summary.UserLanguage)
	}
	if summary.VoiceURL != "https://storage.example.com/voices/a.mp3" || summary.VoiceDurationMS != 2500 {
		t.Fatalf("expected voice artefact on summary, got %+v", summary)
	}

	if len(voice.texts) != 1 || !strings.HasPrefix(voice.texts[0], "老闆,我要") {
		t.Fatalf("unexpected voice text %v", voice.texts)
	}

	if len(pusher.calls) != 1 {
		t.Fatalf("expected one push, got %d", len(pusher.calls))
	}
	call := pusher.calls[0]
	if call.UserID != testLineUserID {
		t.Fatalf("unexpected push recipient %q", call.UserID)
	}
	if !strings.Contains(call.Text, "總金額：280 元") {
		t.Fatalf("expected total line in push text %q", call.Text)
	}
	if call.AudioURL != summary.VoiceURL || call.DurationMS != 2500 {
		t.Fatalf("expected voice attachment forwarded, got %+v", call)
	}

	if len(events.events) != 1 || events.events[0].Type != "order.completed" {
		t.Fatalf("expected order.completed event, got %+v", events.events)
	}
	if events.events[0].Total != 280 || events.events[0].StoreID != 3 {
		t.Fatalf("unexpected event payload %+v", events.events[0])
	}
}

func TestProcessLostClaimIsNoOp(t *testing.T) {
	registry := newStubRegistry()
	registry.orders.casFn = func(context.Context, int64, domain.OrderStatus, domain.OrderStatus) (bool, error) {
		return false, nil
	}
	registry.orders.findByIDFn = func(context.Context, int64) (domain.Order, error) {
		t.Fatal("a lost claim must not load the order")
		return domain.Order{}, nil
	}
	pipeline := newTestPipeline(t, registry, &stubVoice{}, nil, nil)

	if err := pipeline.Process(context.Background(), 77); err != nil {
		t.Fatalf("lost claim must be silent, got %v", err)
	}
	if len(registry.summaries.inserted) != 0 {
		t.Fatal("lost claim must not write a summary")
	}
}

func TestProcessDuplicateSummaryInsertIsIdempotent(t *testing.T) {
	registry := newStubRegistry()
	seedProcessableOrder(registry)
	registry.summaries.insertFn = func(context.Context, domain.OrderSummary) (domain.OrderSummary, error) {
		return domain.OrderSummary{}, conflictErr("summary exists")
	}
	events := &stubEvents{}
	pipeline := newTestPipeline(t, registry, &stubVoice{}, nil, events)

	if err := pipeline.Process(context.Background(), 77); err != nil {
		t.Fatalf("duplicate delivery must succeed, got %v", err)
	}
	if len(registry.orders.setCalls) != 0 {
		t.Fatal("duplicate delivery must not mark the order failed")
	}
}

func TestProcessFailureMarksOrderFailedAndPublishes(t *testing.T) {
	registry := newStubRegistry()
	seedProcessableOrder(registry)
	// No items means the pipeline cannot render anything.
	registry.orders.listItemsFn = func(context.Context, int64) ([]domain.OrderItem, error) {
		return nil, nil
	}
	events := &stubEvents{}
	pipeline := newTestPipeline(t, registry, &stubVoice{}, nil, events)

	if err := pipeline.Process(context.Background(), 77); err == nil {
		t.Fatal("expected processing error for an empty order")
	}
	if len(registry.orders.setCalls) != 1 || registry.orders.setCalls[0].To != domain.OrderStatusFailed {
		t.Fatalf("expected terminal failed mark, got %+v", registry.orders.setCalls)
	}
	if len(events.events) != 1 || events.events[0].Type != "order.failed" {
		t.Fatalf("expected order.failed event, got %+v", events.events)
	}
	if events.events[0].Reason == "" {
		t.Fatal("expected failure reason on the event")
	}
}

func TestProcessVoiceFallbackLeavesSummaryWithoutAudio(t *testing.T) {
	registry := newStubRegistry()
	seedProcessableOrder(registry)
	voice := &stubVoice{fn: func(_ context.Context, text string, _ float64) VoiceResult {
		return VoiceResult{Text: text, Fallback: true}
	}}
	pusher := &stubPusher{}
	pipeline := newTestPipeline(t, registry, voice, pusher, nil)

	if err := pipeline.Process(context.Background(), 77); err != nil {
		t.Fatalf("voice fallback must not fail the order, got %v", err)
	}
	summary := registry.summaries.inserted[0]
	if summary.VoiceURL != "" || summary.VoiceDurationMS != 0 {
		t.Fatalf("fallback must not record a voice artefact, got %+v", summary)
	}
	if len(pusher.calls) != 1 || pusher.calls[0].AudioURL != "" {
		t.Fatalf("expected text-only push, got %+v", pusher.calls)
	}
}

func TestProcessPushFailureIsNonFatal(t *testing.T) {
	registry := newStubRegistry()
	seedProcessableOrder(registry)
	pusher := &stubPusher{fn: func(context.Context, string, string, string, int) error {
		return errors.New("line unavailable")
	}}
	pipeline := newTestPipeline(t, registry, &stubVoice{}, pusher, nil)

	if err := pipeline.Process(context.Background(), 77); err != nil {
		t.Fatalf("push failure must not fail the order, got %v", err)
	}
	if len(registry.summaries.inserted) != 1 {
		t.Fatal("summary must persist regardless of push outcome")
	}
	if len(registry.orders.setCalls) != 0 {
		t.Fatal("push failure must not mark the order failed")
	}
}

func TestProcessChineseUserSkipsTranslation(t *testing.T) {
	registry := newStubRegistry()
	seedProcessableOrder(registry)
	registry.users.findByIDFn = func(context.Context, int64) (domain.User, error) {
		return domain.User{ID: 4, LineUserID: testLineUserID, PreferredLang: "zh-TW"}, nil
	}
	backend := &stubTranslator{}
	translation, err := NewTranslationService(TranslationServiceDeps{Backend: backend})
	if err != nil {
		t.Fatalf("new translation service: %v", err)
	}
	pipeline, err := NewPipelineService(PipelineServiceDeps{
		Registry:    registry,
		Translation: translation,
		Voice:       &stubVoice{},
	})
	if err != nil {
		t.Fatalf("new pipeline service: %v", err)
	}

	if err := pipeline.Process(context.Background(), 77); err != nil {
		t.Fatalf("process: %v", err)
	}
	if backend.calls != 0 {
		t.Fatalf("Chinese users need no translation, backend called %d times", backend.calls)
	}
	summary := registry.summaries.inserted[0]
	if summary.UserSummary != summary.ChineseSummary {
		t.Fatalf("expected identical renderings for Chinese users, got %q vs %q", summary.UserSummary, summary.ChineseSummary)
	}
}
