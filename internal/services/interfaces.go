package services

import (
	"context"
	"io"
	"time"
)

// Logger is the structured logging callback injected into services. main.go
// adapts it onto the zap logger carried in the request context.
type Logger func(ctx context.Context, event string, fields map[string]any)

func nopLogger(context.Context, string, map[string]any) {}

// Clock supplies the current time; tests inject fixed clocks.
type Clock func() time.Time

func normalizeClock(clock Clock) Clock {
	if clock == nil {
		clock = time.Now
	}
	return func() time.Time { return clock().UTC() }
}

func normalizeLogger(logger Logger) Logger {
	if logger == nil {
		return nopLogger
	}
	return logger
}

// Translator is the translation backend consumed by the facade. Implemented
// by platform/translate.
type Translator interface {
	Translate(ctx context.Context, texts []string, target string) ([]string, error)
}

// VisionRecognizer extracts structured menu rows from an image. Implemented
// by platform/vision.
type VisionRecognizer interface {
	RecognizeMenu(ctx context.Context, image []byte, mimeType, targetLang string) (MenuRecognition, error)
}

// MenuRecognition is the neutral shape of one OCR pass as consumed by the
// ingestion service.
type MenuRecognition struct {
	StoreName    string
	StoreAddress string
	StorePhone   string
	Items        []RecognizedItem
}

// RecognizedItem is one recognised menu row.
type RecognizedItem struct {
	Name           string
	TranslatedName string
	PriceSmall     int
	PriceBig       int
	Description    string
}

// SpeechSynthesizer renders Mandarin text to audio bytes. Implemented by
// platform/tts.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string, speakingRate float64) ([]byte, error)
}

// VoiceUploader mirrors voice files to public object storage. Implemented by
// platform/storage.
type VoiceUploader interface {
	UploadPublic(ctx context.Context, object, contentType string, body io.Reader) (string, error)
}

// RemoteEvictor prunes aged voice objects from the bucket. Implemented by
// platform/storage.
type RemoteEvictor interface {
	DeleteOlderThan(ctx context.Context, prefix string, cutoff time.Time) (int, error)
}

// TaskEnqueuer schedules background order processing. Implemented by
// platform/tasks.
type TaskEnqueuer interface {
	EnqueueOrder(ctx context.Context, orderID int64) (string, error)
}

// OrderProcessor runs the background pipeline for one order. Implemented by
// PipelineService; OrderService uses it for synchronous mode and enqueue
// fallback.
type OrderProcessor interface {
	Process(ctx context.Context, orderID int64) error
}

// EventPublisher emits order lifecycle events. Best-effort; failures never
// fail the pipeline.
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, event OrderLifecycleEvent) (string, error)
}

// OrderLifecycleEvent mirrors the published payload without binding services
// to the transport package.
type OrderLifecycleEvent struct {
	Type       string
	OrderID    int64
	StoreID    int64
	LineUserID string
	Total      int
	Reason     string
	OccurredAt time.Time
}
