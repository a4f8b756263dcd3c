package services

import (
	"context"
	"fmt"
	"strings"

	domain "github.com/leonyu5566/ordering-helper-backend-sub000/internal/domain"
)

// LinePusher is the transport the push service delivers through. Implemented
// by an adapter over platform/linepush in main.
type LinePusher interface {
	Push(ctx context.Context, userID, text, audioURL string, durationMS int) error
}

// PushServiceDeps bundles collaborators for the push service.
type PushServiceDeps struct {
	Pusher LinePusher
	Logger Logger
}

// PushService delivers the completed-order notification to one LINE user.
// Invalid recipients and transport failures are logged, never escalated; the
// summary stays retrievable by polling.
type PushService struct {
	pusher LinePusher
	logger Logger
}

// NewPushService constructs the push service. A nil pusher disables delivery.
func NewPushService(deps PushServiceDeps) (*PushService, error) {
	return &PushService{
		pusher: deps.Pusher,
		logger: normalizeLogger(deps.Logger),
	}, nil
}

// PushInput is one completed-order notification.
type PushInput struct {
	LineUserID     string
	UserSummary    string
	ChineseSummary string
	TotalAmount    int
	VoiceURL       string
	DurationMS     int
}

// Notify validates the recipient and sends the order summary with its voice
// attachment. Recipients failing the LINE id format are dropped before any
// network I/O.
func (s *PushService) Notify(ctx context.Context, input PushInput) error {
	if !domain.ValidLineUserID(input.LineUserID) {
		s.logger(ctx, "push.skipped.invalid_recipient", map[string]any{
			"guest": domain.IsGuestUserID(input.LineUserID),
		})
		return nil
	}
	if s.pusher == nil {
		s.logger(ctx, "push.skipped.disabled", nil)
		return nil
	}

	audioURL := input.VoiceURL
	if !strings.HasPrefix(audioURL, "https://") {
		audioURL = ""
	}

	err := s.pusher.Push(ctx, input.LineUserID, formatPushText(input), audioURL, input.DurationMS)
	if err != nil {
		s.logger(ctx, "push.failed", map[string]any{
			"has_audio": audioURL != "",
			"error":     err.Error(),
		})
		return fmt.Errorf("push: %w", err)
	}
	return nil
}

// formatPushText lays the message out as the user-language summary, the
// Chinese summary labelled for the store, and the total.
func formatPushText(input PushInput) string {
	var b strings.Builder
	if strings.TrimSpace(input.UserSummary) != "" {
		b.WriteString(input.UserSummary)
		b.WriteString("\n\n")
	}
	b.WriteString("中文摘要(給店家聽)：\n")
	b.WriteString(input.ChineseSummary)
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("總金額：%d 元", input.TotalAmount))
	return b.String()
}
