package services

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func newTestPushService(t *testing.T, pusher LinePusher) *PushService {
	t.Helper()
	svc, err := NewPushService(PushServiceDeps{Pusher: pusher})
	if err != nil {
		t.Fatalf("new push service: %v", err)
	}
	return svc
}

func TestNotifySkipsInvalidRecipientsWithoutIO(t *testing.T) {
	pusher := &stubPusher{fn: func(context.Context, string, string, string, int) error {
		t.Fatal("invalid recipients must never reach the transport")
		return nil
	}}
	svc := newTestPushService(t, pusher)

	for _, recipient := range []string{"", "temp_guest_1719820800000", "not-a-line-id", "U123"} {
		if err := svc.Notify(context.Background(), PushInput{LineUserID: recipient}); err != nil {
			t.Fatalf("Notify(%q) must be silent, got %v", recipient, err)
		}
	}
	if len(pusher.calls) != 0 {
		t.Fatalf("expected zero transport calls, got %d", len(pusher.calls))
	}
}

func TestNotifyFormatsBilingualText(t *testing.T) {
	pusher := &stubPusher{}
	svc := newTestPushService(t, pusher)

	err := svc.Notify(context.Background(), PushInput{
		LineUserID:     testLineUserID,
		UserSummary:    "Order: Beef Noodles x 2",
		ChineseSummary: "牛肉麵 x 2",
		TotalAmount:    240,
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	text := pusher.calls[0].Text
	if !strings.HasPrefix(text, "Order: Beef Noodles x 2\n\n") {
		t.Fatalf("user summary must lead: %q", text)
	}
	if !strings.Contains(text, "中文摘要(給店家聽)：\n牛肉麵 x 2") {
		t.Fatalf("missing labelled chinese summary: %q", text)
	}
	if !strings.HasSuffix(text, "總金額：240 元") {
		t.Fatalf("missing total line: %q", text)
	}
}

func TestNotifyDropsInsecureAudio(t *testing.T) {
	pusher := &stubPusher{}
	svc := newTestPushService(t, pusher)

	err := svc.Notify(context.Background(), PushInput{
		LineUserID:     testLineUserID,
		ChineseSummary: "牛肉麵 x 2",
		VoiceURL:       "http://insecure.example.com/a.mp3",
		DurationMS:     2000,
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if pusher.calls[0].AudioURL != "" {
		t.Fatalf("plain-http audio must be dropped, got %q", pusher.calls[0].AudioURL)
	}
}

func TestNotifyWrapsTransportErrors(t *testing.T) {
	cause := errors.New("line unavailable")
	pusher := &stubPusher{fn: func(context.Context, string, string, string, int) error {
		return cause
	}}
	svc := newTestPushService(t, pusher)

	err := svc.Notify(context.Background(), PushInput{LineUserID: testLineUserID, ChineseSummary: "x"})
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped transport error, got %v", err)
	}
}

func TestNotifyNilPusherIsSilent(t *testing.T) {
	svc := newTestPushService(t, nil)
	if err := svc.Notify(context.Background(), PushInput{LineUserID: testLineUserID}); err != nil {
		t.Fatalf("disabled push must be silent, got %v", err)
	}
}
