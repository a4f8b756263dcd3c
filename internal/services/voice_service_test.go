package services

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type stubSynthesizer struct {
	fn    func(context.Context, string, float64) ([]byte, error)
	rates []float64
}

func (s *stubSynthesizer) Synthesize(ctx context.Context, text string, speakingRate float64) ([]byte, error) {
	s.rates = append(s.rates, speakingRate)
	if s.fn != nil {
		return s.fn(ctx, text, speakingRate)
	}
	return []byte("mp3-bytes"), nil
}

type stubUploader struct {
	fn      func(context.Context, string, string, io.Reader) (string, error)
	objects []string
}

func (s *stubUploader) UploadPublic(ctx context.Context, object, contentType string, body io.Reader) (string, error) {
	s.objects = append(s.objects, object)
	if s.fn != nil {
		return s.fn(ctx, object, contentType, body)
	}
	return "https://storage.example.com/" + object, nil
}

func newTestVoiceService(t *testing.T, tts SpeechSynthesizer, uploader VoiceUploader, baseURL string) *VoiceService {
	t.Helper()
	svc, err := NewVoiceService(VoiceServiceDeps{
		TTS:      tts,
		Uploader: uploader,
		VoiceDir: t.TempDir(),
		BaseURL:  baseURL,
		Clock:    fixedClock(time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)),
	})
	if err != nil {
		t.Fatalf("new voice service: %v", err)
	}
	return svc
}

func TestGenerateWritesAndMirrorsAudio(t *testing.T) {
	tts := &stubSynthesizer{}
	uploader := &stubUploader{}
	svc := newTestVoiceService(t, tts, uploader, "https://orders.example.com")

	result := svc.Generate(context.Background(), "老闆,我要牛肉麵一份,謝謝。", 1.0)
	if result.Fallback {
		t.Fatalf("expected a real artefact, got fallback: %+v", result)
	}
	if !strings.HasSuffix(result.Filename, ".mp3") {
		t.Fatalf("unexpected filename %q", result.Filename)
	}
	data, err := os.ReadFile(result.LocalPath)
	if err != nil || len(data) == 0 {
		t.Fatalf("expected a non-empty local file: %v", err)
	}
	if len(uploader.objects) != 1 || uploader.objects[0] != "voices/"+result.Filename {
		t.Fatalf("unexpected upload target %v", uploader.objects)
	}
	if result.URL != "https://storage.example.com/voices/"+result.Filename {
		t.Fatalf("unexpected public url %q", result.URL)
	}
	if result.DurationMS < minVoiceDurationMS {
		t.Fatalf("duration below the floor: %d", result.DurationMS)
	}
}

func TestGenerateClampsSpeakingRate(t *testing.T) {
	tts := &stubSynthesizer{}
	svc := newTestVoiceService(t, tts, nil, "https://orders.example.com")

	svc.Generate(context.Background(), "牛肉麵", 0)
	svc.Generate(context.Background(), "牛肉麵", 0.1)
	svc.Generate(context.Background(), "牛肉麵", 9)
	want := []float64{1.0, 0.5, 2.0}
	for i, rate := range want {
		if tts.rates[i] != rate {
			t.Fatalf("call %d: expected rate %.1f, got %.1f", i, rate, tts.rates[i])
		}
	}
}

func TestGenerateFallsBackWhenSynthesisFails(t *testing.T) {
	tts := &stubSynthesizer{fn: func(context.Context, string, float64) ([]byte, error) {
		return nil, errors.New("tts unavailable")
	}}
	svc := newTestVoiceService(t, tts, nil, "https://orders.example.com")

	result := svc.Generate(context.Background(), "牛肉麵", 1.0)
	if !result.Fallback || result.URL != "" {
		t.Fatalf("expected text-only fallback, got %+v", result)
	}
}

func TestGenerateFallsBackWithoutSynthesizer(t *testing.T) {
	svc := newTestVoiceService(t, nil, nil, "https://orders.example.com")
	if result := svc.Generate(context.Background(), "牛肉麵", 1.0); !result.Fallback {
		t.Fatalf("expected fallback without a synthesizer, got %+v", result)
	}
}

func TestGenerateUsesLocalURLWhenUploadFails(t *testing.T) {
	tts := &stubSynthesizer{}
	uploader := &stubUploader{fn: func(context.Context, string, string, io.Reader) (string, error) {
		return "", errors.New("bucket unreachable")
	}}
	svc := newTestVoiceService(t, tts, uploader, "https://orders.example.com")

	result := svc.Generate(context.Background(), "牛肉麵", 1.0)
	if result.Fallback {
		t.Fatalf("an https base url keeps audio deliverable, got %+v", result)
	}
	if result.URL != "https://orders.example.com/api/voices/"+result.Filename {
		t.Fatalf("unexpected local url %q", result.URL)
	}
}

func TestGeneratePlainHTTPBaseMeansFallback(t *testing.T) {
	tts := &stubSynthesizer{}
	uploader := &stubUploader{fn: func(context.Context, string, string, io.Reader) (string, error) {
		return "", errors.New("bucket unreachable")
	}}
	svc := newTestVoiceService(t, tts, uploader, "http://localhost:8080")

	result := svc.Generate(context.Background(), "牛肉麵", 1.0)
	if !result.Fallback || result.URL != "" {
		t.Fatalf("no https address means no audio delivery, got %+v", result)
	}
}

func TestGenerateEvictsStaleFiles(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "old.mp3")
	if err := os.WriteFile(stale, []byte("x"), 0o644); err != nil {
		t.Fatalf("write stale file: %v", err)
	}
	old := time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatalf("age stale file: %v", err)
	}
	keep := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(keep, []byte("x"), 0o644); err != nil {
		t.Fatalf("write unrelated file: %v", err)
	}
	if err := os.Chtimes(keep, old, old); err != nil {
		t.Fatalf("age unrelated file: %v", err)
	}

	svc, err := NewVoiceService(VoiceServiceDeps{
		TTS:      &stubSynthesizer{},
		VoiceDir: dir,
		BaseURL:  "https://orders.example.com",
		MaxAge:   time.Hour,
		Clock:    fixedClock(time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)),
	})
	if err != nil {
		t.Fatalf("new voice service: %v", err)
	}
	svc.Generate(context.Background(), "牛肉麵", 1.0)

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatal("expected the stale mp3 to be evicted")
	}
	if _, err := os.Stat(keep); err != nil {
		t.Fatal("eviction must only touch audio files")
	}
}

type stubEvictor struct {
	prefixes []string
	cutoffs  []time.Time
	err      error
}

func (s *stubEvictor) DeleteOlderThan(_ context.Context, prefix string, cutoff time.Time) (int, error) {
	s.prefixes = append(s.prefixes, prefix)
	s.cutoffs = append(s.cutoffs, cutoff)
	return 2, s.err
}

func TestGeneratePrunesRemoteVoices(t *testing.T) {
	now := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	evictor := &stubEvictor{}
	svc, err := NewVoiceService(VoiceServiceDeps{
		TTS:      &stubSynthesizer{},
		Uploader: &stubUploader{},
		Evictor:  evictor,
		VoiceDir: t.TempDir(),
		BaseURL:  "https://orders.example.com",
		MaxAge:   time.Hour,
		Clock:    fixedClock(now),
	})
	if err != nil {
		t.Fatalf("new voice service: %v", err)
	}

	svc.Generate(context.Background(), "牛肉麵", 1.0)

	if len(evictor.prefixes) != 1 || evictor.prefixes[0] != "voices/" {
		t.Fatalf("expected one prune over the voices prefix, got %v", evictor.prefixes)
	}
	if !evictor.cutoffs[0].Equal(now.Add(-time.Hour)) {
		t.Fatalf("unexpected cutoff %v", evictor.cutoffs[0])
	}
}

func TestGenerateSurvivesRemotePruneFailure(t *testing.T) {
	evictor := &stubEvictor{err: errors.New("bucket unreachable")}
	svc, err := NewVoiceService(VoiceServiceDeps{
		TTS:      &stubSynthesizer{},
		Uploader: &stubUploader{},
		Evictor:  evictor,
		VoiceDir: t.TempDir(),
		BaseURL:  "https://orders.example.com",
		Clock:    fixedClock(time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)),
	})
	if err != nil {
		t.Fatalf("new voice service: %v", err)
	}

	if result := svc.Generate(context.Background(), "牛肉麵", 1.0); result.Fallback {
		t.Fatalf("remote prune failures must not block synthesis, got %+v", result)
	}
}

func TestEstimateDurationMS(t *testing.T) {
	if got := EstimateDurationMS(""); got != minVoiceDurationMS {
		t.Fatalf("empty text clamps to the floor, got %d", got)
	}
	if got := EstimateDurationMS("ok"); got != minVoiceDurationMS {
		t.Fatalf("non-CJK text clamps to the floor, got %d", got)
	}
	// Ten CJK characters at 500ms each.
	if got := EstimateDurationMS("牛肉麵珍珠奶茶滷肉飯"); got != 5000 {
		t.Fatalf("expected 5000ms for ten characters, got %d", got)
	}
}
