package services

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"

	domain "github.com/leonyu5566/ordering-helper-backend-sub000/internal/domain"
)

const (
	defaultVoiceMaxAge = 60 * time.Minute

	// memoryGatePercent takes the TTS fallback before synthesis when heap
	// usage crosses this share of the configured budget.
	memoryGatePercent = 80

	minVoiceDurationMS = 1000
	msPerCJKChar       = 500
)

// VoiceServiceDeps bundles collaborators for the voice synthesizer.
type VoiceServiceDeps struct {
	TTS          SpeechSynthesizer
	Uploader     VoiceUploader
	Evictor      RemoteEvictor
	VoiceDir     string
	BaseURL      string
	MaxAge       time.Duration
	MemoryBudget uint64
	Clock        Clock
	Logger       Logger
}

// VoiceService turns Mandarin voice text into a locally written, publicly
// mirrored audio file. Every failure degrades to a fallback result; the
// service never fails the pipeline.
type VoiceService struct {
	tts          SpeechSynthesizer
	uploader     VoiceUploader
	evictor      RemoteEvictor
	voiceDir     string
	baseURL      string
	maxAge       time.Duration
	memoryBudget uint64
	clock        Clock
	logger       Logger
}

// NewVoiceService constructs the synthesizer.
func NewVoiceService(deps VoiceServiceDeps) (*VoiceService, error) {
	if strings.TrimSpace(deps.VoiceDir) == "" {
		return nil, errors.New("voice service: voice dir is required")
	}
	maxAge := deps.MaxAge
	if maxAge <= 0 {
		maxAge = defaultVoiceMaxAge
	}
	return &VoiceService{
		tts:          deps.TTS,
		uploader:     deps.Uploader,
		evictor:      deps.Evictor,
		voiceDir:     deps.VoiceDir,
		baseURL:      strings.TrimRight(strings.TrimSpace(deps.BaseURL), "/"),
		maxAge:       maxAge,
		memoryBudget: deps.MemoryBudget,
		clock:        normalizeClock(deps.Clock),
		logger:       normalizeLogger(deps.Logger),
	}, nil
}

// VoiceResult describes one synthesis attempt. Fallback true means text-only
// delivery: no audio exists and URL is empty.
type VoiceResult struct {
	Text       string
	Filename   string
	LocalPath  string
	URL        string
	DurationMS int
	Fallback   bool
}

// Generate synthesizes the voice text and mirrors it to object storage.
// speakingRate is clamped to [0.5, 2.0]; zero means 1.0.
func (s *VoiceService) Generate(ctx context.Context, text string, speakingRate float64) VoiceResult {
	fallback := VoiceResult{Text: text, Fallback: true}
	if strings.TrimSpace(text) == "" {
		return fallback
	}
	s.evictStale(ctx)

	if s.overMemoryBudget() {
		s.logger(ctx, "voice.fallback.memory", map[string]any{"budget": s.memoryBudget})
		return fallback
	}
	if s.tts == nil {
		return fallback
	}

	switch {
	case speakingRate == 0:
		speakingRate = 1.0
	case speakingRate < 0.5:
		speakingRate = 0.5
	case speakingRate > 2.0:
		speakingRate = 2.0
	}

	audio, err := s.tts.Synthesize(ctx, text, speakingRate)
	if err != nil || len(audio) == 0 {
		s.logger(ctx, "voice.fallback.synthesize", map[string]any{"error": errString(err)})
		return fallback
	}

	filename := uuid.NewString() + ".mp3"
	localPath := filepath.Join(s.voiceDir, filename)
	if err := os.MkdirAll(s.voiceDir, 0o755); err != nil {
		s.logger(ctx, "voice.fallback.scratch", map[string]any{"error": err.Error()})
		return fallback
	}
	if err := os.WriteFile(localPath, audio, 0o644); err != nil {
		s.logger(ctx, "voice.fallback.write", map[string]any{"error": err.Error()})
		return fallback
	}
	if info, err := os.Stat(localPath); err != nil || info.Size() == 0 {
		s.logger(ctx, "voice.fallback.empty_file", map[string]any{"path": localPath})
		return fallback
	}

	result := VoiceResult{
		Text:       text,
		Filename:   filename,
		LocalPath:  localPath,
		DurationMS: EstimateDurationMS(text),
	}
	result.URL = s.mirror(ctx, filename, audio)
	if result.URL == "" {
		// No https address means no audio delivery, but the local file is
		// kept so operators can inspect it.
		result.Fallback = true
	}
	return result
}

// mirror uploads the audio and returns its public URL, degrading to the
// locally served voice endpoint when the bucket is unreachable.
func (s *VoiceService) mirror(ctx context.Context, filename string, audio []byte) string {
	if s.uploader != nil {
		url, err := s.uploader.UploadPublic(ctx, "voices/"+filename, "audio/mpeg", bytes.NewReader(audio))
		if err == nil {
			return url
		}
		s.logger(ctx, "voice.upload.failed", map[string]any{"error": err.Error()})
	}
	if strings.HasPrefix(s.baseURL, "https://") {
		return s.baseURL + "/api/voices/" + filename
	}
	return ""
}

// evictStale removes scratch voice files past their age limit and prunes
// the mirrored bucket objects with the same cutoff. Best-effort and tolerant
// of concurrent deletes.
func (s *VoiceService) evictStale(ctx context.Context) {
	cutoff := s.clock().Add(-s.maxAge)
	if s.evictor != nil {
		if pruned, err := s.evictor.DeleteOlderThan(ctx, "voices/", cutoff); err != nil {
			s.logger(ctx, "voice.evict.remote_failed", map[string]any{"error": err.Error()})
		} else if pruned > 0 {
			s.logger(ctx, "voice.evict.remote", map[string]any{"count": pruned})
		}
	}
	entries, err := os.ReadDir(s.voiceDir)
	if err != nil {
		return
	}
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".mp3" && ext != ".wav" {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.voiceDir, entry.Name())); err == nil || os.IsNotExist(err) {
			removed++
		}
	}
	if removed > 0 {
		s.logger(ctx, "voice.evicted", map[string]any{"count": removed})
	}
}

// overMemoryBudget inspects heap usage against the configured budget.
func (s *VoiceService) overMemoryBudget() bool {
	if s.memoryBudget == 0 {
		return false
	}
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.Alloc > s.memoryBudget/100*memoryGatePercent
}

// EstimateDurationMS estimates spoken duration from text length at roughly
// half a second per CJK character, clamped to one second.
func EstimateDurationMS(text string) int {
	chars := 0
	for _, r := range text {
		if domain.ContainsCJK(string(r)) {
			chars++
		}
	}
	ms := chars * msPerCJKChar
	if ms < minVoiceDurationMS {
		ms = minVoiceDurationMS
	}
	return ms
}

func errString(err error) string {
	if err == nil {
		return "empty audio"
	}
	return err.Error()
}
