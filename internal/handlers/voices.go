package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/leonyu5566/ordering-helper-backend-sub000/internal/platform/httpx"
)

// VoiceHandlers serves synthesized audio from the scratch directory.
type VoiceHandlers struct {
	voiceDir string
}

// NewVoiceHandlers constructs the voice file endpoint.
func NewVoiceHandlers(voiceDir string) *VoiceHandlers {
	return &VoiceHandlers{voiceDir: voiceDir}
}

// Routes registers the /voices endpoint on the public group.
func (h *VoiceHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/voices/{filename}", h.serveVoice)
}

func (h *VoiceHandlers) serveVoice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filename := chi.URLParam(r, "filename")

	if !validVoiceFilename(filename) {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid voice filename", http.StatusBadRequest))
		return
	}

	path := filepath.Join(h.voiceDir, filename)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() || info.Size() == 0 {
		httpx.WriteError(ctx, w, httpx.NewError("voice_not_found", "voice file not available", http.StatusNotFound))
		return
	}

	contentType := "audio/mpeg"
	if strings.HasSuffix(filename, ".wav") {
		contentType = "audio/wav"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	w.Header().Set("Cache-Control", "public, max-age=1800")
	http.ServeFile(w, r, path)
}

// validVoiceFilename admits only flat .wav/.mp3 names; separators and parent
// references are rejected before touching the filesystem.
func validVoiceFilename(name string) bool {
	if name == "" || strings.Contains(name, "..") ||
		strings.ContainsAny(name, "/\\") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".mp3" || ext == ".wav"
}
