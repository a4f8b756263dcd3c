package handlers

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func newVoiceServer(t *testing.T, voiceDir string) http.Handler {
	t.Helper()
	return NewRouter(WithPublicRoutes(NewVoiceHandlers(voiceDir).Routes))
}

func TestValidVoiceFilename(t *testing.T) {
	cases := []struct {
		name string
		ok   bool
	}{
		{"a.mp3", true},
		{"b.wav", true},
		{"A1B2.MP3", true},
		{"", false},
		{"a.txt", false},
		{"a.mp3.exe", false},
		{"../etc/passwd", false},
		{"..mp3", false},
		{"dir/a.mp3", false},
		{`dir\a.mp3`, false},
	}
	for _, tc := range cases {
		if got := validVoiceFilename(tc.name); got != tc.ok {
			t.Fatalf("validVoiceFilename(%q) = %v, want %v", tc.name, got, tc.ok)
		}
	}
}

func TestServeVoiceFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.mp3"), []byte("mp3-bytes"), 0o644); err != nil {
		t.Fatalf("write voice file: %v", err)
	}
	server := newVoiceServer(t, dir)

	req := httptest.NewRequest(http.MethodGet, "/api/voices/a.mp3", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "audio/mpeg" {
		t.Fatalf("unexpected content type %q", got)
	}
	if got := rec.Header().Get("Cache-Control"); got != "public, max-age=1800" {
		t.Fatalf("unexpected cache control %q", got)
	}
	if rec.Body.String() != "mp3-bytes" {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}

func TestServeVoiceRejectsBadNames(t *testing.T) {
	server := newVoiceServer(t, t.TempDir())

	req := httptest.NewRequest(http.MethodGet, "/api/voices/menu.txt", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestServeVoiceMissingFile(t *testing.T) {
	server := newVoiceServer(t, t.TempDir())

	req := httptest.NewRequest(http.MethodGet, "/api/voices/missing.mp3", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestServeVoiceEmptyFileIsNotFound(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "empty.mp3"), nil, 0o644); err != nil {
		t.Fatalf("write empty file: %v", err)
	}
	server := newVoiceServer(t, dir)

	req := httptest.NewRequest(http.MethodGet, "/api/voices/empty.mp3", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("half-written files must not be served, got %d", rec.Code)
	}
}
