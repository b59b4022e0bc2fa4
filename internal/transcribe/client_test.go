package transcribe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ivlev/montage/internal/asset"
)

func writeAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "voice.mp3")
	if err := os.WriteFile(path, []byte("ID3fake"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	return path
}

func TestTranscribeParsesWords(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test" {
			t.Errorf("unexpected auth header %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.FormValue("response_format") != "verbose_json" || r.FormValue("model") != "whisper-1" {
			t.Errorf("unexpected form %v", r.MultipartForm.Value)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("missing file: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"Hello world","words":[{"word":" Hello","start":0.0,"end":0.4},{"word":"world","start":0.5,"end":0.9}]}`))
	}))
	defer server.Close()

	c := NewClient(Config{APIKey: "test", BaseURL: server.URL + "/"})
	tr, err := c.Transcribe(context.Background(), asset.Asset{ID: "v", Kind: asset.KindAudio, Source: writeAudio(t), Duration: 1})
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	if len(tr.Words) != 2 || tr.Words[0].Text != "Hello" || tr.Words[1].End != 0.9 {
		t.Fatalf("unexpected transcript %+v", tr)
	}
}

func TestTranscribeHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
	}))
	defer server.Close()

	c := NewClient(Config{APIKey: "bad", BaseURL: server.URL})
	_, err := c.Transcribe(context.Background(), asset.Asset{ID: "v", Kind: asset.KindAudio, Source: writeAudio(t), Duration: 1})
	var statusErr *httpStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 status error, got %v", err)
	}
}

func TestTranscribeRejectsNonAudio(t *testing.T) {
	c := NewClient(Config{APIKey: "test"})
	if _, err := c.Transcribe(context.Background(), asset.Asset{ID: "i", Kind: asset.KindImage, Source: "x.png"}); err == nil {
		t.Fatal("expected an error for an image asset")
	}
}
