package delivery

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
)

func TestWebhookPostsPayload(t *testing.T) {
	var got webhookPayload
	var auth, contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		contentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	fs := afero.NewMemMapFs()
	image := "/images/i.png"
	if err := afero.WriteFile(fs, image, []byte("png-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	w := NewWebhook(WebhookConfig{URL: srv.URL, Token: "secret", Fs: fs})
	w.now = func() time.Time { return time.Date(2024, 1, 2, 9, 0, 40, 0, time.UTC) }

	n := Notification{Title: "T", Message: "M", Time: "09:00", ImagePath: image, Sound: true}
	if err := w.Send(context.Background(), n); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if auth != "Bearer secret" {
		t.Errorf("unexpected Authorization header %q", auth)
	}
	if contentType != "application/json" {
		t.Errorf("unexpected Content-Type %q", contentType)
	}
	if got.Title != "T" || got.Message != "M" || got.Time != "09:00" || !got.Sound {
		t.Errorf("unexpected payload: %+v", got)
	}
	decoded, err := base64.StdEncoding.DecodeString(got.Image)
	if err != nil || string(decoded) != "png-bytes" {
		t.Errorf("unexpected image payload %q (%v)", got.Image, err)
	}
}

func TestWebhookTimeFallsBackToSendMinute(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	w := NewWebhook(WebhookConfig{URL: srv.URL})
	w.now = func() time.Time { return time.Date(2024, 1, 2, 7, 45, 0, 0, time.UTC) }
	if err := w.Send(context.Background(), Notification{Title: "ad hoc"}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if got.Time != "07:45" {
		t.Fatalf("expected the send minute, got %q", got.Time)
	}
}

func TestWebhookMissingImageOnFs(t *testing.T) {
	w := NewWebhook(WebhookConfig{URL: "http://example.invalid", Fs: afero.NewMemMapFs()})
	err := w.Send(context.Background(), Notification{Title: "T", ImagePath: "/nope.png"})
	if err == nil || !strings.Contains(err.Error(), "reading image") {
		t.Fatalf("expected image read error, got %v", err)
	}
}

func TestWebhookReportsHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := NewWebhook(WebhookConfig{URL: srv.URL}).Send(context.Background(), Notification{Title: "T"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "429") || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWebhookWithoutURLIsUnsupported(t *testing.T) {
	if err := NewWebhook(WebhookConfig{}).Send(context.Background(), Notification{}); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestWebhookTokenFromEnvironment(t *testing.T) {
	t.Setenv("TASKNOTIFIER_WEBHOOK_TOKEN", "from-env")
	if w := NewWebhook(WebhookConfig{URL: "http://example.invalid"}); w.token != "from-env" {
		t.Fatalf("expected token from env, got %q", w.token)
	}
}
