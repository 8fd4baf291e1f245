package delivery

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// WebhookConfig points the webhook backend at an HTTP endpoint.
type WebhookConfig struct {
	URL   string
	Token string
	// Timeout bounds a single POST. Zero selects a default.
	Timeout time.Duration
	// Fs is where image paths are read from. Nil selects the OS filesystem.
	Fs afero.Fs
}

// Webhook posts notifications as JSON to a configured URL, which lets a phone
// push service or chat bot relay them.
type Webhook struct {
	httpClient *http.Client
	fs         afero.Fs
	url        string
	token      string
	now        func() time.Time
}

// NewWebhook creates a webhook backend. If cfg.Token is empty, the
// TASKNOTIFIER_WEBHOOK_TOKEN environment variable is checked.
func NewWebhook(cfg WebhookConfig) *Webhook {
	token := cfg.Token
	if token == "" {
		token = os.Getenv("TASKNOTIFIER_WEBHOOK_TOKEN")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	fs := cfg.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	return &Webhook{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		fs:    fs,
		url:   strings.TrimSpace(cfg.URL),
		token: token,
		now:   time.Now,
	}
}

func (w *Webhook) Name() string { return "webhook" }

type webhookPayload struct {
	Title   string    `json:"title"`
	Message string    `json:"message"`
	Time    string    `json:"time"`
	FiredAt time.Time `json:"fired_at"`
	Sound   bool      `json:"sound"`
	Image   string    `json:"image,omitempty"`
}

func (w *Webhook) Send(ctx context.Context, n Notification) error {
	if w.url == "" {
		return ErrUnsupported
	}

	now := w.now()
	payload := webhookPayload{
		Title:   n.Title,
		Message: n.Message,
		Time:    n.Time,
		FiredAt: now,
		Sound:   n.Sound,
	}
	if payload.Time == "" {
		payload.Time = now.Format("15:04")
	}
	if n.ImagePath != "" {
		data, err := afero.ReadFile(w.fs, n.ImagePath)
		if err != nil {
			return fmt.Errorf("reading image: %w", err)
		}
		payload.Image = base64.StdEncoding.EncodeToString(data)
	}

	return w.postJSON(ctx, payload)
}

func (w *Webhook) postJSON(ctx context.Context, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "tasknotifier")
	if w.token != "" {
		req.Header.Set("Authorization", "Bearer "+w.token)
	}

	res, err := w.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		msg := strings.TrimSpace(string(body))
		return fmt.Errorf("webhook error (%d): %s", res.StatusCode, msg)
	}
	io.Copy(io.Discard, res.Body)
	return nil
}
