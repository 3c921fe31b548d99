// internal/notify/webhook.go
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// WebhookNotifier POSTs final report payloads to the reporting
// platform's callback endpoint. Events without a payload are skipped;
// the once-per-session guarantee lives in the Coordinator, not here.
type WebhookNotifier struct {
	url    string
	secret string
	client *http.Client
	logger *slog.Logger
}

func NewWebhookNotifier(url, secret string, logger *slog.Logger) *WebhookNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookNotifier{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: 15 * time.Second},
		logger: logger,
	}
}

func (w *WebhookNotifier) Name() string { return "webhook" }

func (w *WebhookNotifier) Notify(ctx context.Context, ev *Event) error {
	if ev.Payload == nil {
		return nil
	}

	body, err := json.Marshal(ev.Payload)
	if err != nil {
		return fmt.Errorf("marshal callback: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build callback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if w.secret != "" {
		req.Header.Set("X-Webhook-Secret", w.secret)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post callback: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("callback endpoint returned %s", resp.Status)
	}

	w.logger.Info("final callback delivered",
		"session_id", ev.Payload.SessionID,
		"scam_detected", ev.Payload.ScamDetected,
		"messages", ev.Payload.TotalMessagesExchanged)
	return nil
}
