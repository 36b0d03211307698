// SPDX-License-Identifier: MIT

package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// WebhookNotifier posts alerts as JSON to an HTTP endpoint, Slack-style:
// {"text": "<message>"}. Only warning and critical alerts are delivered;
// info alerts stay on the console.
type WebhookNotifier struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
}

// WebhookConfig configures a WebhookNotifier.
type WebhookConfig struct {
	URL     string
	Timeout time.Duration
	// RatePerMinute caps webhook deliveries; excess alerts are dropped with
	// an error so the caller can count them.
	RatePerMinute int
}

// ErrRateLimited is wrapped into the error returned for dropped alerts.
var ErrRateLimited = fmt.Errorf("alert: webhook rate limited")

// NewWebhookNotifier creates a webhook notifier.
func NewWebhookNotifier(cfg WebhookConfig) *WebhookNotifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	perMinute := cfg.RatePerMinute
	if perMinute <= 0 {
		perMinute = 30
	}
	return &WebhookNotifier{
		url:     cfg.URL,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute),
	}
}

func (n *WebhookNotifier) Name() string { return "webhook" }

type webhookPayload struct {
	Text      string `json:"text"`
	Level     string `json:"level"`
	Kind      string `json:"kind"`
	Target    string `json:"target"`
	Timestamp string `json:"timestamp"`
}

// Notify delivers the alert. Info alerts are silently skipped.
func (n *WebhookNotifier) Notify(ctx context.Context, a Alert) error {
	if a.Level == LevelInfo {
		return nil
	}
	if !n.limiter.Allow() {
		return fmt.Errorf("%w: %s", ErrRateLimited, a.Message)
	}

	body, err := json.Marshal(webhookPayload{
		Text:      a.Message,
		Level:     string(a.Level),
		Kind:      string(a.Kind),
		Target:    a.Target,
		Timestamp: a.Timestamp.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("alert: marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("alert: build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("alert: webhook post: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("alert: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
