package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WebhookNotifier posts notifications as JSON to a configured endpoint,
// typically a chat integration for the operations and finance channels.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a webhook notifier for the given endpoint.
// A nil client falls back to a default with a 10 second timeout.
func NewWebhookNotifier(url string, client *http.Client) *WebhookNotifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &WebhookNotifier{
		url:    url,
		client: client,
	}
}

type webhookPayload struct {
	Channel   string    `json:"channel"`
	Recipient string    `json:"recipient,omitempty"`
	Message   string    `json:"message"`
	SentAt    time.Time `json:"sent_at"`
}

// Notify posts the notification and treats any non-2xx response as failure.
func (n *WebhookNotifier) Notify(ctx context.Context, channel, recipient, message string) error {
	body, err := json.Marshal(webhookPayload{
		Channel:   channel,
		Recipient: recipient,
		Message:   message,
		SentAt:    time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("webhook post: unexpected status %d", resp.StatusCode)
	}
	return nil
}
