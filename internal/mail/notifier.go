package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Notifier pushes a human-facing notification about a high-value reply.
type Notifier interface {
	Notify(ctx context.Context, title, message string, metadata map[string]string) error
}

// WebhookNotifier posts notifications to a chat/incident webhook.
type WebhookNotifier struct {
	endpoint   string
	httpClient *http.Client
}

func NewWebhookNotifier(endpoint string) *WebhookNotifier {
	return &WebhookNotifier{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type notifyPayload struct {
	Title    string            `json:"title"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func (n *WebhookNotifier) Notify(ctx context.Context, title, message string, metadata map[string]string) error {
	payload, err := json.Marshal(notifyPayload{Title: title, Message: message, Metadata: metadata})
	if err != nil {
		return fmt.Errorf("marshaling notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("posting notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("notifier returned %d", resp.StatusCode)
	}
	return nil
}
