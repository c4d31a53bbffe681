package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// InboxMessage is one message as reported by the inbox provider.
type InboxMessage struct {
	ProviderUID string    `json:"provider_uid"`
	From        string    `json:"from"`
	Subject     string    `json:"subject"`
	Body        string    `json:"body"`
	ReceivedAt  time.Time `json:"received_at"`
}

// InboxProvider fetches messages received after a checkpoint. Providers
// should not return the same UID twice for one window, but the ingestor
// dedupes regardless.
type InboxProvider interface {
	FetchSince(ctx context.Context, since time.Time) ([]InboxMessage, error)
}

// HTTPInboxProvider polls a mailbox bridge that exposes new messages as
// JSON over HTTP (e.g. an IMAP sidecar).
type HTTPInboxProvider struct {
	endpoint   string
	httpClient *http.Client
}

func NewHTTPInboxProvider(endpoint string) *HTTPInboxProvider {
	return &HTTPInboxProvider{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (p *HTTPInboxProvider) FetchSince(ctx context.Context, since time.Time) ([]InboxMessage, error) {
	u, err := url.Parse(p.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing inbox endpoint: %w", err)
	}
	q := u.Query()
	if !since.IsZero() {
		q.Set("since", since.UTC().Format(time.RFC3339))
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating inbox request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("polling inbox: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inbox returned %d", resp.StatusCode)
	}

	var messages []InboxMessage
	if err := json.NewDecoder(resp.Body).Decode(&messages); err != nil {
		return nil, fmt.Errorf("decoding inbox response: %w", err)
	}
	return messages, nil
}
