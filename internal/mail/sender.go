package mail

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// SendResult is what the channel reports back for one accepted message.
type SendResult struct {
	ProviderMessageID string `json:"provider_message_id"`
}

// ChannelSender delivers one outbound message through the configured
// channel. Implementations must treat a repeated send of the same
// fingerprint as acceptable; the dispatcher's own dedupe is what
// guarantees at-most-once.
type ChannelSender interface {
	Send(ctx context.Context, to, subject, body string, headers map[string]string) (*SendResult, error)
}

// RelaySender posts messages to an HTTP mail relay, signing each payload
// with HMAC-SHA256 so the relay can verify origin.
type RelaySender struct {
	endpoint   string
	secret     string
	httpClient *http.Client
}

func NewRelaySender(endpoint, secret string) *RelaySender {
	return &RelaySender{
		endpoint: endpoint,
		secret:   secret,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type relayRequest struct {
	To      string            `json:"to"`
	Subject string            `json:"subject"`
	Body    string            `json:"body"`
	Headers map[string]string `json:"headers,omitempty"`
}

type relayResponse struct {
	MessageID string `json:"message_id"`
	Error     string `json:"error,omitempty"`
}

func (s *RelaySender) Send(ctx context.Context, to, subject, body string, headers map[string]string) (*SendResult, error) {
	payload, err := json.Marshal(relayRequest{To: to, Subject: subject, Body: body, Headers: headers})
	if err != nil {
		return nil, fmt.Errorf("marshaling send request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Relay-Signature", signPayload(payload, s.secret))

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("posting to relay: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("relay returned %d: %s", resp.StatusCode, string(raw))
	}

	var rr relayResponse
	if err := json.Unmarshal(raw, &rr); err != nil {
		return nil, fmt.Errorf("decoding relay response: %w", err)
	}
	if rr.Error != "" {
		return nil, fmt.Errorf("relay rejected message: %s", rr.Error)
	}

	return &SendResult{ProviderMessageID: rr.MessageID}, nil
}

// signPayload generates an HMAC-SHA256 signature for the payload.
func signPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
