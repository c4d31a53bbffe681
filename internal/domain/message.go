package domain

import (
	"time"
)

// MessageStatus is the delivery status of one outbound send attempt.
type MessageStatus string

const (
	MessageQueued MessageStatus = "queued"
	MessageSent   MessageStatus = "sent"
	MessageFailed MessageStatus = "failed"
)

// OutboundMessage is a single send attempt for one lead and sequence step.
// (lead_id, fingerprint, sequence_number) is unique in the store; that key
// is what makes re-dispatch after a crash a no-op.
type OutboundMessage struct {
	ID                string        `json:"id"`
	LeadID            string        `json:"lead_id"`
	CampaignID        string        `json:"campaign_id"`
	Recipient         string        `json:"recipient"`
	Subject           string        `json:"subject"`
	Body              string        `json:"body"`
	Fingerprint       string        `json:"fingerprint"`
	SequenceNumber    int           `json:"sequence_number"`
	Status            MessageStatus `json:"status"`
	RetryCount        int           `json:"retry_count"`
	ScheduledAt       time.Time     `json:"scheduled_at"`
	SentAt            *time.Time    `json:"sent_at,omitempty"`
	ProviderMessageID *string       `json:"provider_message_id,omitempty"`
	LastError         *string       `json:"last_error,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
}
