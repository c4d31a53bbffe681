package domain

import (
	"time"
)

// ReplyCategory is the classified intent of an inbound reply.
type ReplyCategory string

const (
	ReplyPositive    ReplyCategory = "positive"
	ReplyNegative    ReplyCategory = "negative"
	ReplyOutOfOffice ReplyCategory = "out_of_office"
	ReplyBounce      ReplyCategory = "bounce"
	ReplyUnsubscribe ReplyCategory = "unsubscribe"
	ReplyNeutral     ReplyCategory = "neutral"
)

// InboundReply is one message pulled from the inbox provider.
// (provider, provider_uid) is unique in the store; re-ingesting the same
// mailbox message is a no-op. Category is nil until the classifier runs.
type InboundReply struct {
	ID             string         `json:"id"`
	Provider       string         `json:"provider"`
	ProviderUID    string         `json:"provider_uid"`
	LeadID         *string        `json:"lead_id,omitempty"`
	CampaignID     *string        `json:"campaign_id,omitempty"`
	FromAddress    string         `json:"from_address"`
	Subject        string         `json:"subject"`
	Body           string         `json:"body"`
	Category       *ReplyCategory `json:"category,omitempty"`
	Confidence     *float64       `json:"confidence,omitempty"`
	ClassifyReason *string        `json:"classify_reason,omitempty"`
	AlertSent      bool           `json:"alert_sent"`
	ReceivedAt     time.Time      `json:"received_at"`
	CreatedAt      time.Time      `json:"created_at"`
}
