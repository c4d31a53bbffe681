package domain

import (
	"time"
)

// AlertLogEntry is the audit record of one human notification. The
// idempotency key is derived from the triggering reply's provider identity,
// so a reply can never produce two entries.
type AlertLogEntry struct {
	ID             string    `json:"id"`
	IdempotencyKey string    `json:"idempotency_key"`
	ReplyID        string    `json:"reply_id"`
	Recipients     string    `json:"recipients"`
	Success        bool      `json:"success"`
	CreatedAt      time.Time `json:"created_at"`
}
