package domain

import (
	"time"
)

type Campaign struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	IsActive     bool      `json:"is_active"`
	PauseReason  *string   `json:"pause_reason,omitempty"`
	AutoPause    bool      `json:"auto_pause"`
	DailySendCap int       `json:"daily_send_cap"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SequenceStep is one templated touch in a campaign's outreach plan.
// StepNumber is 1-based; WaitHours is how long after the previous touch
// the step becomes due.
type SequenceStep struct {
	ID         string `json:"id"`
	CampaignID string `json:"campaign_id"`
	StepNumber int    `json:"step_number"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
	WaitHours  int    `json:"wait_hours"`
}
