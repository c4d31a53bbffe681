package domain

import (
	"time"
)

// LeadState is the lifecycle state of a prospect within its campaign.
type LeadState string

const (
	// LeadProspect is the initial state before any outreach has gone out.
	LeadProspect LeadState = "prospect"
	// LeadContacted means at least one sequence step has been sent.
	LeadContacted LeadState = "contacted"
	// LeadQualified is terminal: the lead replied positively and is handed
	// to a human. No further automatic sends.
	LeadQualified LeadState = "qualified"
	// LeadSuppressed is terminal: the lead declined.
	LeadSuppressed LeadState = "suppressed"
	// LeadUnsubscribed is terminal: compliance stop, no contact of any kind.
	LeadUnsubscribed LeadState = "unsubscribed"
	// LeadNurture means the sequence ran out without a reply. A nurture
	// lead can re-enter contacted on a future touch.
	LeadNurture LeadState = "nurture"
)

// Terminal reports whether the state ends automatic outreach for good.
func (s LeadState) Terminal() bool {
	return s == LeadQualified || s == LeadSuppressed || s == LeadUnsubscribed
}

type Lead struct {
	ID              string     `json:"id"`
	CampaignID      string     `json:"campaign_id"`
	Email           string     `json:"email"`
	FirstName       string     `json:"first_name,omitempty"`
	LastName        string     `json:"last_name,omitempty"`
	State           LeadState  `json:"state"`
	SequenceStep    int        `json:"sequence_step"`
	LastContactedAt *time.Time `json:"last_contacted_at,omitempty"`
	LastReplyAt     *time.Time `json:"last_reply_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
