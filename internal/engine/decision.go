package engine

import (
	"fmt"
)

// CampaignCounts are the raw per-campaign aggregates pulled from the store.
type CampaignCounts struct {
	Sent     int `json:"sent"`
	Replies  int `json:"replies"`
	Positive int `json:"positive"`
	Negative int `json:"negative"`
	Bounced  int `json:"bounced"`
}

// Snapshot is the per-cycle health picture for one campaign. It is
// recomputed every cycle and never persisted.
type Snapshot struct {
	CampaignCounts
	ReplyRate    float64 `json:"reply_rate"`
	PositiveRate float64 `json:"positive_rate"`
	BounceRate   float64 `json:"bounce_rate"`
}

// PauseRules are the thresholds the decision engine evaluates against.
type PauseRules struct {
	AutoPauseEnabled bool
	MinSent          int
	MinReplyRate     float64
}

// Decision is the outcome of evaluating one campaign. Reason is only set
// when ShouldPause is true.
type Decision struct {
	ShouldPause bool   `json:"should_pause"`
	Reason      string `json:"reason,omitempty"`
}

// BuildSnapshot derives rates from raw counts. All rates are 0 when
// nothing has been sent.
func BuildSnapshot(counts CampaignCounts) Snapshot {
	snap := Snapshot{CampaignCounts: counts}
	if counts.Sent == 0 {
		return snap
	}

	sent := float64(counts.Sent)
	snap.ReplyRate = float64(counts.Replies) / sent
	snap.PositiveRate = float64(counts.Positive) / sent
	snap.BounceRate = float64(counts.Bounced) / sent
	return snap
}

// Evaluate decides whether a campaign should auto-pause. Campaigns below
// the minimum-sent threshold always continue: there is not enough volume
// to judge them. The caller applies the actual campaign mutation.
func Evaluate(rules PauseRules, snap Snapshot) Decision {
	if !rules.AutoPauseEnabled {
		return Decision{}
	}
	if snap.Sent < rules.MinSent {
		return Decision{}
	}
	if snap.ReplyRate < rules.MinReplyRate {
		return Decision{
			ShouldPause: true,
			Reason: fmt.Sprintf("reply rate %.4f below threshold %.4f after %d sends",
				snap.ReplyRate, rules.MinReplyRate, snap.Sent),
		}
	}
	return Decision{}
}
