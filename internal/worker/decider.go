package worker

import (
	"context"
	"log/slog"

	"github.com/arnab-netizen/AICMO-sub004/internal/config"
	"github.com/arnab-netizen/AICMO-sub004/internal/domain"
	"github.com/arnab-netizen/AICMO-sub004/internal/engine"
)

// DecisionStore defines the persistence the decider needs.
type DecisionStore interface {
	ListActiveCampaigns(ctx context.Context) ([]domain.Campaign, error)
	GetCampaignCounts(ctx context.Context, campaignID string) (engine.CampaignCounts, error)
	PauseCampaign(ctx context.Context, id, reason string) error
}

// Decider recomputes each active campaign's health snapshot and applies
// the pause verdict. The numeric rules themselves live in the pure
// engine package; this component only wires counts in and mutations out.
type Decider struct {
	store  DecisionStore
	cfg    config.WorkerConfig
	logger *slog.Logger
}

func NewDecider(store DecisionStore, cfg config.WorkerConfig, logger *slog.Logger) *Decider {
	return &Decider{store: store, cfg: cfg, logger: logger}
}

// EvaluateCampaigns runs the pause rules over every active campaign and
// pauses the ones that fail. Returns how many were paused.
func (d *Decider) EvaluateCampaigns(ctx context.Context) (int, error) {
	campaigns, err := d.store.ListActiveCampaigns(ctx)
	if err != nil {
		return 0, err
	}

	var paused int
	for _, c := range campaigns {
		if ctx.Err() != nil {
			break
		}

		counts, err := d.store.GetCampaignCounts(ctx, c.ID)
		if err != nil {
			d.logger.Error("failed to compute campaign counts", "error", err, "campaign_id", c.ID)
			continue
		}

		snap := engine.BuildSnapshot(counts)
		decision := engine.Evaluate(engine.PauseRules{
			AutoPauseEnabled: d.cfg.AutoPauseEnabled && c.AutoPause,
			MinSent:          d.cfg.MinSentForPause,
			MinReplyRate:     d.cfg.PauseReplyRate,
		}, snap)

		d.logger.Debug("campaign snapshot",
			"campaign_id", c.ID,
			"sent", snap.Sent,
			"replies", snap.Replies,
			"reply_rate", snap.ReplyRate,
			"positive_rate", snap.PositiveRate,
			"bounce_rate", snap.BounceRate,
		)

		if !decision.ShouldPause {
			continue
		}

		if err := d.store.PauseCampaign(ctx, c.ID, decision.Reason); err != nil {
			d.logger.Error("failed to pause campaign", "error", err, "campaign_id", c.ID)
			continue
		}
		paused++
		d.logger.Warn("campaign auto-paused",
			"campaign_id", c.ID,
			"campaign", c.Name,
			"reason", decision.Reason,
		)
	}
	return paused, nil
}
