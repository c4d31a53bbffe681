package store

import (
	"context"
	"fmt"

	"github.com/arnab-netizen/AICMO-sub004/internal/engine"
)

// GetCampaignCounts aggregates the raw health counters for one campaign.
// Rates are derived later by the decision engine so that the zero-volume
// guard lives in one place.
func (s *PostgresStore) GetCampaignCounts(ctx context.Context, campaignID string) (engine.CampaignCounts, error) {
	var c engine.CampaignCounts

	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE status = 'sent')
		FROM outbound_messages
		WHERE campaign_id = $1
	`, campaignID).Scan(&c.Sent)
	if err != nil {
		return c, fmt.Errorf("querying sent count: %w", err)
	}

	err = s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE category IS NOT NULL AND category NOT IN ('bounce', 'out_of_office')),
			COUNT(*) FILTER (WHERE category = 'positive'),
			COUNT(*) FILTER (WHERE category = 'negative'),
			COUNT(*) FILTER (WHERE category = 'bounce')
		FROM inbound_replies
		WHERE campaign_id = $1
	`, campaignID).Scan(&c.Replies, &c.Positive, &c.Negative, &c.Bounced)
	if err != nil {
		return c, fmt.Errorf("querying reply counts: %w", err)
	}

	return c, nil
}
