package store

import (
	"context"
	"fmt"

	"github.com/arnab-netizen/AICMO-sub004/internal/domain"
	"github.com/jackc/pgx/v5"
)

const campaignColumns = `id, name, is_active, pause_reason, auto_pause, daily_send_cap, created_at, updated_at`

func scanCampaign(row interface{ Scan(...any) error }) (domain.Campaign, error) {
	var c domain.Campaign
	err := row.Scan(
		&c.ID, &c.Name, &c.IsActive, &c.PauseReason, &c.AutoPause,
		&c.DailySendCap, &c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

func (s *PostgresStore) GetCampaign(ctx context.Context, id string) (*domain.Campaign, error) {
	c, err := scanCampaign(s.pool.QueryRow(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("querying campaign: %w", err)
	}
	return &c, nil
}

func (s *PostgresStore) ListCampaigns(ctx context.Context) ([]domain.Campaign, error) {
	return s.listCampaigns(ctx, `SELECT `+campaignColumns+` FROM campaigns ORDER BY created_at DESC`)
}

// ListActiveCampaigns returns campaigns eligible for sending and decision
// evaluation this cycle.
func (s *PostgresStore) ListActiveCampaigns(ctx context.Context) ([]domain.Campaign, error) {
	return s.listCampaigns(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE is_active ORDER BY created_at ASC`)
}

func (s *PostgresStore) listCampaigns(ctx context.Context, query string) ([]domain.Campaign, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []domain.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning campaign: %w", err)
		}
		campaigns = append(campaigns, c)
	}

	if campaigns == nil {
		campaigns = []domain.Campaign{}
	}
	return campaigns, rows.Err()
}

// PauseCampaign deactivates a campaign with a reason. Already-paused
// campaigns are left alone so an operator note is not overwritten.
func (s *PostgresStore) PauseCampaign(ctx context.Context, id, reason string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE campaigns SET is_active = false, pause_reason = $2, updated_at = NOW()
		WHERE id = $1 AND is_active
	`, id, reason)
	if err != nil {
		return fmt.Errorf("pausing campaign: %w", err)
	}
	return nil
}

// ResumeCampaign reactivates a paused campaign and clears the reason.
func (s *PostgresStore) ResumeCampaign(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE campaigns SET is_active = true, pause_reason = NULL, updated_at = NOW()
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("resuming campaign: %w", err)
	}
	return nil
}

// GetSequenceStep returns one step of a campaign's outreach plan, or nil
// when the sequence does not reach that far.
func (s *PostgresStore) GetSequenceStep(ctx context.Context, campaignID string, stepNumber int) (*domain.SequenceStep, error) {
	var st domain.SequenceStep
	err := s.pool.QueryRow(ctx, `
		SELECT id, campaign_id, step_number, subject, body, wait_hours
		FROM sequence_steps
		WHERE campaign_id = $1 AND step_number = $2
	`, campaignID, stepNumber).Scan(
		&st.ID, &st.CampaignID, &st.StepNumber, &st.Subject, &st.Body, &st.WaitHours,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("querying sequence step: %w", err)
	}
	return &st, nil
}
