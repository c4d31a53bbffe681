package store

import (
	"context"
	"fmt"
	"time"

	"github.com/arnab-netizen/AICMO-sub004/internal/domain"
	"github.com/jackc/pgx/v5"
)

const leadColumns = `id, campaign_id, email, first_name, last_name, state,
	sequence_step, last_contacted_at, last_reply_at, created_at, updated_at`

func scanLead(row interface{ Scan(...any) error }) (domain.Lead, error) {
	var l domain.Lead
	err := row.Scan(
		&l.ID, &l.CampaignID, &l.Email, &l.FirstName, &l.LastName, &l.State,
		&l.SequenceStep, &l.LastContactedAt, &l.LastReplyAt, &l.CreatedAt, &l.UpdatedAt,
	)
	return l, err
}

// GetLead returns a lead by ID, or nil when it does not exist.
func (s *PostgresStore) GetLead(ctx context.Context, id string) (*domain.Lead, error) {
	l, err := scanLead(s.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("querying lead: %w", err)
	}
	return &l, nil
}

// GetLeadByEmail matches an inbound sender address to a lead. Addresses
// are compared case-insensitively; the newest lead wins if an address
// appears in several campaigns.
func (s *PostgresStore) GetLeadByEmail(ctx context.Context, email string) (*domain.Lead, error) {
	l, err := scanLead(s.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE LOWER(email) = LOWER($1)
		ORDER BY created_at DESC
		LIMIT 1
	`, email))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("querying lead by email: %w", err)
	}
	return &l, nil
}

// MarkLeadContacted records a completed send: the lead enters contacted
// (from prospect) and its sequence position catches up to the step that
// just went out.
func (s *PostgresStore) MarkLeadContacted(ctx context.Context, leadID string, step int, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE leads
		SET state = CASE WHEN state = 'prospect' THEN 'contacted' ELSE state END,
		    sequence_step = GREATEST(sequence_step, $2),
		    last_contacted_at = $3,
		    updated_at = NOW()
		WHERE id = $1
	`, leadID, step, at)
	if err != nil {
		return fmt.Errorf("marking lead contacted: %w", err)
	}
	return nil
}

// SetLeadState applies a lifecycle transition.
func (s *PostgresStore) SetLeadState(ctx context.Context, leadID string, state domain.LeadState) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE leads SET state = $2, updated_at = NOW() WHERE id = $1
	`, leadID, state)
	if err != nil {
		return fmt.Errorf("setting lead state: %w", err)
	}
	return nil
}

// MarkLeadReplied stamps the last-reply time.
func (s *PostgresStore) MarkLeadReplied(ctx context.Context, leadID string, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE leads SET last_reply_at = $2, updated_at = NOW() WHERE id = $1
	`, leadID, at)
	if err != nil {
		return fmt.Errorf("marking lead replied: %w", err)
	}
	return nil
}

// ListSweepableLeads returns contacted leads in active campaigns whose
// last touch is older than the cutoff and who have not replied since.
// Terminal states never match: they are not 'contacted'.
func (s *PostgresStore) ListSweepableLeads(ctx context.Context, cutoff time.Time, limit int) ([]domain.Lead, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads l
		WHERE l.state = 'contacted'
		  AND l.last_contacted_at IS NOT NULL
		  AND l.last_contacted_at <= $1
		  AND (l.last_reply_at IS NULL OR l.last_reply_at < l.last_contacted_at)
		  AND EXISTS (SELECT 1 FROM campaigns c WHERE c.id = l.campaign_id AND c.is_active)
		ORDER BY l.last_contacted_at ASC
		LIMIT $2
	`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("querying sweepable leads: %w", err)
	}
	defer rows.Close()

	var leads []domain.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning lead: %w", err)
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}
