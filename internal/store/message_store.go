package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arnab-netizen/AICMO-sub004/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
)

const messageColumns = `id, lead_id, campaign_id, recipient, subject, body, fingerprint,
	sequence_number, status, retry_count, scheduled_at, sent_at, provider_message_id,
	last_error, created_at`

func scanMessage(row interface{ Scan(...any) error }) (domain.OutboundMessage, error) {
	var m domain.OutboundMessage
	err := row.Scan(
		&m.ID, &m.LeadID, &m.CampaignID, &m.Recipient, &m.Subject, &m.Body,
		&m.Fingerprint, &m.SequenceNumber, &m.Status, &m.RetryCount,
		&m.ScheduledAt, &m.SentAt, &m.ProviderMessageID, &m.LastError, &m.CreatedAt,
	)
	return m, err
}

// ListDueMessages returns queued messages whose scheduled time has passed,
// oldest first, for campaigns that are still active. Sent and failed
// messages are never reselected — that filter is what makes a rerun after
// a crash safe.
func (s *PostgresStore) ListDueMessages(ctx context.Context, limit int) ([]domain.OutboundMessage, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+messageColumns+`
		FROM outbound_messages m
		WHERE m.status = 'queued'
		  AND m.scheduled_at <= NOW()
		  AND EXISTS (SELECT 1 FROM campaigns c WHERE c.id = m.campaign_id AND c.is_active)
		ORDER BY m.scheduled_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying due messages: %w", err)
	}
	defer rows.Close()

	var msgs []domain.OutboundMessage
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning due message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// MarkMessageSent flips a queued message to sent. The status filter makes
// the update conditional: a message another run already sent reports
// false instead of being double-marked.
func (s *PostgresStore) MarkMessageSent(ctx context.Context, id, providerMessageID string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE outbound_messages
		SET status = 'sent', sent_at = NOW(), provider_message_id = $2, last_error = NULL
		WHERE id = $1 AND status = 'queued'
	`, id, providerMessageID)
	if err != nil {
		return false, fmt.Errorf("marking message sent: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// RescheduleMessage pushes a failed send back into the queue with a later
// scheduled time and an incremented retry count.
func (s *PostgresStore) RescheduleMessage(ctx context.Context, id string, nextAt time.Time, reason string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE outbound_messages
		SET retry_count = retry_count + 1, scheduled_at = $2, last_error = $3
		WHERE id = $1 AND status = 'queued'
	`, id, nextAt, reason)
	if err != nil {
		return fmt.Errorf("rescheduling message: %w", err)
	}
	return nil
}

// MarkMessageFailed retires a message after its retry budget is spent.
func (s *PostgresStore) MarkMessageFailed(ctx context.Context, id, reason string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE outbound_messages
		SET status = 'failed', retry_count = retry_count + 1, last_error = $2
		WHERE id = $1 AND status = 'queued'
	`, id, reason)
	if err != nil {
		return fmt.Errorf("marking message failed: %w", err)
	}
	return nil
}

// EnqueueMessage inserts a new queued message. Returns false without error
// when the (lead, fingerprint, sequence) key already exists.
func (s *PostgresStore) EnqueueMessage(ctx context.Context, m *domain.OutboundMessage) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO outbound_messages
			(lead_id, campaign_id, recipient, subject, body, fingerprint, sequence_number, scheduled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (lead_id, fingerprint, sequence_number) DO NOTHING
	`, m.LeadID, m.CampaignID, m.Recipient, m.Subject, m.Body, m.Fingerprint, m.SequenceNumber, m.ScheduledAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return false, nil
		}
		return false, fmt.Errorf("enqueueing message: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// CountQueuedForLead reports pending sends for a lead, used by the sweep
// to avoid stacking a new touch on top of one still in the queue.
func (s *PostgresStore) CountQueuedForLead(ctx context.Context, leadID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM outbound_messages WHERE lead_id = $1 AND status = 'queued'
	`, leadID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting queued messages: %w", err)
	}
	return n, nil
}
