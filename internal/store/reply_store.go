package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arnab-netizen/AICMO-sub004/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const replyColumns = `id, provider, provider_uid, lead_id, campaign_id, from_address,
	subject, body, category, confidence, classify_reason, alert_sent, received_at, created_at`

func scanReply(row interface{ Scan(...any) error }) (domain.InboundReply, error) {
	var r domain.InboundReply
	err := row.Scan(
		&r.ID, &r.Provider, &r.ProviderUID, &r.LeadID, &r.CampaignID, &r.FromAddress,
		&r.Subject, &r.Body, &r.Category, &r.Confidence, &r.ClassifyReason,
		&r.AlertSent, &r.ReceivedAt, &r.CreatedAt,
	)
	return r, err
}

// InsertReply persists an ingested message with insert-or-ignore
// semantics on (provider, provider_uid). Returns false when the message
// was already on file.
func (s *PostgresStore) InsertReply(ctx context.Context, r *domain.InboundReply) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO inbound_replies
			(provider, provider_uid, lead_id, campaign_id, from_address, subject, body, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (provider, provider_uid) DO NOTHING
	`, r.Provider, r.ProviderUID, r.LeadID, r.CampaignID, r.FromAddress, r.Subject, r.Body, r.ReceivedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return false, nil
		}
		return false, fmt.Errorf("inserting reply: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListUnclassifiedReplies returns replies the classifier has not seen yet,
// oldest first. A classified reply is never reselected, which is what
// makes reply processing idempotent across reruns.
func (s *PostgresStore) ListUnclassifiedReplies(ctx context.Context, limit int) ([]domain.InboundReply, error) {
	return s.listReplies(ctx, `
		SELECT `+replyColumns+` FROM inbound_replies
		WHERE category IS NULL
		ORDER BY received_at ASC
		LIMIT $1
	`, limit)
}

// SetReplyClassification records the classifier verdict. Conditional on
// the reply still being unclassified; reports whether this call won.
func (s *PostgresStore) SetReplyClassification(ctx context.Context, id string, category domain.ReplyCategory, confidence float64, reason string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE inbound_replies
		SET category = $2, confidence = $3, classify_reason = $4
		WHERE id = $1 AND category IS NULL
	`, id, category, confidence, reason)
	if err != nil {
		return false, fmt.Errorf("classifying reply: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListAlertPendingReplies returns positive replies nobody has been
// notified about yet.
func (s *PostgresStore) ListAlertPendingReplies(ctx context.Context, limit int) ([]domain.InboundReply, error) {
	return s.listReplies(ctx, `
		SELECT `+replyColumns+` FROM inbound_replies
		WHERE category = 'positive' AND alert_sent = false
		ORDER BY received_at ASC
		LIMIT $1
	`, limit)
}

// MarkReplyAlerted flips the alert-sent flag, conditionally, so two runs
// racing over the same reply can only notify once.
func (s *PostgresStore) MarkReplyAlerted(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE inbound_replies SET alert_sent = true
		WHERE id = $1 AND alert_sent = false
	`, id)
	if err != nil {
		return false, fmt.Errorf("marking reply alerted: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListReplies returns recent replies for the operator API, optionally
// filtered by category.
func (s *PostgresStore) ListReplies(ctx context.Context, category string, limit int) ([]domain.InboundReply, error) {
	if category != "" {
		return s.listReplies(ctx, `
			SELECT `+replyColumns+` FROM inbound_replies
			WHERE category = $2
			ORDER BY received_at DESC
			LIMIT $1
		`, limit, category)
	}
	return s.listReplies(ctx, `
		SELECT `+replyColumns+` FROM inbound_replies
		ORDER BY received_at DESC
		LIMIT $1
	`, limit)
}

func (s *PostgresStore) listReplies(ctx context.Context, query string, args ...any) ([]domain.InboundReply, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying replies: %w", err)
	}
	defer rows.Close()

	var replies []domain.InboundReply
	for rows.Next() {
		r, err := scanReply(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning reply: %w", err)
		}
		replies = append(replies, r)
	}

	if replies == nil {
		replies = []domain.InboundReply{}
	}
	return replies, rows.Err()
}

// GetCheckpoint returns the durable high-water mark for a provider's
// inbox poll window. Zero time when the provider has never been polled.
func (s *PostgresStore) GetCheckpoint(ctx context.Context, provider string) (time.Time, error) {
	var t time.Time
	err := s.pool.QueryRow(ctx, `
		SELECT last_seen_at FROM ingest_checkpoints WHERE provider = $1
	`, provider).Scan(&t)
	if err != nil {
		if err == pgx.ErrNoRows {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("querying checkpoint: %w", err)
	}
	return t, nil
}

// SetCheckpoint advances the poll window. It never moves backwards.
func (s *PostgresStore) SetCheckpoint(ctx context.Context, provider string, t time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO ingest_checkpoints (provider, last_seen_at, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (provider) DO UPDATE
		SET last_seen_at = GREATEST(ingest_checkpoints.last_seen_at, EXCLUDED.last_seen_at),
		    updated_at = NOW()
	`, provider, t)
	if err != nil {
		return fmt.Errorf("setting checkpoint: %w", err)
	}
	return nil
}
