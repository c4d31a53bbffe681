package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/arnab-netizen/AICMO-sub004/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
)

// InsertAlertLog records one dispatched notification. Returns false when
// an entry with the same idempotency key already exists.
func (s *PostgresStore) InsertAlertLog(ctx context.Context, e *domain.AlertLogEntry) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO alert_log (idempotency_key, reply_id, recipients, success)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (idempotency_key) DO NOTHING
	`, e.IdempotencyKey, e.ReplyID, e.Recipients, e.Success)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return false, nil
		}
		return false, fmt.Errorf("inserting alert log entry: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListAlertLog returns recent alert log entries for the operator API.
func (s *PostgresStore) ListAlertLog(ctx context.Context, limit int) ([]domain.AlertLogEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, idempotency_key, reply_id, recipients, success, created_at
		FROM alert_log
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying alert log: %w", err)
	}
	defer rows.Close()

	var entries []domain.AlertLogEntry
	for rows.Next() {
		var e domain.AlertLogEntry
		if err := rows.Scan(&e.ID, &e.IdempotencyKey, &e.ReplyID, &e.Recipients, &e.Success, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning alert log entry: %w", err)
		}
		entries = append(entries, e)
	}

	if entries == nil {
		entries = []domain.AlertLogEntry{}
	}
	return entries, rows.Err()
}
