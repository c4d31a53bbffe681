package store

import (
	"context"
	"fmt"

	"github.com/arnab-netizen/AICMO-sub004/internal/domain"
	"github.com/jackc/pgx/v5"
)

// GetRunningLease returns the current running lease, or nil when no
// worker holds one.
func (s *PostgresStore) GetRunningLease(ctx context.Context) (*domain.WorkerLease, error) {
	var l domain.WorkerLease
	err := s.pool.QueryRow(ctx, `
		SELECT id, worker_id, status, last_heartbeat, acquired_at
		FROM worker_leases
		WHERE status = 'running'
		ORDER BY acquired_at DESC
		LIMIT 1
	`).Scan(&l.ID, &l.WorkerID, &l.Status, &l.LastHeartbeat, &l.AcquiredAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("querying running lease: %w", err)
	}
	return &l, nil
}

// InsertLease creates a fresh running lease for a worker.
func (s *PostgresStore) InsertLease(ctx context.Context, workerID string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO worker_leases (worker_id, status, last_heartbeat, acquired_at)
		VALUES ($1, 'running', NOW(), NOW())
	`, workerID)
	if err != nil {
		return fmt.Errorf("inserting lease: %w", err)
	}
	return nil
}

// MarkLeaseDead retires a stale lease by row ID.
func (s *PostgresStore) MarkLeaseDead(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE worker_leases SET status = 'dead' WHERE id = $1 AND status = 'running'
	`, id)
	if err != nil {
		return fmt.Errorf("marking lease dead: %w", err)
	}
	return nil
}

// ReleaseLease flips the caller's running lease to stopped. Reports false
// when no matching lease exists, so a stale worker cannot clobber a newer
// worker's lease.
func (s *PostgresStore) ReleaseLease(ctx context.Context, workerID string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE worker_leases SET status = 'stopped'
		WHERE worker_id = $1 AND status = 'running'
	`, workerID)
	if err != nil {
		return false, fmt.Errorf("releasing lease: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// TouchLease refreshes the heartbeat on the caller's running lease.
func (s *PostgresStore) TouchLease(ctx context.Context, workerID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE worker_leases SET last_heartbeat = NOW()
		WHERE worker_id = $1 AND status = 'running'
	`, workerID)
	if err != nil {
		return fmt.Errorf("touching lease: %w", err)
	}
	return nil
}
