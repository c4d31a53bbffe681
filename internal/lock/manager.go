package lock

import (
	"context"
	"log/slog"
	"time"

	"github.com/arnab-netizen/AICMO-sub004/internal/domain"
)

// LeaseStore is the persistence the lock manager needs.
type LeaseStore interface {
	GetRunningLease(ctx context.Context) (*domain.WorkerLease, error)
	InsertLease(ctx context.Context, workerID string) error
	MarkLeaseDead(ctx context.Context, id string) error
	ReleaseLease(ctx context.Context, workerID string) (bool, error)
	TouchLease(ctx context.Context, workerID string) error
}

// Manager implements single-active-worker exclusion with a row lease and
// a wall-clock TTL. It only provides liveness, not linearizability: a
// worker that stops heartbeating for longer than the TTL loses its claim
// to the next caller of Acquire.
type Manager struct {
	leases   LeaseStore
	workerID string
	ttl      time.Duration
	logger   *slog.Logger
}

func NewManager(leases LeaseStore, workerID string, ttl time.Duration, logger *slog.Logger) *Manager {
	return &Manager{
		leases:   leases,
		workerID: workerID,
		ttl:      ttl,
		logger:   logger,
	}
}

// Acquire claims the lease. Any storage error is treated as "not
// acquired": the loop must never start on an unconfirmed claim.
func (m *Manager) Acquire(ctx context.Context) bool {
	current, err := m.leases.GetRunningLease(ctx)
	if err != nil {
		m.logger.Error("lease lookup failed, not acquiring", "error", err)
		return false
	}

	if current != nil {
		age := time.Since(current.LastHeartbeat)
		if age < m.ttl {
			if current.WorkerID != m.workerID {
				m.logger.Debug("lease held by another worker",
					"holder", current.WorkerID,
					"heartbeat_age", age.String(),
				)
			}
			// A fresh lease under our own worker ID also means "do not
			// start a second loop".
			return current.WorkerID == m.workerID
		}

		// Stale: the holder stopped heartbeating. Reclaim.
		if err := m.leases.MarkLeaseDead(ctx, current.ID); err != nil {
			m.logger.Error("failed to retire stale lease", "error", err, "holder", current.WorkerID)
			return false
		}
		m.logger.Warn("reclaimed stale lease",
			"previous_holder", current.WorkerID,
			"heartbeat_age", age.String(),
		)
	}

	if err := m.leases.InsertLease(ctx, m.workerID); err != nil {
		m.logger.Error("failed to insert lease", "error", err)
		return false
	}
	return true
}

// Heartbeat refreshes the lease so other workers keep seeing it as live.
func (m *Manager) Heartbeat(ctx context.Context) {
	if err := m.leases.TouchLease(ctx, m.workerID); err != nil {
		m.logger.Error("heartbeat failed", "error", err)
	}
}

// Release stops the caller's own lease. A no-op when another worker has
// since taken over.
func (m *Manager) Release(ctx context.Context) bool {
	released, err := m.leases.ReleaseLease(ctx, m.workerID)
	if err != nil {
		m.logger.Error("lease release failed", "error", err)
		return false
	}
	return released
}
