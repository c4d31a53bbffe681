package domain

import (
	"time"
)

// LeaseStatus is the state of a worker lease row.
type LeaseStatus string

const (
	LeaseRunning LeaseStatus = "running"
	LeaseStopped LeaseStatus = "stopped"
	LeaseDead    LeaseStatus = "dead"
)

// WorkerLease is the single-active-worker record. At most one row is
// running at a time; the lock manager enforces that, not a constraint.
type WorkerLease struct {
	ID            string      `json:"id"`
	WorkerID      string      `json:"worker_id"`
	Status        LeaseStatus `json:"status"`
	LastHeartbeat time.Time   `json:"last_heartbeat"`
	AcquiredAt    time.Time   `json:"acquired_at"`
}
