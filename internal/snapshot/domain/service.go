package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	// Publish copies the current view for the context org at a consistent
	// point and persists it as a new snapshot.
	Publish(ctx context.Context) (*Snapshot, error)
	// LatestBefore returns the newest snapshot published at or before t,
	// or nil when none exists (genesis).
	LatestBefore(ctx context.Context, t time.Time) (*Snapshot, error)
	Entries(ctx context.Context, snapshot *Snapshot) ([]SnapshotEntry, error)
	// Verify recomputes the snapshot by full replay and compares. A
	// mismatch is a fatal integrity failure, not a retryable condition.
	Verify(ctx context.Context, snapshotID string) error
	// PruneEventsThrough deletes ledger events covered by the given
	// snapshot. Reconstruction at or after the snapshot stays exact.
	PruneEventsThrough(ctx context.Context, snapshotID string) (int64, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidSnapshot     = errors.New("invalid_snapshot")
	ErrSnapshotNotFound    = errors.New("snapshot_not_found")
	ErrSnapshotDivergence  = errors.New("snapshot_divergence")
	ErrHistoryPruned       = errors.New("history_pruned")
)
