// Package domain contains the snapshot checkpoint models. A snapshot is
// a cache of replay, never a source of truth: it must always equal full
// replay of the event log up to its watermark.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Snapshot is an immutable full-state checkpoint for one organization.
// EventSequence is the ledger sequence watermark the copy observed;
// reconstruction replays strictly above it, so a snapshot and the events
// it covers are never double-counted.
type Snapshot struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID         snowflake.ID `gorm:"not null;index" json:"org_id"`
	PublishedAt   time.Time    `gorm:"not null" json:"published_at"`
	EventSequence int64        `gorm:"column:event_sequence;not null" json:"event_sequence"`
	EntryCount    int64        `gorm:"not null;default:0" json:"entry_count"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Snapshot) TableName() string { return "snapshots" }

// SnapshotEntry is one (location, item) → quantity pair in a snapshot.
// Zero quantities are not stored; absence means zero.
type SnapshotEntry struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	SnapshotID snowflake.ID `gorm:"not null;uniqueIndex:ux_snapshot_entries_key,priority:1" json:"snapshot_id"`
	LocationID snowflake.ID `gorm:"not null;uniqueIndex:ux_snapshot_entries_key,priority:2" json:"location_id"`
	ItemID     snowflake.ID `gorm:"not null;uniqueIndex:ux_snapshot_entries_key,priority:3" json:"item_id"`
	Quantity   int64        `gorm:"not null" json:"quantity"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (SnapshotEntry) TableName() string { return "snapshot_entries" }
