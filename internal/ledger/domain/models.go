// Package domain contains the inventory ledger models: the append-only
// event log and the materialized current-quantity view it keeps in step.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// EventKind classifies a quantity-affecting operation.
type EventKind string

const (
	KindPurchase       EventKind = "purchase"
	KindDonation       EventKind = "donation"
	KindDistribution   EventKind = "distribution"
	KindTransferIn     EventKind = "transfer_in"
	KindTransferOut    EventKind = "transfer_out"
	KindAdjustment     EventKind = "adjustment"
	KindSnapshotAnchor EventKind = "snapshot_anchor"
)

func (k EventKind) Valid() bool {
	switch k {
	case KindPurchase, KindDonation, KindDistribution,
		KindTransferIn, KindTransferOut, KindAdjustment, KindSnapshotAnchor:
		return true
	}
	return false
}

// InventoryEvent is one immutable entry in the event log. Events are
// totally ordered within an organization by (occurred_at, sequence);
// sequence is strictly monotonic per org and assigned in the same
// transaction that updates the current view, so ties are deterministic.
type InventoryEvent struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	OrgID      snowflake.ID      `gorm:"not null;index;uniqueIndex:ux_inventory_events_org_sequence,priority:1" json:"org_id"`
	LocationID snowflake.ID      `gorm:"not null" json:"location_id"`
	ItemID     snowflake.ID      `gorm:"not null" json:"item_id"`
	Delta      int64             `gorm:"not null" json:"delta"`
	Kind       EventKind         `gorm:"type:text;not null" json:"kind"`
	OccurredAt time.Time         `gorm:"not null" json:"occurred_at"`
	Sequence   int64             `gorm:"not null;uniqueIndex:ux_inventory_events_org_sequence,priority:2" json:"sequence"`
	ActorType  string            `gorm:"type:text;not null;default:''" json:"actor_type"`
	ActorID    *string           `gorm:"type:text" json:"actor_id,omitempty"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (InventoryEvent) TableName() string { return "inventory_events" }

// CurrentInventoryRecord is the materialized quantity for one
// (org, location, item) key. It is only ever written by the append path,
// inside the same transaction as the event insert, and must always equal
// the sum of committed event deltas for its key.
type CurrentInventoryRecord struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID      snowflake.ID `gorm:"not null;uniqueIndex:ux_current_inventory_key,priority:1" json:"org_id"`
	LocationID snowflake.ID `gorm:"not null;uniqueIndex:ux_current_inventory_key,priority:2" json:"location_id"`
	ItemID     snowflake.ID `gorm:"not null;uniqueIndex:ux_current_inventory_key,priority:3" json:"item_id"`
	Quantity   int64        `gorm:"not null;default:0" json:"quantity"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (CurrentInventoryRecord) TableName() string { return "current_inventory_records" }

// LedgerSequence is the per-organization sequence counter. Updating this
// row serializes appends for the org.
type LedgerSequence struct {
	OrgID        snowflake.ID `gorm:"primaryKey"`
	LastSequence int64        `gorm:"not null;default:0"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (LedgerSequence) TableName() string { return "ledger_sequences" }
