// Package domain contains the field-level version history models.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// RecordVersion is an immutable field-level change record. It
// supplements the event log when a consumer needs "last observed
// absolute value" rather than a sum of deltas.
type RecordVersion struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	OrgID      snowflake.ID      `gorm:"not null;index" json:"org_id"`
	RecordType string            `gorm:"type:text;not null" json:"record_type"`
	RecordID   snowflake.ID      `gorm:"not null" json:"record_id"`
	Field      string            `gorm:"type:text;not null" json:"field"`
	OldValue   *string           `gorm:"type:text" json:"old_value"`
	NewValue   *string           `gorm:"type:text" json:"new_value"`
	ActorType  string            `gorm:"type:text;not null;default:''" json:"actor_type"`
	ActorID    *string           `gorm:"type:text" json:"actor_id"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (RecordVersion) TableName() string { return "record_versions" }

// Record types tracked today.
const (
	RecordTypeCurrentInventory = "current_inventory_record"
	RecordTypeStorageLocation  = "storage_location"
	RecordTypeItem             = "item"
)
