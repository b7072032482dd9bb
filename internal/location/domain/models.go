// Package domain contains persistence models for storage locations.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// StorageLocation is a physical site inventory moves through. Locations
// are never physically deleted; deactivation is a tombstone so that
// historical reconstruction keeps resolving the site.
type StorageLocation struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID         snowflake.ID `gorm:"not null;index" json:"org_id"`
	Name          string       `gorm:"type:text;not null" json:"name"`
	Address       string       `gorm:"type:text;not null;default:''" json:"address"`
	SquareFootage *int64       `gorm:"column:square_footage" json:"square_footage,omitempty"`
	WarehouseType string       `gorm:"type:text;not null;default:''" json:"warehouse_type"`
	Active        bool         `gorm:"not null;default:true" json:"active"`
	DeactivatedAt *time.Time   `gorm:"column:deactivated_at" json:"deactivated_at,omitempty"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (StorageLocation) TableName() string { return "storage_locations" }
