// Package domain contains persistence models for trackable items.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Item is a trackable good. Name is unique per organization,
// case-insensitively, and serves as the listing sort key.
type Item struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID         snowflake.ID `gorm:"not null;index" json:"org_id"`
	Name          string       `gorm:"type:text;not null" json:"name"`
	ValueInCents  int64        `gorm:"column:value_in_cents;not null;default:0" json:"value_in_cents"`
	Active        bool         `gorm:"not null;default:true" json:"active"`
	DeactivatedAt *time.Time   `gorm:"column:deactivated_at" json:"deactivated_at,omitempty"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Item) TableName() string { return "items" }
