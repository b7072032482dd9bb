// Package domain contains persistence models for the tenant read model.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Organization represents a tenant. Lifecycle is owned by the account
// system; this service only reads it.
type Organization struct {
	ID           snowflake.ID      `gorm:"primaryKey" json:"id"`
	Name         string            `gorm:"type:text;not null" json:"name"`
	Slug         string            `gorm:"type:text;not null;uniqueIndex:ux_organizations_slug" json:"slug"`
	TimezoneName string            `gorm:"column:timezone_name;not null;default:UTC" json:"timezone_name"`
	Metadata     datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`
	CreatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Organization) TableName() string { return "organizations" }

// Location returns the org's IANA time zone, falling back to UTC when
// the stored name is empty or unknown.
func (o Organization) Location() *time.Location {
	if o.TimezoneName == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(o.TimezoneName)
	if err != nil {
		return time.UTC
	}
	return loc
}
