package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	OrgID      snowflake.ID
	RecordType string
	RecordID   snowflake.ID
	Field      string
	StartAt    *time.Time
	EndAt      *time.Time
	Cursor     *Cursor
	Limit      int
}

type Cursor struct {
	CreatedAt time.Time
	ID        snowflake.ID
}

type ListRequest struct {
	RecordType string
	RecordID   string
	Field      string
	StartAt    *time.Time
	EndAt      *time.Time
	PageToken  string
	PageSize   int
}

type ListResponse struct {
	Versions      []RecordVersion `json:"versions"`
	NextPageToken string          `json:"next_page_token"`
	HasMore       bool            `json:"has_more"`
}

type Repository interface {
	// Insert writes a version row on the given handle so callers can
	// include it in their own transaction.
	Insert(ctx context.Context, db *gorm.DB, version *RecordVersion) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*RecordVersion, error)
}

type Service interface {
	// Track records one field-level change inside the caller's transaction.
	Track(ctx context.Context, tx *gorm.DB, version *RecordVersion) error
	List(ctx context.Context, req ListRequest) (ListResponse, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidPageToken    = errors.New("invalid_page_token")
	ErrInvalidTimeRange    = errors.New("invalid_time_range")
	ErrInvalidRecordType   = errors.New("invalid_record_type")
)
