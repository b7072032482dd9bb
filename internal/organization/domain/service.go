package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	GetByID(ctx context.Context, id snowflake.ID) (*Organization, error)
	// StartOfDay converts a calendar date into the instant the org's day
	// begins, using the org's time zone.
	StartOfDay(ctx context.Context, orgID snowflake.ID, year int, month time.Month, day int) (time.Time, error)
}

var (
	ErrInvalidOrganization  = errors.New("invalid_organization")
	ErrOrganizationNotFound = errors.New("organization_not_found")
)
