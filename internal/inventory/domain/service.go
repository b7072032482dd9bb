// Package domain defines the read-side aggregation contract: per
// location item listings over either the current view or a historical
// instant.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// ItemRow is one line of a location's inventory listing.
type ItemRow struct {
	ItemID   snowflake.ID `json:"item_id"`
	ItemName string       `json:"item_name"`
	Quantity int64        `json:"quantity"`
}

// LocationItemRow is one line of an org-wide quantities listing.
type LocationItemRow struct {
	LocationID snowflake.ID `json:"location_id"`
	ItemID     snowflake.ID `json:"item_id"`
	ItemName   string       `json:"item_name"`
	Quantity   int64        `json:"quantity"`
}

// Query selects which rows ItemsForLocation returns. At nil means the
// current view; set, it reconstructs state as of that instant.
type Query struct {
	LocationID snowflake.ID
	At         *time.Time
	// IncludeDeactivatedItems keeps rows for items that have been
	// deactivated since the quantity arose.
	IncludeDeactivatedItems bool
	// IncludeOmittedItems adds a zero row for every catalog item the
	// location holds none of.
	IncludeOmittedItems bool
}

type Service interface {
	// ItemsForLocation lists a location's items with quantities, sorted by
	// case-insensitive name then ID.
	ItemsForLocation(ctx context.Context, q Query) ([]ItemRow, error)
	// CurrentQuantities lists every nonzero (location, item) quantity in
	// the org's current view.
	CurrentQuantities(ctx context.Context) ([]LocationItemRow, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidLocation     = errors.New("invalid_location")
	ErrLocationNotFound    = errors.New("location_not_found")
)
