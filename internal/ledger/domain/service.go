package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type AppendRequest struct {
	LocationID snowflake.ID
	ItemID     snowflake.ID
	Delta      int64
	Kind       EventKind
	OccurredAt time.Time // zero means "now"
	ActorType  string
	ActorID    *string
	Metadata   map[string]any
}

type TransferRequest struct {
	FromLocationID snowflake.ID
	ToLocationID   snowflake.ID
	ItemID         snowflake.ID
	Quantity       int64
	OccurredAt     time.Time
	ActorType      string
	ActorID        *string
	Metadata       map[string]any
}

type Service interface {
	// Append validates, sequences and commits one event together with
	// the current-view update, atomically.
	Append(ctx context.Context, req AppendRequest) (*InventoryEvent, error)
	// AppendTransfer commits the paired transfer_out/transfer_in events
	// between two locations in a single transaction.
	AppendTransfer(ctx context.Context, req TransferRequest) ([]*InventoryEvent, error)
	// Get returns the current quantity for a key, zero if no row exists.
	Get(ctx context.Context, locationID, itemID snowflake.ID) (int64, error)
	// List returns current records for a location; zero rows only on request.
	List(ctx context.Context, locationID snowflake.ID, includeZero bool) ([]CurrentInventoryRecord, error)
	// PurgeThrough deletes events with sequence at or below the given
	// watermark. Callers must only pass watermarks covered by a snapshot.
	PurgeThrough(ctx context.Context, watermark int64) (int64, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidLocation     = errors.New("invalid_location")
	ErrInvalidItem         = errors.New("invalid_item")
	ErrInvalidDelta        = errors.New("invalid_delta")
	ErrInvalidKind         = errors.New("invalid_kind")
	ErrInvalidQuantity     = errors.New("invalid_quantity")
	// ErrFutureOccurredAt rejects events stamped ahead of the clock; the
	// current view applies deltas immediately, so a future occurred_at
	// would disagree with any reconstruction before that instant.
	ErrFutureOccurredAt       = errors.New("future_occurred_at")
	ErrSameLocation           = errors.New("same_location")
	ErrLocationNotFound       = errors.New("location_not_found")
	ErrLocationDeactivated    = errors.New("location_deactivated")
	ErrItemNotFound           = errors.New("item_not_found")
	ErrInsufficientQuantity   = errors.New("insufficient_quantity")
	ErrConcurrentModification = errors.New("concurrent_modification")
)
