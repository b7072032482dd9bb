// Package domain defines the historical reconstruction contract: point
// in time state is the nearest prior snapshot plus replay of the events
// above its watermark.
package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/essentialops/stockledger/internal/ledger/domain"
)

// Key addresses one (location, item) quantity.
type Key struct {
	LocationID snowflake.ID `json:"location_id"`
	ItemID     snowflake.ID `json:"item_id"`
}

// Result maps keys to reconstructed quantities. Keys whose quantity is
// zero are omitted.
type Result map[Key]int64

type Service interface {
	// Reconstruct returns quantities as of instant at. When locFilter is
	// nonzero the output is restricted to that location after replay.
	Reconstruct(ctx context.Context, locFilter snowflake.ID, at time.Time) (Result, error)
	// EventsBetween lists events with from <= occurred_at <= to in replay order.
	EventsBetween(ctx context.Context, from, to time.Time) ([]ledgerdomain.InventoryEvent, error)
}

// TooManyEventsError rejects a replay window larger than policy allows.
// Narrow the query or publish a closer snapshot.
type TooManyEventsError struct {
	Count int64
	Limit int
}

func (e *TooManyEventsError) Error() string {
	return fmt.Sprintf("replay window of %d events exceeds the configured limit of %d", e.Count, e.Limit)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidInstant      = errors.New("invalid_instant")
	ErrInvalidTimeRange    = errors.New("invalid_time_range")
	// ErrHistoryPruned means events needed for this window were purged;
	// the result would be wrong, so none is returned.
	ErrHistoryPruned = errors.New("history_pruned")
)
