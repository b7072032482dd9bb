package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/essentialops/stockledger/internal/ledger/domain"
	"github.com/gin-gonic/gin"
)

type appendEventRequest struct {
	LocationID string         `json:"location_id"`
	ItemID     string         `json:"item_id"`
	Delta      int64          `json:"delta"`
	Kind       string         `json:"kind"`
	OccurredAt *time.Time     `json:"occurred_at,omitempty"`
	ActorType  string         `json:"actor_type,omitempty"`
	ActorID    *string        `json:"actor_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func (s *Server) AppendEvent(c *gin.Context) {
	var req appendEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	locationID, err := parseID(req.LocationID)
	if err != nil {
		AbortWithError(c, newValidationError("location_id", "invalid_location_id", "invalid location_id"))
		return
	}
	itemID, err := parseID(req.ItemID)
	if err != nil {
		AbortWithError(c, newValidationError("item_id", "invalid_item_id", "invalid item_id"))
		return
	}

	appendReq := ledgerdomain.AppendRequest{
		LocationID: locationID,
		ItemID:     itemID,
		Delta:      req.Delta,
		Kind:       ledgerdomain.EventKind(strings.TrimSpace(req.Kind)),
		ActorType:  strings.TrimSpace(req.ActorType),
		ActorID:    req.ActorID,
		Metadata:   req.Metadata,
	}
	if req.OccurredAt != nil {
		appendReq.OccurredAt = *req.OccurredAt
	}

	event, err := s.ledgerSvc.Append(c.Request.Context(), appendReq)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": event})
}

func (s *Server) ListEvents(c *gin.Context) {
	var query struct {
		From string `form:"from"`
		To   string `form:"to"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	from, err := parseInstant(query.From)
	if err != nil || from == nil {
		AbortWithError(c, newValidationError("from", "invalid_from", "from must be RFC 3339"))
		return
	}
	to, err := parseInstant(query.To)
	if err != nil || to == nil {
		AbortWithError(c, newValidationError("to", "invalid_to", "to must be RFC 3339"))
		return
	}

	events, err := s.reconstructSvc.EventsBetween(c.Request.Context(), *from, *to)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": events})
}

func parseID(raw string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(raw))
}

// parseInstant accepts an RFC 3339 timestamp; empty means "not given".
func parseInstant(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}
