package server

import (
	"net/http"
	"strings"
	"time"

	ledgerdomain "github.com/essentialops/stockledger/internal/ledger/domain"
	"github.com/gin-gonic/gin"
)

type appendTransferRequest struct {
	FromLocationID string         `json:"from_location_id"`
	ToLocationID   string         `json:"to_location_id"`
	ItemID         string         `json:"item_id"`
	Quantity       int64          `json:"quantity"`
	OccurredAt     *time.Time     `json:"occurred_at,omitempty"`
	ActorType      string         `json:"actor_type,omitempty"`
	ActorID        *string        `json:"actor_id,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

func (s *Server) AppendTransfer(c *gin.Context) {
	var req appendTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	fromID, err := parseID(req.FromLocationID)
	if err != nil {
		AbortWithError(c, newValidationError("from_location_id", "invalid_location_id", "invalid from_location_id"))
		return
	}
	toID, err := parseID(req.ToLocationID)
	if err != nil {
		AbortWithError(c, newValidationError("to_location_id", "invalid_location_id", "invalid to_location_id"))
		return
	}
	itemID, err := parseID(req.ItemID)
	if err != nil {
		AbortWithError(c, newValidationError("item_id", "invalid_item_id", "invalid item_id"))
		return
	}

	transferReq := ledgerdomain.TransferRequest{
		FromLocationID: fromID,
		ToLocationID:   toID,
		ItemID:         itemID,
		Quantity:       req.Quantity,
		ActorType:      strings.TrimSpace(req.ActorType),
		ActorID:        req.ActorID,
		Metadata:       req.Metadata,
	}
	if req.OccurredAt != nil {
		transferReq.OccurredAt = *req.OccurredAt
	}

	events, err := s.ledgerSvc.AppendTransfer(c.Request.Context(), transferReq)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": events})
}
