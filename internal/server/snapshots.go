package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) PublishSnapshot(c *gin.Context) {
	snap, err := s.snapshotSvc.Publish(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if snap == nil {
		// Another publisher holds the org's snapshot lock.
		c.JSON(http.StatusAccepted, gin.H{"data": gin.H{"status": "in_progress"}})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": snap})
}

func (s *Server) LatestSnapshot(c *gin.Context) {
	var query struct {
		Before string `form:"before"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	before, err := parseInstant(query.Before)
	if err != nil {
		AbortWithError(c, newValidationError("before", "invalid_before", "before must be RFC 3339"))
		return
	}

	at := s.clock.Now()
	if before != nil {
		at = *before
	}

	snap, err := s.snapshotSvc.LatestBefore(c.Request.Context(), at)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if snap == nil {
		c.JSON(http.StatusOK, gin.H{"data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": snap})
}

func (s *Server) VerifySnapshot(c *gin.Context) {
	if err := s.snapshotSvc.Verify(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"status": "verified"}})
}

// PruneSnapshot deletes events already covered by the snapshot. This is
// irreversible: reconstruction before the snapshot's watermark becomes
// impossible.
func (s *Server) PruneSnapshot(c *gin.Context) {
	deleted, err := s.snapshotSvc.PruneEventsThrough(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted_events": deleted}})
}
