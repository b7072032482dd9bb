package server

import (
	"net/http"
	"strings"

	recordversiondomain "github.com/essentialops/stockledger/internal/recordversion/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) ListRecordVersions(c *gin.Context) {
	var query struct {
		RecordType string `form:"record_type"`
		RecordID   string `form:"record_id"`
		Field      string `form:"field"`
		StartAt    string `form:"start_at"`
		EndAt      string `form:"end_at"`
		PageToken  string `form:"page_token"`
		PageSize   int    `form:"page_size"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	startAt, err := parseInstant(query.StartAt)
	if err != nil {
		AbortWithError(c, newValidationError("start_at", "invalid_start_at", "start_at must be RFC 3339"))
		return
	}
	endAt, err := parseInstant(query.EndAt)
	if err != nil {
		AbortWithError(c, newValidationError("end_at", "invalid_end_at", "end_at must be RFC 3339"))
		return
	}

	resp, err := s.versionSvc.List(c.Request.Context(), recordversiondomain.ListRequest{
		RecordType: strings.TrimSpace(query.RecordType),
		RecordID:   strings.TrimSpace(query.RecordID),
		Field:      strings.TrimSpace(query.Field),
		StartAt:    startAt,
		EndAt:      endAt,
		PageToken:  strings.TrimSpace(query.PageToken),
		PageSize:   query.PageSize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
