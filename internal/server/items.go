package server

import (
	"net/http"
	"strings"

	itemdomain "github.com/essentialops/stockledger/internal/item/domain"
	"github.com/gin-gonic/gin"
)

type createItemRequest struct {
	Name         string `json:"name"`
	ValueInCents int64  `json:"value_in_cents,omitempty"`
}

func (s *Server) CreateItem(c *gin.Context) {
	var req createItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	created, err := s.itemSvc.Create(c.Request.Context(), itemdomain.CreateRequest{
		Name:         strings.TrimSpace(req.Name),
		ValueInCents: req.ValueInCents,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": created})
}

func (s *Server) GetItem(c *gin.Context) {
	found, err := s.itemSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": found})
}

func (s *Server) ListItems(c *gin.Context) {
	var query struct {
		IncludeDeactivated string `form:"include_deactivated"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	includeDeactivated, err := parseOptionalBool(query.IncludeDeactivated)
	if err != nil {
		AbortWithError(c, newValidationError("include_deactivated", "invalid_bool", "invalid include_deactivated"))
		return
	}

	items, err := s.itemSvc.List(c.Request.Context(), itemdomain.ListRequest{
		IncludeDeactivated: includeDeactivated,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) DeactivateItem(c *gin.Context) {
	if err := s.itemSvc.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"status": "deactivated"}})
}

func (s *Server) ReactivateItem(c *gin.Context) {
	if err := s.itemSvc.Reactivate(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"status": "active"}})
}
