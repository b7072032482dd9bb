package server

import (
	"net/http"
	"strings"

	locationdomain "github.com/essentialops/stockledger/internal/location/domain"
	"github.com/gin-gonic/gin"
)

type createLocationRequest struct {
	Name          string `json:"name"`
	Address       string `json:"address,omitempty"`
	SquareFootage *int64 `json:"square_footage,omitempty"`
	WarehouseType string `json:"warehouse_type,omitempty"`
}

func (s *Server) CreateLocation(c *gin.Context) {
	var req createLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	loc, err := s.locationSvc.Create(c.Request.Context(), locationdomain.CreateRequest{
		Name:          strings.TrimSpace(req.Name),
		Address:       strings.TrimSpace(req.Address),
		SquareFootage: req.SquareFootage,
		WarehouseType: strings.TrimSpace(req.WarehouseType),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": loc})
}

func (s *Server) GetLocation(c *gin.Context) {
	loc, err := s.locationSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": loc})
}

func (s *Server) ListLocations(c *gin.Context) {
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

	locations, err := s.locationSvc.List(c.Request.Context(), locationdomain.ListRequest{
		IncludeDeactivated: includeDeactivated,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": locations})
}

func (s *Server) DeactivateLocation(c *gin.Context) {
	if err := s.locationSvc.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"status": "deactivated"}})
}

func (s *Server) ReactivateLocation(c *gin.Context) {
	if err := s.locationSvc.Reactivate(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"status": "active"}})
}
