package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	ledgerdomain "github.com/essentialops/stockledger/internal/ledger/domain"
	locationdomain "github.com/essentialops/stockledger/internal/location/domain"
	reconstructdomain "github.com/essentialops/stockledger/internal/reconstruct/domain"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestMapErrorStatuses(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", ledgerdomain.ErrInvalidDelta, http.StatusBadRequest},
		{"not found", ledgerdomain.ErrItemNotFound, http.StatusNotFound},
		{"conflict", ledgerdomain.ErrConcurrentModification, http.StatusConflict},
		{"deactivated location", ledgerdomain.ErrLocationDeactivated, http.StatusConflict},
		{"has inventory", locationdomain.ErrLocationHasInventory, http.StatusConflict},
		{"insufficient", ledgerdomain.ErrInsufficientQuantity, http.StatusUnprocessableEntity},
		{"too many events", &reconstructdomain.TooManyEventsError{Count: 10, Limit: 5}, http.StatusUnprocessableEntity},
		{"pruned history", reconstructdomain.ErrHistoryPruned, http.StatusInternalServerError},
		{"unknown", assert.AnError, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, _ := mapError(tc.err)
			assert.Equal(t, tc.status, status)
		})
	}
}

func TestRequireOrgHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandlingMiddleware())
	r.GET("/ping", RequireOrg(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Missing header.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Malformed header.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(OrgIDHeader, "not-a-snowflake")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Valid header.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(OrgIDHeader, "1234567890123456789")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
