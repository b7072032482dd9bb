package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ledgerdomain "github.com/essentialops/stockledger/internal/ledger/domain"
	reconstructdomain "github.com/essentialops/stockledger/internal/reconstruct/domain"
)

type reconstructStub struct {
	result reconstructdomain.Result
}

func (s *reconstructStub) Reconstruct(ctx context.Context, locFilter snowflake.ID, at time.Time) (reconstructdomain.Result, error) {
	return s.result, nil
}

func (s *reconstructStub) EventsBetween(ctx context.Context, from, to time.Time) ([]ledgerdomain.InventoryEvent, error) {
	return nil, nil
}

func TestReconstructionRowsAreOrdered(t *testing.T) {
	gin.SetMode(gin.TestMode)

	state := reconstructdomain.Result{
		{LocationID: 30, ItemID: 2}: 7,
		{LocationID: 10, ItemID: 9}: 3,
		{LocationID: 10, ItemID: 1}: 5,
		{LocationID: 20, ItemID: 5}: 2,
	}
	s := &Server{reconstructSvc: &reconstructStub{result: state}}

	r := gin.New()
	r.Use(ErrorHandlingMiddleware())
	r.GET("/v1/reconstruction", s.Reconstruction)

	fetch := func() []reconstructionRow {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/reconstruction?at=2026-03-15T12:00:00Z", nil)
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Data []reconstructionRow `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		return body.Data
	}

	first := fetch()
	require.Len(t, first, 4)
	assert.Equal(t, []reconstructionRow{
		{LocationID: "10", ItemID: "1", Quantity: 5},
		{LocationID: "10", ItemID: "9", Quantity: 3},
		{LocationID: "20", ItemID: "5", Quantity: 2},
		{LocationID: "30", ItemID: "2", Quantity: 7},
	}, first)

	assert.Equal(t, first, fetch())
}
