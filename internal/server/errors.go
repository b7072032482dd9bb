package server

import (
	"errors"
	"net/http"

	inventorydomain "github.com/essentialops/stockledger/internal/inventory/domain"
	itemdomain "github.com/essentialops/stockledger/internal/item/domain"
	ledgerdomain "github.com/essentialops/stockledger/internal/ledger/domain"
	locationdomain "github.com/essentialops/stockledger/internal/location/domain"
	organizationdomain "github.com/essentialops/stockledger/internal/organization/domain"
	reconstructdomain "github.com/essentialops/stockledger/internal/reconstruct/domain"
	recordversiondomain "github.com/essentialops/stockledger/internal/recordversion/domain"
	snapshotdomain "github.com/essentialops/stockledger/internal/snapshot/domain"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	var vErrs *ValidationErrors
	if errors.As(err, &vErrs) {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErrs.Errors,
		}
	}

	var tooMany *reconstructdomain.TooManyEventsError
	if errors.As(err, &tooMany) {
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "too_many_events",
			Message: tooMany.Error() + "; narrow the window or publish a snapshot",
		}
	}

	switch {
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: err.Error(),
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case errors.Is(err, ledgerdomain.ErrInsufficientQuantity):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "insufficient_quantity",
			Message: "the operation would drive a quantity below zero",
		}
	case isIntegrityError(err):
		// Integrity failures are server-side data problems, never the
		// caller's fault.
		return http.StatusInternalServerError, errorPayload{
			Type:    "integrity_error",
			Message: err.Error(),
		}
	}

	return http.StatusInternalServerError, errorPayload{
		Type:    "internal_error",
		Message: "internal server error",
	}
}

func isValidationError(err error) bool {
	for _, candidate := range []error{
		ledgerdomain.ErrInvalidOrganization,
		ledgerdomain.ErrInvalidLocation,
		ledgerdomain.ErrInvalidItem,
		ledgerdomain.ErrInvalidDelta,
		ledgerdomain.ErrInvalidKind,
		ledgerdomain.ErrInvalidQuantity,
		ledgerdomain.ErrFutureOccurredAt,
		ledgerdomain.ErrSameLocation,
		locationdomain.ErrInvalidOrganization,
		locationdomain.ErrInvalidName,
		locationdomain.ErrInvalidLocation,
		itemdomain.ErrInvalidOrganization,
		itemdomain.ErrInvalidName,
		itemdomain.ErrInvalidItem,
		organizationdomain.ErrInvalidOrganization,
		inventorydomain.ErrInvalidOrganization,
		inventorydomain.ErrInvalidLocation,
		reconstructdomain.ErrInvalidOrganization,
		reconstructdomain.ErrInvalidInstant,
		reconstructdomain.ErrInvalidTimeRange,
		recordversiondomain.ErrInvalidOrganization,
		recordversiondomain.ErrInvalidPageToken,
		recordversiondomain.ErrInvalidTimeRange,
		recordversiondomain.ErrInvalidRecordType,
		snapshotdomain.ErrInvalidOrganization,
		snapshotdomain.ErrInvalidSnapshot,
	} {
		if errors.Is(err, candidate) {
			return true
		}
	}
	return false
}

func isNotFoundError(err error) bool {
	for _, candidate := range []error{
		gorm.ErrRecordNotFound,
		ledgerdomain.ErrLocationNotFound,
		ledgerdomain.ErrItemNotFound,
		locationdomain.ErrLocationNotFound,
		itemdomain.ErrItemNotFound,
		organizationdomain.ErrOrganizationNotFound,
		inventorydomain.ErrLocationNotFound,
		snapshotdomain.ErrSnapshotNotFound,
	} {
		if errors.Is(err, candidate) {
			return true
		}
	}
	return false
}

func isConflictError(err error) bool {
	for _, candidate := range []error{
		ledgerdomain.ErrConcurrentModification,
		ledgerdomain.ErrLocationDeactivated,
		locationdomain.ErrLocationHasInventory,
		locationdomain.ErrLocationNotDeactivated,
		itemdomain.ErrDuplicateName,
		itemdomain.ErrItemNotDeactivated,
	} {
		if errors.Is(err, candidate) {
			return true
		}
	}
	return false
}

func isIntegrityError(err error) bool {
	return errors.Is(err, reconstructdomain.ErrHistoryPruned) ||
		errors.Is(err, snapshotdomain.ErrHistoryPruned) ||
		errors.Is(err, snapshotdomain.ErrSnapshotDivergence)
}
