package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	catalogdomain "github.com/smallbiznis/quotient/internal/catalog/domain"
	discountdomain "github.com/smallbiznis/quotient/internal/discount/domain"
	pricingdomain "github.com/smallbiznis/quotient/internal/pricing/domain"
	quotedomain "github.com/smallbiznis/quotient/internal/quote/domain"
	ruledomain "github.com/smallbiznis/quotient/internal/rule/domain"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var ErrInvalidRequest = errors.New("invalid_request")

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

func mapError(err error) (int, errorPayload) {
	switch {
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Code:    err.Error(),
			Message: "validation error",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Code:    err.Error(),
			Message: "not found",
		}
	case isPreconditionError(err):
		return http.StatusConflict, errorPayload{
			Type:    "precondition_failed",
			Code:    err.Error(),
			Message: "precondition failed",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Code:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, catalogdomain.ErrInvalidID) ||
		errors.Is(err, catalogdomain.ErrInvalidTierRange) ||
		errors.Is(err, quotedomain.ErrInvalidID) ||
		errors.Is(err, quotedomain.ErrInvalidQuantity) ||
		errors.Is(err, quotedomain.ErrInvalidOrganization) ||
		errors.Is(err, pricingdomain.ErrInvalidQuantity) ||
		errors.Is(err, discountdomain.ErrMissingReason) ||
		errors.Is(err, discountdomain.ErrInvalidDiscountType) ||
		errors.Is(err, discountdomain.ErrInvalidDiscountValue) ||
		errors.Is(err, ruledomain.ErrInvalidCondition) ||
		errors.Is(err, ruledomain.ErrInvalidAction)
}

func isNotFoundError(err error) bool {
	return errors.Is(err, catalogdomain.ErrNotFound) ||
		errors.Is(err, quotedomain.ErrNotFound) ||
		errors.Is(err, quotedomain.ErrLineNotFound) ||
		errors.Is(err, quotedomain.ErrProductNotFound) ||
		errors.Is(err, quotedomain.ErrCustomerNotFound) ||
		errors.Is(err, pricingdomain.ErrEntryNotFound) ||
		errors.Is(err, discountdomain.ErrDiscountNotFound) ||
		errors.Is(err, discountdomain.ErrAppliedNotFound) ||
		errors.Is(err, discountdomain.ErrLineItemNotFound) ||
		errors.Is(err, gorm.ErrRecordNotFound)
}

func isPreconditionError(err error) bool {
	return errors.Is(err, quotedomain.ErrQuoteNotDraft) ||
		errors.Is(err, quotedomain.ErrInvalidTransition) ||
		errors.Is(err, quotedomain.ErrRuleBlocked) ||
		errors.Is(err, discountdomain.ErrQuoteNotDraft) ||
		errors.Is(err, discountdomain.ErrDiscountInactive) ||
		errors.Is(err, discountdomain.ErrDiscountExpired) ||
		errors.Is(err, discountdomain.ErrScopeMismatch) ||
		errors.Is(err, discountdomain.ErrMinOrderValue) ||
		errors.Is(err, discountdomain.ErrMinQuantity) ||
		errors.Is(err, discountdomain.ErrNotStackable)
}
