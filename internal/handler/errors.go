package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TEswarreddy/shopez-sub000/internal/domain"
)

// statusFor maps domain failures to transport responses in one place, so no
// handler invents its own mapping.
func statusFor(err error) int {
	var validationErr *domain.ValidationError
	var stockErr *domain.InsufficientStockError

	switch {
	case err == nil:
		return http.StatusOK

	case errors.As(err, &validationErr),
		errors.Is(err, domain.ErrSignatureMismatch):
		return http.StatusBadRequest

	case errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrPaymentNotFound),
		errors.Is(err, domain.ErrVendorNotFound):
		return http.StatusNotFound

	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden

	case errors.As(err, &stockErr),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrVersionConflict):
		return http.StatusConflict

	case errors.Is(err, domain.ErrRefundExceedsTotal):
		return http.StatusUnprocessableEntity

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout

	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{
		"error":      err.Error(),
		"request_id": c.GetString("request_id"),
	})
}
