package domain

import (
	"errors"
	"fmt"
)

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrProductNotFound = errors.New("product not found")
	ErrPaymentNotFound = errors.New("payment not found")
	ErrVendorNotFound  = errors.New("vendor not found")

	ErrUnauthorized       = errors.New("actor not allowed to perform this action")
	ErrSignatureMismatch  = errors.New("gateway signature mismatch")
	ErrRefundExceedsTotal = errors.New("refund amount exceeds payment total")
	ErrInvalidTransition  = errors.New("invalid status transition")

	// ErrDuplicateSettlement marks an insert that hit the gateway payment id
	// uniqueness constraint. Callers treat it as success and return the
	// already-settled row.
	ErrDuplicateSettlement = errors.New("payment already settled for gateway payment id")

	// ErrVersionConflict signals a lost optimistic-lock race on a ledger row.
	ErrVersionConflict = errors.New("payment row was modified concurrently")
)

// ValidationError rejects malformed input before any mutation happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// InsufficientStockError names the product that could not cover the
// requested quantity. Available is -1 when the shortfall was detected by the
// conditional decrement rather than a read.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	if e.Available < 0 {
		return fmt.Sprintf("insufficient stock for product %s: requested %d", e.ProductID, e.Requested)
	}
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

// IsInsufficientStock reports whether err is a stock shortfall.
func IsInsufficientStock(err error) bool {
	var ise *InsufficientStockError
	return errors.As(err, &ise)
}
