package services

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound                = errors.New("not found")
	ErrUnavailable             = errors.New("item is not available")
	ErrAmountMismatch          = errors.New("total amount does not match the calculated total")
	ErrMissingAddress          = errors.New("shipping address is required for delivery orders")
	ErrForbidden               = errors.New("forbidden")
	ErrInvalidTransition       = errors.New("invalid status transition")
	ErrInvalidStatus           = errors.New("invalid status")
	ErrMissingReference        = errors.New("gateway order id is required")
	ErrOrderNotFound           = errors.New("no order matches the gateway reference")
	ErrPaymentInitiationFailed = errors.New("payment initiation failed")
	ErrEmptyCart               = errors.New("cart is empty")
	ErrInvalidQuantity         = errors.New("quantity must be at least 1")
	ErrDuplicateRequest        = errors.New("a request with this idempotency key is in progress")
	ErrConflict                = errors.New("conflict")
	ErrInvalidCredentials      = errors.New("invalid email or password")

	errEarlierInitiationFailed = errors.New("an earlier attempt with this idempotency key could not open a payment session")
)

// PaymentInitiationError is returned by PlaceOrder when the order was saved
// but the gateway refused to open a session. The order is already Cancelled.
type PaymentInitiationError struct {
	OrderID string
	Err     error
}

func (e *PaymentInitiationError) Error() string {
	return fmt.Sprintf("payment initiation failed for order %s: %v", e.OrderID, e.Err)
}

func (e *PaymentInitiationError) Unwrap() []error {
	return []error{ErrPaymentInitiationFailed, e.Err}
}
