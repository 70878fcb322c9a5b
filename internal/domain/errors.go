package domain

import (
	"errors"
	"fmt"
)

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrEmptyOrder           = errors.New("order has no line items")
	ErrDuplicateInvoice     = errors.New("active invoice already exists for order")
	ErrInvalidTransition    = errors.New("invalid invoice status transition")
	ErrInvoiceNotFound      = errors.New("invoice not found")
	ErrUpstreamNotFound     = errors.New("upstream resource not found")
	ErrUpstreamUnavailable  = errors.New("upstream service unavailable")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrInvalidStatus        = errors.New("invalid invoice status")
	ErrConflict             = errors.New("invoice modified concurrently")
	ErrInvalidOrderLine     = errors.New("invalid order line")
)

// TransitionError names the status pair a transition was rejected for.
type TransitionError struct {
	From InvoiceStatus
	To   InvoiceStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot change invoice status from %q to %q", e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
