package domain

import "fmt"

type InvoiceStatus string

const (
	InvoiceStatusPending   InvoiceStatus = "pending"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
	InvoiceStatusAnnulled  InvoiceStatus = "annulled"
)

// InvoiceStatuses lists every invoice status in lifecycle order.
var InvoiceStatuses = []InvoiceStatus{
	InvoiceStatusPending,
	InvoiceStatusPaid,
	InvoiceStatusCancelled,
	InvoiceStatusAnnulled,
}

// invoiceTransitions is the complete lifecycle. A status missing from a
// value list cannot be reached from that key.
var invoiceTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceStatusPending:   {InvoiceStatusPaid, InvoiceStatusCancelled, InvoiceStatusAnnulled},
	InvoiceStatusPaid:      {InvoiceStatusAnnulled},
	InvoiceStatusCancelled: {InvoiceStatusAnnulled},
	InvoiceStatusAnnulled:  {},
}

func ParseInvoiceStatus(s string) (InvoiceStatus, error) {
	for _, st := range InvoiceStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// Active reports whether the status blocks a new invoice for the same order.
func (s InvoiceStatus) Active() bool {
	return s != InvoiceStatusAnnulled
}

// Terminal reports whether no transition leaves the status.
func (s InvoiceStatus) Terminal() bool {
	return len(invoiceTransitions[s]) == 0
}

func (s InvoiceStatus) CanTransitionTo(to InvoiceStatus) bool {
	for _, allowed := range invoiceTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns a *TransitionError when from → to is not in the
// lifecycle table.
func ValidateTransition(from, to InvoiceStatus) error {
	if !from.CanTransitionTo(to) {
		return &TransitionError{From: from, To: to}
	}
	return nil
}
