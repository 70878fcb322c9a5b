package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Order is the order service's view of a table tab.
type Order struct {
	ID            int64
	TableID       int64
	WaiterID      int64
	ReservationID *int64
}

type OrderLine struct {
	ID        int64
	OrderID   int64
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal
}

// Validate checks that the line can be invoiced: a positive quantity and a
// positive unit price.
func (l OrderLine) Validate() error {
	if l.Quantity < 1 {
		return fmt.Errorf("%w: line %d has quantity %d", ErrInvalidOrderLine, l.ID, l.Quantity)
	}
	if !l.UnitPrice.IsPositive() {
		return fmt.Errorf("%w: line %d has unit price %s", ErrInvalidOrderLine, l.ID, l.UnitPrice)
	}
	return nil
}

// OrderLinePage is one page of an order's line items as served by the order
// service. Page is 1-based.
type OrderLinePage struct {
	Items []OrderLine
	Total int64
	Page  int
	Size  int
	Pages int
}

// OrderSnapshot is an order together with every one of its line items.
type OrderSnapshot struct {
	Order Order
	Lines []OrderLine
}

// InvoiceLines converts the order lines into invoice lines.
func (s *OrderSnapshot) InvoiceLines() []InvoiceLine {
	lines := make([]InvoiceLine, 0, len(s.Lines))
	for _, l := range s.Lines {
		lines = append(lines, NewInvoiceLine(l.ProductID, l.Quantity, l.UnitPrice))
	}
	return lines
}

type Reservation struct {
	ID   int64
	Menu *DepositMenu
}

// DepositMenu is a pre-ordered reservation menu. DepositAmount is nil when no
// deposit was recorded.
type DepositMenu struct {
	ID            int64
	DepositAmount *decimal.Decimal
}

// Deposit returns the reservation's deposit, zero when there is none.
func (r *Reservation) Deposit() decimal.Decimal {
	if r == nil || r.Menu == nil || r.Menu.DepositAmount == nil {
		return decimal.Zero
	}
	if !r.Menu.DepositAmount.IsPositive() {
		return decimal.Zero
	}
	return *r.Menu.DepositAmount
}

// OrderStatusVerb is the path segment the order service accepts to mirror an
// invoice state onto the order.
type OrderStatusVerb string

const (
	OrderStatusInvoiced OrderStatusVerb = "invoiced"
	OrderStatusPaid     OrderStatusVerb = "paid"
	OrderStatusPending  OrderStatusVerb = "pending"
)

// MirrorVerb returns the order status matching an invoice status.
func MirrorVerb(s InvoiceStatus) OrderStatusVerb {
	switch s {
	case InvoiceStatusPaid:
		return OrderStatusPaid
	case InvoiceStatusCancelled, InvoiceStatusAnnulled:
		return OrderStatusPending
	default:
		return OrderStatusInvoiced
	}
}
