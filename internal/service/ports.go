package service

import (
	"context"

	"github.com/set-night/invoicing/internal/domain"
)

// InvoiceStore persists invoices. CreateInvoice returns
// domain.ErrDuplicateInvoice when the order already has an active invoice;
// UpdateInvoiceStatus returns domain.ErrConflict when the invoice no longer
// holds the expected status.
type InvoiceStore interface {
	HasActiveInvoice(ctx context.Context, orderID int64) (bool, error)
	CreateInvoice(ctx context.Context, inv *domain.Invoice) error
	GetInvoice(ctx context.Context, id int64) (*domain.Invoice, error)
	UpdateInvoiceStatus(ctx context.Context, id int64, from, to domain.InvoiceStatus) (*domain.Invoice, error)
	ListInvoices(ctx context.Context, filter domain.InvoiceFilter) (*domain.InvoicePage, error)
	InvoiceStatusReader
}

// InvoiceStatusReader reports the status of an order's newest invoice, or
// domain.ErrInvoiceNotFound when the order was never invoiced.
type InvoiceStatusReader interface {
	LatestInvoiceStatus(ctx context.Context, orderID int64) (domain.InvoiceStatus, error)
}

type OrderGateway interface {
	GetOrder(ctx context.Context, orderID int64) (*domain.Order, error)
	ListLineItems(ctx context.Context, orderID int64, page, size int) (*domain.OrderLinePage, error)
	UpdateStatus(ctx context.Context, orderID int64, verb domain.OrderStatusVerb) error
}

type BookingGateway interface {
	GetReservation(ctx context.Context, reservationID int64) (*domain.Reservation, error)
}

// Alerter receives settlement events worth a human's attention.
type Alerter interface {
	MirrorFailed(orderID int64, verb domain.OrderStatusVerb, err error)
	InvoiceSettled(inv *domain.Invoice)
	InvoiceAnnulled(inv *domain.Invoice)
}

type noopAlerter struct{}

func (noopAlerter) MirrorFailed(int64, domain.OrderStatusVerb, error) {}
func (noopAlerter) InvoiceSettled(*domain.Invoice)                   {}
func (noopAlerter) InvoiceAnnulled(*domain.Invoice)                  {}
