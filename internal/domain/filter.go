package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice fields accepted in InvoiceFilter.OrderBy.
const (
	SortByID             = "id"
	SortByOrderID        = "order_id"
	SortByIssuedAt       = "issued_at"
	SortByTotal          = "total"
	SortByDepositApplied = "deposit_applied"
	SortByPaymentMethod  = "payment_method"
	SortByStatus         = "status"
	SortByCreatedAt      = "created_at"
	SortByUpdatedAt      = "updated_at"
)

var SortableInvoiceFields = []string{
	SortByID,
	SortByOrderID,
	SortByIssuedAt,
	SortByTotal,
	SortByDepositApplied,
	SortByPaymentMethod,
	SortByStatus,
	SortByCreatedAt,
	SortByUpdatedAt,
}

type SortField struct {
	Field string
	Desc  bool
}

// InvoiceFilter narrows an invoice listing. Nil and empty fields do not
// filter. Page is 1-based.
type InvoiceFilter struct {
	ID             *int64
	IDNot          *int64
	OrderID        *int64
	OrderIDNot     *int64
	PaymentMethods []PaymentMethod
	Statuses       []InvoiceStatus
	TotalMin       *decimal.Decimal
	TotalMax       *decimal.Decimal
	IssuedFrom     *time.Time
	IssuedTo       *time.Time
	CreatedFrom    *time.Time
	CreatedTo      *time.Time
	OrderBy        []SortField
	Page           int
	Size           int
}

// Offset is the number of rows skipped before the requested page.
func (f InvoiceFilter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.Size
}

type InvoicePage struct {
	Items []Invoice
	Total int64
	Page  int
	Size  int
	Pages int
}

func NewInvoicePage(items []Invoice, total int64, page, size int) *InvoicePage {
	pages := 0
	if size > 0 {
		pages = int((total + int64(size) - 1) / int64(size))
	}
	return &InvoicePage{
		Items: items,
		Total: total,
		Page:  page,
		Size:  size,
		Pages: pages,
	}
}
