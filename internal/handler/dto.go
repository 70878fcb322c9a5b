package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/set-night/invoicing/internal/domain"
)

type CreateInvoiceRequest struct {
	OrderID       int64  `json:"order_id"`
	PaymentMethod string `json:"payment_method"`
}

type InvoiceResponse struct {
	ID             int64                 `json:"id"`
	OrderID        int64                 `json:"order_id"`
	IssuedAt       time.Time             `json:"issued_at"`
	Total          decimal.Decimal       `json:"total"`
	DepositApplied decimal.Decimal       `json:"deposit_applied"`
	PaymentMethod  string                `json:"payment_method"`
	Status         string                `json:"status"`
	Lines          []InvoiceLineResponse `json:"lines"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

type InvoiceLineResponse struct {
	ID        int64           `json:"id"`
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type InvoicePageResponse struct {
	Items []InvoiceResponse `json:"items"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Size  int               `json:"size"`
	Pages int               `json:"pages"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func mapInvoiceToResponse(inv *domain.Invoice) InvoiceResponse {
	lines := make([]InvoiceLineResponse, len(inv.Lines))
	for i, l := range inv.Lines {
		lines[i] = InvoiceLineResponse{
			ID:        l.ID,
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Subtotal:  l.Subtotal,
		}
	}

	return InvoiceResponse{
		ID:             inv.ID,
		OrderID:        inv.OrderID,
		IssuedAt:       inv.IssuedAt,
		Total:          inv.Total,
		DepositApplied: inv.DepositApplied,
		PaymentMethod:  string(inv.PaymentMethod),
		Status:         string(inv.Status),
		Lines:          lines,
		CreatedAt:      inv.CreatedAt,
		UpdatedAt:      inv.UpdatedAt,
	}
}

func mapPageToResponse(page *domain.InvoicePage) InvoicePageResponse {
	items := make([]InvoiceResponse, len(page.Items))
	for i := range page.Items {
		items[i] = mapInvoiceToResponse(&page.Items[i])
	}

	return InvoicePageResponse{
		Items: items,
		Total: page.Total,
		Page:  page.Page,
		Size:  page.Size,
		Pages: page.Pages,
	}
}
