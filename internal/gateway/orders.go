package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/set-night/invoicing/internal/domain"
	"github.com/shopspring/decimal"
)

// OrderClient talks to the order service.
type OrderClient struct {
	c *client
}

func NewOrderClient(baseURL string, timeout time.Duration) *OrderClient {
	return &OrderClient{c: newClient("order service", baseURL, timeout)}
}

type orderResponse struct {
	ID            int64  `json:"id"`
	TableID       int64  `json:"table_id"`
	WaiterID      int64  `json:"waiter_id"`
	ReservationID *int64 `json:"reservation_id"`
}

type lineItemResponse struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type lineItemPageResponse struct {
	Items []lineItemResponse `json:"items"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Size  int                `json:"size"`
	Pages int                `json:"pages"`
}

func (o *OrderClient) GetOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	var resp orderResponse
	if err := o.c.do(ctx, http.MethodGet, fmt.Sprintf("/orders/%d", orderID), nil, &resp); err != nil {
		return nil, err
	}

	return &domain.Order{
		ID:            resp.ID,
		TableID:       resp.TableID,
		WaiterID:      resp.WaiterID,
		ReservationID: resp.ReservationID,
	}, nil
}

// ListLineItems returns one page of the order's line items.
func (o *OrderClient) ListLineItems(ctx context.Context, orderID int64, page, size int) (*domain.OrderLinePage, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("size", strconv.Itoa(size))

	var resp lineItemPageResponse
	if err := o.c.do(ctx, http.MethodGet, fmt.Sprintf("/orders/%d/line-items", orderID), query, &resp); err != nil {
		return nil, err
	}

	lines := make([]domain.OrderLine, 0, len(resp.Items))
	for _, it := range resp.Items {
		lines = append(lines, domain.OrderLine{
			ID:        it.ID,
			OrderID:   it.OrderID,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}

	return &domain.OrderLinePage{
		Items: lines,
		Total: resp.Total,
		Page:  resp.Page,
		Size:  resp.Size,
		Pages: resp.Pages,
	}, nil
}

// UpdateStatus mirrors an invoice state onto the order. The order service
// treats repeated updates as no-ops.
func (o *OrderClient) UpdateStatus(ctx context.Context, orderID int64, verb domain.OrderStatusVerb) error {
	return o.c.do(ctx, http.MethodPut, fmt.Sprintf("/orders/%d/%s", orderID, verb), nil, nil)
}
