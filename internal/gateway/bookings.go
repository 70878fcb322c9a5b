package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/set-night/invoicing/internal/domain"
	"github.com/shopspring/decimal"
)

// BookingClient talks to the reservation service.
type BookingClient struct {
	c *client
}

func NewBookingClient(baseURL string, timeout time.Duration) *BookingClient {
	return &BookingClient{c: newClient("booking service", baseURL, timeout)}
}

type reservationResponse struct {
	ID   int64 `json:"id"`
	Menu *struct {
		ID            int64            `json:"id"`
		DepositAmount *decimal.Decimal `json:"deposit_amount"`
	} `json:"menu"`
}

func (b *BookingClient) GetReservation(ctx context.Context, reservationID int64) (*domain.Reservation, error) {
	var resp reservationResponse
	if err := b.c.do(ctx, http.MethodGet, fmt.Sprintf("/reservations/%d", reservationID), nil, &resp); err != nil {
		return nil, err
	}

	res := &domain.Reservation{ID: resp.ID}
	if resp.Menu != nil {
		res.Menu = &domain.DepositMenu{
			ID:            resp.Menu.ID,
			DepositAmount: resp.Menu.DepositAmount,
		}
	}
	return res, nil
}
