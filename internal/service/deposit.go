package service

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"
)

// DepositResolver looks up the deposit paid for a reservation.
type DepositResolver struct {
	bookings BookingGateway
}

func NewDepositResolver(bookings BookingGateway) *DepositResolver {
	return &DepositResolver{bookings: bookings}
}

// Resolve never fails: a missing reservation, a reservation without a deposit
// menu and an unreachable booking service all resolve to zero.
func (r *DepositResolver) Resolve(ctx context.Context, reservationID int64) decimal.Decimal {
	res, err := r.bookings.GetReservation(ctx, reservationID)
	if err != nil {
		slog.WarnContext(ctx, "deposit lookup failed, applying no deposit",
			"reservation_id", reservationID,
			"error", err,
		)
		return decimal.Zero
	}
	return res.Deposit()
}
