package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/set-night/invoicing/internal/config"
	"github.com/set-night/invoicing/internal/domain"
	"github.com/shopspring/decimal"
)

// SettlementService turns orders into invoices and drives the invoice
// lifecycle.
type SettlementService struct {
	store      InvoiceStore
	aggregator *OrderAggregator
	deposits   *DepositResolver
	mirror     *StatusMirror
	attempts   int
}

func NewSettlementService(store InvoiceStore, aggregator *OrderAggregator, deposits *DepositResolver, mirror *StatusMirror) *SettlementService {
	return &SettlementService{
		store:      store,
		aggregator: aggregator,
		deposits:   deposits,
		mirror:     mirror,
		attempts:   config.TransitionAttempts,
	}
}

// SettleOrder creates the pending invoice for an order. Upstream calls all
// happen before anything is written.
func (s *SettlementService) SettleOrder(ctx context.Context, orderID int64, method domain.PaymentMethod) (*domain.Invoice, error) {
	if _, err := domain.ParsePaymentMethod(string(method)); err != nil {
		return nil, err
	}

	snapshot, err := s.aggregator.Aggregate(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if len(snapshot.Lines) == 0 {
		return nil, fmt.Errorf("%w: %d", domain.ErrEmptyOrder, orderID)
	}

	active, err := s.store.HasActiveInvoice(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("check duplicate: %w", err)
	}
	if active {
		return nil, domain.ErrDuplicateInvoice
	}

	lines := snapshot.InvoiceLines()
	raw := domain.SumSubtotals(lines)

	deposit := decimal.Zero
	if snapshot.Order.ReservationID != nil {
		deposit = s.deposits.Resolve(ctx, *snapshot.Order.ReservationID)
	}
	total, applied := domain.ApplyDeposit(raw, deposit)

	inv := &domain.Invoice{
		OrderID:        orderID,
		Total:          total,
		DepositApplied: applied,
		PaymentMethod:  method,
		Status:         domain.InvoiceStatusPending,
		Lines:          lines,
	}
	if err := s.store.CreateInvoice(ctx, inv); err != nil {
		if errors.Is(err, domain.ErrDuplicateInvoice) {
			return nil, domain.ErrDuplicateInvoice
		}
		return nil, fmt.Errorf("create invoice: %w", err)
	}

	slog.InfoContext(ctx, "invoice settled",
		"invoice_id", inv.ID,
		"order_id", inv.OrderID,
		"total", inv.Total,
		"deposit_applied", inv.DepositApplied,
	)

	s.mirror.Notify(ctx, *inv)
	return inv, nil
}

func (s *SettlementService) MarkPaid(ctx context.Context, id int64) (*domain.Invoice, error) {
	return s.transition(ctx, id, domain.InvoiceStatusPaid)
}

func (s *SettlementService) MarkCancelled(ctx context.Context, id int64) (*domain.Invoice, error) {
	return s.transition(ctx, id, domain.InvoiceStatusCancelled)
}

func (s *SettlementService) MarkAnnulled(ctx context.Context, id int64) (*domain.Invoice, error) {
	return s.transition(ctx, id, domain.InvoiceStatusAnnulled)
}

// transition validates and applies one status change with compare-and-swap.
// A lost race re-reads the invoice and validates again, so the loser of
// pay/cancel sees the winner's status and gets a TransitionError.
func (s *SettlementService) transition(ctx context.Context, id int64, to domain.InvoiceStatus) (*domain.Invoice, error) {
	for attempt := 1; attempt <= s.attempts; attempt++ {
		inv, err := s.store.GetInvoice(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrInvoiceNotFound) {
				return nil, err
			}
			return nil, fmt.Errorf("get invoice: %w", err)
		}

		if err := domain.ValidateTransition(inv.Status, to); err != nil {
			return nil, err
		}

		updated, err := s.store.UpdateInvoiceStatus(ctx, id, inv.Status, to)
		if errors.Is(err, domain.ErrConflict) {
			slog.DebugContext(ctx, "invoice status changed concurrently, retrying",
				"invoice_id", id,
				"attempt", attempt,
			)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("update invoice status: %w", err)
		}

		slog.InfoContext(ctx, "invoice status changed",
			"invoice_id", id,
			"from", inv.Status,
			"to", to,
		)

		s.mirror.Notify(ctx, *updated)
		return updated, nil
	}

	return nil, fmt.Errorf("%w: invoice %d", domain.ErrConflict, id)
}

func (s *SettlementService) GetInvoice(ctx context.Context, id int64) (*domain.Invoice, error) {
	inv, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrInvoiceNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	return inv, nil
}

func (s *SettlementService) ListInvoices(ctx context.Context, filter domain.InvoiceFilter) (*domain.InvoicePage, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Size < 1 {
		filter.Size = config.DefaultPageSize
	}
	if filter.Size > config.MaxPageSize {
		filter.Size = config.MaxPageSize
	}

	page, err := s.store.ListInvoices(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return page, nil
}
