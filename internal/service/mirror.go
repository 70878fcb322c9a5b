package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/set-night/invoicing/internal/config"
	"github.com/set-night/invoicing/internal/domain"
)

// StatusMirror pushes invoice states back onto their orders in the background.
// Pushes for one order run one at a time and each sends the order's current
// invoice status, so the last push to land matches the latest state. A failed
// push is logged and alerted, never returned.
type StatusMirror struct {
	invoices InvoiceStatusReader
	orders   OrderGateway
	alerts   Alerter
	timeout  time.Duration
	wg       sync.WaitGroup

	mu    sync.Mutex
	locks map[int64]*orderLock
}

type orderLock struct {
	sync.Mutex
	refs int
}

func NewStatusMirror(invoices InvoiceStatusReader, orders OrderGateway, alerts Alerter) *StatusMirror {
	if alerts == nil {
		alerts = noopAlerter{}
	}
	return &StatusMirror{
		invoices: invoices,
		orders:   orders,
		alerts:   alerts,
		timeout:  config.MirrorTimeout,
		locks:    make(map[int64]*orderLock),
	}
}

// Notify reports a change of inv's status to the order service. It returns
// immediately; the call outlives ctx's cancellation but keeps its values.
func (m *StatusMirror) Notify(ctx context.Context, inv domain.Invoice) {
	ctx = context.WithoutCancel(ctx)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.push(ctx, &inv)
	}()
}

func (m *StatusMirror) push(ctx context.Context, inv *domain.Invoice) {
	unlock := m.lockOrder(inv.OrderID)
	verb, err := m.sync(ctx, inv)
	unlock()

	if err != nil {
		slog.ErrorContext(ctx, "failed to mirror invoice status onto order",
			"invoice_id", inv.ID,
			"order_id", inv.OrderID,
			"status", inv.Status,
			"order_status", verb,
			"error", err,
		)
		m.alerts.MirrorFailed(inv.OrderID, verb, err)
	} else {
		slog.DebugContext(ctx, "order status mirrored",
			"invoice_id", inv.ID,
			"order_id", inv.OrderID,
			"order_status", verb,
		)
	}

	switch inv.Status {
	case domain.InvoiceStatusPending:
		m.alerts.InvoiceSettled(inv)
	case domain.InvoiceStatusAnnulled:
		m.alerts.InvoiceAnnulled(inv)
	}
}

// sync sends the verb for the order's newest invoice. If that cannot be read
// it falls back to the status carried by the notification.
func (m *StatusMirror) sync(ctx context.Context, inv *domain.Invoice) (domain.OrderStatusVerb, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	status, err := m.invoices.LatestInvoiceStatus(ctx, inv.OrderID)
	if err != nil {
		if !errors.Is(err, domain.ErrInvoiceNotFound) {
			slog.WarnContext(ctx, "failed to read current invoice status, mirroring notified status",
				"order_id", inv.OrderID,
				"error", err,
			)
		}
		status = inv.Status
	}

	verb := domain.MirrorVerb(status)
	return verb, m.orders.UpdateStatus(ctx, inv.OrderID, verb)
}

// lockOrder serialises pushes per order and returns the matching unlock.
// Entries are dropped once nobody holds or waits for them.
func (m *StatusMirror) lockOrder(orderID int64) func() {
	m.mu.Lock()
	l, ok := m.locks[orderID]
	if !ok {
		l = &orderLock{}
		m.locks[orderID] = l
	}
	l.refs++
	m.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()

		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, orderID)
		}
		m.mu.Unlock()
	}
}

// Wait blocks until every pending notification has finished or ctx is done.
func (m *StatusMirror) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
