package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/set-night/invoicing/internal/domain"
)

// memStore mirrors the Postgres store: one active invoice per order and
// compare-and-swap status updates.
type memStore struct {
	mu       sync.Mutex
	nextID   int64
	invoices map[int64]*domain.Invoice
	filters  []domain.InvoiceFilter

	// updateErr, when set, is returned by every UpdateInvoiceStatus call.
	updateErr error
	updates   int
}

func newMemStore() *memStore {
	return &memStore{invoices: make(map[int64]*domain.Invoice)}
}

func (s *memStore) HasActiveInvoice(_ context.Context, orderID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasActive(orderID), nil
}

func (s *memStore) hasActive(orderID int64) bool {
	for _, inv := range s.invoices {
		if inv.OrderID == orderID && inv.Status.Active() {
			return true
		}
	}
	return false
}

func (s *memStore) CreateInvoice(_ context.Context, inv *domain.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if inv.Status.Active() && s.hasActive(inv.OrderID) {
		return domain.ErrDuplicateInvoice
	}

	s.nextID++
	now := time.Now()
	inv.ID = s.nextID
	inv.IssuedAt, inv.CreatedAt, inv.UpdatedAt = now, now, now
	for i := range inv.Lines {
		inv.Lines[i].ID = int64(i + 1)
		inv.Lines[i].InvoiceID = inv.ID
	}
	s.invoices[inv.ID] = cloneInvoice(inv)
	return nil
}

func (s *memStore) GetInvoice(_ context.Context, id int64) (*domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invoices[id]
	if !ok {
		return nil, domain.ErrInvoiceNotFound
	}
	return cloneInvoice(inv), nil
}

func (s *memStore) UpdateInvoiceStatus(_ context.Context, id int64, from, to domain.InvoiceStatus) (*domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.updates++
	if s.updateErr != nil {
		return nil, s.updateErr
	}

	inv, ok := s.invoices[id]
	if !ok || inv.Status != from {
		return nil, domain.ErrConflict
	}
	inv.Status = to
	inv.UpdatedAt = time.Now()
	return cloneInvoice(inv), nil
}

func (s *memStore) ListInvoices(_ context.Context, filter domain.InvoiceFilter) (*domain.InvoicePage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.filters = append(s.filters, filter)

	ids := make([]int64, 0, len(s.invoices))
	for id := range s.invoices {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	items := []domain.Invoice{}
	for _, id := range ids {
		items = append(items, *cloneInvoice(s.invoices[id]))
	}
	total := int64(len(items))

	start := min(filter.Offset(), len(items))
	end := min(start+filter.Size, len(items))
	return domain.NewInvoicePage(items[start:end], total, filter.Page, filter.Size), nil
}

func (s *memStore) LatestInvoiceStatus(_ context.Context, orderID int64) (domain.InvoiceStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *domain.Invoice
	for _, inv := range s.invoices {
		if inv.OrderID == orderID && (latest == nil || inv.ID > latest.ID) {
			latest = inv
		}
	}
	if latest == nil {
		return "", domain.ErrInvoiceNotFound
	}
	return latest.Status, nil
}

// put stores an invoice in the given status without going through settlement.
func (s *memStore) put(orderID int64, status domain.InvoiceStatus) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	s.invoices[s.nextID] = &domain.Invoice{
		ID:            s.nextID,
		OrderID:       orderID,
		Total:         decimal.NewFromInt(100),
		PaymentMethod: domain.PaymentMethodCash,
		Status:        status,
	}
	return s.nextID
}

func cloneInvoice(inv *domain.Invoice) *domain.Invoice {
	c := *inv
	c.Lines = append([]domain.InvoiceLine(nil), inv.Lines...)
	return &c
}

type mirrorCall struct {
	OrderID int64
	Verb    domain.OrderStatusVerb
}

// fakeOrders serves orders and paginated line items from memory.
type fakeOrders struct {
	mu     sync.Mutex
	orders map[int64]domain.Order
	lines  map[int64][]domain.OrderLine

	orderErr  error
	linesErr  error
	updateErr error

	calls     []mirrorCall
	pageCalls int
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{
		orders: make(map[int64]domain.Order),
		lines:  make(map[int64][]domain.OrderLine),
	}
}

func (f *fakeOrders) add(order domain.Order, lines ...domain.OrderLine) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[order.ID] = order
	f.lines[order.ID] = lines
}

func (f *fakeOrders) GetOrder(_ context.Context, orderID int64) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.orderErr != nil {
		return nil, f.orderErr
	}
	order, ok := f.orders[orderID]
	if !ok {
		return nil, domain.ErrUpstreamNotFound
	}
	return &order, nil
}

func (f *fakeOrders) ListLineItems(_ context.Context, orderID int64, page, size int) (*domain.OrderLinePage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.pageCalls++
	if f.linesErr != nil {
		return nil, f.linesErr
	}

	all := f.lines[orderID]
	start := min((page-1)*size, len(all))
	end := min(start+size, len(all))
	return &domain.OrderLinePage{
		Items: append([]domain.OrderLine(nil), all[start:end]...),
		Total: int64(len(all)),
		Page:  page,
		Size:  size,
		Pages: (len(all) + size - 1) / size,
	}, nil
}

func (f *fakeOrders) UpdateStatus(_ context.Context, orderID int64, verb domain.OrderStatusVerb) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, mirrorCall{OrderID: orderID, Verb: verb})
	return f.updateErr
}

// lastMirrored returns the verb of the most recent status push for an order.
func (f *fakeOrders) lastMirrored(orderID int64) domain.OrderStatusVerb {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].OrderID == orderID {
			return f.calls[i].Verb
		}
	}
	return ""
}

func (f *fakeOrders) mirrorCalls() []mirrorCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]mirrorCall(nil), f.calls...)
}

type fakeBookings struct {
	reservations map[int64]domain.Reservation
	err          error
}

func (f *fakeBookings) GetReservation(_ context.Context, id int64) (*domain.Reservation, error) {
	if f.err != nil {
		return nil, f.err
	}
	res, ok := f.reservations[id]
	if !ok {
		return nil, domain.ErrUpstreamNotFound
	}
	return &res, nil
}

type recordingAlerter struct {
	mu       sync.Mutex
	failed   []mirrorCall
	settled  []int64
	annulled []int64
}

func (a *recordingAlerter) MirrorFailed(orderID int64, verb domain.OrderStatusVerb, _ error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failed = append(a.failed, mirrorCall{OrderID: orderID, Verb: verb})
}

func (a *recordingAlerter) InvoiceSettled(inv *domain.Invoice) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.settled = append(a.settled, inv.ID)
}

func (a *recordingAlerter) InvoiceAnnulled(inv *domain.Invoice) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.annulled = append(a.annulled, inv.ID)
}

var errBoom = errors.New("boom")

func depositOf(amount string) *decimal.Decimal {
	d := decimal.RequireFromString(amount)
	return &d
}

func line(productID int64, quantity int, price string) domain.OrderLine {
	return domain.OrderLine{ProductID: productID, Quantity: quantity, UnitPrice: decimal.RequireFromString(price)}
}
