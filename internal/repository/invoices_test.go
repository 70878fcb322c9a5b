package repository

import (
	"context"
	"io/fs"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	invoicing "github.com/set-night/invoicing"
	"github.com/set-night/invoicing/internal/domain"
)

const testDatabaseEnv = "SETTLEMENT_TEST_DATABASE_URL"

// orderSeq hands out order ids so tests sharing one database do not collide.
var orderSeq atomic.Int64

func nextOrderID() int64 {
	return time.Now().UnixNano()/1000 + orderSeq.Add(1)
}

func newTestRepository(t *testing.T) *InvoiceRepository {
	t.Helper()

	url := os.Getenv(testDatabaseEnv)
	if url == "" {
		t.Skipf("%s not set", testDatabaseEnv)
	}

	migrations, err := fs.Sub(invoicing.MigrationsFS, "migrations")
	require.NoError(t, err)
	require.NoError(t, RunMigrations(url, migrations))

	ctx := context.Background()
	pool, err := NewPool(ctx, url, PoolOptions{MaxConns: 10, MinConns: 1})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return NewInvoiceRepository(pool)
}

func newTestInvoice(orderID int64) *domain.Invoice {
	lines := []domain.InvoiceLine{
		domain.NewInvoiceLine(10, 2, decimal.RequireFromString("150.50")),
		domain.NewInvoiceLine(11, 1, decimal.RequireFromString("250.75")),
	}
	return &domain.Invoice{
		OrderID:        orderID,
		Total:          domain.SumSubtotals(lines),
		DepositApplied: decimal.Zero,
		PaymentMethod:  domain.PaymentMethodCash,
		Status:         domain.InvoiceStatusPending,
		Lines:          lines,
	}
}

func TestInvoiceRepository_CreateAndGet(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	inv := newTestInvoice(nextOrderID())
	require.NoError(t, repo.CreateInvoice(ctx, inv))
	require.NotZero(t, inv.ID)
	assert.False(t, inv.IssuedAt.IsZero())
	for _, line := range inv.Lines {
		assert.NotZero(t, line.ID)
		assert.Equal(t, inv.ID, line.InvoiceID)
	}

	got, err := repo.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, inv.OrderID, got.OrderID)
	assert.True(t, got.Total.Equal(decimal.RequireFromString("551.75")))
	assert.Equal(t, domain.InvoiceStatusPending, got.Status)
	require.Len(t, got.Lines, 2)
	assert.True(t, got.Lines[0].Subtotal.Equal(decimal.RequireFromString("301.00")))

	active, err := repo.HasActiveInvoice(ctx, inv.OrderID)
	require.NoError(t, err)
	assert.True(t, active)
}

func TestInvoiceRepository_GetMissing(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.GetInvoice(context.Background(), -1)
	assert.ErrorIs(t, err, domain.ErrInvoiceNotFound)
}

func TestInvoiceRepository_DuplicateActiveInvoice(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	orderID := nextOrderID()

	first := newTestInvoice(orderID)
	require.NoError(t, repo.CreateInvoice(ctx, first))

	err := repo.CreateInvoice(ctx, newTestInvoice(orderID))
	assert.ErrorIs(t, err, domain.ErrDuplicateInvoice)

	_, err = repo.UpdateInvoiceStatus(ctx, first.ID, domain.InvoiceStatusPending, domain.InvoiceStatusAnnulled)
	require.NoError(t, err)

	assert.NoError(t, repo.CreateInvoice(ctx, newTestInvoice(orderID)))
}

func TestInvoiceRepository_ConcurrentCreate(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	orderID := nextOrderID()

	const workers = 8
	var (
		wg         sync.WaitGroup
		created    atomic.Int32
		duplicates atomic.Int32
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.CreateInvoice(ctx, newTestInvoice(orderID))
			switch {
			case err == nil:
				created.Add(1)
			case assert.ErrorIs(t, err, domain.ErrDuplicateInvoice):
				duplicates.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())
	assert.Equal(t, int32(workers-1), duplicates.Load())
}

func TestInvoiceRepository_UpdateStatusCompareAndSwap(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	inv := newTestInvoice(nextOrderID())
	require.NoError(t, repo.CreateInvoice(ctx, inv))

	updated, err := repo.UpdateInvoiceStatus(ctx, inv.ID, domain.InvoiceStatusPending, domain.InvoiceStatusPaid)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusPaid, updated.Status)
	assert.Len(t, updated.Lines, 2)

	_, err = repo.UpdateInvoiceStatus(ctx, inv.ID, domain.InvoiceStatusPending, domain.InvoiceStatusCancelled)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestInvoiceRepository_ListInvoices(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	orderID := nextOrderID()
	inv := newTestInvoice(orderID)
	inv.PaymentMethod = domain.PaymentMethodDebit
	require.NoError(t, repo.CreateInvoice(ctx, inv))

	page, err := repo.ListInvoices(ctx, domain.InvoiceFilter{
		OrderID:        &orderID,
		PaymentMethods: []domain.PaymentMethod{domain.PaymentMethodDebit},
		Statuses:       []domain.InvoiceStatus{domain.InvoiceStatusPending},
		OrderBy:        []domain.SortField{{Field: domain.SortByTotal, Desc: true}},
		Page:           1,
		Size:           10,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, 1, page.Pages)
	require.Len(t, page.Items, 1)
	assert.Equal(t, inv.ID, page.Items[0].ID)
	assert.Len(t, page.Items[0].Lines, 2)

	page, err = repo.ListInvoices(ctx, domain.InvoiceFilter{
		OrderID:    &orderID,
		OrderIDNot: &orderID,
		Page:       1,
		Size:       10,
	})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
	assert.Empty(t, page.Items)
}

func TestBuildInvoiceWhere(t *testing.T) {
	id := int64(3)
	minTotal := decimal.NewFromInt(10)

	where, args := buildInvoiceWhere(domain.InvoiceFilter{
		IDNot:    &id,
		Statuses: []domain.InvoiceStatus{domain.InvoiceStatusPaid, domain.InvoiceStatusPending},
		TotalMin: &minTotal,
	})

	assert.Equal(t, " WHERE id <> $1 AND status = ANY($2) AND total >= $3", where)
	require.Len(t, args, 3)
	assert.Equal(t, []string{"paid", "pending"}, args[1])

	where, args = buildInvoiceWhere(domain.InvoiceFilter{})
	assert.Empty(t, where)
	assert.Empty(t, args)
}

func TestBuildInvoiceOrderBy(t *testing.T) {
	orderBy, err := buildInvoiceOrderBy(nil)
	require.NoError(t, err)
	assert.Equal(t, "id ASC", orderBy)

	orderBy, err = buildInvoiceOrderBy([]domain.SortField{
		{Field: domain.SortByIssuedAt, Desc: true},
		{Field: domain.SortByTotal},
	})
	require.NoError(t, err)
	assert.Equal(t, "issued_at DESC, total ASC, id ASC", orderBy)

	orderBy, err = buildInvoiceOrderBy([]domain.SortField{{Field: domain.SortByID, Desc: true}})
	require.NoError(t, err)
	assert.Equal(t, "id DESC", orderBy)

	_, err = buildInvoiceOrderBy([]domain.SortField{{Field: "total; DROP TABLE invoices"}})
	assert.Error(t, err)
}

func TestInvoiceRepository_LatestInvoiceStatus(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	orderID := nextOrderID()

	_, err := repo.LatestInvoiceStatus(ctx, orderID)
	assert.ErrorIs(t, err, domain.ErrInvoiceNotFound)

	first := newTestInvoice(orderID)
	require.NoError(t, repo.CreateInvoice(ctx, first))
	_, err = repo.UpdateInvoiceStatus(ctx, first.ID, domain.InvoiceStatusPending, domain.InvoiceStatusAnnulled)
	require.NoError(t, err)

	status, err := repo.LatestInvoiceStatus(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusAnnulled, status)

	second := newTestInvoice(orderID)
	require.NoError(t, repo.CreateInvoice(ctx, second))

	status, err = repo.LatestInvoiceStatus(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusPending, status)
}
