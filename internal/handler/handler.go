package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/set-night/invoicing/internal/cache"
	"github.com/set-night/invoicing/internal/config"
	"github.com/set-night/invoicing/internal/domain"
	"github.com/set-night/invoicing/internal/middleware"
)

const (
	HeaderIdempotencyKey = "X-Idempotency-Key"
	HeaderReplayed       = "Idempotent-Replayed"
)

// Settlement is the invoice use-case layer served over HTTP.
type Settlement interface {
	SettleOrder(ctx context.Context, orderID int64, method domain.PaymentMethod) (*domain.Invoice, error)
	MarkPaid(ctx context.Context, id int64) (*domain.Invoice, error)
	MarkCancelled(ctx context.Context, id int64) (*domain.Invoice, error)
	MarkAnnulled(ctx context.Context, id int64) (*domain.Invoice, error)
	GetInvoice(ctx context.Context, id int64) (*domain.Invoice, error)
	ListInvoices(ctx context.Context, filter domain.InvoiceFilter) (*domain.InvoicePage, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// ErrorReporter receives unexpected failures answered with a 500.
type ErrorReporter interface {
	LogError(err error, context string)
}

// Handler holds all dependencies needed by the HTTP endpoints.
type Handler struct {
	settlement     Settlement
	db             Pinger
	cache          cache.Cache
	idempotencyTTL time.Duration
	errors         ErrorReporter
	reports        sync.WaitGroup
}

// Deps contains all dependencies required to construct a Handler. Cache and
// Errors are optional.
type Deps struct {
	Settlement     Settlement
	DB             Pinger
	Cache          cache.Cache
	IdempotencyTTL time.Duration
	Errors         ErrorReporter
}

// New creates a new Handler from the provided dependencies.
func New(deps Deps) *Handler {
	return &Handler{
		settlement:     deps.Settlement,
		db:             deps.DB,
		cache:          deps.Cache,
		idempotencyTTL: deps.IdempotencyTTL,
		errors:         deps.Errors,
	}
}

// Router registers every endpoint on a chi router.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.Logging())
	r.Use(middleware.Recover())
	r.Use(chimw.Timeout(config.RequestTimeout))

	r.Get("/health", h.Health)

	r.Route("/invoices", func(r chi.Router) {
		r.Post("/", h.CreateInvoice)
		r.Get("/", h.ListInvoices)
		r.Get("/{id}", h.GetInvoice)
		r.Put("/{id}/pay", h.PayInvoice)
		r.Put("/{id}/cancel", h.CancelInvoice)
		r.Put("/{id}/annul", h.AnnulInvoice)
	})

	return r
}

// Wait blocks until every error report sent in the background has finished or
// ctx is done.
func (h *Handler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.reports.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
