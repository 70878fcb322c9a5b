package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/set-night/invoicing/internal/domain"
)

// CreateInvoice settles an order. With an X-Idempotency-Key header a repeated
// request returns the invoice created by the first one.
func (h *Handler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req CreateInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if req.OrderID < 1 {
		writeError(w, http.StatusBadRequest, "invalid_request", "order_id must be a positive integer")
		return
	}
	method, err := domain.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		h.writeDomainError(w, r, "create invoice", err)
		return
	}

	cacheKey := h.idempotencyKey(r, req.OrderID)
	if inv, ok := h.replay(r.Context(), cacheKey); ok {
		w.Header().Set(HeaderReplayed, "true")
		writeJSON(w, http.StatusCreated, mapInvoiceToResponse(inv))
		return
	}

	inv, err := h.settlement.SettleOrder(r.Context(), req.OrderID, method)
	if err != nil {
		// a concurrent request with the same key may have won the race
		if errors.Is(err, domain.ErrDuplicateInvoice) {
			if inv, ok := h.replay(r.Context(), cacheKey); ok {
				w.Header().Set(HeaderReplayed, "true")
				writeJSON(w, http.StatusCreated, mapInvoiceToResponse(inv))
				return
			}
		}
		h.writeDomainError(w, r, "create invoice", err)
		return
	}

	if cacheKey != "" {
		if err := h.cache.Set(r.Context(), cacheKey, inv.ID, h.idempotencyTTL); err != nil {
			slog.WarnContext(r.Context(), "failed to store idempotency key",
				"invoice_id", inv.ID,
				"error", err,
			)
		}
	}

	writeJSON(w, http.StatusCreated, mapInvoiceToResponse(inv))
}

// idempotencyKey returns "" when the request carries no key or no cache is
// configured. Keys are scoped per order.
func (h *Handler) idempotencyKey(r *http.Request, orderID int64) string {
	key := r.Header.Get(HeaderIdempotencyKey)
	if key == "" || h.cache == nil {
		return ""
	}
	return h.cache.GenerateKey("settle", fmt.Sprintf("%d:%s", orderID, key))
}

// replay loads the invoice recorded under cacheKey. Cache failures degrade to
// a normal, non-idempotent request.
func (h *Handler) replay(ctx context.Context, cacheKey string) (*domain.Invoice, bool) {
	if cacheKey == "" {
		return nil, false
	}

	val, err := h.cache.Get(ctx, cacheKey)
	if err != nil {
		slog.WarnContext(ctx, "failed to read idempotency key", "error", err)
		return nil, false
	}
	if val == "" {
		return nil, false
	}

	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		slog.WarnContext(ctx, "malformed idempotency record", "value", val)
		return nil, false
	}

	inv, err := h.settlement.GetInvoice(ctx, id)
	if err != nil {
		slog.WarnContext(ctx, "failed to load replayed invoice", "invoice_id", id, "error", err)
		return nil, false
	}
	return inv, true
}

func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	filter, err := parseInvoiceFilter(r.URL.Query())
	if err != nil {
		h.writeDomainError(w, r, "list invoices", err)
		return
	}

	page, err := h.settlement.ListInvoices(r.Context(), filter)
	if err != nil {
		h.writeDomainError(w, r, "list invoices", err)
		return
	}

	writeJSON(w, http.StatusOK, mapPageToResponse(page))
}

func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, "get invoice", err)
		return
	}

	inv, err := h.settlement.GetInvoice(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, "get invoice", err)
		return
	}

	writeJSON(w, http.StatusOK, mapInvoiceToResponse(inv))
}

func (h *Handler) PayInvoice(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "pay invoice", h.settlement.MarkPaid)
}

func (h *Handler) CancelInvoice(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "cancel invoice", h.settlement.MarkCancelled)
}

func (h *Handler) AnnulInvoice(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "annul invoice", h.settlement.MarkAnnulled)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, op string, apply func(context.Context, int64) (*domain.Invoice, error)) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, op, err)
		return
	}

	inv, err := apply(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, op, err)
		return
	}

	writeJSON(w, http.StatusOK, mapInvoiceToResponse(inv))
}
