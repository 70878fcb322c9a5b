package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/set-night/invoicing/internal/domain"
)

var errorStatuses = []struct {
	err    error
	status int
	code   string
}{
	{errInvalidQuery, http.StatusBadRequest, "invalid_query"},
	{domain.ErrOrderNotFound, http.StatusBadRequest, "order_not_found"},
	{domain.ErrEmptyOrder, http.StatusBadRequest, "empty_order"},
	{domain.ErrDuplicateInvoice, http.StatusBadRequest, "duplicate_invoice"},
	{domain.ErrInvalidTransition, http.StatusBadRequest, "invalid_transition"},
	{domain.ErrInvalidPaymentMethod, http.StatusBadRequest, "invalid_payment_method"},
	{domain.ErrInvalidStatus, http.StatusBadRequest, "invalid_status"},
	{domain.ErrInvoiceNotFound, http.StatusNotFound, "invoice_not_found"},
	{domain.ErrConflict, http.StatusConflict, "conflict"},
	{domain.ErrUpstreamUnavailable, http.StatusServiceUnavailable, "upstream_unavailable"},
}

// errorStatus maps a domain error onto its HTTP status and error code.
func errorStatus(err error) (int, string) {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			return e.status, e.code
		}
	}
	return http.StatusInternalServerError, "internal_error"
}

// writeDomainError answers with the status matching err. Unexpected errors are
// logged, reported and hidden from the client.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, code := errorStatus(err)

	switch status {
	case http.StatusInternalServerError:
		slog.ErrorContext(r.Context(), op+" failed",
			"request_id", chimw.GetReqID(r.Context()),
			"error", err,
		)
		h.report(err, op)
		writeError(w, status, code, "internal server error")
		return
	case http.StatusServiceUnavailable:
		slog.WarnContext(r.Context(), op+" failed",
			"request_id", chimw.GetReqID(r.Context()),
			"error", err,
		)
	}

	writeError(w, status, code, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: msg,
	})
}

// report hands err to the error reporter without holding up the response.
func (h *Handler) report(err error, op string) {
	if h.errors == nil {
		return
	}
	h.reports.Add(1)
	go func() {
		defer h.reports.Done()
		h.errors.LogError(err, op)
	}()
}
