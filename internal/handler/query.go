package handler

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/set-night/invoicing/internal/config"
	"github.com/set-night/invoicing/internal/domain"
)

var errInvalidQuery = errors.New("invalid query")

// parseInvoiceFilter reads the listing query string. Repeated parameters and
// comma-separated values are both accepted for payment_method, status and
// order_by.
func parseInvoiceFilter(q url.Values) (domain.InvoiceFilter, error) {
	f := domain.InvoiceFilter{Page: 1, Size: config.DefaultPageSize}
	var err error

	if f.ID, err = parseOptionalInt(q, "id"); err != nil {
		return f, err
	}
	if f.IDNot, err = parseOptionalInt(q, "id__neq"); err != nil {
		return f, err
	}
	if f.OrderID, err = parseOptionalInt(q, "order_id"); err != nil {
		return f, err
	}
	if f.OrderIDNot, err = parseOptionalInt(q, "order_id__neq"); err != nil {
		return f, err
	}
	if f.TotalMin, err = parseOptionalDecimal(q, "total__gte"); err != nil {
		return f, err
	}
	if f.TotalMax, err = parseOptionalDecimal(q, "total__lte"); err != nil {
		return f, err
	}
	if f.IssuedFrom, err = parseOptionalTime(q, "issued_at__gte", false); err != nil {
		return f, err
	}
	if f.IssuedTo, err = parseOptionalTime(q, "issued_at__lte", true); err != nil {
		return f, err
	}
	if f.CreatedFrom, err = parseOptionalTime(q, "created_at__gte", false); err != nil {
		return f, err
	}
	if f.CreatedTo, err = parseOptionalTime(q, "created_at__lte", true); err != nil {
		return f, err
	}

	for _, v := range splitValues(q["payment_method"]) {
		m, err := domain.ParsePaymentMethod(v)
		if err != nil {
			return f, err
		}
		f.PaymentMethods = append(f.PaymentMethods, m)
	}
	for _, v := range splitValues(q["status"]) {
		s, err := domain.ParseInvoiceStatus(v)
		if err != nil {
			return f, err
		}
		f.Statuses = append(f.Statuses, s)
	}
	for _, v := range splitValues(q["order_by"]) {
		field := domain.SortField{Field: v}
		if strings.HasPrefix(v, "-") {
			field = domain.SortField{Field: v[1:], Desc: true}
		}
		if !slices.Contains(domain.SortableInvoiceFields, field.Field) {
			return f, fmt.Errorf("%w: cannot sort by %q", errInvalidQuery, field.Field)
		}
		f.OrderBy = append(f.OrderBy, field)
	}

	if v := q.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return f, fmt.Errorf("%w: page must be a positive integer", errInvalidQuery)
		}
		f.Page = page
	}
	if v := q.Get("size"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || size < 1 || size > config.MaxPageSize {
			return f, fmt.Errorf("%w: size must be between 1 and %d", errInvalidQuery, config.MaxPageSize)
		}
		f.Size = size
	}

	return f, nil
}

func splitValues(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func parseOptionalInt(q url.Values, key string) (*int64, error) {
	v := q.Get(key)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be an integer", errInvalidQuery, key)
	}
	return &n, nil
}

func parseOptionalDecimal(q url.Values, key string) (*decimal.Decimal, error) {
	v := q.Get(key)
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a decimal", errInvalidQuery, key)
	}
	return &d, nil
}

// parseOptionalTime accepts RFC 3339 timestamps and plain dates. A plain date
// used as an upper bound covers the whole day.
func parseOptionalTime(q url.Values, key string, endOfDay bool) (*time.Time, error) {
	v := q.Get(key)
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a date or RFC 3339 timestamp", errInvalidQuery, key)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%w: invoice id must be a positive integer", errInvalidQuery)
	}
	return id, nil
}
