package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/set-night/invoicing/internal/domain"
)

const (
	uniqueViolation       = "23505"
	activeInvoiceIndex    = "invoices_order_active_key"
	invoiceColumns        = "id, order_id, issued_at, total, deposit_applied, payment_method, status, created_at, updated_at"
	invoiceLineColumns    = "id, invoice_id, product_id, quantity, unit_price, subtotal"
	defaultInvoiceOrderBy = "id ASC"
)

// sortColumns maps listing sort fields onto columns. Only these names ever
// reach the ORDER BY clause.
var sortColumns = map[string]string{
	domain.SortByID:             "id",
	domain.SortByOrderID:        "order_id",
	domain.SortByIssuedAt:       "issued_at",
	domain.SortByTotal:          "total",
	domain.SortByDepositApplied: "deposit_applied",
	domain.SortByPaymentMethod:  "payment_method",
	domain.SortByStatus:         "status",
	domain.SortByCreatedAt:      "created_at",
	domain.SortByUpdatedAt:      "updated_at",
}

type InvoiceRepository struct {
	db *pgxpool.Pool
}

func NewInvoiceRepository(db *pgxpool.Pool) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

func (r *InvoiceRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func (r *InvoiceRepository) HasActiveInvoice(ctx context.Context, orderID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM invoices WHERE order_id = $1 AND status <> 'annulled')`,
		orderID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check active invoice: %w", err)
	}
	return exists, nil
}

// CreateInvoice inserts the invoice and its lines in one transaction and
// fills in the generated ids and timestamps. A second active invoice for the
// same order is rejected by invoices_order_active_key.
func (r *InvoiceRepository) CreateInvoice(ctx context.Context, inv *domain.Invoice) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO invoices (order_id, total, deposit_applied, payment_method, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, issued_at, created_at, updated_at`,
		inv.OrderID, inv.Total, inv.DepositApplied, string(inv.PaymentMethod), string(inv.Status),
	).Scan(&inv.ID, &inv.IssuedAt, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, activeInvoiceIndex) {
			return domain.ErrDuplicateInvoice
		}
		return fmt.Errorf("insert invoice: %w", err)
	}

	batch := &pgx.Batch{}
	for i := range inv.Lines {
		line := &inv.Lines[i]
		line.InvoiceID = inv.ID
		batch.Queue(
			`INSERT INTO invoice_lines (invoice_id, product_id, quantity, unit_price, subtotal)
			VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			line.InvoiceID, line.ProductID, line.Quantity, line.UnitPrice, line.Subtotal,
		).QueryRow(func(row pgx.Row) error {
			return row.Scan(&line.ID)
		})
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert invoice lines: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		if isUniqueViolation(err, activeInvoiceIndex) {
			return domain.ErrDuplicateInvoice
		}
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *InvoiceRepository) GetInvoice(ctx context.Context, id int64) (*domain.Invoice, error) {
	inv, err := scanInvoice(r.db.QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}

	if err := r.attachLines(ctx, []*domain.Invoice{inv}); err != nil {
		return nil, err
	}
	return inv, nil
}

// UpdateInvoiceStatus moves the invoice from one status to another only if it
// still holds the expected status. domain.ErrConflict means the row was not
// in the expected status (or does not exist) when the update ran.
// LatestInvoiceStatus returns the status of the order's newest invoice, which
// is the one the order's own status should reflect.
func (r *InvoiceRepository) LatestInvoiceStatus(ctx context.Context, orderID int64) (domain.InvoiceStatus, error) {
	var status domain.InvoiceStatus
	err := r.db.QueryRow(ctx,
		`SELECT status FROM invoices WHERE order_id = $1 ORDER BY id DESC LIMIT 1`, orderID,
	).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrInvoiceNotFound
		}
		return "", fmt.Errorf("get latest invoice status: %w", err)
	}
	return status, nil
}

func (r *InvoiceRepository) UpdateInvoiceStatus(ctx context.Context, id int64, from, to domain.InvoiceStatus) (*domain.Invoice, error) {
	inv, err := scanInvoice(r.db.QueryRow(ctx,
		`UPDATE invoices SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2
		RETURNING `+invoiceColumns,
		id, string(from), string(to)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrConflict
		}
		return nil, fmt.Errorf("update invoice status: %w", err)
	}

	if err := r.attachLines(ctx, []*domain.Invoice{inv}); err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *InvoiceRepository) ListInvoices(ctx context.Context, filter domain.InvoiceFilter) (*domain.InvoicePage, error) {
	where, args := buildInvoiceWhere(filter)

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM invoices`+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count invoices: %w", err)
	}

	orderBy, err := buildInvoiceOrderBy(filter.OrderBy)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM invoices%s ORDER BY %s LIMIT $%d OFFSET $%d`,
		invoiceColumns, where, orderBy, len(args)+1, len(args)+2)
	rows, err := r.db.Query(ctx, query, append(args, filter.Size, filter.Offset())...)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var invoices []*domain.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}

	if err := r.attachLines(ctx, invoices); err != nil {
		return nil, err
	}

	items := make([]domain.Invoice, 0, len(invoices))
	for _, inv := range invoices {
		items = append(items, *inv)
	}
	return domain.NewInvoicePage(items, total, filter.Page, filter.Size), nil
}

// attachLines loads the lines of every given invoice with a single query.
func (r *InvoiceRepository) attachLines(ctx context.Context, invoices []*domain.Invoice) error {
	if len(invoices) == 0 {
		return nil
	}

	byID := make(map[int64]*domain.Invoice, len(invoices))
	ids := make([]int64, 0, len(invoices))
	for _, inv := range invoices {
		inv.Lines = []domain.InvoiceLine{}
		byID[inv.ID] = inv
		ids = append(ids, inv.ID)
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+invoiceLineColumns+` FROM invoice_lines WHERE invoice_id = ANY($1) ORDER BY invoice_id, id`,
		ids)
	if err != nil {
		return fmt.Errorf("get invoice lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line domain.InvoiceLine
		if err := rows.Scan(&line.ID, &line.InvoiceID, &line.ProductID, &line.Quantity, &line.UnitPrice, &line.Subtotal); err != nil {
			return fmt.Errorf("scan invoice line: %w", err)
		}
		if inv, ok := byID[line.InvoiceID]; ok {
			inv.Lines = append(inv.Lines, line)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("get invoice lines: %w", err)
	}
	return nil
}

func scanInvoice(row pgx.Row) (*domain.Invoice, error) {
	var (
		inv    domain.Invoice
		method string
		status string
	)
	err := row.Scan(&inv.ID, &inv.OrderID, &inv.IssuedAt, &inv.Total, &inv.DepositApplied,
		&method, &status, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	inv.PaymentMethod = domain.PaymentMethod(method)
	inv.Status = domain.InvoiceStatus(status)
	return &inv, nil
}

func buildInvoiceWhere(f domain.InvoiceFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.ID != nil {
		add("id = $%d", *f.ID)
	}
	if f.IDNot != nil {
		add("id <> $%d", *f.IDNot)
	}
	if f.OrderID != nil {
		add("order_id = $%d", *f.OrderID)
	}
	if f.OrderIDNot != nil {
		add("order_id <> $%d", *f.OrderIDNot)
	}
	if len(f.PaymentMethods) > 0 {
		methods := make([]string, len(f.PaymentMethods))
		for i, m := range f.PaymentMethods {
			methods[i] = string(m)
		}
		add("payment_method = ANY($%d)", methods)
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		add("status = ANY($%d)", statuses)
	}
	if f.TotalMin != nil {
		add("total >= $%d", *f.TotalMin)
	}
	if f.TotalMax != nil {
		add("total <= $%d", *f.TotalMax)
	}
	if f.IssuedFrom != nil {
		add("issued_at >= $%d", *f.IssuedFrom)
	}
	if f.IssuedTo != nil {
		add("issued_at <= $%d", *f.IssuedTo)
	}
	if f.CreatedFrom != nil {
		add("created_at >= $%d", *f.CreatedFrom)
	}
	if f.CreatedTo != nil {
		add("created_at <= $%d", *f.CreatedTo)
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func buildInvoiceOrderBy(fields []domain.SortField) (string, error) {
	if len(fields) == 0 {
		return defaultInvoiceOrderBy, nil
	}

	parts := make([]string, 0, len(fields)+1)
	hasID := false
	for _, f := range fields {
		col, ok := sortColumns[f.Field]
		if !ok {
			return "", fmt.Errorf("unknown sort field %q", f.Field)
		}
		dir := "ASC"
		if f.Desc {
			dir = "DESC"
		}
		parts = append(parts, col+" "+dir)
		hasID = hasID || col == "id"
	}
	// id breaks ties so pages are stable
	if !hasID {
		parts = append(parts, "id ASC")
	}
	return strings.Join(parts, ", "), nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == uniqueViolation && (constraint == "" || pgErr.ConstraintName == constraint)
}
