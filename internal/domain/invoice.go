package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentMethodTransfer PaymentMethod = "transfer"
	PaymentMethodDebit    PaymentMethod = "debit"
	PaymentMethodCredit   PaymentMethod = "credit"
	PaymentMethodCash     PaymentMethod = "cash"
)

// PaymentMethods lists every accepted payment method.
var PaymentMethods = []PaymentMethod{
	PaymentMethodTransfer,
	PaymentMethodDebit,
	PaymentMethodCredit,
	PaymentMethodCash,
}

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	for _, m := range PaymentMethods {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, s)
}

type Invoice struct {
	ID             int64
	OrderID        int64
	IssuedAt       time.Time
	Total          decimal.Decimal
	DepositApplied decimal.Decimal
	PaymentMethod  PaymentMethod
	Status         InvoiceStatus
	Lines          []InvoiceLine
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type InvoiceLine struct {
	ID        int64
	InvoiceID int64
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
}

// NewInvoiceLine copies an order line onto an invoice line. Prices are taken
// as given by the order service.
func NewInvoiceLine(productID int64, quantity int, unitPrice decimal.Decimal) InvoiceLine {
	return InvoiceLine{
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		Subtotal:  unitPrice.Mul(decimal.NewFromInt(int64(quantity))),
	}
}

// SumSubtotals returns the raw invoice total before any deposit.
func SumSubtotals(lines []InvoiceLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal)
	}
	return total
}

// ApplyDeposit subtracts a deposit from the raw total, flooring at zero.
// Negative deposits are treated as no deposit.
func ApplyDeposit(raw, deposit decimal.Decimal) (total, applied decimal.Decimal) {
	if deposit.IsNegative() {
		deposit = decimal.Zero
	}
	total = raw.Sub(deposit)
	if total.IsNegative() {
		total = decimal.Zero
	}
	return total, deposit
}
