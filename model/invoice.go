package model

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Invoice payment statuses.
const (
	PaymentStatusUnpaid  = "unpaid"
	PaymentStatusPartial = "partial"
	PaymentStatusFull    = "full"
)

// Invoice is one imported invoice row. InvoiceNumber comes from the source
// system and may repeat; InvoiceID is generated at import and is unique.
// Amount is extracted from the embedded dollar amount in LineItem and is
// immutable after import. AmountPaid is derived from the payments ledger.
type Invoice struct {
	ID            int64           `json:"-"`
	InvoiceID     string          `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	CustomerName  string          `json:"customer_name"`
	InvoiceDate   time.Time       `json:"invoice_date"`
	DueDate       time.Time       `json:"due_date"`
	LineItem      string          `json:"line_item"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method"`
	PaymentStatus string          `json:"payment_status"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	CreatedAt     time.Time       `json:"created_at"`
}

var lineItemAmountPattern = regexp.MustCompile(`\$([0-9,]+(?:\.[0-9]+)?)`)

// ExtractLineItemAmount pulls the dollar amount embedded in a line item
// description, e.g. "SEO Services: $1,609.00" -> 1609.00.
func ExtractLineItemAmount(lineItem string) (decimal.Decimal, error) {
	m := lineItemAmountPattern.FindStringSubmatch(lineItem)
	if m == nil {
		return decimal.Zero, fmt.Errorf("no amount found in line item %q", lineItem)
	}
	amount, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount in line item %q: %w", lineItem, err)
	}
	return amount, nil
}

// PaymentStatusFor returns the payment status implied by a paid total.
func PaymentStatusFor(amountPaid, amount decimal.Decimal) string {
	switch {
	case amountPaid.IsZero():
		return PaymentStatusUnpaid
	case amountPaid.GreaterThanOrEqual(amount):
		return PaymentStatusFull
	default:
		return PaymentStatusPartial
	}
}
