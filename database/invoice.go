package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"

	"github.com/matchbookhq/matchbook/internal/apierror"
	"github.com/matchbookhq/matchbook/model"
)

// InsertInvoices bulk-inserts imported invoices in a single transaction and
// returns the number of rows written. Invoice ids are generated here when
// the importer did not set one.
func (d *Datasource) InsertInvoices(ctx context.Context, invoices []*model.Invoice) (int, error) {
	ctx, span := otel.Tracer("Invoice").Start(ctx, "Inserting invoices")
	defer span.End()

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, storeError(err, "Failed to begin invoice insert")
	}

	for _, inv := range invoices {
		if inv.InvoiceID == "" {
			inv.InvoiceID = model.GenerateUUIDWithSuffix("inv")
		}
		if inv.PaymentStatus == "" {
			inv.PaymentStatus = model.PaymentStatusUnpaid
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO invoices (
				invoice_id, invoice_number, customer_name, invoice_date, due_date,
				line_item, amount, payment_method, payment_status, amount_paid
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, inv.InvoiceID, inv.InvoiceNumber, inv.CustomerName, inv.InvoiceDate, inv.DueDate,
			inv.LineItem, inv.Amount, inv.PaymentMethod, inv.PaymentStatus, inv.AmountPaid)
		if err != nil {
			_ = tx.Rollback()
			return 0, storeError(err, fmt.Sprintf("Failed to insert invoice %s", inv.InvoiceNumber))
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, storeError(err, "Failed to commit invoice insert")
	}

	return len(invoices), nil
}

// GetInvoice retrieves an invoice by id.
func (d *Datasource) GetInvoice(ctx context.Context, id string) (*model.Invoice, error) {
	ctx, span := otel.Tracer("Invoice").Start(ctx, "Fetching invoice from db")
	defer span.End()

	inv := &model.Invoice{}
	err := d.Conn.QueryRowContext(ctx, `
		SELECT id, invoice_id, invoice_number, customer_name, invoice_date, due_date,
			line_item, amount, COALESCE(payment_method, ''), payment_status, amount_paid, created_at
		FROM invoices
		WHERE invoice_id = $1
	`, id).Scan(
		&inv.ID, &inv.InvoiceID, &inv.InvoiceNumber, &inv.CustomerName, &inv.InvoiceDate,
		&inv.DueDate, &inv.LineItem, &inv.Amount, &inv.PaymentMethod, &inv.PaymentStatus,
		&inv.AmountPaid, &inv.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Invoice with ID '%s' not found", id), err)
		}
		return nil, storeError(err, "Failed to retrieve invoice")
	}

	return inv, nil
}

// GetAllInvoices retrieves the full invoice set. The matching cascade always
// starts from this snapshot.
func (d *Datasource) GetAllInvoices(ctx context.Context) ([]*model.Invoice, error) {
	ctx, span := otel.Tracer("Invoice").Start(ctx, "Fetching all invoices")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT id, invoice_id, invoice_number, customer_name, invoice_date, due_date,
			line_item, amount, COALESCE(payment_method, ''), payment_status, amount_paid, created_at
		FROM invoices
		ORDER BY id
	`)
	if err != nil {
		return nil, storeError(err, "Failed to list invoices")
	}
	defer rows.Close()

	var invoices []*model.Invoice
	for rows.Next() {
		inv := &model.Invoice{}
		err = rows.Scan(
			&inv.ID, &inv.InvoiceID, &inv.InvoiceNumber, &inv.CustomerName, &inv.InvoiceDate,
			&inv.DueDate, &inv.LineItem, &inv.Amount, &inv.PaymentMethod, &inv.PaymentStatus,
			&inv.AmountPaid, &inv.CreatedAt,
		)
		if err != nil {
			return nil, storeError(err, "Failed to scan invoice")
		}
		invoices = append(invoices, inv)
	}

	return invoices, rows.Err()
}

// ApplyPayment records one application of a transaction amount to an invoice
// and recomputes the invoice's paid total from the payments ledger. The
// ledger insert is a no-op when the (invoice, transaction) pair was already
// applied, and the paid total is derived by aggregation in a single UPDATE,
// so the operation is idempotent under redelivery and safe under concurrent
// workers hitting the same invoice.
func (d *Datasource) ApplyPayment(ctx context.Context, invoiceID, transactionID string, amount decimal.Decimal) error {
	ctx, span := otel.Tracer("Invoice").Start(ctx, "Applying payment to invoice")
	defer span.End()

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return storeError(err, "Failed to begin payment application")
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO invoice_payments (invoice_id, transaction_id, amount)
		VALUES ($1, $2, $3)
		ON CONFLICT (invoice_id, transaction_id) DO NOTHING
	`, invoiceID, transactionID, amount)
	if err != nil {
		_ = tx.Rollback()
		return storeError(err, fmt.Sprintf("Failed to record payment for invoice %s", invoiceID))
	}

	if err := recomputePaidTotal(ctx, tx, invoiceID); err != nil {
		_ = tx.Rollback()
		return storeError(err, fmt.Sprintf("Failed to update paid total for invoice %s", invoiceID))
	}

	if err := tx.Commit(); err != nil {
		return storeError(err, "Failed to commit payment application")
	}

	return nil
}

// recomputePaidTotal derives an invoice's paid total and status from the
// payments ledger inside the caller's transaction.
func recomputePaidTotal(ctx context.Context, tx *sql.Tx, invoiceID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE invoices SET
			amount_paid = agg.total,
			payment_status = CASE
				WHEN agg.total >= invoices.amount THEN 'full'
				WHEN agg.total > 0 THEN 'partial'
				ELSE 'unpaid'
			END
		FROM (
			SELECT COALESCE(SUM(amount), 0) AS total
			FROM invoice_payments
			WHERE invoice_id = $1
		) agg
		WHERE invoice_id = $1
	`, invoiceID)
	return err
}

// GetInvoicePayments lists the payment applications recorded for an invoice.
func (d *Datasource) GetInvoicePayments(ctx context.Context, invoiceID string) ([]*model.InvoicePayment, error) {
	ctx, span := otel.Tracer("Invoice").Start(ctx, "Fetching invoice payments")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT id, invoice_id, transaction_id, amount, applied_at
		FROM invoice_payments
		WHERE invoice_id = $1
		ORDER BY applied_at
	`, invoiceID)
	if err != nil {
		return nil, storeError(err, "Failed to list invoice payments")
	}
	defer rows.Close()

	var payments []*model.InvoicePayment
	for rows.Next() {
		p := &model.InvoicePayment{}
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.TransactionID, &p.Amount, &p.AppliedAt); err != nil {
			return nil, storeError(err, "Failed to scan invoice payment")
		}
		payments = append(payments, p)
	}

	return payments, rows.Err()
}
