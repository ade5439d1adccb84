package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel"

	"github.com/matchbookhq/matchbook/internal/apierror"
	"github.com/matchbookhq/matchbook/model"
)

// UpsertTransaction inserts a transaction keyed by its externally supplied
// transaction_id. Re-submission of the same id overwrites the record, which
// is how amount corrections land.
func (d *Datasource) UpsertTransaction(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	ctx, span := otel.Tracer("Transaction").Start(ctx, "Upserting transaction")
	defer span.End()

	err := d.Conn.QueryRowContext(ctx, `
		INSERT INTO transactions (
			transaction_id, account_id, amount, iso_currency_code, unofficial_currency_code,
			date, authorized_date, name, merchant_name, category, category_id,
			payment_channel, pending, pending_transaction_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (transaction_id) DO UPDATE SET
			account_id = EXCLUDED.account_id,
			amount = EXCLUDED.amount,
			iso_currency_code = EXCLUDED.iso_currency_code,
			unofficial_currency_code = EXCLUDED.unofficial_currency_code,
			date = EXCLUDED.date,
			authorized_date = EXCLUDED.authorized_date,
			name = EXCLUDED.name,
			merchant_name = EXCLUDED.merchant_name,
			category = EXCLUDED.category,
			category_id = EXCLUDED.category_id,
			payment_channel = EXCLUDED.payment_channel,
			pending = EXCLUDED.pending,
			pending_transaction_id = EXCLUDED.pending_transaction_id
		RETURNING id, created_at
	`, txn.TransactionID, txn.AccountID, txn.Amount, txn.Currency, txn.UnofficialCurrencyCode,
		txn.Date, txn.AuthorizedDate, txn.Name, txn.MerchantName, pq.Array(txn.Category),
		txn.CategoryID, txn.PaymentChannel, txn.Pending, txn.PendingTransactionID,
	).Scan(&txn.ID, &txn.CreatedAt)
	if err != nil {
		return nil, storeError(err, "Failed to upsert transaction")
	}

	return txn, nil
}

// GetTransaction retrieves a transaction by its canonical id.
func (d *Datasource) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	ctx, span := otel.Tracer("Transaction").Start(ctx, "Fetching transaction from db")
	defer span.End()

	txn := &model.Transaction{}
	var category pq.StringArray
	err := d.Conn.QueryRowContext(ctx, `
		SELECT id, transaction_id, account_id, amount, COALESCE(iso_currency_code, ''),
			COALESCE(unofficial_currency_code, ''), date, authorized_date, name,
			COALESCE(merchant_name, ''), category, COALESCE(category_id, ''),
			COALESCE(payment_channel, ''), pending, COALESCE(pending_transaction_id, ''), created_at
		FROM transactions
		WHERE transaction_id = $1
	`, id).Scan(
		&txn.ID, &txn.TransactionID, &txn.AccountID, &txn.Amount, &txn.Currency,
		&txn.UnofficialCurrencyCode, &txn.Date, &txn.AuthorizedDate, &txn.Name,
		&txn.MerchantName, &category, &txn.CategoryID,
		&txn.PaymentChannel, &txn.Pending, &txn.PendingTransactionID, &txn.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Transaction with ID '%s' not found", id), err)
		}
		return nil, storeError(err, "Failed to retrieve transaction")
	}
	txn.Category = category

	return txn, nil
}

// GetUnmatchedTransactionIDs lists the canonical ids of every transaction
// that has no match rows yet. Used by the reprocess path.
func (d *Datasource) GetUnmatchedTransactionIDs(ctx context.Context) ([]string, error) {
	ctx, span := otel.Tracer("Transaction").Start(ctx, "Fetching unmatched transaction ids")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT t.transaction_id
		FROM transactions t
		WHERE NOT EXISTS (
			SELECT 1 FROM matches m WHERE m.transaction_id = t.transaction_id
		)
		ORDER BY t.id
	`)
	if err != nil {
		return nil, storeError(err, "Failed to list unmatched transactions")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, storeError(err, "Failed to scan unmatched transaction id")
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
