package database

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel"

	"github.com/matchbookhq/matchbook/model"
)

// ReplaceMatches atomically replaces the match set for a transaction. Delete
// plus insert inside one SQL transaction gives both idempotency under queue
// redelivery and all-or-nothing persistence of the candidate set.
//
// Payment ledger rows from this transaction whose invoice is absent from the
// new candidate set are retracted in the same transaction, and each affected
// invoice's paid total is recomputed, so a re-run that changes its mind does
// not leave the previously matched invoice permanently inflated.
func (d *Datasource) ReplaceMatches(ctx context.Context, transactionID string, candidates []model.MatchCandidate) error {
	ctx, span := otel.Tracer("Match").Start(ctx, "Replacing matches for transaction")
	defer span.End()

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return storeError(err, "Failed to begin match replace")
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM matches WHERE transaction_id = $1`, transactionID)
	if err != nil {
		_ = tx.Rollback()
		return storeError(err, "Failed to clear previous matches")
	}

	invoiceIDs := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		invoiceIDs = append(invoiceIDs, candidate.InvoiceID)
		_, err = tx.ExecContext(ctx, `
			INSERT INTO matches (transaction_id, invoice_id, score)
			VALUES ($1, $2, $3)
		`, transactionID, candidate.InvoiceID, candidate.Score)
		if err != nil {
			_ = tx.Rollback()
			return storeError(err, "Failed to insert match")
		}
	}

	retracted, err := retractStalePayments(ctx, tx, transactionID, invoiceIDs)
	if err != nil {
		_ = tx.Rollback()
		return storeError(err, "Failed to retract stale payments")
	}

	for _, invoiceID := range retracted {
		if err := recomputePaidTotal(ctx, tx, invoiceID); err != nil {
			_ = tx.Rollback()
			return storeError(err, "Failed to update paid total after retraction")
		}
	}

	if err := tx.Commit(); err != nil {
		return storeError(err, "Failed to commit match replace")
	}

	return nil
}

// retractStalePayments deletes payment ledger rows recorded by this
// transaction against invoices no longer in its match set, returning the
// invoice ids whose totals need recomputing.
func retractStalePayments(ctx context.Context, tx *sql.Tx, transactionID string, invoiceIDs []string) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `
		DELETE FROM invoice_payments
		WHERE transaction_id = $1 AND NOT (invoice_id = ANY($2))
		RETURNING invoice_id
	`, transactionID, pq.Array(invoiceIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var retracted []string
	for rows.Next() {
		var invoiceID string
		if err := rows.Scan(&invoiceID); err != nil {
			return nil, err
		}
		retracted = append(retracted, invoiceID)
	}

	return retracted, rows.Err()
}

// GetMatchesByTransactionID retrieves all matches for a transaction ordered
// by descending score.
func (d *Datasource) GetMatchesByTransactionID(ctx context.Context, transactionID string) ([]*model.Match, error) {
	ctx, span := otel.Tracer("Match").Start(ctx, "Fetching matches by transaction ID")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT id, transaction_id, invoice_id, score, matched_at
		FROM matches
		WHERE transaction_id = $1
		ORDER BY score DESC
	`, transactionID)
	if err != nil {
		return nil, storeError(err, "Failed to fetch matches")
	}
	defer rows.Close()

	var matches []*model.Match
	for rows.Next() {
		m := &model.Match{}
		if err := rows.Scan(&m.ID, &m.TransactionID, &m.InvoiceID, &m.Score, &m.MatchedAt); err != nil {
			return nil, storeError(err, "Failed to scan match")
		}
		matches = append(matches, m)
	}

	return matches, rows.Err()
}
