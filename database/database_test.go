/*
Copyright 2025 Matchbook Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/matchbookhq/matchbook/internal/apierror"
	"github.com/matchbookhq/matchbook/model"
)

func newTestDatasource(t *testing.T) (*Datasource, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &Datasource{Conn: db}, mock
}

func TestUpsertTransaction(t *testing.T) {
	d, mock := newTestDatasource(t)

	txn := &model.Transaction{
		TransactionID:  gofakeit.UUID(),
		AccountID:      gofakeit.UUID(),
		Amount:         decimal.RequireFromString("1609"),
		Date:           time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		Name:           "ACME CORP PAYMENT",
		Category:       []string{"Service", "Consulting"},
		PaymentChannel: "ach",
	}

	mock.ExpectQuery("INSERT INTO transactions").
		WithArgs(
			txn.TransactionID, txn.AccountID, txn.Amount, txn.Currency, txn.UnofficialCurrencyCode,
			txn.Date, txn.AuthorizedDate, txn.Name, txn.MerchantName, pq.Array(txn.Category),
			txn.CategoryID, txn.PaymentChannel, txn.Pending, txn.PendingTransactionID,
		).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(1, time.Now()))

	got, err := d.UpsertTransaction(context.Background(), txn)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), got.ID)
	assert.WithinDuration(t, time.Now(), got.CreatedAt, time.Second)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTransactionNotFound(t *testing.T) {
	d, mock := newTestDatasource(t)

	mock.ExpectQuery("SELECT .* FROM transactions WHERE transaction_id = \\$1").
		WithArgs("txn_missing").
		WillReturnRows(sqlmock.NewRows(nil))

	_, err := d.GetTransaction(context.Background(), "txn_missing")
	assert.Error(t, err)
	assert.True(t, apierror.IsNotFound(err))
}

func TestReplaceMatchesIsAtomic(t *testing.T) {
	d, mock := newTestDatasource(t)

	candidates := []model.MatchCandidate{
		{InvoiceID: "inv_1", Score: 0.98},
		{InvoiceID: "inv_2", Score: 0.98},
	}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM matches WHERE transaction_id = \\$1").
		WithArgs("txn_1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO matches").
		WithArgs("txn_1", "inv_1", 0.98).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO matches").
		WithArgs("txn_1", "inv_2", 0.98).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectQuery("DELETE FROM invoice_payments").
		WithArgs("txn_1", pq.Array([]string{"inv_1", "inv_2"})).
		WillReturnRows(sqlmock.NewRows([]string{"invoice_id"}))
	mock.ExpectCommit()

	err := d.ReplaceMatches(context.Background(), "txn_1", candidates)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceMatchesRollsBackOnInsertFailure(t *testing.T) {
	d, mock := newTestDatasource(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM matches WHERE transaction_id = \\$1").
		WithArgs("txn_1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO matches").
		WithArgs("txn_1", "inv_1", 1.0).
		WillReturnError(&pq.Error{Code: "53300"})
	mock.ExpectRollback()

	err := d.ReplaceMatches(context.Background(), "txn_1", []model.MatchCandidate{{InvoiceID: "inv_1", Score: 1.0}})
	assert.Error(t, err)
	assert.True(t, apierror.IsRetryable(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceMatchesEmptySetClearsRows(t *testing.T) {
	d, mock := newTestDatasource(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM matches WHERE transaction_id = \\$1").
		WithArgs("txn_1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery("DELETE FROM invoice_payments").
		WithArgs("txn_1", pq.Array([]string{})).
		WillReturnRows(sqlmock.NewRows([]string{"invoice_id"}))
	mock.ExpectCommit()

	err := d.ReplaceMatches(context.Background(), "txn_1", nil)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceMatchesRetractsStalePayments(t *testing.T) {
	d, mock := newTestDatasource(t)

	// a re-run that switches the match from inv_1 to inv_2 must retract the
	// payment previously applied to inv_1 and recompute its paid total in
	// the same transaction
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM matches WHERE transaction_id = \\$1").
		WithArgs("txn_1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO matches").
		WithArgs("txn_1", "inv_2", 0.85).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("DELETE FROM invoice_payments").
		WithArgs("txn_1", pq.Array([]string{"inv_2"})).
		WillReturnRows(sqlmock.NewRows([]string{"invoice_id"}).AddRow("inv_1"))
	mock.ExpectExec("UPDATE invoices SET").
		WithArgs("inv_1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := d.ReplaceMatches(context.Background(), "txn_1", []model.MatchCandidate{{InvoiceID: "inv_2", Score: 0.85}})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyPaymentRecordsLedgerAndRecomputesTotal(t *testing.T) {
	d, mock := newTestDatasource(t)

	amount := decimal.RequireFromString("1609")

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO invoice_payments").
		WithArgs("inv_1", "txn_1", amount).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE invoices SET").
		WithArgs("inv_1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := d.ApplyPayment(context.Background(), "inv_1", "txn_1", amount)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyPaymentRedeliveryIsNoop(t *testing.T) {
	d, mock := newTestDatasource(t)

	amount := decimal.RequireFromString("1609")

	// ON CONFLICT DO NOTHING: the ledger insert affects zero rows on a
	// redelivered job, and the recompute leaves the totals unchanged.
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO invoice_payments").
		WithArgs("inv_1", "txn_1", amount).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE invoices SET").
		WithArgs("inv_1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := d.ApplyPayment(context.Background(), "inv_1", "txn_1", amount)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertInvoicesGeneratesIDs(t *testing.T) {
	d, mock := newTestDatasource(t)

	invoices := []*model.Invoice{
		{
			InvoiceNumber: "INV-1001",
			CustomerName:  gofakeit.Company(),
			LineItem:      "SEO Services: $1,609.00",
			Amount:        decimal.RequireFromString("1609"),
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO invoices").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	count, err := d.InsertInvoices(context.Background(), invoices)
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Contains(t, invoices[0].InvoiceID, "inv_")
	assert.Equal(t, model.PaymentStatusUnpaid, invoices[0].PaymentStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetMatchesByTransactionIDOrdersByScore(t *testing.T) {
	d, mock := newTestDatasource(t)

	rows := sqlmock.NewRows([]string{"id", "transaction_id", "invoice_id", "score", "matched_at"}).
		AddRow(1, "txn_1", "inv_2", 0.81, time.Now()).
		AddRow(2, "txn_1", "inv_3", 0.44, time.Now())

	mock.ExpectQuery("SELECT .* FROM matches WHERE transaction_id = \\$1 ORDER BY score DESC").
		WithArgs("txn_1").
		WillReturnRows(rows)

	matches, err := d.GetMatchesByTransactionID(context.Background(), "txn_1")
	assert.NoError(t, err)
	assert.Len(t, matches, 2)
	assert.Equal(t, "inv_2", matches[0].InvoiceID)
	assert.GreaterOrEqual(t, matches[0].Score, matches[1].Score)
}

func TestGetUnmatchedTransactionIDs(t *testing.T) {
	d, mock := newTestDatasource(t)

	rows := sqlmock.NewRows([]string{"transaction_id"}).
		AddRow("txn_a").
		AddRow("txn_b")

	mock.ExpectQuery("SELECT t.transaction_id").
		WillReturnRows(rows)

	ids, err := d.GetUnmatchedTransactionIDs(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []string{"txn_a", "txn_b"}, ids)
}

func TestStoreErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		code      apierror.ErrorCode
		retryable bool
	}{
		{"connection failure", &pq.Error{Code: "08006"}, apierror.ErrTransient, true},
		{"out of resources", &pq.Error{Code: "53300"}, apierror.ErrTransient, true},
		{"serialization failure", &pq.Error{Code: "40001"}, apierror.ErrTransient, true},
		{"unique violation", &pq.Error{Code: "23505"}, apierror.ErrConflict, false},
		{"unknown", assert.AnError, apierror.ErrInternalServer, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := storeError(tt.err, "boom")
			apiErr, ok := got.(apierror.APIError)
			assert.True(t, ok)
			assert.Equal(t, tt.code, apiErr.Code)
			assert.Equal(t, tt.retryable, apierror.IsRetryable(got))
		})
	}
}
