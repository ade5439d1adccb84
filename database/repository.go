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

	"github.com/shopspring/decimal"

	"github.com/matchbookhq/matchbook/model"
)

// IDataSource defines the interface for data source operations, grouping related functionalities.
type IDataSource interface {
	transaction // Interface for transaction-related operations
	invoice     // Interface for invoice-related operations
	match       // Interface for match-related operations
	Close() error
}

// transaction defines methods for handling transactions.
type transaction interface {
	UpsertTransaction(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) // Inserts or overwrites a transaction keyed by transaction_id
	GetTransaction(ctx context.Context, id string) (*model.Transaction, error)                 // Retrieves a transaction by its canonical id
	GetUnmatchedTransactionIDs(ctx context.Context) ([]string, error)                          // Lists ids of transactions without any match rows
}

// invoice defines methods for handling invoices.
type invoice interface {
	InsertInvoices(ctx context.Context, invoices []*model.Invoice) (int, error)                              // Bulk-inserts imported invoices
	GetInvoice(ctx context.Context, id string) (*model.Invoice, error)                                       // Retrieves an invoice by id
	GetAllInvoices(ctx context.Context) ([]*model.Invoice, error)                                            // Retrieves the full invoice set
	ApplyPayment(ctx context.Context, invoiceID, transactionID string, amount decimal.Decimal) error         // Applies a transaction amount to an invoice, idempotently
	GetInvoicePayments(ctx context.Context, invoiceID string) ([]*model.InvoicePayment, error)               // Lists payment applications for an invoice
}

// match defines methods for handling match rows.
type match interface {
	ReplaceMatches(ctx context.Context, transactionID string, candidates []model.MatchCandidate) error // Replaces the match set for a transaction atomically
	GetMatchesByTransactionID(ctx context.Context, transactionID string) ([]*model.Match, error)       // Retrieves matches for a transaction, best score first
}
