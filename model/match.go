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
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Match links one transaction to one candidate invoice with a confidence
// score in [0, 1]. Rows are owned by the reconciliation pipeline and are
// only ever replaced as a set per transaction, never mutated individually.
type Match struct {
	ID            int64     `json:"-"`
	TransactionID string    `json:"transaction_id"`
	InvoiceID     string    `json:"invoice_id"`
	Score         float64   `json:"score"`
	MatchedAt     time.Time `json:"matched_at"`
}

// MatchCandidate is an engine result before persistence.
type MatchCandidate struct {
	InvoiceID string  `json:"invoiceId"`
	Score     float64 `json:"score"`
}

// InvoicePayment is one application of a transaction amount to an invoice.
// The (invoice_id, transaction_id) pair is unique, which is what makes the
// bookkeeping step idempotent under queue redelivery.
type InvoicePayment struct {
	ID            int64           `json:"-"`
	InvoiceID     string          `json:"invoice_id"`
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	AppliedAt     time.Time       `json:"applied_at"`
}
