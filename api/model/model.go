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

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"

	"github.com/matchbookhq/matchbook/model"
)

// SubmitTransaction is the request body for posting a bank transaction.
// Date is a plain calendar date ("2006-01-02"); amounts arrive as JSON
// numbers or numeric strings and are held as decimals end to end.
type SubmitTransaction struct {
	TransactionID          string          `json:"transaction_id"`
	AccountID              string          `json:"account_id"`
	Amount                 decimal.Decimal `json:"amount"`
	Currency               string          `json:"iso_currency_code"`
	UnofficialCurrencyCode string          `json:"unofficial_currency_code"`
	Date                   string          `json:"date"`
	AuthorizedDate         string          `json:"authorized_date"`
	Name                   string          `json:"name"`
	MerchantName           string          `json:"merchant_name"`
	Category               []string        `json:"category"`
	CategoryID             string          `json:"category_id"`
	PaymentChannel         string          `json:"payment_channel"`
	Pending                bool            `json:"pending"`
	PendingTransactionID   string          `json:"pending_transaction_id"`
}

func (t *SubmitTransaction) ValidateSubmitTransaction() error {
	return validation.ValidateStruct(t,
		validation.Field(&t.TransactionID, validation.Required),
		validation.Field(&t.AccountID, validation.Required),
		validation.Field(&t.Amount, validation.Required),
		validation.Field(&t.Date, validation.Required, validation.Date("2006-01-02")),
		validation.Field(&t.AuthorizedDate, validation.Date("2006-01-02")),
		validation.Field(&t.Name, validation.Required),
	)
}

func (t *SubmitTransaction) ToTransaction() *model.Transaction {
	date, _ := time.Parse("2006-01-02", t.Date)

	var authorized *time.Time
	if t.AuthorizedDate != "" {
		if d, err := time.Parse("2006-01-02", t.AuthorizedDate); err == nil {
			authorized = &d
		}
	}

	return &model.Transaction{
		TransactionID:          t.TransactionID,
		AccountID:              t.AccountID,
		Amount:                 t.Amount,
		Currency:               t.Currency,
		UnofficialCurrencyCode: t.UnofficialCurrencyCode,
		Date:                   date,
		AuthorizedDate:         authorized,
		Name:                   t.Name,
		MerchantName:           t.MerchantName,
		Category:               t.Category,
		CategoryID:             t.CategoryID,
		PaymentChannel:         t.PaymentChannel,
		Pending:                t.Pending,
		PendingTransactionID:   t.PendingTransactionID,
	}
}
