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

package matchbook

import (
	"context"

	"github.com/matchbookhq/matchbook/model"
)

// GetInvoice retrieves an invoice by id.
func (m *Matchbook) GetInvoice(ctx context.Context, invoiceID string) (*model.Invoice, error) {
	return m.datasource.GetInvoice(ctx, invoiceID)
}

// GetInvoicePayments lists the payment applications recorded for an invoice.
func (m *Matchbook) GetInvoicePayments(ctx context.Context, invoiceID string) ([]*model.InvoicePayment, error) {
	return m.datasource.GetInvoicePayments(ctx, invoiceID)
}
