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
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/matchbookhq/matchbook/internal/apierror"
	"github.com/matchbookhq/matchbook/model"
)

const (
	invoiceCacheKey = "invoices:all"
	invoiceCacheTTL = 30 * time.Second
)

// ReconcileTransaction runs the full matching pipeline for one transaction:
// load the transaction, load the invoice snapshot, run the cascade, persist
// the resulting match set, and apply payments to the matched invoices.
//
// The whole function is safe to re-run: persistence replaces the match set
// rather than appending, and payment application dedupes on the (invoice,
// transaction) pair. A transaction that no longer exists is treated as done,
// not failed, since retrying can never make it appear.
func (m *Matchbook) ReconcileTransaction(ctx context.Context, transactionID string) ([]model.MatchCandidate, error) {
	ctx, span := otel.Tracer("matchbook.pipeline").Start(ctx, "ReconcileTransaction")
	defer span.End()

	txn, err := m.datasource.GetTransaction(ctx, transactionID)
	if err != nil {
		if apierror.IsNotFound(err) {
			logrus.Warningf("transaction %s not found, dropping match job", transactionID)
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to load transaction %s", transactionID)
	}

	invoices, err := m.loadInvoices(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load invoices")
	}
	if len(invoices) == 0 {
		logrus.Infof("no invoices on file, recording empty match set for %s", transactionID)
	}

	var candidates []model.MatchCandidate
	if len(invoices) > 0 {
		candidates, err = m.engine.Match(ctx, txn, invoices)
		if err != nil {
			return nil, err
		}
	}

	if err := m.datasource.ReplaceMatches(ctx, transactionID, candidates); err != nil {
		return nil, errors.Wrapf(err, "failed to persist matches for %s", transactionID)
	}

	for _, candidate := range candidates {
		if err := m.datasource.ApplyPayment(ctx, candidate.InvoiceID, transactionID, txn.Amount); err != nil {
			// the match set is already committed; payment bookkeeping
			// catches up on the next delivery
			logrus.Errorf("failed to apply payment for invoice %s from %s: %v", candidate.InvoiceID, transactionID, err)
		}
	}

	logrus.Infof("reconciled transaction %s: %d match(es)", transactionID, len(candidates))
	return candidates, nil
}

// loadInvoices returns the full invoice set, served from cache when warm.
// The snapshot is short-lived so freshly imported invoices become matchable
// quickly.
func (m *Matchbook) loadInvoices(ctx context.Context) ([]*model.Invoice, error) {
	var invoices []*model.Invoice
	if m.cache != nil {
		if err := m.cache.Get(ctx, invoiceCacheKey, &invoices); err != nil {
			logrus.Errorf("invoice cache read failed: %v", err)
		}
		if len(invoices) > 0 {
			return invoices, nil
		}
	}

	invoices, err := m.datasource.GetAllInvoices(ctx)
	if err != nil {
		return nil, err
	}

	if m.cache != nil && len(invoices) > 0 {
		if err := m.cache.Set(ctx, invoiceCacheKey, invoices, invoiceCacheTTL); err != nil {
			logrus.Errorf("invoice cache write failed: %v", err)
		}
	}

	return invoices, nil
}
