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

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/matchbookhq/matchbook/model"
)

// SubmitTransaction persists a transaction and queues it for matching. The
// write is an upsert keyed on the external transaction id, so re-submitting
// the same transaction updates it in place rather than duplicating it.
func (m *Matchbook) SubmitTransaction(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	ctx, span := otel.Tracer("matchbook.transaction").Start(ctx, "SubmitTransaction")
	defer span.End()

	saved, err := m.datasource.UpsertTransaction(ctx, txn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to save transaction %s", txn.TransactionID)
	}

	if err := m.queue.EnqueueMatch(ctx, saved.TransactionID); err != nil {
		return nil, errors.Wrapf(err, "failed to queue match job for %s", saved.TransactionID)
	}

	return saved, nil
}

// GetTransaction retrieves a transaction by its external id.
func (m *Matchbook) GetTransaction(ctx context.Context, transactionID string) (*model.Transaction, error) {
	return m.datasource.GetTransaction(ctx, transactionID)
}

// GetMatches retrieves the recorded matches for a transaction, best first.
func (m *Matchbook) GetMatches(ctx context.Context, transactionID string) ([]*model.Match, error) {
	return m.datasource.GetMatchesByTransactionID(ctx, transactionID)
}

// ReprocessUnmatched re-queues every transaction that has no recorded match,
// returning the number queued. Useful after an invoice import lands or after
// a scorer outage drained jobs into the archive.
func (m *Matchbook) ReprocessUnmatched(ctx context.Context) (int, error) {
	ctx, span := otel.Tracer("matchbook.transaction").Start(ctx, "ReprocessUnmatched")
	defer span.End()

	ids, err := m.datasource.GetUnmatchedTransactionIDs(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to list unmatched transactions")
	}

	queued := 0
	for _, id := range ids {
		if err := m.queue.EnqueueMatch(ctx, id); err != nil {
			logrus.Errorf("failed to re-queue %s: %v", id, err)
			continue
		}
		queued++
	}

	logrus.Infof("re-queued %d of %d unmatched transaction(s)", queued, len(ids))
	return queued, nil
}
