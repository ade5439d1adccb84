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
	"strings"

	"github.com/shopspring/decimal"

	"github.com/matchbookhq/matchbook/model"
)

// Confidence scores assigned by the deterministic tiers. The fallback scorer
// judges its own scores in [0, 1].
const (
	ScoreExactAmount   = 1.0
	ScorePaymentMethod = 0.99
	ScoreNameCategory  = 0.98
)

// Engine narrows invoice candidates for a transaction through a tiered rule
// cascade, deferring to the external scorer only when the cheap deterministic
// signals are inconclusive. Matching is pure and synchronous; the scorer call
// is the only suspension point.
type Engine struct {
	scorer Scorer
}

func NewEngine(scorer Scorer) *Engine {
	return &Engine{scorer: scorer}
}

// Match returns ranked match candidates for a transaction against the full
// invoice set. Each tier filters the previous tier's survivors and the
// cascade terminates the moment a tier resolves to exactly one candidate.
// The name/category tier accepts any number of survivors since textual
// similarity is inherently multi-candidate. When the cascade falls through,
// the scorer is invoked with the full original invoice set, not the narrowed
// survivors: the tier filters may have been too strict to trust as a
// pre-filter. A "no candidate" outcome is not an error; only scorer failures
// propagate.
func (e *Engine) Match(ctx context.Context, txn *model.Transaction, invoices []*model.Invoice) ([]model.MatchCandidate, error) {
	// Tier 1: exact amount
	candidates := filterByAmount(invoices, txn.Amount)
	if len(candidates) == 1 {
		return []model.MatchCandidate{{InvoiceID: candidates[0].InvoiceID, Score: ScoreExactAmount}}, nil
	}

	// Tier 2: matching payment method
	candidates = filterByPaymentMethod(candidates, txn.PaymentChannel)
	if len(candidates) == 1 {
		return []model.MatchCandidate{{InvoiceID: candidates[0].InvoiceID, Score: ScorePaymentMethod}}, nil
	}

	// Tier 3: customer name and category against the line item
	candidates = filterByNameAndCategory(candidates, txn)
	if len(candidates) > 0 {
		results := make([]model.MatchCandidate, 0, len(candidates))
		for _, inv := range candidates {
			results = append(results, model.MatchCandidate{InvoiceID: inv.InvoiceID, Score: ScoreNameCategory})
		}
		return results, nil
	}

	return e.scorer.Score(ctx, txn, invoices)
}

func filterByAmount(invoices []*model.Invoice, amount decimal.Decimal) []*model.Invoice {
	var survivors []*model.Invoice
	for _, inv := range invoices {
		if inv.Amount.Equal(amount) {
			survivors = append(survivors, inv)
		}
	}
	return survivors
}

func filterByPaymentMethod(invoices []*model.Invoice, paymentChannel string) []*model.Invoice {
	var survivors []*model.Invoice
	for _, inv := range invoices {
		if strings.EqualFold(inv.PaymentMethod, paymentChannel) {
			survivors = append(survivors, inv)
		}
	}
	return survivors
}

func filterByNameAndCategory(invoices []*model.Invoice, txn *model.Transaction) []*model.Invoice {
	nameTokens := strings.Fields(strings.ToLower(txn.Name))

	var survivors []*model.Invoice
	for _, inv := range invoices {
		customerName := strings.ToLower(inv.CustomerName)
		nameMatch := false
		for _, token := range nameTokens {
			if strings.Contains(customerName, token) {
				nameMatch = true
				break
			}
		}

		lineItem := strings.ToLower(inv.LineItem)
		categoryMatch := false
		for _, category := range txn.Category {
			if strings.Contains(lineItem, strings.ToLower(category)) {
				categoryMatch = true
				break
			}
		}

		if nameMatch && categoryMatch {
			survivors = append(survivors, inv)
		}
	}
	return survivors
}
