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
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/matchbookhq/matchbook/model"
)

// stubScorer records what it was asked to score and replies with canned
// candidates.
type stubScorer struct {
	called   bool
	got      []*model.Invoice
	response []model.MatchCandidate
	err      error
}

func (s *stubScorer) Score(_ context.Context, _ *model.Transaction, invoices []*model.Invoice) ([]model.MatchCandidate, error) {
	s.called = true
	s.got = invoices
	return s.response, s.err
}

func testTransaction(amount string) *model.Transaction {
	return &model.Transaction{
		TransactionID:  "txn_001",
		AccountID:      "acc_001",
		Amount:         decimal.RequireFromString(amount),
		Date:           time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		Name:           "ACME CORP PAYMENT",
		Category:       []string{"Service", "Consulting"},
		PaymentChannel: model.ChannelACH,
	}
}

func testInvoice(id, customer, lineItem, amount, method string) *model.Invoice {
	return &model.Invoice{
		InvoiceID:     id,
		InvoiceNumber: "INV-" + id,
		CustomerName:  customer,
		LineItem:      lineItem,
		Amount:        decimal.RequireFromString(amount),
		PaymentMethod: method,
	}
}

func TestMatchExactAmountWins(t *testing.T) {
	scorer := &stubScorer{}
	engine := NewEngine(scorer)

	invoices := []*model.Invoice{
		testInvoice("inv_1", "Acme Corp", "SEO Services: $1,609.00", "1609", "ACH"),
		testInvoice("inv_2", "Globex", "Hosting: $450.00", "450", "wire"),
		testInvoice("inv_3", "Initech", "Support: $99.00", "99", "check"),
	}

	got, err := engine.Match(context.Background(), testTransaction("1609"), invoices)
	assert.NoError(t, err)
	assert.Equal(t, []model.MatchCandidate{{InvoiceID: "inv_1", Score: 1.0}}, got)
	assert.False(t, scorer.called)
}

func TestMatchAmountTieBrokenByPaymentMethod(t *testing.T) {
	scorer := &stubScorer{}
	engine := NewEngine(scorer)

	// two invoices share the amount; only one shares the payment channel.
	// payment method comparison ignores case.
	invoices := []*model.Invoice{
		testInvoice("inv_1", "Acme Corp", "SEO Services: $1,609.00", "1609", "ACH"),
		testInvoice("inv_2", "Globex", "Hosting: $1,609.00", "1609", "wire"),
	}

	got, err := engine.Match(context.Background(), testTransaction("1609"), invoices)
	assert.NoError(t, err)
	assert.Equal(t, []model.MatchCandidate{{InvoiceID: "inv_1", Score: 0.99}}, got)
	assert.False(t, scorer.called)
}

func TestMatchNameAndCategoryTier(t *testing.T) {
	scorer := &stubScorer{}
	engine := NewEngine(scorer)

	// both invoices share amount and payment method, so the first two tiers
	// cannot decide. Only inv_1 matches the transaction name and category.
	invoices := []*model.Invoice{
		testInvoice("inv_1", "Acme Corporation", "Consulting Retainer: $500.00", "500", "ach"),
		testInvoice("inv_2", "Globex", "Hosting: $500.00", "500", "ach"),
	}

	got, err := engine.Match(context.Background(), testTransaction("500"), invoices)
	assert.NoError(t, err)
	assert.Equal(t, []model.MatchCandidate{{InvoiceID: "inv_1", Score: 0.98}}, got)
	assert.False(t, scorer.called)
}

func TestMatchNameCategoryReturnsAllSurvivors(t *testing.T) {
	scorer := &stubScorer{}
	engine := NewEngine(scorer)

	invoices := []*model.Invoice{
		testInvoice("inv_1", "Acme Corp", "Consulting: $500.00", "500", "ach"),
		testInvoice("inv_2", "Acme Holdings", "Consulting hours: $500.00", "500", "ach"),
	}

	got, err := engine.Match(context.Background(), testTransaction("500"), invoices)
	assert.NoError(t, err)
	assert.Len(t, got, 2)
	for _, candidate := range got {
		assert.Equal(t, 0.98, candidate.Score)
	}
	assert.False(t, scorer.called)
}

func TestMatchFallbackGetsFullInvoiceSet(t *testing.T) {
	scorer := &stubScorer{
		response: []model.MatchCandidate{{InvoiceID: "inv_2", Score: 0.85}},
	}
	engine := NewEngine(scorer)

	// nothing matches on amount, method, or name/category: the scorer must
	// see every invoice, not the empty set the cascade narrowed down to.
	invoices := []*model.Invoice{
		testInvoice("inv_1", "Globex", "Hosting: $450.00", "450", "wire"),
		testInvoice("inv_2", "Initech", "Support: $99.00", "99", "check"),
		testInvoice("inv_3", "Umbrella", "Licensing: $1,200.00", "1200", "wire"),
	}

	got, err := engine.Match(context.Background(), testTransaction("777"), invoices)
	assert.NoError(t, err)
	assert.True(t, scorer.called)
	assert.Len(t, scorer.got, 3)
	assert.Equal(t, []model.MatchCandidate{{InvoiceID: "inv_2", Score: 0.85}}, got)
}

func TestMatchScoresWithinBounds(t *testing.T) {
	scorer := &stubScorer{
		response: []model.MatchCandidate{
			{InvoiceID: "inv_1", Score: 0.6},
			{InvoiceID: "inv_2", Score: 0.3},
		},
	}
	engine := NewEngine(scorer)

	invoices := []*model.Invoice{
		testInvoice("inv_1", "Globex", "Hosting: $450.00", "450", "wire"),
		testInvoice("inv_2", "Initech", "Support: $99.00", "99", "check"),
	}

	got, err := engine.Match(context.Background(), testTransaction("777"), invoices)
	assert.NoError(t, err)
	for _, candidate := range got {
		assert.GreaterOrEqual(t, candidate.Score, 0.0)
		assert.LessOrEqual(t, candidate.Score, 1.0)
	}
}

func TestMatchScorerErrorPropagates(t *testing.T) {
	scorer := &stubScorer{err: assert.AnError}
	engine := NewEngine(scorer)

	invoices := []*model.Invoice{
		testInvoice("inv_1", "Globex", "Hosting: $450.00", "450", "wire"),
	}

	_, err := engine.Match(context.Background(), testTransaction("777"), invoices)
	assert.Error(t, err)
}
