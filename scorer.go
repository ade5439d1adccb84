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
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/matchbookhq/matchbook/config"
	"github.com/matchbookhq/matchbook/internal/apierror"
	"github.com/matchbookhq/matchbook/internal/request"
	"github.com/matchbookhq/matchbook/model"
)

// Scorer ranks invoice candidates for a transaction when the rule cascade is
// inconclusive. Implementations are network-bound and must be treated as
// fallible and slow.
type Scorer interface {
	Score(ctx context.Context, txn *model.Transaction, invoices []*model.Invoice) ([]model.MatchCandidate, error)
}

// LLMScorer calls a chat-completions endpoint and parses the model's reply
// into ranked candidates. The client enforces a caller-side timeout so a
// stuck call fails fast and the job can be retried instead of holding a
// worker, and transient HTTP failures are retried with capped exponential
// backoff before the job-level retry policy ever sees them.
type LLMScorer struct {
	client     *http.Client
	url        string
	apiKey     string
	model      string
	maxRetries uint64
}

func NewLLMScorer(cfg *config.ScorerConfig) *LLMScorer {
	return &LLMScorer{
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		url:        cfg.Url,
		apiKey:     cfg.ApiKey,
		model:      cfg.Model,
		maxRetries: uint64(cfg.MaxRetries),
	}
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Score sends the transaction and the full invoice set to the model and
// parses its reply. Unparseable output after fence-stripping is a hard,
// UNPROCESSABLE error; it is never silently dropped.
func (s *LLMScorer) Score(ctx context.Context, txn *model.Transaction, invoices []*model.Invoice) ([]model.MatchCandidate, error) {
	body, err := request.ToJsonReq(&chatCompletionRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "user", Content: buildScoringPrompt(txn, invoices)},
		},
	})
	if err != nil {
		return nil, err
	}
	payload := body.Bytes()

	var content string
	operation := func() error {
		text, opErr := s.complete(ctx, payload)
		if opErr != nil {
			return opErr
		}
		content = text
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), s.maxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrTransient, "scorer request failed", err)
	}

	return parseScorerResponse(content)
}

func (s *LLMScorer) complete(ctx context.Context, payload []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, strings.NewReader(string(payload)))
	if err != nil {
		return "", backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return "", fmt.Errorf("scorer returned status %d: %s", resp.StatusCode, string(raw))
	}
	if resp.StatusCode != http.StatusOK {
		return "", backoff.Permanent(fmt.Errorf("scorer returned status %d: %s", resp.StatusCode, string(raw)))
	}

	var response chatCompletionResponse
	if err := json.Unmarshal(raw, &response); err != nil {
		return "", backoff.Permanent(fmt.Errorf("invalid scorer envelope: %w", err))
	}
	if len(response.Choices) == 0 {
		return "", backoff.Permanent(fmt.Errorf("scorer returned no completion choices"))
	}

	return response.Choices[0].Message.Content, nil
}

var fencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// stripFences removes a markdown code fence wrapper from model output. The
// model is told not to fence its reply, but it sometimes does anyway.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return text
}

// parseScorerResponse parses the model reply into candidates after stripping
// known wrapper markers. Scores are clamped into [0, 1].
func parseScorerResponse(text string) ([]model.MatchCandidate, error) {
	cleaned := stripFences(text)

	var candidates []model.MatchCandidate
	if err := json.Unmarshal([]byte(cleaned), &candidates); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrUnprocessable,
			fmt.Sprintf("failed to parse scorer response: %q", text), err)
	}

	for i := range candidates {
		if candidates[i].Score < 0 {
			candidates[i].Score = 0
		}
		if candidates[i].Score > 1 {
			candidates[i].Score = 1
		}
	}

	return candidates, nil
}

func buildScoringPrompt(txn *model.Transaction, invoices []*model.Invoice) string {
	var b strings.Builder
	b.WriteString("You are matching a bank transaction to a list of invoices.\n")
	b.WriteString("First, we tried:\n")
	b.WriteString("  1) Exact amount match\n")
	b.WriteString("  2) Same payment method\n")
	b.WriteString("  3) Name & category in line items\n")
	b.WriteString("All candidates failing those go below.\n\n")

	fmt.Fprintf(&b, "Transaction:\n- ID: %s\n- Amount: %s\n- Date: %s\n- Description: %s\n- Categories: %s\n\n",
		txn.TransactionID, txn.Amount.String(), txn.Date.Format("2006-01-02"), txn.Name,
		strings.Join(txn.Category, ", "))

	b.WriteString("Remaining Invoices:\n")
	for _, inv := range invoices {
		fmt.Fprintf(&b, "- ID: %s, #%s, Customer: %s, Amount: %s, Method: %s, Item: %s\n",
			inv.InvoiceID, inv.InvoiceNumber, inv.CustomerName, inv.Amount.String(),
			inv.PaymentMethod, inv.LineItem)
	}

	b.WriteString("\nPlease reply with a raw JSON array of objects like:\n")
	b.WriteString("[\n  { \"invoiceId\": \"…\", \"score\": 0.0–1.0 },\n  …\n]\n")
	b.WriteString("(without markdown fences).\n")

	return b.String()
}
