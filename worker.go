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
	"errors"
	"fmt"
	"log"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/matchbookhq/matchbook/internal/apierror"
	"github.com/matchbookhq/matchbook/internal/notification"
)

// ScorerParseRetryCap bounds retries for jobs that fail because the scorer
// returned unparseable output. The transient taxonomy would retry these five
// times, but a model that replies with garbage once tends to do it again, so
// two re-runs is enough to rule out a fluke.
const ScorerParseRetryCap = 2

// HandleMatchTask is the queue-facing entry point for match jobs. It reads
// the attempt count off the task context and delegates to the classification
// logic.
func (m *Matchbook) HandleMatchTask(ctx context.Context, t *asynq.Task) error {
	ctx, span := otel.Tracer("matchbook.worker").Start(ctx, "Process Match Job From Redis Queue")
	defer span.End()

	retryCount, _ := asynq.GetRetryCount(ctx)
	return m.handleMatchTask(ctx, t.Payload(), retryCount)
}

// handleMatchTask runs the matching pipeline for a queued transaction and
// classifies the outcome for the queue. Returning a plain error triggers the
// retry schedule; terminal failures wrap SkipRetry so they archive
// immediately instead of burning attempts, and are reported through the
// notification channel.
func (m *Matchbook) handleMatchTask(ctx context.Context, payload []byte, retryCount int) error {
	var job MatchJobPayload
	if err := json.Unmarshal(payload, &job); err != nil {
		logrus.Error(err)
		return fmt.Errorf("malformed match job payload: %v: %w", err, asynq.SkipRetry)
	}

	candidates, err := m.ReconcileTransaction(ctx, job.TransactionID)
	if err != nil {
		var apiErr apierror.APIError
		if errors.As(err, &apiErr) && apiErr.Code == apierror.ErrUnprocessable {
			if retryCount >= ScorerParseRetryCap {
				notification.NotifyError(fmt.Errorf("giving up on %s after %d unparseable scorer replies: %v",
					job.TransactionID, retryCount+1, err))
				return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
			}
			logrus.Infof("Unparseable scorer reply for %s, retry attempt %d/%d",
				job.TransactionID, retryCount, ScorerParseRetryCap)
			return err
		}

		if !apierror.IsRetryable(err) {
			notification.NotifyError(fmt.Errorf("dropping match job for %s, not retryable: %v", job.TransactionID, err))
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}

		logrus.Infof("Match job %s pushed back for retry due to error: %v", job.TransactionID, err)
		return err
	}

	log.Println(" [*] Transaction Matched", job.TransactionID, "candidates:", len(candidates))
	return nil
}
