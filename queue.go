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
	"log"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/matchbookhq/matchbook/config"
	redis_db "github.com/matchbookhq/matchbook/internal/redis-db"
)

const MatchTaskType = "match:transaction"

// MatchJobPayload is the body of a queued matching job. The payload carries
// only the transaction id; workers re-read everything else from the store so
// a retried job always sees current state.
type MatchJobPayload struct {
	TransactionID string `json:"transaction_id"`
}

// Enqueuer submits matching work for asynchronous processing.
type Enqueuer interface {
	EnqueueMatch(ctx context.Context, transactionID string) error
}

type Queue struct {
	Client    *asynq.Client
	Inspector *asynq.Inspector
}

func NewQueue(conf *config.Configuration) *Queue {
	options, err := redis_db.ParseRedisURL(conf.Redis.Dns)
	if err != nil {
		log.Fatalf("Error parsing Redis URL: %v", err)
	}
	queueOptions := asynq.RedisClientOpt{Addr: options.Addr, Password: options.Password, DB: options.DB}
	client := asynq.NewClient(queueOptions)
	inspector := asynq.NewInspector(queueOptions)
	return &Queue{
		Client:    client,
		Inspector: inspector,
	}
}

// EnqueueMatch queues a matching job for a transaction. The task id is the
// transaction id, so re-submitting a transaction while a job for it is still
// pending dedupes to the existing job instead of queueing a second one.
// Retry count is attempts minus one: the first run is not a retry.
func (q *Queue) EnqueueMatch(ctx context.Context, transactionID string) error {
	conf, err := config.Fetch()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(MatchJobPayload{TransactionID: transactionID})
	if err != nil {
		return err
	}

	task := asynq.NewTask(MatchTaskType, payload,
		asynq.TaskID(transactionID),
		asynq.Queue(conf.Queue.MatchQueue),
		asynq.MaxRetry(conf.Queue.MaxAttempts-1),
	)

	info, err := q.Client.EnqueueContext(ctx, task)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
			logrus.Infof("match job for %s already queued, skipping duplicate", transactionID)
			return nil
		}
		logrus.Errorf("Error enqueuing match job for %s: %v", transactionID, err)
		return err
	}

	logrus.Infof("Enqueued match job: id=%s queue=%s", info.ID, info.Queue)
	return nil
}

// RetryDelay builds the asynq retry schedule from the configured base delay:
// base, 2*base, 4*base and so on, doubling per attempt.
func RetryDelay(baseMs int) asynq.RetryDelayFunc {
	base := time.Duration(baseMs) * time.Millisecond
	return func(n int, e error, t *asynq.Task) time.Duration {
		return base * (1 << n)
	}
}
