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
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"

	"github.com/matchbookhq/matchbook/config"
)

func newTestQueue(t *testing.T) *Queue {
	mr := miniredis.RunT(t)
	config.MockConfig(&config.Configuration{
		DataSource: config.DataSourceConfig{Dns: "postgres://test"},
		Redis:      config.RedisConfig{Dns: mr.Addr()},
	})

	cnf, err := config.Fetch()
	assert.NoError(t, err)

	return NewQueue(cnf)
}

func TestEnqueueMatch(t *testing.T) {
	q := newTestQueue(t)
	cnf, _ := config.Fetch()

	err := q.EnqueueMatch(context.Background(), "txn_123")
	assert.NoError(t, err)

	task, err := q.Inspector.GetTaskInfo(cnf.Queue.MatchQueue, "txn_123")
	assert.NoError(t, err)
	assert.Equal(t, "txn_123", task.ID)
	assert.Equal(t, MatchTaskType, task.Type)
	// first run plus four retries
	assert.Equal(t, 4, task.MaxRetry)

	var payload MatchJobPayload
	assert.NoError(t, json.Unmarshal(task.Payload, &payload))
	assert.Equal(t, "txn_123", payload.TransactionID)
}

func TestEnqueueMatchDuplicateIsNoop(t *testing.T) {
	q := newTestQueue(t)

	assert.NoError(t, q.EnqueueMatch(context.Background(), "txn_dup"))
	// a second enqueue while the first job is still pending dedupes on the
	// task id instead of failing
	assert.NoError(t, q.EnqueueMatch(context.Background(), "txn_dup"))
}

func TestRetryDelaySchedule(t *testing.T) {
	delay := RetryDelay(5000)

	expected := []time.Duration{
		5 * time.Second,
		10 * time.Second,
		20 * time.Second,
		40 * time.Second,
		80 * time.Second,
	}
	for n, want := range expected {
		assert.Equal(t, want, delay(n, nil, nil), "retry %d", n)
	}
}
