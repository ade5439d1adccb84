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
	"github.com/sirupsen/logrus"

	"github.com/matchbookhq/matchbook/cache"
	"github.com/matchbookhq/matchbook/config"
	"github.com/matchbookhq/matchbook/database"
)

// Matchbook is the service facade: transaction intake, invoice import, the
// matching pipeline and match retrieval all hang off it.
type Matchbook struct {
	queue      Enqueuer
	datasource database.IDataSource
	engine     *Engine
	cache      cache.Cache
}

func NewMatchbook(db database.IDataSource) (*Matchbook, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	newCache, err := cache.NewCache()
	if err != nil {
		logrus.Errorf("Error creating cache: %v", err)
	}

	return &Matchbook{
		queue:      NewQueue(configuration),
		datasource: db,
		engine:     NewEngine(NewLLMScorer(&configuration.Scorer)),
		cache:      newCache,
	}, nil
}
