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

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT = "5002"
)

var ConfigStore atomic.Value

type ServerConfig struct {
	Port string `json:"port" envconfig:"MATCHBOOK_SERVER_PORT"`
}

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"MATCHBOOK_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns string `json:"dns" envconfig:"MATCHBOOK_REDIS_DNS"`
}

type QueueConfig struct {
	MatchQueue     string `json:"match_queue" envconfig:"MATCHBOOK_QUEUE_MATCH_QUEUE"`
	MaxAttempts    int    `json:"max_attempts" envconfig:"MATCHBOOK_QUEUE_MAX_ATTEMPTS"`
	BackoffBaseMs  int    `json:"backoff_base_ms" envconfig:"MATCHBOOK_QUEUE_BACKOFF_BASE_MS"`
	Concurrency    int    `json:"concurrency" envconfig:"MATCHBOOK_QUEUE_CONCURRENCY"`
	MonitoringPort string `json:"monitoring_port" envconfig:"MATCHBOOK_QUEUE_MONITORING_PORT"`
}

type ScorerConfig struct {
	Url            string `json:"url" envconfig:"MATCHBOOK_SCORER_URL"`
	ApiKey         string `json:"api_key" envconfig:"MATCHBOOK_SCORER_API_KEY"`
	Model          string `json:"model" envconfig:"MATCHBOOK_SCORER_MODEL"`
	TimeoutSeconds int    `json:"timeout_seconds" envconfig:"MATCHBOOK_SCORER_TIMEOUT_SECONDS"`
	MaxRetries     int    `json:"max_retries" envconfig:"MATCHBOOK_SCORER_MAX_RETRIES"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url"`
}

type Notification struct {
	Slack SlackWebhook `json:"slack"`
}

type Configuration struct {
	ProjectName  string           `json:"project_name" envconfig:"MATCHBOOK_PROJECT_NAME"`
	Server       ServerConfig     `json:"server"`
	DataSource   DataSourceConfig `json:"data_source"`
	Redis        RedisConfig      `json:"redis"`
	Queue        QueueConfig      `json:"queue"`
	Scorer       ScorerConfig     `json:"scorer"`
	Notification Notification     `json:"notification"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}
	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("matchbook", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called matchbook.json with your config ❌")
	}
	return c, nil
}

// MockConfig sets a mock configuration for testing purposes, applying the
// same defaults as the file loader.
func MockConfig(mockConfig *Configuration) {
	_ = mockConfig.validateAndAddDefaults()
	ConfigStore.Store(mockConfig)
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "matchbook server"
	}

	if cnf.DataSource.Dns == "" {
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		return errors.New("redis DNS is required")
	}

	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)

	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	if cnf.Queue.MatchQueue == "" {
		cnf.Queue.MatchQueue = "match:transaction"
	}
	if cnf.Queue.MaxAttempts <= 0 {
		// five attempts total before a job lands in the archive
		cnf.Queue.MaxAttempts = 5
	}
	if cnf.Queue.BackoffBaseMs <= 0 {
		cnf.Queue.BackoffBaseMs = 5000
	}
	if cnf.Queue.Concurrency <= 0 {
		cnf.Queue.Concurrency = 4
	}
	if cnf.Queue.MonitoringPort == "" {
		cnf.Queue.MonitoringPort = "5003"
	}

	if cnf.Scorer.Url == "" {
		cnf.Scorer.Url = "https://api.openai.com/v1/chat/completions"
	}
	if cnf.Scorer.Model == "" {
		cnf.Scorer.Model = "gpt-4o-mini"
	}
	if cnf.Scorer.TimeoutSeconds <= 0 {
		cnf.Scorer.TimeoutSeconds = 30
	}
	if cnf.Scorer.MaxRetries < 0 {
		cnf.Scorer.MaxRetries = 2
	}

	return nil
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
