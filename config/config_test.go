package config

import (
	"encoding/json"
	"os"
	"testing"
)

func TestValidateAndAddDefaults(t *testing.T) {
	cnf := Configuration{
		DataSource: DataSourceConfig{Dns: ""},
		Redis:      RedisConfig{Dns: "localhost:6379"},
	}

	err := cnf.validateAndAddDefaults()
	if err == nil || err.Error() != "data source DNS is required" {
		t.Errorf("Expected data source DNS required error, got %v", err)
	}

	cnf = Configuration{
		DataSource: DataSourceConfig{Dns: "postgres://localhost:5432"},
		Redis:      RedisConfig{Dns: ""},
	}

	err = cnf.validateAndAddDefaults()
	if err == nil || err.Error() != "redis DNS is required" {
		t.Errorf("Expected redis DNS required error, got %v", err)
	}

	cnf = Configuration{
		ProjectName: "Test Project",
		DataSource:  DataSourceConfig{Dns: "postgres://localhost:5432"},
		Redis:       RedisConfig{Dns: "localhost:6379"},
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	if cnf.Server.Port != DEFAULT_PORT {
		t.Errorf("Expected default port %s, got %s", DEFAULT_PORT, cnf.Server.Port)
	}
	if cnf.Queue.MaxAttempts != 5 {
		t.Errorf("Expected 5 max attempts, got %d", cnf.Queue.MaxAttempts)
	}
	if cnf.Queue.BackoffBaseMs != 5000 {
		t.Errorf("Expected 5000ms backoff base, got %d", cnf.Queue.BackoffBaseMs)
	}
	if cnf.Queue.MatchQueue != "match:transaction" {
		t.Errorf("Expected default match queue name, got %s", cnf.Queue.MatchQueue)
	}
	if cnf.Scorer.Model != "gpt-4o-mini" {
		t.Errorf("Expected default scorer model, got %s", cnf.Scorer.Model)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	f, err := os.CreateTemp("", "matchbook*.json")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(f.Name())

	cnf := Configuration{
		ProjectName: "file project",
		DataSource:  DataSourceConfig{Dns: "postgres://localhost:5432/matchbook"},
		Redis:       RedisConfig{Dns: "localhost:6379"},
		Queue:       QueueConfig{MaxAttempts: 3},
	}
	if err := json.NewEncoder(f).Encode(&cnf); err != nil {
		t.Fatal(err)
	}
	f.Close()

	if err := loadConfigFromFile(f.Name()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	loaded, err := Fetch()
	if err != nil {
		t.Fatalf("Expected config to be fetchable, got %v", err)
	}
	if loaded.ProjectName != "file project" {
		t.Errorf("Expected project name from file, got %s", loaded.ProjectName)
	}
	if loaded.Queue.MaxAttempts != 3 {
		t.Errorf("Expected max attempts from file, got %d", loaded.Queue.MaxAttempts)
	}
}

func TestEnvOverride(t *testing.T) {
	os.Setenv("MATCHBOOK_QUEUE_MATCH_QUEUE", "match:override")
	defer os.Unsetenv("MATCHBOOK_QUEUE_MATCH_QUEUE")

	cnf := Configuration{
		DataSource: DataSourceConfig{Dns: "postgres://localhost:5432"},
		Redis:      RedisConfig{Dns: "localhost:6379"},
	}
	f, err := os.CreateTemp("", "matchbook*.json")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(f.Name())
	if err := json.NewEncoder(f).Encode(&cnf); err != nil {
		t.Fatal(err)
	}
	f.Close()

	if err := loadConfigFromFile(f.Name()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	loaded, err := Fetch()
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Queue.MatchQueue != "match:override" {
		t.Errorf("Expected env override for match queue, got %s", loaded.Queue.MatchQueue)
	}
}
