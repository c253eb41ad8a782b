package config

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("HTTP_ADDR", "127.0.0.1:8080")
	t.Setenv("SHUTDOWN_TIMEOUT", "1s")
	t.Setenv("LOG_LEVEL", "info")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("SESSION_SECRET", "0123456789abcdef0123")
	t.Setenv("ASYNQ_CONCURRENCY", "1")
	t.Setenv("GOMAXPROCS", "0")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DATABASE_URL", "file:/var/lib/portal/portal.db?_busy_timeout=5000")

	c, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if c.ShutdownTimeout != time.Second {
		t.Fatalf("expected 1s shutdown timeout, got %s", c.ShutdownTimeout)
	}
	if c.DatabaseDriver != "sqlite" {
		t.Fatalf("expected sqlite driver by default, got %s", c.DatabaseDriver)
	}
	if got := c.SQLitePath(); got != "/var/lib/portal/portal.db" {
		t.Fatalf("unexpected sqlite path %q", got)
	}
	if c.QueueEnabled() {
		t.Fatalf("queue should be disabled without REDIS_ADDR")
	}
}

func TestLoadRejectsShortSessionSecret(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SESSION_SECRET", "short")

	if _, err := Load(); err == nil {
		t.Fatalf("expected validation error for short SESSION_SECRET")
	}
}

func TestAzureStorageRequiresConnectionString(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("STORAGE_DRIVER", "azure")
	t.Setenv("AZURE_STORAGE_CONNECTION_STRING", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected validation error when azure storage has no connection string")
	}
}

func TestSQLitePathEmptyForPostgres(t *testing.T) {
	c := &Config{DatabaseDriver: "postgres", DatabaseURL: "postgres://u:p@localhost/db"}
	if c.SQLitePath() != "" {
		t.Fatalf("expected empty sqlite path for postgres")
	}
}
