package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "GEMINI_API_KEY", "GEMINI_MODEL", "DEFAULT_CURRENCY",
		"STORAGE_DIR", "GCS_BUCKET", "MYSQL_DSN", "GOOGLE_CLOUD_PROJECT",
		"BIGQUERY_DATASET", "RATES_URL", "RATES_BASE",
		"MAX_RETRIES", "RETRY_BACKOFF_BASE", "WORKERS", "QUEUE_SIZE",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.HTTPPort != "8080" {
		t.Errorf("HTTPPort = %q, want 8080", cfg.HTTPPort)
	}
	if cfg.DefaultCurrency != "USD" {
		t.Errorf("DefaultCurrency = %q, want USD", cfg.DefaultCurrency)
	}
	if cfg.StorageDir != "data/statements" {
		t.Errorf("StorageDir = %q, want data/statements", cfg.StorageDir)
	}
	if cfg.BigQueryDataset != "finance_archive" {
		t.Errorf("BigQueryDataset = %q, want finance_archive", cfg.BigQueryDataset)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.MaxRetries)
	}
	if cfg.BackoffBase != time.Minute {
		t.Errorf("BackoffBase = %v, want 1m", cfg.BackoffBase)
	}
	if cfg.Workers != 5 {
		t.Errorf("Workers = %d, want 5", cfg.Workers)
	}
	if cfg.QueueSize != 100 {
		t.Errorf("QueueSize = %d, want 100", cfg.QueueSize)
	}
	if cfg.GeminiAPIKey != "" || cfg.GCSBucket != "" || cfg.MySQLDSN != "" {
		t.Error("optional settings must stay empty when unset")
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("GEMINI_API_KEY", "key-123")
	t.Setenv("DEFAULT_CURRENCY", "EUR")
	t.Setenv("MYSQL_DSN", "user:pass@tcp(localhost:3306)/tracker?parseTime=true")
	t.Setenv("MAX_RETRIES", "5")
	t.Setenv("RETRY_BACKOFF_BASE", "30s")
	t.Setenv("WORKERS", "2")

	cfg := Load()
	if cfg.HTTPPort != "9090" {
		t.Errorf("HTTPPort = %q, want 9090", cfg.HTTPPort)
	}
	if cfg.GeminiAPIKey != "key-123" {
		t.Errorf("GeminiAPIKey = %q, want key-123", cfg.GeminiAPIKey)
	}
	if cfg.DefaultCurrency != "EUR" {
		t.Errorf("DefaultCurrency = %q, want EUR", cfg.DefaultCurrency)
	}
	if cfg.MySQLDSN == "" {
		t.Error("MySQLDSN not picked up")
	}
	if cfg.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want 5", cfg.MaxRetries)
	}
	if cfg.BackoffBase != 30*time.Second {
		t.Errorf("BackoffBase = %v, want 30s", cfg.BackoffBase)
	}
	if cfg.Workers != 2 {
		t.Errorf("Workers = %d, want 2", cfg.Workers)
	}
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("MAX_RETRIES", "many")
	t.Setenv("RETRY_BACKOFF_BASE", "soon")
	t.Setenv("QUEUE_SIZE", "3.5")

	cfg := Load()
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want default 3", cfg.MaxRetries)
	}
	if cfg.BackoffBase != time.Minute {
		t.Errorf("BackoffBase = %v, want default 1m", cfg.BackoffBase)
	}
	if cfg.QueueSize != 100 {
		t.Errorf("QueueSize = %d, want default 100", cfg.QueueSize)
	}
}
