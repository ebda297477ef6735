// Package config loads runtime settings from the environment. A .env file
// in the working directory is merged in first so local development does not
// need exported variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config carries every knob the binaries read.
type Config struct {
	// HTTPPort is the API listen port.
	HTTPPort string

	// GeminiAPIKey and GeminiModel configure the extraction client. An
	// empty key leaves the client unconfigured; uploads then wait as
	// PENDING until credentials arrive.
	GeminiAPIKey string
	GeminiModel  string

	// DefaultCurrency is assumed when a statement names none.
	DefaultCurrency string

	// StorageDir is the local statement file root. GCSBucket switches
	// file storage to Cloud Storage when set.
	StorageDir string
	GCSBucket  string

	// MySQLDSN enables the MySQL store; empty means in-memory.
	MySQLDSN string

	// GCPProject and BigQueryDataset enable the extraction-run archive.
	GCPProject      string
	BigQueryDataset string

	// RatesURL overrides the exchange-rate endpoint; RatesBase is the
	// currency quotes are fetched against.
	RatesURL  string
	RatesBase string

	// MaxRetries and BackoffBase shape the statement retry policy.
	MaxRetries  int
	BackoffBase time.Duration

	// Workers and QueueSize size the in-process job queue.
	Workers   int
	QueueSize int
}

// Load reads the environment into a Config, applying defaults for anything
// unset or unparseable.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		HTTPPort:        getenv("PORT", "8080"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		GeminiModel:     os.Getenv("GEMINI_MODEL"),
		DefaultCurrency: getenv("DEFAULT_CURRENCY", "USD"),
		StorageDir:      getenv("STORAGE_DIR", "data/statements"),
		GCSBucket:       os.Getenv("GCS_BUCKET"),
		MySQLDSN:        os.Getenv("MYSQL_DSN"),
		GCPProject:      os.Getenv("GOOGLE_CLOUD_PROJECT"),
		BigQueryDataset: getenv("BIGQUERY_DATASET", "finance_archive"),
		RatesURL:        os.Getenv("RATES_URL"),
		RatesBase:       getenv("RATES_BASE", "USD"),
		MaxRetries:      getint("MAX_RETRIES", 3),
		BackoffBase:     getduration("RETRY_BACKOFF_BASE", time.Minute),
		Workers:         getint("WORKERS", 5),
		QueueSize:       getint("QUEUE_SIZE", 100),
	}
}

func getenv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func getint(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getduration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
