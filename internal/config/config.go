package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// SourceConfig identifies one session source database.
type SourceConfig struct {
	// ID is the source identifier, e.g. "project_a_conn"; the project
	// label on collected rows derives from it.
	ID string

	// DSN is the Postgres connection string.
	DSN string
}

// Config carries everything a pipeline run needs. Scheduling cadence and
// retry policy live here, outside the reconciliation logic.
type Config struct {
	// Sources lists the session databases in collection order.
	Sources []SourceConfig

	// ProjectID is the GCP project holding the analytics dataset.
	ProjectID string

	// DatasetID is the BigQuery dataset with the ledger and sink tables.
	DatasetID string

	// AnalyticsTable is the sink table for enriched sessions.
	AnalyticsTable string

	// ArchiveBucket enables the GCS batch archive when non-empty.
	ArchiveBucket string

	// SettlementCurrency is the currency all sums normalize into.
	SettlementCurrency string

	// ScheduleInterval is the worker's run cadence.
	ScheduleInterval time.Duration

	// MaxRetries is how many times a failed run is replayed.
	MaxRetries int

	// RetryDelay is the wait before replaying a failed run.
	RetryDelay time.Duration

	// RunTimeout bounds one full pipeline run.
	RunTimeout time.Duration

	// LogLevel is the zerolog level name.
	LogLevel string
}

// Load reads configuration from the environment. A .env file is honored
// when present but never required.
func Load() (*Config, error) {
	_ = godotenv.Load()

	sources, err := parseSources(os.Getenv("SOURCE_DATABASES"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Sources:            sources,
		ProjectID:          os.Getenv("GCP_PROJECT"),
		DatasetID:          getEnv("BQ_DATASET", "analytics"),
		AnalyticsTable:     getEnv("BQ_ANALYTICS_TABLE", "analytics_sessions"),
		ArchiveBucket:      os.Getenv("GCS_BUCKET"),
		SettlementCurrency: getEnv("SETTLEMENT_CURRENCY", "USD"),
		ScheduleInterval:   getDuration("SCHEDULE_INTERVAL", 10*time.Minute),
		MaxRetries:         getInt("MAX_RETRIES", 1),
		RetryDelay:         getDuration("RETRY_DELAY", time.Minute),
		RunTimeout:         getDuration("RUN_TIMEOUT", 5*time.Minute),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
	}

	return cfg, nil
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return fmt.Errorf("config: SOURCE_DATABASES must list at least one source")
	}
	seen := make(map[string]bool, len(c.Sources))
	for _, src := range c.Sources {
		if src.ID == "" || src.DSN == "" {
			return fmt.Errorf("config: source entries need both an ID and a DSN")
		}
		if seen[src.ID] {
			return fmt.Errorf("config: duplicate source ID %q", src.ID)
		}
		seen[src.ID] = true
	}
	if c.ProjectID == "" {
		return fmt.Errorf("config: GCP_PROJECT is required")
	}
	if c.SettlementCurrency == "" {
		return fmt.Errorf("config: settlement currency must not be empty")
	}
	if c.ScheduleInterval <= 0 {
		return fmt.Errorf("config: schedule interval must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("config: max retries must not be negative")
	}
	return nil
}

// parseSources parses "id=dsn,id=dsn" entries. DSNs may themselves contain
// '=', so only the first one per entry separates ID from DSN.
func parseSources(raw string) ([]SourceConfig, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var sources []SourceConfig
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		id, dsn, found := strings.Cut(entry, "=")
		if !found {
			return nil, fmt.Errorf("config: malformed source entry %q, want id=dsn", entry)
		}
		sources = append(sources, SourceConfig{
			ID:  strings.TrimSpace(id),
			DSN: strings.TrimSpace(dsn),
		})
	}
	return sources, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
