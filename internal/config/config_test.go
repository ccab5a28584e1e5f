package config

import (
	"testing"
	"time"
)

func TestParseSources(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []SourceConfig
		wantErr bool
	}{
		{
			name: "two sources",
			raw:  "project_a_conn=postgres://a/db,project_b_conn=postgres://b/db",
			want: []SourceConfig{
				{ID: "project_a_conn", DSN: "postgres://a/db"},
				{ID: "project_b_conn", DSN: "postgres://b/db"},
			},
		},
		{
			name: "dsn containing equals signs",
			raw:  "project_a_conn=host=a port=5432 dbname=db",
			want: []SourceConfig{
				{ID: "project_a_conn", DSN: "host=a port=5432 dbname=db"},
			},
		},
		{
			name: "surrounding whitespace trimmed",
			raw:  " project_a_conn = postgres://a/db , ",
			want: []SourceConfig{
				{ID: "project_a_conn", DSN: "postgres://a/db"},
			},
		},
		{
			name: "empty input",
			raw:  "",
			want: nil,
		},
		{
			name:    "entry without separator",
			raw:     "project_a_conn",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSources(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseSources() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("parseSources() returned %d sources, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("source %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Sources:            []SourceConfig{{ID: "project_a_conn", DSN: "postgres://a/db"}},
			ProjectID:          "my-project",
			DatasetID:          "analytics",
			AnalyticsTable:     "analytics_sessions",
			SettlementCurrency: "USD",
			ScheduleInterval:   10 * time.Minute,
			MaxRetries:         1,
			RetryDelay:         time.Minute,
			RunTimeout:         5 * time.Minute,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "no sources", mutate: func(c *Config) { c.Sources = nil }, wantErr: true},
		{name: "duplicate source IDs", mutate: func(c *Config) {
			c.Sources = append(c.Sources, c.Sources[0])
		}, wantErr: true},
		{name: "missing project", mutate: func(c *Config) { c.ProjectID = "" }, wantErr: true},
		{name: "empty settlement currency", mutate: func(c *Config) { c.SettlementCurrency = "" }, wantErr: true},
		{name: "zero interval", mutate: func(c *Config) { c.ScheduleInterval = 0 }, wantErr: true},
		{name: "negative retries", mutate: func(c *Config) { c.MaxRetries = -1 }, wantErr: true},
		{name: "archive bucket optional", mutate: func(c *Config) { c.ArchiveBucket = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
