package pipeline

import (
	"context"
	"fmt"

	"github.com/dvloznov/session-analytics/internal/domain"
	"github.com/dvloznov/session-analytics/internal/logger"
)

// Collector merges session rows from every configured source into one
// batch, stamping each row with its origin's label. There is no
// deduplication across sources: a session_id appearing in two sources is an
// upstream data defect, not something the collector corrects.
type Collector struct {
	sources []SourceReader
}

// NewCollector creates a collector over an ordered list of sources.
func NewCollector(sources ...SourceReader) *Collector {
	return &Collector{sources: sources}
}

// Collect reads every source to completion and concatenates the results in
// source order, preserving each source's query order within its slice.
// A single unreachable source fails the whole collection; downstream
// reconciliation needs the complete user-activity picture.
func (c *Collector) Collect(ctx context.Context) ([]domain.Session, error) {
	log := logger.FromContext(ctx)

	var combined []domain.Session
	for _, src := range c.sources {
		rows, err := src.ReadSessions(ctx)
		if err != nil {
			return nil, fmt.Errorf("collect: source %q: %w", src.Label(), err)
		}
		for i := range rows {
			rows[i].SourceTag = src.Label()
		}
		log.Debug().
			Str("source", src.Label()).
			Int("sessions", len(rows)).
			Msg("Collected source batch")
		combined = append(combined, rows...)
	}

	log.Info().
		Int("sources", len(c.sources)).
		Int("sessions", len(combined)).
		Msg("Session collection complete")

	return combined, nil
}
