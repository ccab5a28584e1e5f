package pipeline

import (
	"context"
	"fmt"

	"github.com/dvloznov/session-analytics/internal/domain"
	"github.com/dvloznov/session-analytics/internal/logger"
)

// Loader persists enriched sessions through a SinkWriter. Writes are
// replay-safe: a session_id that already exists in the sink is skipped, so
// rerunning a whole batch never produces duplicate rows.
type Loader struct {
	sink SinkWriter
}

// NewLoader creates a loader writing to the given sink.
func NewLoader(sink SinkWriter) *Loader {
	return &Loader{sink: sink}
}

// Load writes the batch in order and returns how many rows were newly
// inserted and how many were skipped as duplicates. Any write error other
// than a duplicate key aborts the load.
func (l *Loader) Load(ctx context.Context, batch []domain.EnrichedSession) (inserted, skipped int, err error) {
	log := logger.FromContext(ctx)

	for i := range batch {
		row := &batch[i]
		ok, err := l.sink.InsertIfAbsent(ctx, row)
		if err != nil {
			return inserted, skipped, fmt.Errorf("load: session %q: %w", row.SessionID, err)
		}
		if ok {
			inserted++
		} else {
			skipped++
		}
	}

	log.Info().
		Int("inserted", inserted).
		Int("skipped", skipped).
		Msg("Analytics load complete")

	return inserted, skipped, nil
}
