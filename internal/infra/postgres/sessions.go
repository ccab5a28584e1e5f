package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dvloznov/session-analytics/internal/domain"
)

// sessionAggregateQuery resolves exactly one row per session: child events
// are folded into events_count here so the collector only ever sees flat
// aggregated records.
const sessionAggregateQuery = `
	SELECT
		us.id AS session_id,
		us.user_id,
		us.page_name,
		COUNT(e.id) AS events_count,
		us.created_at AS session_date
	FROM user_sessions us
	LEFT JOIN events e ON us.id = e.session_id
	GROUP BY us.id, us.user_id, us.page_name, us.created_at
`

// SessionSource reads the session batch of one project database over a
// pgx connection pool.
type SessionSource struct {
	pool  *pgxpool.Pool
	label string
}

// NewSessionSource creates a reader for the given source. The label tags
// every row the source produces and is derived from the source ID, e.g.
// "project_a_conn" → "a".
func NewSessionSource(pool *pgxpool.Pool, sourceID string) *SessionSource {
	return &SessionSource{pool: pool, label: LabelFromSourceID(sourceID)}
}

// LabelFromSourceID extracts the project label from a source identifier.
// Identifiers follow the "project_<label>_conn" convention; anything else
// is used verbatim.
func LabelFromSourceID(sourceID string) string {
	parts := strings.Split(sourceID, "_")
	if len(parts) >= 2 {
		return parts[1]
	}
	return sourceID
}

// Label implements pipeline.SourceReader.
func (s *SessionSource) Label() string {
	return s.label
}

// ReadSessions implements pipeline.SourceReader. Rows come back in query
// order; SourceTag is left empty for the collector to fill.
func (s *SessionSource) ReadSessions(ctx context.Context) ([]domain.Session, error) {
	rows, err := s.pool.Query(ctx, sessionAggregateQuery)
	if err != nil {
		return nil, fmt.Errorf("ReadSessions: query source %q: %w", s.label, err)
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		var sess domain.Session
		if err := rows.Scan(
			&sess.SessionID,
			&sess.UserID,
			&sess.PageName,
			&sess.EventCount,
			&sess.SessionDate,
		); err != nil {
			return nil, fmt.Errorf("ReadSessions: scan source %q: %w", s.label, err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ReadSessions: iterate source %q: %w", s.label, err)
	}

	return sessions, nil
}
