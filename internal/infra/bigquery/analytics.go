package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/dvloznov/session-analytics/internal/domain"
)

// AnalyticsWriter persists enriched sessions into
// <dataset>.analytics_sessions. BigQuery has no ON CONFLICT clause, so the
// idempotent-insert contract is rendered as a per-row MERGE that inserts
// only when the session_id is not yet present.
type AnalyticsWriter struct {
	client  *bigquery.Client
	dataset string
	table   string
}

// NewAnalyticsWriter creates a writer for the given project and dataset.
func NewAnalyticsWriter(ctx context.Context, projectID, datasetID, tableID string) (*AnalyticsWriter, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewAnalyticsWriter: bigquery client: %w", err)
	}
	return NewAnalyticsWriterWithClient(client, datasetID, tableID), nil
}

// NewAnalyticsWriterWithClient creates a writer over an existing client.
func NewAnalyticsWriterWithClient(client *bigquery.Client, datasetID, tableID string) *AnalyticsWriter {
	return &AnalyticsWriter{client: client, dataset: datasetID, table: tableID}
}

// Close releases the underlying client.
func (w *AnalyticsWriter) Close() error {
	return w.client.Close()
}

// InsertIfAbsent implements pipeline.SinkWriter. It reports true when a
// new row was written and false when the session_id already existed; an
// existing row is never updated, so a session's enrichment is immutable
// once persisted.
func (w *AnalyticsWriter) InsertIfAbsent(ctx context.Context, row *domain.EnrichedSession) (bool, error) {
	q := w.client.Query(fmt.Sprintf(`
		MERGE %s.%s t
		USING (SELECT @session_id AS session_id) s
		ON t.session_id = s.session_id
		WHEN NOT MATCHED THEN INSERT (
			session_id, user_id, project, page_name, events_count,
			transactions_sum, first_successful_transaction_time,
			first_successful_transaction_usd, session_date
		)
		VALUES (
			@session_id, @user_id, @project, @page_name, @events_count,
			@transactions_sum, @first_successful_transaction_time,
			@first_successful_transaction_usd, @session_date
		)
	`, w.dataset, w.table))

	firstTime := bigquery.NullTimestamp{}
	if row.FirstTransactionTime != nil {
		firstTime = bigquery.NullTimestamp{Timestamp: *row.FirstTransactionTime, Valid: true}
	}

	q.Parameters = []bigquery.QueryParameter{
		{Name: "session_id", Value: row.SessionID},
		{Name: "user_id", Value: row.UserID},
		{Name: "project", Value: row.SourceTag},
		{Name: "page_name", Value: row.PageName},
		{Name: "events_count", Value: row.EventCount},
		{Name: "transactions_sum", Value: row.TransactionsSumUSD.Rat()},
		{Name: "first_successful_transaction_time", Value: firstTime},
		{Name: "first_successful_transaction_usd", Value: row.FirstTransactionUSD.Rat()},
		{Name: "session_date", Value: civil.DateOf(row.SessionDate.UTC())},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return false, fmt.Errorf("InsertIfAbsent: running merge: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return false, fmt.Errorf("InsertIfAbsent: waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return false, fmt.Errorf("InsertIfAbsent: job error: %w", err)
	}

	// Zero affected rows means the session_id was already present.
	if stats, ok := status.Statistics.Details.(*bigquery.QueryStatistics); ok {
		return stats.NumDMLAffectedRows > 0, nil
	}
	return true, nil
}
