package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/session-analytics/internal/domain"
)

// GCSArchiver snapshots each run's enriched batch as JSON lines under
// runs/<run-id>.jsonl in a GCS bucket. The sink stays the system of
// record; the archive exists for replay inspection and backfill debugging.
type GCSArchiver struct {
	client *storage.Client
	bucket string
}

// NewGCSArchiver creates an archiver writing to the given bucket. It
// assumes Application Default Credentials are configured.
func NewGCSArchiver(ctx context.Context, bucket string) (*GCSArchiver, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("archive: create storage client: %w", err)
	}
	return &GCSArchiver{client: client, bucket: bucket}, nil
}

// Close releases the underlying client.
func (a *GCSArchiver) Close() error {
	return a.client.Close()
}

// record is the archived shape of one enriched session.
type record struct {
	SessionID            string          `json:"session_id"`
	UserID               string          `json:"user_id"`
	Project              string          `json:"project"`
	PageName             string          `json:"page_name"`
	EventsCount          int64           `json:"events_count"`
	SessionDate          string          `json:"session_date"`
	TransactionsSum      decimal.Decimal `json:"transactions_sum"`
	FirstTransactionTime *time.Time      `json:"first_successful_transaction_time"`
	FirstTransactionUSD  decimal.Decimal `json:"first_successful_transaction_usd"`
}

// ArchiveRun implements pipeline.Archiver.
func (a *GCSArchiver) ArchiveRun(ctx context.Context, runID string, batch []domain.EnrichedSession) (string, error) {
	objectName := fmt.Sprintf("runs/%s.jsonl", runID)

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := a.client.Bucket(a.bucket).Object(objectName).NewWriter(ctx)
	enc := json.NewEncoder(w)
	for i := range batch {
		row := &batch[i]
		if err := enc.Encode(record{
			SessionID:            row.SessionID,
			UserID:               row.UserID,
			Project:              row.SourceTag,
			PageName:             row.PageName,
			EventsCount:          row.EventCount,
			SessionDate:          domain.Day(row.SessionDate),
			TransactionsSum:      row.TransactionsSumUSD,
			FirstTransactionTime: row.FirstTransactionTime,
			FirstTransactionUSD:  row.FirstTransactionUSD,
		}); err != nil {
			_ = w.Close()
			return "", fmt.Errorf("archive: encode session %q: %w", row.SessionID, err)
		}
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("archive: finalize upload: %w", err)
	}

	return fmt.Sprintf("gs://%s/%s", a.bucket, objectName), nil
}
