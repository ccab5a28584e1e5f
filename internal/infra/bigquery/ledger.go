package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/session-analytics/internal/domain"
)

// Ledger reads the transactions and exchange-rate tables of the analytics
// dataset. Both reads pull full batch snapshots; nothing is re-queried per
// session.
type Ledger struct {
	client  *bigquery.Client
	dataset string
}

// NewLedger creates a ledger reader for the given project and dataset.
func NewLedger(ctx context.Context, projectID, datasetID string) (*Ledger, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewLedger: bigquery client: %w", err)
	}
	return NewLedgerWithClient(client, datasetID), nil
}

// NewLedgerWithClient creates a ledger reader over an existing client.
func NewLedgerWithClient(client *bigquery.Client, datasetID string) *Ledger {
	return &Ledger{client: client, dataset: datasetID}
}

// Close releases the underlying client.
func (l *Ledger) Close() error {
	return l.client.Close()
}

// ReadSuccessfulTransactions implements pipeline.LedgerReader. Failed
// transactions are filtered at query time and never reach the reconciler.
func (l *Ledger) ReadSuccessfulTransactions(ctx context.Context) ([]domain.Transaction, error) {
	q := l.client.Query(fmt.Sprintf(`
		SELECT transaction_id, user_id, created_at, amount, currency, success
		FROM %s.transactions
		WHERE success = TRUE
		ORDER BY created_at
	`, l.dataset))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ReadSuccessfulTransactions: query read: %w", err)
	}

	var txs []domain.Transaction
	for {
		var r TransactionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ReadSuccessfulTransactions: iter next: %w", err)
		}
		txs = append(txs, r.toDomain())
	}

	return txs, nil
}

// ReadExchangeRates implements pipeline.LedgerReader.
func (l *Ledger) ReadExchangeRates(ctx context.Context) ([]domain.ExchangeRate, error) {
	q := l.client.Query(fmt.Sprintf(`
		SELECT currency_from, currency_to, exchange_rate, currency_date
		FROM %s.exchange_rates
	`, l.dataset))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ReadExchangeRates: query read: %w", err)
	}

	var rates []domain.ExchangeRate
	for {
		var r ExchangeRateRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ReadExchangeRates: iter next: %w", err)
		}
		rates = append(rates, r.toDomain())
	}

	return rates, nil
}
