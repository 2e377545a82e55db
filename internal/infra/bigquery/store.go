package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/agricole-sync/internal/domain"
	"github.com/dvloznov/agricole-sync/internal/storage"
)

// Store is the BigQuery storage backend. It holds a shared client for the lifetime of a run.
type Store struct {
	client *bigquery.Client
	ds     Dataset
	now    func() time.Time
}

var _ storage.Store = (*Store)(nil)

// New creates a client for the project and returns a store over the dataset.
func New(ctx context.Context, project, dataset string) (*Store, error) {
	client, err := bigquery.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("New: creating client: %w", err)
	}
	return NewWithClient(client, Dataset{Project: project, Name: dataset}), nil
}

// NewWithClient returns a store using an existing client.
func NewWithClient(client *bigquery.Client, ds Dataset) *Store {
	return &Store{client: client, ds: ds, now: time.Now}
}

// Close closes the BigQuery client connection.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]*domain.Account, error) {
	rows, err := ListAccountsWithClient(ctx, s.client, s.ds)
	if err != nil {
		return nil, err
	}
	accounts := make([]*domain.Account, 0, len(rows))
	for _, row := range rows {
		a, err := row.Account()
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, nil
}

func (s *Store) UpsertAccounts(ctx context.Context, accounts []*domain.Account) error {
	now := s.now()
	rows := make([]*AccountRow, 0, len(accounts))
	for _, a := range accounts {
		rows = append(rows, NewAccountRow(a, now))
	}
	return UpsertAccountsWithClient(ctx, s.client, s.ds, rows)
}

func (s *Store) UpsertTransactions(ctx context.Context, txs []*domain.Transaction) error {
	rows := make([]*TransactionRow, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, NewTransactionRow(tx))
	}
	return UpsertTransactionsWithClient(ctx, s.client, s.ds, rows)
}

func (s *Store) LatestTransactionDate(ctx context.Context, accountID string) (time.Time, bool, error) {
	d, ok, err := LatestTransactionDateWithClient(ctx, s.client, s.ds, accountID)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	return d.In(time.UTC), true, nil
}

func (s *Store) GetBalanceHistory(ctx context.Context, accountID string, year int) (*domain.BalanceHistory, error) {
	row, err := GetBalanceHistoryWithClient(ctx, s.client, s.ds, domain.BalanceHistoryID(accountID, year))
	if err != nil || row == nil {
		return nil, err
	}
	return row.BalanceHistory()
}

func (s *Store) UpsertBalanceHistories(ctx context.Context, histories []*domain.BalanceHistory) error {
	now := s.now()
	rows := make([]*BalanceHistoryRow, 0, len(histories))
	for _, h := range histories {
		row, err := NewBalanceHistoryRow(h, now)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}
	return UpsertBalanceHistoriesWithClient(ctx, s.client, s.ds, rows)
}
