// Package storage defines the persistence contract of a sync run.
package storage

import (
	"context"
	"time"

	"github.com/dvloznov/agricole-sync/internal/domain"
)

// Store persists accounts, transactions and balance histories.
// Accounts are keyed by ID, transactions by VendorID and histories by ID; every write is an
// upsert so a run can be replayed.
type Store interface {
	ListAccounts(ctx context.Context) ([]*domain.Account, error)
	UpsertAccounts(ctx context.Context, accounts []*domain.Account) error

	UpsertTransactions(ctx context.Context, txs []*domain.Transaction) error
	// LatestTransactionDate returns the most recent stored value date of the account.
	// ok is false when the account has no transaction yet.
	LatestTransactionDate(ctx context.Context, accountID string) (latest time.Time, ok bool, err error)

	// GetBalanceHistory returns nil when the account has no history for the year.
	GetBalanceHistory(ctx context.Context, accountID string, year int) (*domain.BalanceHistory, error)
	UpsertBalanceHistories(ctx context.Context, histories []*domain.BalanceHistory) error

	Close() error
}
