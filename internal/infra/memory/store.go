// Package memory is an in-process storage backend for local runs and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dvloznov/agricole-sync/internal/domain"
	"github.com/dvloznov/agricole-sync/internal/storage"
	"github.com/shopspring/decimal"
)

// Store keeps every record in maps guarded by a mutex. Records are copied in and out.
type Store struct {
	mu           sync.RWMutex
	accounts     map[string]*domain.Account
	transactions map[string]*domain.Transaction
	histories    map[string]*domain.BalanceHistory
}

var _ storage.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		accounts:     make(map[string]*domain.Account),
		transactions: make(map[string]*domain.Transaction),
		histories:    make(map[string]*domain.BalanceHistory),
	}
}

func copyHistory(h *domain.BalanceHistory) *domain.BalanceHistory {
	c := *h
	c.Balances = make(map[string]decimal.Decimal, len(h.Balances))
	for k, v := range h.Balances {
		c.Balances[k] = v
	}
	return &c
}

func (s *Store) ListAccounts(ctx context.Context) ([]*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a.Stripped())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (s *Store) UpsertAccounts(ctx context.Context, accounts []*domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range accounts {
		s.accounts[a.ID] = a.Stripped()
	}
	return nil
}

func (s *Store) UpsertTransactions(ctx context.Context, txs []*domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, tx := range txs {
		c := *tx
		s.transactions[tx.VendorID] = &c
	}
	return nil
}

func (s *Store) LatestTransactionDate(ctx context.Context, accountID string) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		latest time.Time
		found  bool
	)
	for _, tx := range s.transactions {
		if tx.AccountID != accountID {
			continue
		}
		if !found || tx.Date.After(latest) {
			latest, found = tx.Date, true
		}
	}
	return latest, found, nil
}

// Transactions returns the stored transactions of an account ordered by vendor id.
func (s *Store) Transactions(accountID string) []*domain.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Transaction
	for _, tx := range s.transactions {
		if tx.AccountID == accountID {
			c := *tx
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VendorID < out[j].VendorID })
	return out
}

func (s *Store) GetBalanceHistory(ctx context.Context, accountID string, year int) (*domain.BalanceHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.histories[domain.BalanceHistoryID(accountID, year)]
	if !ok {
		return nil, nil
	}
	return copyHistory(h), nil
}

func (s *Store) UpsertBalanceHistories(ctx context.Context, histories []*domain.BalanceHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, h := range histories {
		s.histories[h.ID] = copyHistory(h)
	}
	return nil
}

func (s *Store) Close() error { return nil }
