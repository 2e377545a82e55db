// Package firestore is a Firestore storage backend. Decimals are stored as strings and
// dates as YYYY-MM-DD strings so documents sort and compare without float rounding.
package firestore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/dvloznov/agricole-sync/internal/domain"
	"github.com/dvloznov/agricole-sync/internal/storage"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"
)

const (
	accountsCollection         = "accounts"
	transactionsCollection     = "transactions"
	balanceHistoriesCollection = "balance_histories"

	// Firestore caps a batched write at 500 operations.
	maxBatchWrites = 500
)

// Store wraps a Firestore client.
type Store struct {
	client *firestore.Client
}

var _ storage.Store = (*Store)(nil)

// New creates a Firestore client using application default credentials.
func New(ctx context.Context, projectID string) (*Store, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}
	return &Store{client: client}, nil
}

// Close closes the Firestore client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Account is the stored shape of an account.
type Account struct {
	ID               string    `firestore:"id"`
	InstitutionLabel string    `firestore:"institutionLabel"`
	Type             string    `firestore:"type"`
	Label            string    `firestore:"label"`
	Number           string    `firestore:"number"`
	VendorID         string    `firestore:"vendorId"`
	Balance          string    `firestore:"balance,omitempty"`
	UpdatedAt        time.Time `firestore:"updatedAt"`
}

// Transaction is the stored shape of a transaction, keyed by vendor id.
type Transaction struct {
	VendorID        string    `firestore:"vendorId"`
	VendorAccountID string    `firestore:"vendorAccountId"`
	AccountID       string    `firestore:"accountId"`
	Date            string    `firestore:"date"`
	DateOperation   string    `firestore:"dateOperation"`
	DateImport      time.Time `firestore:"dateImport"`
	Label           string    `firestore:"label"`
	OriginalLabel   string    `firestore:"originalLabel,omitempty"`
	Type            string    `firestore:"type"`
	Amount          string    `firestore:"amount"`
	Currency        string    `firestore:"currency"`
}

// BalanceHistory is the stored shape of one account-year of balances.
type BalanceHistory struct {
	ID        string            `firestore:"id"`
	AccountID string            `firestore:"accountId"`
	Year      int               `firestore:"year"`
	Balances  map[string]string `firestore:"balances"`
	UpdatedAt time.Time         `firestore:"updatedAt"`
}

func toAccount(a *domain.Account, now time.Time) *Account {
	doc := &Account{
		ID:               a.ID,
		InstitutionLabel: a.InstitutionLabel,
		Type:             string(a.Type),
		Label:            a.Label,
		Number:           a.Number,
		VendorID:         a.VendorID,
		UpdatedAt:        now,
	}
	if a.Balance != nil {
		doc.Balance = a.Balance.String()
	}
	return doc
}

func (d *Account) domain() (*domain.Account, error) {
	a := &domain.Account{
		ID:               d.ID,
		InstitutionLabel: d.InstitutionLabel,
		Type:             domain.AccountType(d.Type),
		Label:            d.Label,
		Number:           d.Number,
		VendorID:         d.VendorID,
	}
	if d.Balance != "" {
		b, err := decimal.NewFromString(d.Balance)
		if err != nil {
			return nil, fmt.Errorf("failed to parse balance of account %s: %w", d.ID, err)
		}
		a.Balance = &b
	}
	return a, nil
}

func toTransaction(tx *domain.Transaction) *Transaction {
	return &Transaction{
		VendorID:        tx.VendorID,
		VendorAccountID: tx.VendorAccountID,
		AccountID:       tx.AccountID,
		Date:            tx.Date.Format(domain.DateLayout),
		DateOperation:   tx.DateOperation.Format(domain.DateLayout),
		DateImport:      tx.DateImport,
		Label:           tx.Label,
		OriginalLabel:   tx.OriginalLabel,
		Type:            tx.Type,
		Amount:          tx.Amount.String(),
		Currency:        tx.Currency,
	}
}

func toBalanceHistory(h *domain.BalanceHistory, now time.Time) *BalanceHistory {
	doc := &BalanceHistory{
		ID:        h.ID,
		AccountID: h.AccountID,
		Year:      h.Year,
		Balances:  make(map[string]string, len(h.Balances)),
		UpdatedAt: now,
	}
	for day, b := range h.Balances {
		doc.Balances[day] = b.String()
	}
	return doc
}

func (d *BalanceHistory) domain() (*domain.BalanceHistory, error) {
	h := &domain.BalanceHistory{
		ID:        d.ID,
		AccountID: d.AccountID,
		Year:      d.Year,
		Balances:  make(map[string]decimal.Decimal, len(d.Balances)),
	}
	for day, s := range d.Balances {
		b, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("failed to parse balance %s of history %s: %w", day, d.ID, err)
		}
		h.Balances[day] = b
	}
	return h, nil
}

// ListAccounts retrieves all accounts
func (s *Store) ListAccounts(ctx context.Context) ([]*domain.Account, error) {
	iter := s.client.Collection(accountsCollection).Documents(ctx)
	defer iter.Stop()

	var accounts []*domain.Account
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate accounts: %w", err)
		}

		var acc Account
		if err := doc.DataTo(&acc); err != nil {
			return nil, fmt.Errorf("failed to parse account: %w", err)
		}
		a, err := acc.domain()
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}

	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Number < accounts[j].Number })
	return accounts, nil
}

// write sets every document in batches.
func (s *Store) write(ctx context.Context, collection string, ids []string, docs []any) error {
	for start := 0; start < len(docs); start += maxBatchWrites {
		end := min(start+maxBatchWrites, len(docs))
		batch := s.client.Batch()
		for i := start; i < end; i++ {
			batch.Set(s.client.Collection(collection).Doc(ids[i]), docs[i])
		}
		if _, err := batch.Commit(ctx); err != nil {
			return fmt.Errorf("failed to write %s: %w", collection, err)
		}
	}
	return nil
}

func (s *Store) UpsertAccounts(ctx context.Context, accounts []*domain.Account) error {
	now := time.Now().UTC()
	ids := make([]string, 0, len(accounts))
	docs := make([]any, 0, len(accounts))
	for _, a := range accounts {
		ids = append(ids, a.ID)
		docs = append(docs, toAccount(a, now))
	}
	return s.write(ctx, accountsCollection, ids, docs)
}

func (s *Store) UpsertTransactions(ctx context.Context, txs []*domain.Transaction) error {
	ids := make([]string, 0, len(txs))
	docs := make([]any, 0, len(txs))
	for _, tx := range txs {
		ids = append(ids, tx.VendorID)
		docs = append(docs, toTransaction(tx))
	}
	return s.write(ctx, transactionsCollection, ids, docs)
}

func (s *Store) LatestTransactionDate(ctx context.Context, accountID string) (time.Time, bool, error) {
	iter := s.client.Collection(transactionsCollection).
		Where("accountId", "==", accountID).
		OrderBy("date", firestore.Desc).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to query latest transaction of account %s: %w", accountID, err)
	}

	var tx Transaction
	if err := doc.DataTo(&tx); err != nil {
		return time.Time{}, false, fmt.Errorf("failed to parse transaction: %w", err)
	}
	latest, err := time.Parse(domain.DateLayout, tx.Date)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to parse date of transaction %s: %w", tx.VendorID, err)
	}
	return latest, true, nil
}

func (s *Store) GetBalanceHistory(ctx context.Context, accountID string, year int) (*domain.BalanceHistory, error) {
	id := domain.BalanceHistoryID(accountID, year)
	iter := s.client.Collection(balanceHistoriesCollection).
		Where("id", "==", id).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get balance history %s: %w", id, err)
	}

	var h BalanceHistory
	if err := doc.DataTo(&h); err != nil {
		return nil, fmt.Errorf("failed to parse balance history: %w", err)
	}
	return h.domain()
}

func (s *Store) UpsertBalanceHistories(ctx context.Context, histories []*domain.BalanceHistory) error {
	now := time.Now().UTC()
	ids := make([]string, 0, len(histories))
	docs := make([]any, 0, len(histories))
	for _, h := range histories {
		ids = append(ids, h.ID)
		docs = append(docs, toBalanceHistory(h, now))
	}
	return s.write(ctx, balanceHistoriesCollection, ids, docs)
}
