// Package reconcile maps fetched accounts and transactions onto stored records before saving.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/agricole-sync/internal/domain"
	"github.com/dvloznov/agricole-sync/internal/logger"
	"github.com/dvloznov/agricole-sync/internal/storage"
	"github.com/google/uuid"
)

// Reconciler saves the outcome of a run into a store.
type Reconciler struct {
	Store storage.Store
	NewID func() string
}

func New(store storage.Store) *Reconciler {
	return &Reconciler{Store: store, NewID: uuid.NewString}
}

// Save upserts the accounts, matched to stored ones by number, then the transactions dated on
// or after the most recent stored transaction of their account. txs is keyed by account number.
func (r *Reconciler) Save(ctx context.Context, accounts []*domain.Account, txs map[string][]*domain.Transaction) ([]*domain.Account, []*domain.Transaction, error) {
	log := logger.FromContext(ctx)

	stored, err := r.Store.ListAccounts(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("Save: listing stored accounts: %w", err)
	}
	idByNumber := make(map[string]string, len(stored))
	for _, a := range stored {
		idByNumber[a.Number] = a.ID
	}

	saved := make([]*domain.Account, 0, len(accounts))
	for _, a := range accounts {
		c := a.Stripped()
		if id, ok := idByNumber[a.Number]; ok {
			c.ID = id
		} else {
			c.ID = r.NewID()
			idByNumber[a.Number] = c.ID
		}
		saved = append(saved, c)
	}
	if err := r.Store.UpsertAccounts(ctx, saved); err != nil {
		return nil, nil, fmt.Errorf("Save: upserting accounts: %w", err)
	}

	var savedTxs []*domain.Transaction
	for _, a := range saved {
		fetched := txs[a.Number]
		if len(fetched) == 0 {
			continue
		}

		latest, ok, err := r.Store.LatestTransactionDate(ctx, a.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("Save: latest transaction of %s: %w", a.Number, err)
		}

		kept := 0
		for _, tx := range fetched {
			if ok && !onOrAfter(tx.Date, latest) {
				continue
			}
			tx.AccountID = a.ID
			savedTxs = append(savedTxs, tx)
			kept++
		}
		log.Debug().
			Str("account", logger.Mask(a.Number)).
			Int("fetched", len(fetched)).
			Int("kept", kept).
			Msg("reconciled transactions")
	}

	if err := r.Store.UpsertTransactions(ctx, savedTxs); err != nil {
		return nil, nil, fmt.Errorf("Save: upserting transactions: %w", err)
	}

	log.Info().
		Int("accounts", len(saved)).
		Int("transactions", len(savedTxs)).
		Msg("saved run")
	return saved, savedTxs, nil
}

// onOrAfter compares calendar days, each in its own location. Stored dates come back as
// midnight UTC while fetched ones carry the portal's zone.
func onOrAfter(d, latest time.Time) bool {
	return d.Format(domain.DateLayout) >= latest.Format(domain.DateLayout)
}
