// Package balance keeps one dated balance per account and day, grouped by year.
package balance

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/agricole-sync/internal/domain"
	"github.com/dvloznov/agricole-sync/internal/logger"
	"github.com/dvloznov/agricole-sync/internal/storage"
)

// HistoryReader is the part of storage.Store the tracker reads from.
type HistoryReader interface {
	GetBalanceHistory(ctx context.Context, accountID string, year int) (*domain.BalanceHistory, error)
}

var _ HistoryReader = (storage.Store)(nil)

// Tracker records today's balance of each account into its yearly history.
type Tracker struct {
	Histories HistoryReader
	Loc       *time.Location
	Now       func() time.Time
}

func NewTracker(histories HistoryReader, loc *time.Location) *Tracker {
	return &Tracker{Histories: histories, Loc: loc, Now: time.Now}
}

// Track returns the updated histories. Accounts must carry their stored ID; accounts without a
// balance are skipped. Re-tracking the same day overwrites that day's entry.
func (t *Tracker) Track(ctx context.Context, accounts []*domain.Account) ([]*domain.BalanceHistory, error) {
	log := logger.FromContext(ctx)

	today := t.Now()
	if t.Loc != nil {
		today = today.In(t.Loc)
	}
	key := today.Format(domain.DateLayout)

	var histories []*domain.BalanceHistory
	for _, a := range accounts {
		if a.Balance == nil {
			log.Debug().Str("account", logger.Mask(a.Number)).Msg("no balance, skipping history")
			continue
		}

		h, err := t.Histories.GetBalanceHistory(ctx, a.ID, today.Year())
		if err != nil {
			return nil, fmt.Errorf("Track: history of %s: %w", a.Number, err)
		}
		if h == nil {
			h = domain.NewBalanceHistory(a.ID, today.Year())
		}
		h.Balances[key] = *a.Balance
		histories = append(histories, h)
	}
	return histories, nil
}
