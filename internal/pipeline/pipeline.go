// Package pipeline runs one sync: login, account discovery, operations ingestion,
// reconciliation, balance tracking and statements download.
package pipeline

import (
	"context"
	"time"

	"github.com/dvloznov/agricole-sync/internal/config"
	"github.com/dvloznov/agricole-sync/internal/logger"
	"github.com/dvloznov/agricole-sync/internal/portal"
)

// Deps are the collaborators of a sync run. Statements may be nil.
type Deps struct {
	Auth       Authenticator
	Accounts   AccountService
	Operations OperationsFetcher
	Saver      TransactionSaver
	Balances   BalanceTracker
	Histories  HistoryWriter
	Statements StatementFetcher

	Now func() time.Time
}

// Run executes one sync. The deadline shared by every step is computed once from
// cfg.RunBudget.
func Run(ctx context.Context, cfg *config.Config, deps *Deps) (*Result, error) {
	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}
	start := now()

	log := logger.FromContext(ctx).With().Int("bank_id", cfg.BankID).Logger()
	ctx = logger.WithContext(ctx, log)

	state := &SyncState{Deadline: start.Add(cfg.RunBudget)}
	log.Info().Time("deadline", state.Deadline).Msg("sync started")

	if err := NewSyncPipeline(deps).Execute(ctx, state); err != nil {
		log.Error().Err(err).Msg("sync failed")
		return nil, err
	}

	res := &Result{
		Accounts:     len(state.SavedAccounts),
		Transactions: len(state.SavedTransactions),
		Histories:    len(state.Histories),
		Duration:     now().Sub(start),
	}
	if state.Session != nil {
		res.Generation = portal.GenerationName(state.Session.Generation)
	}
	log.Info().
		Str("generation", res.Generation).
		Int("accounts", res.Accounts).
		Int("transactions", res.Transactions).
		Int("histories", res.Histories).
		Dur("duration", res.Duration).
		Msg("sync finished")
	return res, nil
}
