package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/agricole-sync/internal/domain"
	"github.com/dvloznov/agricole-sync/internal/logger"
	"github.com/dvloznov/agricole-sync/internal/portal"
)

// PipelineStep represents a single step of a sync run.
type PipelineStep interface {
	Name() string
	Execute(ctx context.Context, state *SyncState) error
}

// LoginStep opens the portal session. Any failure aborts the run.
type LoginStep struct {
	Auth Authenticator
}

func (s *LoginStep) Name() string { return StepLogin }

func (s *LoginStep) Execute(ctx context.Context, state *SyncState) error {
	session, err := s.Auth.Login(ctx)
	if err != nil {
		return err
	}
	state.Session = session
	return nil
}

// DiscoverAccountsStep lists the accounts of the landing page. An unreadable page yields no
// accounts instead of failing the run.
type DiscoverAccountsStep struct {
	Accounts AccountService
}

func (s *DiscoverAccountsStep) Name() string { return StepDiscoverAccounts }

func (s *DiscoverAccountsStep) Execute(ctx context.Context, state *SyncState) error {
	accounts, err := s.Accounts.Discover(ctx, state.Session)
	if errors.Is(err, domain.ErrUnparseable) {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("could not read accounts, continuing without any")
		accounts, err = nil, nil
	}
	if err != nil {
		return err
	}
	state.Accounts = accounts
	return nil
}

// EnrichBalancesStep fetches the balances of modern accounts. Failures leave balances unset.
type EnrichBalancesStep struct {
	Accounts AccountService
}

func (s *EnrichBalancesStep) Name() string { return StepEnrichBalances }

func (s *EnrichBalancesStep) Execute(ctx context.Context, state *SyncState) error {
	if _, ok := state.Session.Generation.(*portal.Modern); !ok || len(state.Accounts) == 0 {
		return nil
	}
	if err := s.Accounts.EnrichBalances(ctx, state.Session, state.Accounts); err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("could not fetch balances")
	}
	return nil
}

// FetchOperationsStep fetches the transactions of every account in list order. A failing
// account contributes no transaction and the run goes on.
type FetchOperationsStep struct {
	Operations OperationsFetcher
}

func (s *FetchOperationsStep) Name() string { return StepFetchOperations }

func (s *FetchOperationsStep) Execute(ctx context.Context, state *SyncState) error {
	state.Transactions = make(map[string][]*domain.Transaction, len(state.Accounts))
	for _, account := range state.Accounts {
		txs, err := s.Operations.Sync(ctx, state.Session, account)
		if err != nil {
			_, log := logger.WithAccount(ctx, account.Number)
			log.Error().Err(err).Msg("could not fetch operations")
			txs = nil
		}
		state.Transactions[account.Number] = txs
	}
	return nil
}

// ReconcileStep saves accounts and new transactions.
type ReconcileStep struct {
	Saver TransactionSaver
}

func (s *ReconcileStep) Name() string { return StepReconcile }

func (s *ReconcileStep) Execute(ctx context.Context, state *SyncState) error {
	accounts, txs, err := s.Saver.Save(ctx, state.Accounts, state.Transactions)
	if err != nil {
		return err
	}
	state.SavedAccounts = accounts
	state.SavedTransactions = txs
	return nil
}

// TrackBalancesStep records today's balance of every saved account.
type TrackBalancesStep struct {
	Tracker   BalanceTracker
	Histories HistoryWriter
}

func (s *TrackBalancesStep) Name() string { return StepTrackBalances }

func (s *TrackBalancesStep) Execute(ctx context.Context, state *SyncState) error {
	histories, err := s.Tracker.Track(ctx, state.SavedAccounts)
	if err != nil {
		return err
	}
	if len(histories) == 0 {
		return nil
	}
	if err := s.Histories.UpsertBalanceHistories(ctx, histories); err != nil {
		return err
	}
	state.Histories = histories
	return nil
}

// FetchDocumentsStep saves the legacy statements. Failures are logged only.
type FetchDocumentsStep struct {
	Statements StatementFetcher
}

func (s *FetchDocumentsStep) Name() string { return StepFetchDocuments }

func (s *FetchDocumentsStep) Execute(ctx context.Context, state *SyncState) error {
	if s.Statements == nil {
		return nil
	}
	if err := s.Statements.FetchStatements(ctx, state.Session, state.Deadline); err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("could not save statements")
	}
	return nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps sequentially and stops at the first failing one.
func (p *Pipeline) Execute(ctx context.Context, state *SyncState) error {
	log := logger.FromContext(ctx)
	for i, step := range p.steps {
		log.Debug().Int("step", i+1).Str("name", step.Name()).Msg("running step")
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d (%s) failed: %w", i+1, step.Name(), err)
		}
	}
	return nil
}

// NewSyncPipeline creates the standard sync pipeline over deps.
func NewSyncPipeline(deps *Deps) *Pipeline {
	return NewPipeline(
		&LoginStep{Auth: deps.Auth},
		&DiscoverAccountsStep{Accounts: deps.Accounts},
		&EnrichBalancesStep{Accounts: deps.Accounts},
		&FetchOperationsStep{Operations: deps.Operations},
		&ReconcileStep{Saver: deps.Saver},
		&TrackBalancesStep{Tracker: deps.Balances, Histories: deps.Histories},
		&FetchDocumentsStep{Statements: deps.Statements},
	)
}
