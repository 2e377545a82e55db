package pipeline

import (
	"context"
	"time"

	"github.com/dvloznov/agricole-sync/internal/domain"
	"github.com/dvloznov/agricole-sync/internal/portal"
)

// Authenticator opens a portal session. *auth.Engine is the concrete implementation.
type Authenticator interface {
	Login(ctx context.Context) (*portal.Session, error)
}

// AccountService discovers accounts and fills in balances the landing page does not carry.
type AccountService interface {
	Discover(ctx context.Context, session *portal.Session) ([]*domain.Account, error)
	EnrichBalances(ctx context.Context, session *portal.Session, accounts []*domain.Account) error
}

// OperationsFetcher returns the transactions of one account with vendor ids forged.
// *operations.Ingester is the concrete implementation.
type OperationsFetcher interface {
	Sync(ctx context.Context, session *portal.Session, account *domain.Account) ([]*domain.Transaction, error)
}

// TransactionSaver persists accounts and transactions. *reconcile.Reconciler is the
// concrete implementation.
type TransactionSaver interface {
	Save(ctx context.Context, accounts []*domain.Account, txs map[string][]*domain.Transaction) ([]*domain.Account, []*domain.Transaction, error)
}

// BalanceTracker computes the updated balance histories. *balance.Tracker is the concrete
// implementation.
type BalanceTracker interface {
	Track(ctx context.Context, accounts []*domain.Account) ([]*domain.BalanceHistory, error)
}

// HistoryWriter persists balance histories.
type HistoryWriter interface {
	UpsertBalanceHistories(ctx context.Context, histories []*domain.BalanceHistory) error
}

// StatementFetcher saves the statements of a session before deadline.
// *documents.Fetcher is the concrete implementation.
type StatementFetcher interface {
	FetchStatements(ctx context.Context, session *portal.Session, deadline time.Time) error
}
