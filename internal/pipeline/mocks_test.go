package pipeline_test

import (
	"context"
	"time"

	"github.com/dvloznov/agricole-sync/internal/domain"
	"github.com/dvloznov/agricole-sync/internal/pipeline"
	"github.com/dvloznov/agricole-sync/internal/portal"
)

// MockAuthenticator is a mock implementation of Authenticator for testing.
type MockAuthenticator struct {
	LoginFunc func(ctx context.Context) (*portal.Session, error)
}

func (m *MockAuthenticator) Login(ctx context.Context) (*portal.Session, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx)
	}
	return &portal.Session{Generation: &portal.Legacy{}}, nil
}

// MockAccountService is a mock implementation of AccountService for testing.
type MockAccountService struct {
	DiscoverFunc       func(ctx context.Context, session *portal.Session) ([]*domain.Account, error)
	EnrichBalancesFunc func(ctx context.Context, session *portal.Session, accounts []*domain.Account) error
}

func (m *MockAccountService) Discover(ctx context.Context, session *portal.Session) ([]*domain.Account, error) {
	if m.DiscoverFunc != nil {
		return m.DiscoverFunc(ctx, session)
	}
	return nil, nil
}

func (m *MockAccountService) EnrichBalances(ctx context.Context, session *portal.Session, accounts []*domain.Account) error {
	if m.EnrichBalancesFunc != nil {
		return m.EnrichBalancesFunc(ctx, session, accounts)
	}
	return nil
}

// MockOperationsFetcher is a mock implementation of OperationsFetcher for testing.
type MockOperationsFetcher struct {
	SyncFunc func(ctx context.Context, session *portal.Session, account *domain.Account) ([]*domain.Transaction, error)
}

func (m *MockOperationsFetcher) Sync(ctx context.Context, session *portal.Session, account *domain.Account) ([]*domain.Transaction, error) {
	if m.SyncFunc != nil {
		return m.SyncFunc(ctx, session, account)
	}
	return nil, nil
}

// MockStatementFetcher is a mock implementation of StatementFetcher for testing.
type MockStatementFetcher struct {
	FetchStatementsFunc func(ctx context.Context, session *portal.Session, deadline time.Time) error
}

func (m *MockStatementFetcher) FetchStatements(ctx context.Context, session *portal.Session, deadline time.Time) error {
	if m.FetchStatementsFunc != nil {
		return m.FetchStatementsFunc(ctx, session, deadline)
	}
	return nil
}

var (
	_ pipeline.Authenticator     = (*MockAuthenticator)(nil)
	_ pipeline.AccountService    = (*MockAccountService)(nil)
	_ pipeline.OperationsFetcher = (*MockOperationsFetcher)(nil)
	_ pipeline.StatementFetcher  = (*MockStatementFetcher)(nil)
)
