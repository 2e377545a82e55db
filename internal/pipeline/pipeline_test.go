package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dvloznov/agricole-sync/internal/balance"
	"github.com/dvloznov/agricole-sync/internal/config"
	"github.com/dvloznov/agricole-sync/internal/domain"
	"github.com/dvloznov/agricole-sync/internal/infra/memory"
	"github.com/dvloznov/agricole-sync/internal/logger"
	"github.com/dvloznov/agricole-sync/internal/pipeline"
	"github.com/dvloznov/agricole-sync/internal/portal"
	"github.com/dvloznov/agricole-sync/internal/reconcile"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		Login:     "12345678901",
		Password:  "123456",
		BankID:    20,
		Store:     config.StoreMemory,
		RunBudget: 3 * time.Minute,
	}
}

func testAccounts() []*domain.Account {
	b1 := decimal.RequireFromString("1500.25")
	return []*domain.Account{
		{Number: "111", Label: "CCHQ", Type: domain.AccountTypeCheckings, Balance: &b1},
		{Number: "222", Label: "LDD", Type: domain.AccountTypeSavings},
	}
}

func transactions(number string, n int) []*domain.Transaction {
	var txs []*domain.Transaction
	for i := 0; i < n; i++ {
		d := now.AddDate(0, 0, -i)
		txs = append(txs, &domain.Transaction{
			VendorID:        fmt.Sprintf("%s_%s_0", number, d.Format(domain.DateLayout)),
			VendorAccountID: number,
			Date:            d,
			DateOperation:   d,
			Amount:          decimal.NewFromInt(int64(-10 * (i + 1))),
			Currency:        "EUR",
			Type:            domain.TransactionTypeNone,
		})
	}
	return txs
}

func newDeps(store *memory.Store) *pipeline.Deps {
	return &pipeline.Deps{
		Auth: &MockAuthenticator{},
		Accounts: &MockAccountService{
			DiscoverFunc: func(context.Context, *portal.Session) ([]*domain.Account, error) {
				return testAccounts(), nil
			},
		},
		Operations: &MockOperationsFetcher{
			SyncFunc: func(_ context.Context, _ *portal.Session, a *domain.Account) ([]*domain.Transaction, error) {
				return transactions(a.Number, 3), nil
			},
		},
		Saver:     reconcile.New(store),
		Balances:  &balance.Tracker{Histories: store, Loc: time.UTC, Now: func() time.Time { return now }},
		Histories: store,
		Now:       func() time.Time { return now },
	}
}

func TestRun(t *testing.T) {
	ctx := logger.Nop(context.Background())
	store := memory.New()

	var gotDeadline time.Time
	deps := newDeps(store)
	deps.Statements = &MockStatementFetcher{
		FetchStatementsFunc: func(_ context.Context, _ *portal.Session, deadline time.Time) error {
			gotDeadline = deadline
			return errors.New("statements page moved")
		},
	}

	res, err := pipeline.Run(ctx, testConfig(), deps)
	require.NoError(t, err)
	assert.Equal(t, "legacy", res.Generation)
	assert.Equal(t, 2, res.Accounts)
	assert.Equal(t, 6, res.Transactions)
	assert.Equal(t, 1, res.Histories)
	assert.Equal(t, now.Add(3*time.Minute), gotDeadline)

	accounts, err := store.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 2)

	h, err := store.GetBalanceHistory(ctx, accounts[0].ID, 2024)
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.True(t, decimal.RequireFromString("1500.25").Equal(h.Balances["2024-03-10"]))

	// A second run stores nothing twice.
	_, err = pipeline.Run(ctx, testConfig(), deps)
	require.NoError(t, err)
	assert.Len(t, store.Transactions(accounts[0].ID), 3)
	accounts, err = store.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Len(t, accounts, 2)
}

func TestRun_LoginFailureAborts(t *testing.T) {
	ctx := logger.Nop(context.Background())
	deps := newDeps(memory.New())
	discovered := false
	deps.Auth = &MockAuthenticator{
		LoginFunc: func(context.Context) (*portal.Session, error) {
			return nil, domain.NewError(domain.KindLoginFailed, "wrong password", nil)
		},
	}
	deps.Accounts = &MockAccountService{
		DiscoverFunc: func(context.Context, *portal.Session) ([]*domain.Account, error) {
			discovered = true
			return nil, nil
		},
	}

	_, err := pipeline.Run(ctx, testConfig(), deps)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrLoginFailed)
	kind, ok := domain.KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, domain.KindLoginFailed, kind)
	assert.False(t, discovered)
}

func TestRun_UnparseableAccountsYieldEmptyRun(t *testing.T) {
	ctx := logger.Nop(context.Background())
	deps := newDeps(memory.New())
	deps.Accounts = &MockAccountService{
		DiscoverFunc: func(context.Context, *portal.Session) ([]*domain.Account, error) {
			return nil, domain.NewError(domain.KindUnparseable, "no accounts table", nil)
		},
	}

	res, err := pipeline.Run(ctx, testConfig(), deps)
	require.NoError(t, err)
	assert.Zero(t, res.Accounts)
	assert.Zero(t, res.Transactions)
}

func TestRun_AccountFailureDoesNotStopOthers(t *testing.T) {
	ctx := logger.Nop(context.Background())
	store := memory.New()
	deps := newDeps(store)
	var order []string
	deps.Operations = &MockOperationsFetcher{
		SyncFunc: func(_ context.Context, _ *portal.Session, a *domain.Account) ([]*domain.Transaction, error) {
			order = append(order, a.Number)
			if a.Number == "111" {
				return nil, domain.NewError(domain.KindUnparseable, "bad export", nil)
			}
			return transactions(a.Number, 2), nil
		},
	}

	res, err := pipeline.Run(ctx, testConfig(), deps)
	require.NoError(t, err)
	assert.Equal(t, []string{"111", "222"}, order)
	assert.Equal(t, 2, res.Accounts)
	assert.Equal(t, 2, res.Transactions)
}

func TestRun_ModernEnrichesBalances(t *testing.T) {
	ctx := logger.Nop(context.Background())
	deps := newDeps(memory.New())
	deps.Auth = &MockAuthenticator{
		LoginFunc: func(context.Context) (*portal.Session, error) {
			return &portal.Session{Generation: &portal.Modern{}}, nil
		},
	}
	enriched := 0
	deps.Accounts = &MockAccountService{
		DiscoverFunc: func(context.Context, *portal.Session) ([]*domain.Account, error) {
			return testAccounts(), nil
		},
		EnrichBalancesFunc: func(_ context.Context, _ *portal.Session, accounts []*domain.Account) error {
			enriched = len(accounts)
			b := decimal.NewFromInt(42)
			accounts[1].Balance = &b
			return nil
		},
	}

	res, err := pipeline.Run(ctx, testConfig(), deps)
	require.NoError(t, err)
	assert.Equal(t, "modern", res.Generation)
	assert.Equal(t, 2, enriched)
	assert.Equal(t, 2, res.Histories)
}

func TestPipeline_Execute_WrapsStepName(t *testing.T) {
	p := pipeline.NewPipeline(&pipeline.LoginStep{Auth: &MockAuthenticator{
		LoginFunc: func(context.Context) (*portal.Session, error) {
			return nil, domain.NewError(domain.KindVendorDown, "503", nil)
		},
	}})

	err := p.Execute(logger.Nop(context.Background()), &pipeline.SyncState{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline step 1 (login) failed")
	assert.ErrorIs(t, err, domain.ErrVendorDown)
}
