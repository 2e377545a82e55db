package pipeline

import (
	"context"
	"fmt"

	"github.com/dvloznov/agricole-sync/internal/accounts"
	"github.com/dvloznov/agricole-sync/internal/auth"
	"github.com/dvloznov/agricole-sync/internal/balance"
	"github.com/dvloznov/agricole-sync/internal/config"
	"github.com/dvloznov/agricole-sync/internal/documents"
	"github.com/dvloznov/agricole-sync/internal/domain"
	"github.com/dvloznov/agricole-sync/internal/gcsuploader"
	bqstore "github.com/dvloznov/agricole-sync/internal/infra/bigquery"
	fsstore "github.com/dvloznov/agricole-sync/internal/infra/firestore"
	"github.com/dvloznov/agricole-sync/internal/infra/memory"
	"github.com/dvloznov/agricole-sync/internal/operations"
	"github.com/dvloznov/agricole-sync/internal/portal"
	"github.com/dvloznov/agricole-sync/internal/reconcile"
	"github.com/dvloznov/agricole-sync/internal/regions"
	"github.com/dvloznov/agricole-sync/internal/storage"
	"github.com/hashicorp/go-multierror"
)

// OpenStore opens the storage backend named by cfg.Store.
func OpenStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.Store {
	case config.StoreMemory:
		return memory.New(), nil
	case config.StoreBigQuery:
		return bqstore.New(ctx, cfg.GCPProject, cfg.BigQueryDataset)
	case config.StoreFirestore:
		return fsstore.New(ctx, cfg.GCPProject)
	default:
		return nil, fmt.Errorf("OpenStore: unknown store %q", cfg.Store)
	}
}

// AccountsService adapts the accounts package to AccountService.
type AccountsService struct {
	Options           accounts.Options
	CountWithInterest bool
}

func (s AccountsService) Discover(ctx context.Context, session *portal.Session) ([]*domain.Account, error) {
	return accounts.Discover(ctx, session, s.Options)
}

func (s AccountsService) EnrichBalances(ctx context.Context, session *portal.Session, accs []*domain.Account) error {
	return accounts.EnrichBalances(ctx, session, accs, s.CountWithInterest)
}

// Build wires the production collaborators for cfg over store. The returned close function
// releases what Build opened; the store stays owned by the caller.
func Build(ctx context.Context, cfg *config.Config, store storage.Store) (*Deps, func() error, error) {
	region, err := regions.Embedded().Lookup(cfg.BankID)
	if err != nil {
		return nil, nil, err
	}

	client, err := portal.New()
	if err != nil {
		return nil, nil, fmt.Errorf("Build: portal client: %w", err)
	}

	deps := &Deps{
		Auth: auth.NewEngine(client, region.URL, auth.Credentials{Login: cfg.Login, Password: cfg.Password}),
		Accounts: AccountsService{
			Options:           accounts.Options{IgnoreMandatoryAccount: cfg.IgnoreMandatoryAccount},
			CountWithInterest: cfg.CountWithInterest,
		},
		Operations: operations.NewIngester(cfg.DateLocale),
		Saver:      reconcile.New(store),
		Balances:   balance.NewTracker(store, operations.ParisLocation()),
		Histories:  store,
	}

	var closers []func() error
	if cfg.StatementsBucket != "" {
		bucket, err := gcsuploader.NewBucket(ctx, cfg.StatementsBucket)
		if err != nil {
			return nil, nil, fmt.Errorf("Build: statements bucket: %w", err)
		}
		closers = append(closers, bucket.Close)
		deps.Statements = documents.NewFetcher(gcsuploader.NewSaver(bucket, client, cfg.StatementsPrefix))
	}

	closeAll := func() error {
		var result *multierror.Error
		for _, c := range closers {
			if err := c(); err != nil {
				result = multierror.Append(result, err)
			}
		}
		return result.ErrorOrNil()
	}
	return deps, closeAll, nil
}
