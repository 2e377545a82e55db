// Package operations fetches the operations of an account and normalizes them into
// transactions carrying a deterministic vendor id.
package operations

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/agricole-sync/internal/domain"
	"github.com/dvloznov/agricole-sync/internal/logger"
	"github.com/dvloznov/agricole-sync/internal/portal"
	"github.com/dvloznov/agricole-sync/internal/sheet"
)

// Ingester fetches and parses operations for the session's portal generation.
type Ingester struct {
	Dates *DateParser
	Loc   *time.Location
	Now   func() time.Time
}

// NewIngester returns an ingester reading legacy dates in locale.
func NewIngester(locale string) *Ingester {
	return &Ingester{
		Dates: NewDateParser(locale),
		Loc:   ParisLocation(),
		Now:   time.Now,
	}
}

// Sync returns the account's transactions with their vendor ids forged.
func (in *Ingester) Sync(ctx context.Context, session *portal.Session, account *domain.Account) ([]*domain.Transaction, error) {
	_, log := logger.WithAccount(ctx, account.Number)
	log.Info().Str("label", account.Label).Msg("fetching operations")

	now := in.Now()
	var txs []*domain.Transaction

	switch g := session.Generation.(type) {
	case *portal.Legacy:
		if account.Portal.OperationsLink == "" {
			return nil, fmt.Errorf("Sync: account %s has no operations link", account.Number)
		}
		data, err := session.Client.GetBinary(ctx, LegacyExportURL(g.BaseURL, account.Portal.OperationsLink))
		if err != nil {
			return nil, fmt.Errorf("Sync: fetching export: %w", err)
		}
		rows, err := sheet.Read(data)
		if err != nil {
			return nil, domain.NewError(domain.KindUnparseable, "reading operations export", err)
		}
		txs = ParseLegacyOperations(ctx, account, rows, in.Dates, now)

	case *portal.Modern:
		raw, err := FetchModernOperations(ctx, session.Client, g.BankURL, account)
		if err != nil {
			return nil, fmt.Errorf("Sync: %w", err)
		}
		txs = ParseModernOperations(account, raw, now)

	default:
		return nil, fmt.Errorf("Sync: unsupported portal generation %T", session.Generation)
	}

	ForgeVendorIDs(account.Number, txs, in.Loc)
	log.Info().Int("operations", len(txs)).Msg("operations fetched")
	return txs, nil
}

// LegacyExportURL returns the spreadsheet download of a legacy operations link.
func LegacyExportURL(baseURL, operationsLink string) string {
	return baseURL + "/stb/" + operationsLink + "&typeaction=telechargement"
}
