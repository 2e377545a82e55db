package accounts

import (
	"context"
	"fmt"
	"net/url"

	"github.com/dvloznov/agricole-sync/internal/domain"
	"github.com/dvloznov/agricole-sync/internal/logger"
	"github.com/dvloznov/agricole-sync/internal/portal"
	"github.com/dvloznov/agricole-sync/internal/portal/extract"
	"github.com/shopspring/decimal"
)

// DetailsPath returns the balances of every contract of a product family.
const DetailsPath = "particulier/operations/synthese/jcr:content.produits-valorisation.json"

type contractDetails struct {
	IDElementContrat    extract.Text     `json:"idElementContrat"`
	Solde               *decimal.Decimal `json:"solde"`
	EncoursActuel       *decimal.Decimal `json:"encoursActuel"`
	ValorisationContrat *decimal.Decimal `json:"valorisationContrat"`
	MontantRestantDu    *decimal.Decimal `json:"montantRestantDu"`
}

// balance returns the first field the product exposes. Loans report what is left to repay,
// which counts against the customer.
func (d contractDetails) balance() *decimal.Decimal {
	switch {
	case d.Solde != nil:
		return d.Solde
	case d.EncoursActuel != nil:
		return d.EncoursActuel
	case d.ValorisationContrat != nil:
		return d.ValorisationContrat
	case d.MontantRestantDu != nil:
		due := d.MontantRestantDu.Neg()
		return &due
	}
	return nil
}

// EnrichBalances fetches the balances the synthesis left out. Only modern sessions are
// concerned; accounts without a matching contract keep a nil balance.
func EnrichBalances(ctx context.Context, session *portal.Session, accounts []*domain.Account, countWithInterest bool) error {
	modern, ok := session.Generation.(*portal.Modern)
	if !ok {
		return nil
	}
	log := logger.FromContext(ctx)
	if countWithInterest {
		log.Debug().Msg("loan interests are not counted in balances")
	}

	byContract := make(map[string]*domain.Account, len(accounts))
	for _, acc := range accounts {
		if acc.Portal.Contract != "" {
			byContract[acc.Portal.Contract] = acc
		}
	}

	for i, acc := range accounts {
		if acc.Balance != nil || acc.Portal.Category == "" {
			continue
		}
		log.Info().Int("account", i).Str("category", acc.Portal.Category).Msg("fetching account details")

		var details []contractDetails
		detailsURL := modern.BankURL + "/" + DetailsPath + "/" + url.PathEscape(acc.Portal.Category)
		if err := session.Client.GetJSON(ctx, detailsURL, nil, &details); err != nil {
			return fmt.Errorf("EnrichBalances: %w", err)
		}

		for _, d := range details {
			target, found := byContract[d.IDElementContrat.String()]
			if !found {
				continue
			}
			if b := d.balance(); b != nil {
				target.Balance = b
			}
		}
	}
	return nil
}
