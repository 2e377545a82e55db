package accounts

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dvloznov/agricole-sync/internal/domain"
	"github.com/dvloznov/agricole-sync/internal/portal/extract"
	"github.com/shopspring/decimal"
)

const (
	insuranceFamily = "MES ASSURANCES"
	proxyHolderRole = "MANDATAIRE"
)

type modernAccount struct {
	NumeroCompteBam          extract.Text     `json:"numeroCompteBam"`
	LibelleUsuelProduit      string           `json:"libelleUsuelProduit"`
	LibelleProduit           string           `json:"libelleProduit"`
	Solde                    *decimal.Decimal `json:"solde"`
	GrandeFamilleProduitCode extract.Text     `json:"grandeFamilleProduitCode"`
	IDElementContrat         extract.Text     `json:"idElementContrat"`
	IDDevise                 string           `json:"idDevise"`
	RolePartenaireCalcule    string           `json:"rolePartenaireCalcule"`
}

type synthesis struct {
	ComptePrincipal modernAccount `json:"comptePrincipal"`
	GrandesFamilles []struct {
		Titre            string          `json:"titre"`
		ElementsContrats []modernAccount `json:"elementsContrats"`
	} `json:"grandesFamilles"`
}

func (m modernAccount) toAccount() *domain.Account {
	return &domain.Account{
		InstitutionLabel: domain.InstitutionLabel,
		Type:             domain.AccountTypeFromLabel(strings.TrimSpace(m.LibelleUsuelProduit)),
		Label:            strings.TrimSpace(m.LibelleProduit),
		Number:           m.NumeroCompteBam.String(),
		VendorID:         m.NumeroCompteBam.String(),
		Balance:          m.Solde,
		Portal: domain.PortalData{
			Category: m.GrandeFamilleProduitCode.String(),
			Contract: m.IDElementContrat.String(),
			Currency: m.IDDevise,
		},
	}
}

// ParseModernAccounts reads the synthesis blob of the modern landing page: the principal
// account first, then every family but insurances.
func ParseModernAccounts(page *goquery.Document, opts Options) ([]*domain.Account, error) {
	raw, err := extract.SynthesisInitJSON(page)
	if err != nil {
		return nil, err
	}

	var s synthesis
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, domain.NewError(domain.KindUnparseable, "decoding account synthesis", err)
	}

	accounts := []*domain.Account{s.ComptePrincipal.toAccount()}
	for _, family := range s.GrandesFamilles {
		if family.Titre == insuranceFamily {
			continue
		}
		for _, el := range family.ElementsContrats {
			if opts.IgnoreMandatoryAccount && el.RolePartenaireCalcule == proxyHolderRole {
				continue
			}
			accounts = append(accounts, el.toAccount())
		}
	}
	return accounts, nil
}
