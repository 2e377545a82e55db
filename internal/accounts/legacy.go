package accounts

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dvloznov/agricole-sync/internal/domain"
	"github.com/dvloznov/agricole-sync/internal/logger"
	"github.com/dvloznov/agricole-sync/internal/portal/extract"
)

// legacyCellText returns the full text of an accounts table cell. Truncated labels carry
// their full text in the tooltip handler, and the icon cell links to the operations export.
func legacyCellText(td *goquery.Selection) string {
	text := strings.TrimSpace(td.Text())

	if full, ok := extract.QuotedArg(td.AttrOr("onmouseover", "")); ok {
		text = full
	}

	if td.Find("img").Length() > 0 {
		if link, ok := extract.CallArg(td.Find("a").AttrOr("href", "")); ok {
			text = link
		}
	}
	return text
}

// ParseLegacyAccounts reads the legacy accounts table. Cells are, in order, the product
// abbreviation, the account number, the balance and the operations link.
func ParseLegacyAccounts(ctx context.Context, page *goquery.Document) ([]*domain.Account, error) {
	log := logger.FromContext(ctx)

	var accounts []*domain.Account
	page.Find(".ca-table tbody tr").Has("img").Each(func(i int, tr *goquery.Selection) {
		var cells []string
		tr.Find("td").Each(func(_ int, td *goquery.Selection) {
			if text := legacyCellText(td); text != "" {
				cells = append(cells, text)
			}
		})
		if len(cells) < 4 {
			log.Warn().Int("row", i).Strs("cells", cells).Msg("skipping incomplete account row")
			return
		}

		acc := &domain.Account{
			InstitutionLabel: domain.InstitutionLabel,
			Type:             domain.AccountTypeFromLabel(cells[0]),
			Label:            cells[0],
			Number:           cells[1],
			VendorID:         cells[1],
			Portal:           domain.PortalData{OperationsLink: cells[len(cells)-1]},
		}
		if balance, err := domain.ParseAmount(cells[2]); err == nil {
			acc.Balance = &balance
		} else {
			log.Warn().Err(err).Str("account", logger.Mask(acc.Number)).Msg("unreadable balance")
		}
		accounts = append(accounts, acc)
	})
	return accounts, nil
}
