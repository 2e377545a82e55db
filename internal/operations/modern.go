package operations

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/agricole-sync/internal/domain"
	"github.com/dvloznov/agricole-sync/internal/logger"
	"github.com/dvloznov/agricole-sync/internal/portal"
	"github.com/dvloznov/agricole-sync/internal/portal/extract"
	"github.com/shopspring/decimal"
)

// OperationsPath is the paginated operations feed of one contract.
const OperationsPath = "particulier/operations/synthese/detail-comptes/jcr:content.n3.operations.json"

// PageSize is the number of operations requested per page.
const PageSize = 100

// PortalTime is a date sent either as epoch milliseconds or as an ISO 8601 string.
type PortalTime struct {
	time.Time
}

var portalTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func (t *PortalTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}

	raw := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		t.Time = time.UnixMilli(ms).In(ParisLocation())
		return nil
	}
	for _, layout := range portalTimeLayouts {
		if parsed, err := time.ParseInLocation(layout, raw, ParisLocation()); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("PortalTime: unexpected value %s", data)
}

// ModernOperation is one record of the modern operations feed.
type ModernOperation struct {
	Montant          decimal.Decimal `json:"montant"`
	DateValeur       PortalTime      `json:"dateValeur"`
	DateOperation    PortalTime      `json:"dateOperation"`
	LibelleOperation string          `json:"libelleOperation"`
	IDDevise         string          `json:"idDevise"`
}

type operationsPage struct {
	ListeOperations   []ModernOperation `json:"listeOperations"`
	NextSetStartIndex extract.Text      `json:"nextSetStartIndex"`
	HasNext           bool              `json:"hasNext"`
}

// FetchModernOperations follows the feed of the account until the portal reports no more
// pages, and returns every record in feed order.
func FetchModernOperations(ctx context.Context, client portal.Requester, bankURL string, account *domain.Account) ([]ModernOperation, error) {
	log := logger.FromContext(ctx)
	feedURL := bankURL + "/" + OperationsPath

	query := url.Values{
		"compteIdx":         {"0"},
		"grandeFamilleCode": {account.Portal.Category},
		"idElementContrat":  {account.Portal.Contract},
		"idDevise":          {account.Portal.Currency},
		"count":             {strconv.Itoa(PageSize)},
	}

	var all []ModernOperation
	for page := 1; ; page++ {
		var resp operationsPage
		if err := client.GetJSON(ctx, feedURL, query, &resp); err != nil {
			return nil, fmt.Errorf("FetchModernOperations: page %d: %w", page, err)
		}
		all = append(all, resp.ListeOperations...)
		log.Debug().Int("page", page).Int("operations", len(resp.ListeOperations)).Bool("hasNext", resp.HasNext).Msg("operations page")

		if !resp.HasNext {
			break
		}
		next := resp.NextSetStartIndex.String()
		if next == "" || next == query.Get("startIndex") {
			return nil, domain.NewError(domain.KindUnparseable,
				fmt.Sprintf("operations page %d announces a next page without a new cursor", page), nil)
		}
		query.Set("startIndex", next)
	}
	return all, nil
}

// ParseModernOperations normalizes feed records. Amounts are already signed by the portal.
func ParseModernOperations(account *domain.Account, raw []ModernOperation, now time.Time) []*domain.Transaction {
	txs := make([]*domain.Transaction, 0, len(raw))
	for _, op := range raw {
		currency := account.Portal.Currency
		if currency == "" {
			currency = op.IDDevise
		}
		dateOp := op.DateOperation.Time
		if dateOp.IsZero() {
			dateOp = op.DateValeur.Time
		}
		txs = append(txs, &domain.Transaction{
			VendorAccountID: account.Number,
			Date:            op.DateValeur.Time,
			DateOperation:   dateOp,
			DateImport:      now,
			Label:           strings.TrimSpace(op.LibelleOperation),
			Type:            domain.TransactionTypeNone,
			Amount:          op.Montant,
			Currency:        currency,
		})
	}
	return txs
}
