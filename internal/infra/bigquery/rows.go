package bigquery

import (
	"fmt"
	"math/big"
	"sort"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/agricole-sync/internal/domain"
	"github.com/shopspring/decimal"
)

type AccountRow struct {
	AccountID string `bigquery:"account_id"` // REQUIRED

	InstitutionLabel string `bigquery:"institution_label"` // REQUIRED
	AccountType      string `bigquery:"account_type"`      // REQUIRED
	Label            string `bigquery:"label"`             // REQUIRED
	AccountNumber    string `bigquery:"account_number"`    // REQUIRED, unique
	VendorID         string `bigquery:"vendor_id"`         // REQUIRED

	// NUMERIC is read and written through its string form so that NULL survives the
	// round trip through array-of-struct query parameters.
	Balance bigquery.NullString `bigquery:"balance"` // NULLABLE

	UpdatedTS time.Time `bigquery:"updated_ts"` // REQUIRED
}

type TransactionRow struct {
	VendorID        string `bigquery:"vendor_id"`         // REQUIRED, unique
	VendorAccountID string `bigquery:"vendor_account_id"` // REQUIRED
	AccountID       string `bigquery:"account_id"`        // REQUIRED

	Date          civil.Date `bigquery:"date"`           // REQUIRED
	DateOperation civil.Date `bigquery:"date_operation"` // REQUIRED
	DateImport    time.Time  `bigquery:"date_import"`    // REQUIRED

	Label         string `bigquery:"label"`          // REQUIRED
	OriginalLabel string `bigquery:"original_label"` // NULLABLE (empty string for modern records)
	Type          string `bigquery:"type"`           // REQUIRED

	Amount   *big.Rat `bigquery:"amount"`   // REQUIRED NUMERIC
	Currency string   `bigquery:"currency"` // REQUIRED
}

type BalancePoint struct {
	Date    civil.Date `bigquery:"date"`
	Balance *big.Rat   `bigquery:"balance"`
}

type BalanceHistoryRow struct {
	HistoryID string `bigquery:"history_id"` // REQUIRED
	AccountID string `bigquery:"account_id"` // REQUIRED
	Year      int64  `bigquery:"year"`       // REQUIRED

	Balances []BalancePoint `bigquery:"balances"` // REPEATED RECORD

	UpdatedTS time.Time `bigquery:"updated_ts"` // REQUIRED
}

// civilDate keeps the calendar day the time carries in its own location.
func civilDate(t time.Time) civil.Date {
	return civil.DateOf(t)
}

func ratToDecimal(r *big.Rat) (decimal.Decimal, error) {
	if r == nil {
		return decimal.Zero, fmt.Errorf("ratToDecimal: NULL numeric")
	}
	// NUMERIC has a scale of 9.
	return decimal.NewFromString(r.FloatString(9))
}

func NewAccountRow(a *domain.Account, now time.Time) *AccountRow {
	row := &AccountRow{
		AccountID:        a.ID,
		InstitutionLabel: a.InstitutionLabel,
		AccountType:      string(a.Type),
		Label:            a.Label,
		AccountNumber:    a.Number,
		VendorID:         a.VendorID,
		UpdatedTS:        now.UTC(),
	}
	if a.Balance != nil {
		row.Balance = bigquery.NullString{StringVal: a.Balance.String(), Valid: true}
	}
	return row
}

// Account converts the row back to the domain shape. The portal bag stays empty.
func (r *AccountRow) Account() (*domain.Account, error) {
	a := &domain.Account{
		ID:               r.AccountID,
		InstitutionLabel: r.InstitutionLabel,
		Type:             domain.AccountType(r.AccountType),
		Label:            r.Label,
		Number:           r.AccountNumber,
		VendorID:         r.VendorID,
	}
	if r.Balance.Valid {
		b, err := decimal.NewFromString(r.Balance.StringVal)
		if err != nil {
			return nil, fmt.Errorf("AccountRow.Account: balance %q: %w", r.Balance.StringVal, err)
		}
		a.Balance = &b
	}
	return a, nil
}

func NewTransactionRow(tx *domain.Transaction) *TransactionRow {
	return &TransactionRow{
		VendorID:        tx.VendorID,
		VendorAccountID: tx.VendorAccountID,
		AccountID:       tx.AccountID,
		Date:            civilDate(tx.Date),
		DateOperation:   civilDate(tx.DateOperation),
		DateImport:      tx.DateImport.UTC(),
		Label:           tx.Label,
		OriginalLabel:   tx.OriginalLabel,
		Type:            tx.Type,
		Amount:          tx.Amount.Rat(),
		Currency:        tx.Currency,
	}
}

func NewBalanceHistoryRow(h *domain.BalanceHistory, now time.Time) (*BalanceHistoryRow, error) {
	row := &BalanceHistoryRow{
		HistoryID: h.ID,
		AccountID: h.AccountID,
		Year:      int64(h.Year),
		UpdatedTS: now.UTC(),
	}
	for day, balance := range h.Balances {
		d, err := civil.ParseDate(day)
		if err != nil {
			return nil, fmt.Errorf("NewBalanceHistoryRow: day %q: %w", day, err)
		}
		row.Balances = append(row.Balances, BalancePoint{Date: d, Balance: balance.Rat()})
	}
	sort.Slice(row.Balances, func(i, j int) bool {
		return row.Balances[i].Date.Before(row.Balances[j].Date)
	})
	return row, nil
}

func (r *BalanceHistoryRow) BalanceHistory() (*domain.BalanceHistory, error) {
	h := &domain.BalanceHistory{
		ID:        r.HistoryID,
		AccountID: r.AccountID,
		Year:      int(r.Year),
		Balances:  make(map[string]decimal.Decimal, len(r.Balances)),
	}
	for _, p := range r.Balances {
		b, err := ratToDecimal(p.Balance)
		if err != nil {
			return nil, fmt.Errorf("BalanceHistoryRow.BalanceHistory: %s: %w", p.Date, err)
		}
		h.Balances[p.Date.String()] = b
	}
	return h, nil
}
