package domain

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout is the calendar date format used for balance keys and forged ids.
const DateLayout = "2006-01-02"

// balanceHistoryNamespace seeds the deterministic balance history ids.
var balanceHistoryNamespace = uuid.MustParse("6f1c2a0e-4b4e-4d8e-9a53-2f5b8c1e7d10")

// BalanceHistory holds the balances observed for one account during one calendar year.
type BalanceHistory struct {
	ID        string                     `json:"_id"`
	AccountID string                     `json:"relationships.account"`
	Year      int                        `json:"year"`
	Balances  map[string]decimal.Decimal `json:"balances"`
}

// BalanceHistoryID returns the stable id of the (account, year) history.
func BalanceHistoryID(accountID string, year int) string {
	return uuid.NewSHA1(balanceHistoryNamespace, []byte(fmt.Sprintf("%s/%d", accountID, year))).String()
}

// NewBalanceHistory returns an empty history for the account and year.
func NewBalanceHistory(accountID string, year int) *BalanceHistory {
	return &BalanceHistory{
		ID:        BalanceHistoryID(accountID, year),
		AccountID: accountID,
		Year:      year,
		Balances:  make(map[string]decimal.Decimal),
	}
}
